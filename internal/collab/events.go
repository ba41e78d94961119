package collab

import "encoding/json"

// Event types carried over the collaboration channel.
const (
	EventSectionUpdated     = "section-updated"
	EventCollaboratorJoined = "collaborator-joined"
	EventCollaboratorLeft   = "collaborator-left"
	EventTypingStart        = "typing-start"
	EventTypingStop         = "typing-stop"
)

// Participant identifies one connected editor inside a room.
type Participant struct {
	SessionID   string `json:"session_id"`
	UserID      int    `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Event is one collaboration message. SectionID and Content travel with
// section-updated and typing events; User carries presence info. Content is
// relayed opaque: recipients apply it last-writer-wins to their local copy.
type Event struct {
	Type      string          `json:"type"`
	SectionID int             `json:"section_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	User      *Participant    `json:"user,omitempty"`
	UserName  string          `json:"user_name,omitempty"`
}

// isInboundEventType reports whether a participant may send this event type.
// Presence events are emitted by the room itself on join and leave.
func isInboundEventType(eventType string) bool {
	switch eventType {
	case EventSectionUpdated, EventTypingStart, EventTypingStop:
		return true
	}
	return false
}
