package collab

import (
	"sort"
	"sync"
)

// Room is the broadcast domain for one report. Membership changes and
// fan-out are serialized behind the room mutex; delivery to each client is
// non-blocking so one stalled connection cannot hold up the others.
type Room struct {
	reportID int
	hub      *Hub

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func newRoom(hub *Hub, reportID int) *Room {
	return &Room{
		reportID: reportID,
		hub:      hub,
		clients:  make(map[*Client]struct{}),
	}
}

// ReportID returns the report this room serves
func (r *Room) ReportID() int {
	return r.reportID
}

func (r *Room) join(userID int, displayName string) *Client {
	client := newClient(r, userID, displayName)

	r.mu.Lock()
	r.clients[client] = struct{}{}
	r.mu.Unlock()

	participant := client.Participant()
	r.broadcast(client, Event{
		Type: EventCollaboratorJoined,
		User: &participant,
	})
	return client
}

// Leave removes the client and notifies the remaining participants. Abrupt
// disconnects funnel through here too, so both paths look the same to the
// rest of the room. Leaving twice is a no-op.
func (r *Room) Leave(client *Client) {
	r.mu.Lock()
	_, present := r.clients[client]
	if present {
		delete(r.clients, client)
	}
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if !present {
		return
	}
	client.closeSend()

	r.broadcast(client, Event{
		Type:     EventCollaboratorLeft,
		UserName: client.name,
	})
	if empty {
		r.hub.dropRoomIfEmpty(r)
	}
}

// HandleEvent relays one inbound event from sender to every other
// participant. Unknown event types are dropped; content is not merged or
// inspected, the last broadcast applied wins.
func (r *Room) HandleEvent(sender *Client, event Event) {
	if !isInboundEventType(event.Type) {
		return
	}
	participant := sender.Participant()
	event.User = &participant
	r.broadcast(sender, event)
}

// broadcast delivers the event to every participant except sender. Clients
// whose buffers are full are dropped, which triggers their leave.
func (r *Room) broadcast(sender *Client, event Event) {
	r.mu.Lock()
	var stalled []*Client
	for client := range r.clients {
		if client == sender {
			continue
		}
		if !client.enqueue(event) {
			stalled = append(stalled, client)
		}
	}
	r.mu.Unlock()

	for _, client := range stalled {
		r.Leave(client)
	}
}

// Participants lists the room's current presence set, ordered by session id
// for stable output.
func (r *Room) Participants() []Participant {
	r.mu.Lock()
	participants := make([]Participant, 0, len(r.clients))
	for client := range r.clients {
		participants = append(participants, client.Participant())
	}
	r.mu.Unlock()

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].SessionID < participants[j].SessionID
	})
	return participants
}

func (r *Room) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) closeAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.clients = make(map[*Client]struct{})
	r.mu.Unlock()

	for _, client := range clients {
		client.closeSend()
	}
}
