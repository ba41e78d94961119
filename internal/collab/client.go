package collab

import (
	"sync"

	"github.com/google/uuid"
)

// sendBufferSize bounds the per-client outbound queue. A client that cannot
// drain this many events is considered dead and gets dropped from the room.
const sendBufferSize = 64

// Client is one participant's membership in a room. The transport (websocket
// or an in-process test harness) reads outbound events from Events and feeds
// inbound events to the room via HandleEvent.
type Client struct {
	sessionID string
	userID    int
	name      string
	room      *Room

	send      chan Event
	closeOnce sync.Once
}

func newClient(room *Room, userID int, displayName string) *Client {
	return &Client{
		sessionID: uuid.NewString(),
		userID:    userID,
		name:      displayName,
		room:      room,
		send:      make(chan Event, sendBufferSize),
	}
}

// SessionID returns the ephemeral connection identifier
func (c *Client) SessionID() string {
	return c.sessionID
}

// Participant returns the client's presence descriptor
func (c *Client) Participant() Participant {
	return Participant{
		SessionID:   c.sessionID,
		UserID:      c.userID,
		DisplayName: c.name,
	}
}

// Events is the outbound event stream. The channel is closed when the client
// leaves its room.
func (c *Client) Events() <-chan Event {
	return c.send
}

// enqueue offers an event without blocking; it reports false when the
// client's buffer is full.
func (c *Client) enqueue(event Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}
