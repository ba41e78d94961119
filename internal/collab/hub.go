package collab

import (
	"context"
	"sync"

	"reliefapp/internal/config"
	"reliefapp/internal/observability"
	"reliefapp/internal/serviceinterfaces"
)

// Hub tracks the live collaboration rooms, one per report. Rooms are created
// on first join and dropped as soon as the last participant leaves; nothing
// about a room survives it.
type Hub struct {
	config *config.Config
	logger *observability.Logger

	mu    sync.Mutex
	rooms map[int]*Room
	ready bool
}

// Ensure Hub implements the lifecycle interface
var _ serviceinterfaces.Lifecycle = (*Hub)(nil)

// NewHub creates a new Hub instance
func NewHub(cfg *config.Config, logger *observability.Logger) *Hub {
	return &Hub{
		config: cfg,
		logger: logger,
		rooms:  make(map[int]*Room),
	}
}

// Join adds a participant to the report's room, creating the room on first
// join. The returned client carries the outbound event stream; the caller
// owns pumping it to the transport and must call Leave on disconnect.
func (h *Hub) Join(ctx context.Context, reportID, userID int, displayName string) *Client {
	ctx, span := observability.TraceCollabFunction(ctx, "Join",
		observability.AttributeReportID(reportID),
		observability.AttributeUserID(userID),
	)
	defer span.End()

	h.mu.Lock()
	room, ok := h.rooms[reportID]
	if !ok {
		room = newRoom(h, reportID)
		h.rooms[reportID] = room
	}
	h.mu.Unlock()

	client := room.join(userID, displayName)
	h.logger.Info(ctx, "Collaborator joined", map[string]interface{}{
		"report_id":  reportID,
		"user_id":    userID,
		"session_id": client.SessionID(),
	})
	return client
}

// Leave removes the client from its room
func (h *Hub) Leave(ctx context.Context, client *Client) {
	ctx, span := observability.TraceCollabFunction(ctx, "Leave",
		observability.AttributeReportID(client.room.reportID),
		observability.AttributeUserID(client.userID),
	)
	defer span.End()

	client.room.Leave(client)
	h.logger.Info(ctx, "Collaborator left", map[string]interface{}{
		"report_id":  client.room.reportID,
		"user_id":    client.userID,
		"session_id": client.SessionID(),
	})
}

// Room returns the live room for a report, or nil when nobody is connected
func (h *Hub) Room(reportID int) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[reportID]
}

// RoomCount returns the number of live rooms
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) dropRoomIfEmpty(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.rooms[room.reportID]; ok && current == room && room.size() == 0 {
		delete(h.rooms, room.reportID)
	}
}

// Startup implements serviceinterfaces.Lifecycle
func (h *Hub) Startup(ctx context.Context) error {
	h.mu.Lock()
	h.ready = true
	h.mu.Unlock()
	return nil
}

// Shutdown closes every live connection and drops all rooms
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.ready = false
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[int]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		room.closeAll()
	}
	h.logger.Info(ctx, "Collaboration hub shut down", map[string]interface{}{
		"rooms_closed": len(rooms),
	})
	return nil
}

// IsReady implements serviceinterfaces.Lifecycle
func (h *Hub) IsReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}
