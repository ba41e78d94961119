package collab

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// ServeConn joins the report's room and pumps the upgraded connection until
// it drops. It blocks for the life of the connection; the caller only needs
// to upgrade and hand the conn over.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn, reportID, userID int, displayName string) {
	client := h.Join(ctx, reportID, userID, displayName)
	defer func() {
		h.Leave(ctx, client)
		_ = conn.Close()
	}()

	go h.writePump(ctx, conn, client)
	h.readPump(ctx, conn, client)
}

func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(h.config.CollabMaxMessageSize())
	_ = conn.SetReadDeadline(time.Now().Add(h.config.CollabPongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.CollabPongWait()))
	})

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(ctx, "Collaboration read failed", map[string]interface{}{
					"report_id":  client.room.reportID,
					"session_id": client.SessionID(),
					"error":      err.Error(),
				})
			}
			return
		}
		client.room.HandleEvent(client, event)
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, client *Client) {
	pingTicker := time.NewTicker(h.config.CollabPingInterval())
	defer pingTicker.Stop()

	for {
		select {
		case event, ok := <-client.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.CollabWriteWait()))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				_ = conn.Close()
				return
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.CollabWriteWait()))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
