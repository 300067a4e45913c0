package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"trivia-room-service/internal/app"
)

// WSHandler upgrades connections and routes the room/game protocol into the
// dispatcher. Each connection gets a server-minted id; that id is the only
// identity a client has, and reconnection swaps it via player:reconnect.
type WSHandler struct {
	service     *app.GameService
	hub         *Hub
	defaultBank string
	upgrader    websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub, defaultBank string) *WSHandler {
	return &WSHandler{
		service:     service,
		hub:         hub,
		defaultBank: defaultBank,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	BankID string `json:"bankId"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type roomOnlyPayload struct {
	RoomID string `json:"roomId"`
}

type submitAnswerPayload struct {
	RoomID      string `json:"roomId"`
	OptionIndex int    `json:"optionIndex"`
}

type reconnectPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// ServeWS upgrades the request and runs the connection's read loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan envelope, 32),
	}
	h.hub.add(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	h.readLoop(r.Context(), c)

	h.service.Disconnect(c.id)
	h.hub.remove(c.id)
	close(c.send)
	<-writerDone
	conn.Close()
}

func (h *WSHandler) readLoop(ctx context.Context, c *client) {
	for {
		var inbound inboundMessage
		if err := c.conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.dispatch(ctx, c, inbound)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, c *client, inbound inboundMessage) {
	switch inbound.Type {
	case "host:create-room":
		var payload createRoomPayload
		_ = json.Unmarshal(inbound.Payload, &payload)
		if payload.BankID == "" {
			payload.BankID = h.defaultBank
		}
		room, err := h.service.CreateRoom(ctx, c.id, payload.BankID)
		if err == nil {
			h.hub.setRoom(c.id, room.Code())
		}

	case "player:join-room":
		var payload joinRoomPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		if _, err := h.service.JoinRoom(payload.RoomID, c.id, payload.Username); err == nil {
			h.hub.setRoom(c.id, payload.RoomID)
		}

	case "host:start-game":
		var payload roomOnlyPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		_ = h.service.StartGame(payload.RoomID, c.id)

	case "player:submit-answer":
		var payload submitAnswerPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		_, _ = h.service.SubmitAnswer(payload.RoomID, c.id, payload.OptionIndex)

	case "host:next-question":
		var payload roomOnlyPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		_ = h.service.NextQuestion(payload.RoomID, c.id)

	case "host:skip-question":
		var payload roomOnlyPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		_ = h.service.SkipQuestion(payload.RoomID, c.id)

	case "host:end-game":
		var payload roomOnlyPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		_ = h.service.EndGame(payload.RoomID, c.id)

	case "player:reconnect":
		var payload reconnectPayload
		if err := h.decode(c, inbound.Payload, &payload); err != nil {
			return
		}
		if _, err := h.service.Reconnect(payload.RoomID, payload.PlayerID, c.id); err == nil {
			h.hub.setRoom(c.id, payload.RoomID)
		}

	default:
		h.hub.ToConn(c.id, app.EventError, app.ErrorPayload{Code: "UNSUPPORTED", Message: "unsupported message type"})
	}
}

func (h *WSHandler) decode(c *client, raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		h.hub.ToConn(c.id, app.EventError, app.ErrorPayload{Code: "INVALID_PAYLOAD", Message: "malformed payload"})
		return err
	}
	return nil
}
