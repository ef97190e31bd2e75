package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"chatroom/internal/middleware"
	"chatroom/internal/room"
)

// historySize is how many recent messages a fresh connection receives.
const historySize = 25

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

// RoomStore is what the consumer needs from the room layer.
type RoomStore interface {
	GetBySlug(ctx context.Context, slug string) (*room.Room, error)
	IsOwnerOrMember(ctx context.Context, roomID, userID int) (bool, error)
}

type Handler struct {
	hub      *Hub
	rooms    RoomStore
	messages MessageStore
}

func NewHandler(hub *Hub, rooms RoomStore, messages MessageStore) *Handler {
	return &Handler{hub: hub, rooms: rooms, messages: messages}
}

// ServeWs runs the connect half of the consumer lifecycle: resolve the
// room, check membership, upgrade, join the group, replay history. The
// room and membership checks run before the upgrade, so an unauthorized
// caller never sees a websocket accept.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	slug := chi.URLParam(r, "roomSlug")
	rm, err := h.rooms.GetBySlug(r.Context(), slug)
	if err != nil {
		// Unexpected store errors close the connection the same way a
		// missing room does.
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	member, err := h.rooms.IsOwnerOrMember(r.Context(), rm.ID, userID)
	if err != nil || !member {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		UserID:   userID,
		RoomID:   rm.ID,
		RoomSlug: slug,
	}

	// History goes onto the send queue before registration so it always
	// precedes the presence update.
	msgs, err := h.messages.RecentMessages(r.Context(), rm.ID, historySize)
	if err != nil {
		log.Printf("history %s: %v", slug, err)
	} else {
		payload, _ := json.Marshal(msgs)
		client.send <- payload
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
