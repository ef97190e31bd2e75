package chat

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatroom/internal/room"
)

// MessageStore is what the hub needs from the persistence layer.
type MessageStore interface {
	SaveMessage(ctx context.Context, roomID, authorID int, text string) error
	RecentMessages(ctx context.Context, roomID, limit int) ([]room.Message, error)
}

type inbound struct {
	client *Client
	frame  inboundFrame
}

type outbound struct {
	roomSlug string
	payload  []byte
}

// Hub owns the per-room broadcast groups. Clients register on connect
// and unregister when their connection dies; received messages pass
// through publish. Delivery to a group is fan-out: a slow member is
// dropped, the rest are unaffected.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan *inbound
	broadcast  chan *outbound

	store    MessageStore
	presence PresenceStore

	// relay carries frames to other instances; nil means single-node.
	relay  *redis.Client
	origin string
}

func NewHub(store MessageStore, presence PresenceStore, relay *redis.Client) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *inbound),
		broadcast:  make(chan *outbound),
		store:      store,
		presence:   presence,
		relay:      relay,
		origin:     uuid.NewString(),
	}
}

func (h *Hub) Run() {
	ctx := context.Background()
	for {
		select {
		case c := <-h.register:
			group := h.rooms[c.RoomSlug]
			if group == nil {
				group = make(map[*Client]bool)
				h.rooms[c.RoomSlug] = group
			}
			group[c] = true

			if err := h.presence.Add(ctx, c.RoomSlug, c.UserID); err != nil {
				log.Printf("presence add %s/%d: %v", c.RoomSlug, c.UserID, err)
			}
			h.sendCounter(ctx, c.RoomSlug)

		case c := <-h.unregister:
			if group, ok := h.rooms[c.RoomSlug]; ok && group[c] {
				delete(group, c)
				close(c.send)
				if len(group) == 0 {
					delete(h.rooms, c.RoomSlug)
				}
			}
			if err := h.presence.Remove(ctx, c.RoomSlug, c.UserID); err != nil {
				log.Printf("presence remove %s/%d: %v", c.RoomSlug, c.UserID, err)
			}
			h.sendCounter(ctx, c.RoomSlug)

		case msg := <-h.publish:
			if err := h.store.SaveMessage(ctx, msg.client.RoomID, msg.client.UserID, msg.frame.Message); err != nil {
				log.Printf("save message in %s: %v", msg.client.RoomSlug, err)
			}

			author := msg.frame.Author
			if author == 0 {
				author = msg.client.UserID
			}
			payload, _ := json.Marshal(chatMessage{Author: author, Text: msg.frame.Message})
			h.deliver(ctx, msg.client.RoomSlug, payload)

		case out := <-h.broadcast:
			h.fanOut(out.roomSlug, out.payload)
		}
	}
}

// fanOut pushes a frame to every connection in the room's group.
func (h *Hub) fanOut(roomSlug string, payload []byte) {
	group := h.rooms[roomSlug]
	for client := range group {
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(group, client)
		}
	}
}

// deliver fans out locally and relays the frame for other instances.
func (h *Hub) deliver(ctx context.Context, roomSlug string, payload []byte) {
	h.fanOut(roomSlug, payload)

	if h.relay != nil {
		env, _ := json.Marshal(relayEnvelope{Origin: h.origin, Room: roomSlug, Payload: payload})
		if err := h.relay.Publish(ctx, relayChannel(roomSlug), env).Err(); err != nil {
			log.Printf("relay publish %s: %v", roomSlug, err)
		}
	}
}

// sendCounter broadcasts the room's current presence set.
func (h *Hub) sendCounter(ctx context.Context, roomSlug string) {
	users, err := h.presence.Members(ctx, roomSlug)
	if err != nil {
		log.Printf("presence members %s: %v", roomSlug, err)
		return
	}
	payload, _ := json.Marshal(userCounter{CurrentlyOnline: len(users), Users: users})
	h.deliver(ctx, roomSlug, payload)
}

func relayChannel(roomSlug string) string {
	return "chat." + roomSlug
}

// SubscribeRelay feeds frames published by other instances into the
// local broadcast loop.
func (h *Hub) SubscribeRelay(ctx context.Context) {
	if h.relay == nil {
		return
	}

	pubsub := h.relay.PSubscribe(ctx, relayChannel("*"))
	for msg := range pubsub.Channel() {
		var env relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("relay decode: %v", err)
			continue
		}
		if env.Origin == h.origin {
			continue
		}
		h.broadcast <- &outbound{roomSlug: env.Room, payload: env.Payload}
	}
}
