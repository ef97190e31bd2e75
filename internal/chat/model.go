package chat

import "encoding/json"

// inboundFrame is what the browser sends us.
type inboundFrame struct {
	Author  int    `json:"author"`
	Message string `json:"message"`
}

// chatMessage is the fan-out form of a received message.
type chatMessage struct {
	Author int    `json:"author"`
	Text   string `json:"text"`
}

// userCounter is the presence update broadcast to a room's group.
type userCounter struct {
	CurrentlyOnline int   `json:"currently_online"`
	Users           []int `json:"User"`
}

// relayEnvelope wraps frames published to Redis so an instance can skip
// the frames it published itself.
type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}
