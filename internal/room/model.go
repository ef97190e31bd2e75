package room

import (
	"encoding/json"
	"time"
)

type Room struct {
	ID        int       `json:"-"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	OwnerID   int       `json:"owner"`
	Members   []int     `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// MembersNum counts the owner alongside the members set, which never
// contains the owner.
func (r *Room) MembersNum() int {
	return len(r.Members) + 1
}

func (r *Room) MarshalJSON() ([]byte, error) {
	type alias Room
	return json.Marshal(struct {
		*alias
		MembersNum int `json:"members_num"`
	}{(*alias)(r), r.MembersNum()})
}

// Message is immutable once created.
type Message struct {
	ID        int       `json:"-"`
	AuthorID  int       `json:"author"`
	RoomID    int       `json:"room"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Invite is a pending room invitation. Accepted and declined invites do
// not persist, see relation.Status.
type Invite struct {
	ID             int       `json:"id"`
	CreatorID      int       `json:"creator"`
	InviteObjectID int       `json:"invite_object"`
	RoomID         int       `json:"-"`
	RoomSlug       string    `json:"room"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// UpdateRoomRequest carries a partial room update. Members may only
// shrink; additions go through invites.
type UpdateRoomRequest struct {
	Title   *string `json:"title"`
	Members *[]int  `json:"members"`
}

type InviteRequest struct {
	InviteObjects []int `json:"invite_objects"`
}
