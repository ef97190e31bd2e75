package profile

import "time"

type Profile struct {
	UserID      int        `json:"user"`
	Username    string     `json:"username"`
	Avatar      string     `json:"avatar"`
	Description string     `json:"description"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	BirthDate   *time.Time `json:"birth_date"`
	Location    string     `json:"location"`
	Friends     []int      `json:"friends"`
}

// ListItem is the short form used by the profile list endpoint.
type ListItem struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// FriendRequest is a pending friendship relation between two users.
// Accepted and declined requests do not persist, see relation.Status.
type FriendRequest struct {
	ID             int       `json:"id"`
	CreatorID      int       `json:"creator"`
	FriendObjectID int       `json:"friend_object"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpdateRequest carries a partial profile update. Nil fields are left
// untouched.
type UpdateRequest struct {
	Username    *string `json:"username"`
	Avatar      *string `json:"avatar"`
	Description *string `json:"description"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	BirthDate   *string `json:"birth_date"`
	Location    *string `json:"location"`
}
