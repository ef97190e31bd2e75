package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"chatroom/internal/relation"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInviteNotFound = errors.New("invite not found")
	ErrNotOwner       = errors.New("only the room owner may do this")
	ErrNotMember      = errors.New("you are not a member of this room")
	ErrSlugTaken      = errors.New("slug is already in use")
	ErrReservedSlug   = errors.New("slug matches the reserved auto-generated pattern")
	ErrAlreadyMember  = errors.New("user is already a member of this room")
	ErrInviteToOwner  = errors.New("the owner cannot be invited to their own room")
	ErrInviteExists   = errors.New("user already has a pending invite to this room")
	ErrMembersGrow    = errors.New("members can only be removed through an update")
	ErrBadStatus      = errors.New("status must be accepted or declined")
	ErrBadPagination  = errors.New("limit and offset must be integers")
)

// Store is what the service needs from the persistence layer.
type Store interface {
	CreateRoom(ctx context.Context, rm *Room) error
	GetBySlug(ctx context.Context, slug string) (*Room, error)
	ListForUser(ctx context.Context, userID int, search string) ([]Room, error)
	UpdateTitle(ctx context.Context, roomID int, title string) error
	DeleteRoom(ctx context.Context, roomID int) error
	RemoveMember(ctx context.Context, roomID, userID int) error
	IsOwnerOrMember(ctx context.Context, roomID, userID int) (bool, error)
	PendingInviteExists(ctx context.Context, inviteObjectID, roomID int) (bool, error)
	CreateInvites(ctx context.Context, creatorID, roomID int, inviteeIDs []int) ([]Invite, error)
	InvitesFrom(ctx context.Context, creatorID int) ([]Invite, error)
	InvitesTo(ctx context.Context, inviteObjectID int) ([]Invite, error)
	DeleteInvite(ctx context.Context, id, creatorID int) error
	AcceptInvite(ctx context.Context, id, inviteObjectID int) error
	DeclineInvite(ctx context.Context, id, inviteObjectID int) error
	MessagesPage(ctx context.Context, roomID, limit, offset int) ([]Message, error)
	CountMessages(ctx context.Context, roomID int) (int, error)
	Emails(ctx context.Context, userIDs []int) ([]string, error)
	Username(ctx context.Context, userID int) (string, error)
}

// Notifier delivers best-effort email notifications. Implementations
// must not block the caller.
type Notifier interface {
	InviteCreated(toEmails []string, fromUsername, roomTitle string)
}

type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Create builds the room, deriving a slug from the title when none is
// supplied. Generated slugs carry a random suffix; on the rare
// collision we draw a fresh one.
func (s *Service) Create(ctx context.Context, ownerID int, req *CreateRoomRequest) (*Room, error) {
	if req.Slug != "" && IsReservedSlug(req.Slug) {
		return nil, ErrReservedSlug
	}

	rm := &Room{Title: req.Title, Slug: req.Slug, OwnerID: ownerID}
	if rm.Slug != "" {
		if err := s.store.CreateRoom(ctx, rm); err != nil {
			return nil, err
		}
		return rm, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		rm.Slug = NewSlug(req.Title)
		err := s.store.CreateRoom(ctx, rm)
		if err == nil {
			return rm, nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("create room: %w", ErrSlugTaken)
}

func (s *Service) List(ctx context.Context, userID int, search string) ([]Room, error) {
	return s.store.ListForUser(ctx, userID, search)
}

func (s *Service) Get(ctx context.Context, slug string) (*Room, error) {
	return s.store.GetBySlug(ctx, slug)
}

// Update edits the title and removes members. The members list, when
// present, must be a subset of the current one.
func (s *Service) Update(ctx context.Context, callerID int, slug string, req *UpdateRoomRequest) (*Room, error) {
	rm, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rm.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	if req.Title != nil {
		if err := s.store.UpdateTitle(ctx, rm.ID, *req.Title); err != nil {
			return nil, err
		}
		rm.Title = *req.Title
	}

	if req.Members != nil {
		current := make(map[int]bool, len(rm.Members))
		for _, id := range rm.Members {
			current[id] = true
		}
		after := make(map[int]bool, len(*req.Members))
		for _, id := range *req.Members {
			if !current[id] {
				return nil, ErrMembersGrow
			}
			after[id] = true
		}
		for _, id := range rm.Members {
			if !after[id] {
				if err := s.store.RemoveMember(ctx, rm.ID, id); err != nil {
					return nil, err
				}
			}
		}
		rm.Members = *req.Members
	}

	return rm, nil
}

func (s *Service) Delete(ctx context.Context, callerID int, slug string) error {
	rm, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if rm.OwnerID != callerID {
		return ErrNotOwner
	}
	return s.store.DeleteRoom(ctx, rm.ID)
}

// Invite creates pending invites for every listed user. Each invitee is
// validated independently against the same room before anything is
// written.
func (s *Service) Invite(ctx context.Context, callerID int, slug string, inviteeIDs []int) ([]Invite, error) {
	rm, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rm.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	members := make(map[int]bool, len(rm.Members))
	for _, id := range rm.Members {
		members[id] = true
	}

	for _, inviteeID := range inviteeIDs {
		if inviteeID == rm.OwnerID {
			return nil, fmt.Errorf("user %d: %w", inviteeID, ErrInviteToOwner)
		}
		if members[inviteeID] {
			return nil, fmt.Errorf("user %d: %w", inviteeID, ErrAlreadyMember)
		}
		pending, err := s.store.PendingInviteExists(ctx, inviteeID, rm.ID)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, fmt.Errorf("user %d: %w", inviteeID, ErrInviteExists)
		}
	}

	invites, err := s.store.CreateInvites(ctx, callerID, rm.ID, inviteeIDs)
	if err != nil {
		return nil, err
	}
	for i := range invites {
		invites[i].RoomSlug = rm.Slug
	}

	if emails, err := s.store.Emails(ctx, inviteeIDs); err == nil && len(emails) > 0 {
		username, _ := s.store.Username(ctx, callerID)
		s.notifier.InviteCreated(emails, username, rm.Title)
	}
	return invites, nil
}

func (s *Service) InvitesFrom(ctx context.Context, userID int) ([]Invite, error) {
	return s.store.InvitesFrom(ctx, userID)
}

func (s *Service) InvitesTo(ctx context.Context, userID int) ([]Invite, error) {
	return s.store.InvitesTo(ctx, userID)
}

// Retract deletes an outgoing pending invite.
func (s *Service) Retract(ctx context.Context, inviteID, callerID int) error {
	return s.store.DeleteInvite(ctx, inviteID, callerID)
}

// Resolve applies an accept or decline transition to an incoming invite.
// Both transitions are terminal: the row is gone afterwards.
func (s *Service) Resolve(ctx context.Context, inviteID, callerID int, status relation.Status) error {
	switch status {
	case relation.Accepted:
		return s.store.AcceptInvite(ctx, inviteID, callerID)
	case relation.Declined:
		return s.store.DeclineInvite(ctx, inviteID, callerID)
	}
	return ErrBadStatus
}

// LazyLoadMessages pages through a room's messages newest-first and
// reports whether the slice reaches the end of the history.
func (s *Service) LazyLoadMessages(ctx context.Context, callerID int, slug, limitStr, offsetStr string) ([]Message, bool, error) {
	rm, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	ok, err := s.store.IsOwnerOrMember(ctx, rm.ID, callerID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrNotMember
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return nil, false, ErrBadPagination
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		return nil, false, ErrBadPagination
	}

	messages, err := s.store.MessagesPage(ctx, rm.ID, limit, offset)
	if err != nil {
		return nil, false, err
	}
	total, err := s.store.CountMessages(ctx, rm.ID)
	if err != nil {
		return nil, false, err
	}
	return messages, total <= offset+limit, nil
}
