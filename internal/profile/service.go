package profile

import (
	"context"
	"errors"
	"time"

	"chatroom/internal/relation"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends  = errors.New("user is already your friend")
	ErrRelationExists  = errors.New("a friend request between these users already exists")
	ErrNotFriend       = errors.New("user is not your friend")
	ErrBadStatus       = errors.New("status must be accepted or declined")
)

// Store is what the service needs from the persistence layer.
type Store interface {
	CreateForUser(ctx context.Context, userID int, username string) error
	GetByUserID(ctx context.Context, userID int) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, search string) ([]ListItem, error)
	AreFriends(ctx context.Context, userID, friendID int) (bool, error)
	RemoveFriends(ctx context.Context, userID, friendID int) error
	GetEmail(ctx context.Context, userID int) (string, error)
	RelationExists(ctx context.Context, a, b int) (bool, error)
	CreateRequest(ctx context.Context, creatorID, friendObjectID int) (*FriendRequest, error)
	RequestsFrom(ctx context.Context, creatorID int) ([]FriendRequest, error)
	RequestsTo(ctx context.Context, friendObjectID int) ([]FriendRequest, error)
	DeleteRequest(ctx context.Context, id, creatorID int) error
	AcceptRequest(ctx context.Context, id, friendObjectID int) (int, error)
	DeclineRequest(ctx context.Context, id, friendObjectID int) error
}

// Notifier delivers best-effort email notifications. Implementations
// must not block the caller.
type Notifier interface {
	FriendRequestCreated(toEmail, fromUsername string)
	FriendRequestAccepted(toEmail, byUsername string)
}

type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// CreateForUser is the account post-creation hook, see user.ProfileCreator.
func (s *Service) CreateForUser(ctx context.Context, userID int, username string) error {
	return s.store.CreateForUser(ctx, userID, username)
}

func (s *Service) Get(ctx context.Context, userID int) (*Profile, error) {
	return s.store.GetByUserID(ctx, userID)
}

func (s *Service) List(ctx context.Context, search string) ([]ListItem, error) {
	return s.store.List(ctx, search)
}

func (s *Service) Update(ctx context.Context, userID int, req *UpdateRequest) (*Profile, error) {
	p, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		p.Username = *req.Username
	}
	if req.Avatar != nil {
		p.Avatar = *req.Avatar
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.BirthDate != nil {
		bd, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return nil, errors.New("birth_date must be YYYY-MM-DD")
		}
		p.BirthDate = &bd
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddFriend creates a pending friend request from creator to target.
func (s *Service) AddFriend(ctx context.Context, creatorID, targetID int) (*FriendRequest, error) {
	if creatorID == targetID {
		return nil, ErrSelfRequest
	}
	if _, err := s.store.GetByUserID(ctx, targetID); err != nil {
		return nil, err
	}

	friends, err := s.store.AreFriends(ctx, creatorID, targetID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	// A pending request in either direction blocks a new one.
	exists, err := s.store.RelationExists(ctx, creatorID, targetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRelationExists
	}

	req, err := s.store.CreateRequest(ctx, creatorID, targetID)
	if err != nil {
		return nil, err
	}

	if email, err := s.store.GetEmail(ctx, targetID); err == nil {
		if creator, err := s.store.GetByUserID(ctx, creatorID); err == nil {
			s.notifier.FriendRequestCreated(email, creator.Username)
		}
	}
	return req, nil
}

// DeleteFriend removes an existing friendship in both directions.
func (s *Service) DeleteFriend(ctx context.Context, userID, targetID int) error {
	friends, err := s.store.AreFriends(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !friends {
		return ErrNotFriend
	}
	return s.store.RemoveFriends(ctx, userID, targetID)
}

func (s *Service) RequestsFrom(ctx context.Context, userID int) ([]FriendRequest, error) {
	return s.store.RequestsFrom(ctx, userID)
}

func (s *Service) RequestsTo(ctx context.Context, userID int) ([]FriendRequest, error) {
	return s.store.RequestsTo(ctx, userID)
}

// Retract deletes an outgoing pending request.
func (s *Service) Retract(ctx context.Context, requestID, callerID int) error {
	return s.store.DeleteRequest(ctx, requestID, callerID)
}

// Resolve applies an accept or decline transition to an incoming request.
// Both transitions are terminal: the row is gone afterwards.
func (s *Service) Resolve(ctx context.Context, requestID, callerID int, status relation.Status) error {
	switch status {
	case relation.Accepted:
		creatorID, err := s.store.AcceptRequest(ctx, requestID, callerID)
		if err != nil {
			return err
		}
		if email, err := s.store.GetEmail(ctx, creatorID); err == nil {
			if accepter, err := s.store.GetByUserID(ctx, callerID); err == nil {
				s.notifier.FriendRequestAccepted(email, accepter.Username)
			}
		}
		return nil
	case relation.Declined:
		return s.store.DeclineRequest(ctx, requestID, callerID)
	}
	return ErrBadStatus
}
