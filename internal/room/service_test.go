package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatroom/internal/relation"
)

type fakeStore struct {
	rooms        []*Room
	nextRoomID   int
	members      map[int]map[int]bool
	invites      map[int]*Invite
	nextInviteID int
	messages     map[int][]Message
	emails       map[int]string
	usernames    map[int]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:   make(map[int]map[int]bool),
		invites:   make(map[int]*Invite),
		messages:  make(map[int][]Message),
		emails:    make(map[int]string),
		usernames: make(map[int]string),
	}
}

func (f *fakeStore) CreateRoom(_ context.Context, rm *Room) error {
	for _, existing := range f.rooms {
		if existing.Slug == rm.Slug {
			return ErrSlugTaken
		}
	}
	f.nextRoomID++
	rm.ID = f.nextRoomID
	rm.CreatedAt = time.Now()
	rm.Members = []int{}
	stored := *rm
	f.rooms = append(f.rooms, &stored)
	return nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*Room, error) {
	for _, rm := range f.rooms {
		if rm.Slug == slug {
			copied := *rm
			copied.Members = f.memberList(rm.ID)
			return &copied, nil
		}
	}
	return nil, ErrRoomNotFound
}

func (f *fakeStore) memberList(roomID int) []int {
	members := []int{}
	for id := range f.members[roomID] {
		members = append(members, id)
	}
	return members
}

func (f *fakeStore) ListForUser(_ context.Context, userID int, _ string) ([]Room, error) {
	var out []Room
	for _, rm := range f.rooms {
		if rm.OwnerID == userID || f.members[rm.ID][userID] {
			copied := *rm
			copied.Members = f.memberList(rm.ID)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTitle(_ context.Context, roomID int, title string) error {
	for _, rm := range f.rooms {
		if rm.ID == roomID {
			rm.Title = title
			return nil
		}
	}
	return ErrRoomNotFound
}

func (f *fakeStore) DeleteRoom(_ context.Context, roomID int) error {
	for i, rm := range f.rooms {
		if rm.ID == roomID {
			f.rooms = append(f.rooms[:i], f.rooms[i+1:]...)
			return nil
		}
	}
	return ErrRoomNotFound
}

func (f *fakeStore) addMember(roomID, userID int) {
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[int]bool)
	}
	f.members[roomID][userID] = true
}

func (f *fakeStore) RemoveMember(_ context.Context, roomID, userID int) error {
	delete(f.members[roomID], userID)
	return nil
}

func (f *fakeStore) IsOwnerOrMember(_ context.Context, roomID, userID int) (bool, error) {
	for _, rm := range f.rooms {
		if rm.ID == roomID && rm.OwnerID == userID {
			return true, nil
		}
	}
	return f.members[roomID][userID], nil
}

func (f *fakeStore) PendingInviteExists(_ context.Context, inviteObjectID, roomID int) (bool, error) {
	for _, inv := range f.invites {
		if inv.InviteObjectID == inviteObjectID && inv.RoomID == roomID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateInvites(_ context.Context, creatorID, roomID int, inviteeIDs []int) ([]Invite, error) {
	out := make([]Invite, 0, len(inviteeIDs))
	for _, id := range inviteeIDs {
		for _, inv := range f.invites {
			if inv.InviteObjectID == id && inv.RoomID == roomID {
				return nil, ErrInviteExists
			}
		}
		f.nextInviteID++
		inv := &Invite{
			ID: f.nextInviteID, CreatorID: creatorID, InviteObjectID: id,
			RoomID: roomID, Status: "pending", CreatedAt: time.Now(),
		}
		f.invites[inv.ID] = inv
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeStore) InvitesFrom(_ context.Context, creatorID int) ([]Invite, error) {
	var out []Invite
	for _, inv := range f.invites {
		if inv.CreatorID == creatorID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) InvitesTo(_ context.Context, inviteObjectID int) ([]Invite, error) {
	var out []Invite
	for _, inv := range f.invites {
		if inv.InviteObjectID == inviteObjectID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteInvite(_ context.Context, id, creatorID int) error {
	if inv, ok := f.invites[id]; ok && inv.CreatorID == creatorID {
		delete(f.invites, id)
		return nil
	}
	return ErrInviteNotFound
}

func (f *fakeStore) AcceptInvite(_ context.Context, id, inviteObjectID int) error {
	inv, ok := f.invites[id]
	if !ok || inv.InviteObjectID != inviteObjectID {
		return ErrInviteNotFound
	}
	f.addMember(inv.RoomID, inviteObjectID)
	delete(f.invites, id)
	return nil
}

func (f *fakeStore) DeclineInvite(_ context.Context, id, inviteObjectID int) error {
	if inv, ok := f.invites[id]; ok && inv.InviteObjectID == inviteObjectID {
		delete(f.invites, id)
		return nil
	}
	return ErrInviteNotFound
}

func (f *fakeStore) MessagesPage(_ context.Context, roomID, limit, offset int) ([]Message, error) {
	stored := f.messages[roomID]
	// newest first: stored order is oldest first
	reversed := make([]Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		reversed = append(reversed, stored[i])
	}
	if offset >= len(reversed) {
		return []Message{}, nil
	}
	end := offset + limit
	if end > len(reversed) {
		end = len(reversed)
	}
	return reversed[offset:end], nil
}

func (f *fakeStore) CountMessages(_ context.Context, roomID int) (int, error) {
	return len(f.messages[roomID]), nil
}

func (f *fakeStore) Emails(_ context.Context, userIDs []int) ([]string, error) {
	out := []string{}
	for _, id := range userIDs {
		if email, ok := f.emails[id]; ok {
			out = append(out, email)
		}
	}
	return out, nil
}

func (f *fakeStore) Username(_ context.Context, userID int) (string, error) {
	return f.usernames[userID], nil
}

type fakeNotifier struct {
	inviteMails [][]string
}

func (n *fakeNotifier) InviteCreated(toEmails []string, _, _ string) {
	n.inviteMails = append(n.inviteMails, toEmails)
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return NewService(store, notifier), store, notifier
}

func TestCreateRoomGeneratesDistinctSlugs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, &CreateRoomRequest{Title: "Test Title"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Create(ctx, 1, &CreateRoomRequest{Title: "Test Title"})
	if err != nil {
		t.Fatal(err)
	}

	if a.Slug == b.Slug {
		t.Fatalf("identical slugs for two rooms: %q", a.Slug)
	}
	if !IsReservedSlug(a.Slug) || !IsReservedSlug(b.Slug) {
		t.Errorf("generated slugs %q, %q should use the reserved namespace", a.Slug, b.Slug)
	}
}

func TestCreateRoomRejectsReservedClientSlug(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), 1, &CreateRoomRequest{
		Title: "My Room",
		Slug:  "my-room-id-abcdef012345",
	})
	if !errors.Is(err, ErrReservedSlug) {
		t.Fatalf("got %v, want ErrReservedSlug", err)
	}
}

func TestCreateRoomKeepsClientSlug(t *testing.T) {
	svc, _, _ := newTestService()

	rm, err := svc.Create(context.Background(), 1, &CreateRoomRequest{Title: "My Room", Slug: "my-room"})
	if err != nil {
		t.Fatal(err)
	}
	if rm.Slug != "my-room" {
		t.Fatalf("slug = %q, want my-room", rm.Slug)
	}
}

func TestMembersNumCountsOwner(t *testing.T) {
	rm := &Room{OwnerID: 1, Members: []int{2, 3}}
	if got := rm.MembersNum(); got != 3 {
		t.Fatalf("MembersNum() = %d, want 3", got)
	}

	empty := &Room{OwnerID: 1, Members: []int{}}
	if got := empty.MembersNum(); got != 1 {
		t.Fatalf("MembersNum() = %d, want 1", got)
	}
}

func setupRoom(t *testing.T, svc *Service, store *fakeStore) *Room {
	t.Helper()
	rm, err := svc.Create(context.Background(), 1, &CreateRoomRequest{Title: "Dev Room"})
	if err != nil {
		t.Fatal(err)
	}
	store.addMember(rm.ID, 2)
	return rm
}

func TestInviteRejectsExistingMember(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)

	_, err := svc.Invite(context.Background(), 1, rm.Slug, []int{2})
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("got %v, want ErrAlreadyMember", err)
	}
}

func TestInviteRejectsOwner(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)

	_, err := svc.Invite(context.Background(), 1, rm.Slug, []int{1})
	if !errors.Is(err, ErrInviteToOwner) {
		t.Fatalf("got %v, want ErrInviteToOwner", err)
	}
}

func TestInviteRejectsDuplicatePending(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, rm.Slug, []int{3}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Invite(ctx, 1, rm.Slug, []int{3})
	if !errors.Is(err, ErrInviteExists) {
		t.Fatalf("got %v, want ErrInviteExists", err)
	}
}

func TestInviteRequiresOwner(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)

	_, err := svc.Invite(context.Background(), 2, rm.Slug, []int{3})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
}

func TestInviteBulkNotifies(t *testing.T) {
	svc, store, notifier := newTestService()
	rm := setupRoom(t, svc, store)
	store.emails[3] = "u3@example.com"
	store.emails[4] = "u4@example.com"

	invites, err := svc.Invite(context.Background(), 1, rm.Slug, []int{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(invites) != 2 {
		t.Fatalf("len(invites) = %d, want 2", len(invites))
	}
	for _, inv := range invites {
		if inv.Status != "pending" {
			t.Errorf("invite %d status = %q, want pending", inv.ID, inv.Status)
		}
		if inv.RoomSlug != rm.Slug {
			t.Errorf("invite %d room = %q, want %q", inv.ID, inv.RoomSlug, rm.Slug)
		}
	}
	if len(notifier.inviteMails) != 1 || len(notifier.inviteMails[0]) != 2 {
		t.Errorf("expected one notification batch to two recipients, got %v", notifier.inviteMails)
	}
}

func TestAcceptInviteGrantsMembershipOnce(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	ctx := context.Background()

	invites, err := svc.Invite(ctx, 1, rm.Slug, []int{3})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Resolve(ctx, invites[0].ID, 3, relation.Accepted); err != nil {
		t.Fatal(err)
	}
	if !store.members[rm.ID][3] {
		t.Fatal("invitee was not added to room members")
	}
	if len(store.invites) != 0 {
		t.Fatal("accepted invite row still exists")
	}

	// A raced duplicate accept finds nothing to act on.
	err = svc.Resolve(ctx, invites[0].ID, 3, relation.Accepted)
	if !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("got %v, want ErrInviteNotFound", err)
	}
}

func TestDeclineInviteDeletesRow(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	ctx := context.Background()

	invites, err := svc.Invite(ctx, 1, rm.Slug, []int{3})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Resolve(ctx, invites[0].ID, 3, relation.Declined); err != nil {
		t.Fatal(err)
	}
	if store.members[rm.ID][3] {
		t.Fatal("declined invitee became a member")
	}
	if len(store.invites) != 0 {
		t.Fatal("declined invite row still exists")
	}
}

func TestResolveInviteRejectsPending(t *testing.T) {
	svc, _, _ := newTestService()
	err := svc.Resolve(context.Background(), 1, 3, relation.Pending)
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("got %v, want ErrBadStatus", err)
	}
}

func TestUpdateMembersMayOnlyShrink(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	store.addMember(rm.ID, 3)
	ctx := context.Background()

	grown := []int{2, 3, 4}
	if _, err := svc.Update(ctx, 1, rm.Slug, &UpdateRoomRequest{Members: &grown}); !errors.Is(err, ErrMembersGrow) {
		t.Fatalf("got %v, want ErrMembersGrow", err)
	}

	shrunk := []int{2}
	updated, err := svc.Update(ctx, 1, rm.Slug, &UpdateRoomRequest{Members: &shrunk})
	if err != nil {
		t.Fatal(err)
	}
	if store.members[rm.ID][3] {
		t.Fatal("member 3 should have been removed")
	}
	if updated.MembersNum() != 2 {
		t.Fatalf("MembersNum() = %d, want 2", updated.MembersNum())
	}
}

func TestLazyLoadMessages(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.messages[rm.ID] = append(store.messages[rm.ID], Message{
			ID: i + 1, AuthorID: 1, RoomID: rm.ID,
			Text:      []string{"first", "second", "third"}[i],
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	msgs, noMore, err := svc.LazyLoadMessages(ctx, 1, rm.Slug, "2", "0")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "third" || msgs[1].Text != "second" {
		t.Fatalf("expected the two newest messages, got %q, %q", msgs[0].Text, msgs[1].Text)
	}
	if noMore {
		t.Fatal("no_more_data = true with one message remaining")
	}

	msgs, noMore, err = svc.LazyLoadMessages(ctx, 1, rm.Slug, "3", "0")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 || !noMore {
		t.Fatalf("len = %d, noMore = %v; want 3, true", len(msgs), noMore)
	}
}

func TestLazyLoadMessagesRejectsBadParams(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)
	ctx := context.Background()

	if _, _, err := svc.LazyLoadMessages(ctx, 1, rm.Slug, "", "0"); !errors.Is(err, ErrBadPagination) {
		t.Fatalf("missing limit: got %v, want ErrBadPagination", err)
	}
	if _, _, err := svc.LazyLoadMessages(ctx, 1, rm.Slug, "3", "abc"); !errors.Is(err, ErrBadPagination) {
		t.Fatalf("non-integer offset: got %v, want ErrBadPagination", err)
	}
}

func TestLazyLoadMessagesRequiresMembership(t *testing.T) {
	svc, store, _ := newTestService()
	rm := setupRoom(t, svc, store)

	_, _, err := svc.LazyLoadMessages(context.Background(), 99, rm.Slug, "2", "0")
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("got %v, want ErrNotMember", err)
	}
}
