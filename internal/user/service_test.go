package user

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	users  map[string]*User
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (f *fakeStore) CreateUser(_ context.Context, u *User) (*User, error) {
	if _, ok := f.users[u.Email]; ok {
		return nil, errors.New("email taken")
	}
	f.nextID++
	u.ID = f.nextID
	copied := *u
	f.users[u.Email] = &copied
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) SearchUsers(_ context.Context, _ string) ([]User, error) {
	return nil, nil
}

type fakeProfiles struct {
	userIDs   []int
	usernames []string
}

func (f *fakeProfiles) CreateForUser(_ context.Context, userID int, username string) error {
	f.userIDs = append(f.userIDs, userID)
	f.usernames = append(f.usernames, username)
	return nil
}

func TestRegisterCreatesProfileWithDerivedUsername(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{}
	svc := NewService(store, profiles, "secret")

	res, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != 1 {
		t.Errorf("id = %d, want 1", res.ID)
	}

	if len(profiles.usernames) != 1 || profiles.usernames[0] != "alice" {
		t.Fatalf("profile usernames = %v, want [alice]", profiles.usernames)
	}
	if profiles.userIDs[0] != 1 {
		t.Errorf("profile user id = %d, want 1", profiles.userIDs[0])
	}

	stored := store.users["alice@example.com"]
	if stored.Password == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter22")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterRejectsMalformedEmail(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeProfiles{}, "secret")

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "not-an-email", Password: "x"})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("got %v, want ErrInvalidEmail", err)
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{}, "secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{Email: "bob@example.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Login(ctx, &RegisterRequest{Email: "bob@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	id, email, err := svc.ValidateToken(res.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if id != res.ID || email != "bob@example.com" {
		t.Fatalf("claims = (%d, %q), want (%d, bob@example.com)", id, email, res.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{}, "secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{Email: "bob@example.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, &RegisterRequest{Email: "bob@example.com", Password: "wrong"}); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{}, "secret")
	other := NewService(store, &fakeProfiles{}, "other-secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{Email: "bob@example.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Login(ctx, &RegisterRequest{Email: "bob@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := other.ValidateToken(res.AccessToken); err == nil {
		t.Fatal("token signed with a different secret validated")
	}
}
