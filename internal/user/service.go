package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidEmail = errors.New("invalid email address")

// usernameRe captures the local part of an email address. The captured
// group becomes the initial profile username.
var usernameRe = regexp.MustCompile(`^(\w+)@`)

// Store is what the service needs from the persistence layer.
type Store interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SearchUsers(ctx context.Context, query string) ([]User, error)
}

// ProfileCreator is the post-creation hook: every new account gets a
// profile, created explicitly here rather than through a framework event.
type ProfileCreator interface {
	CreateForUser(ctx context.Context, userID int, username string) error
}

type Service struct {
	store     Store
	profiles  ProfileCreator
	jwtSecret string
}

type Claims struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(store Store, profiles ProfileCreator, secret string) *Service {
	return &Service{
		store:     store,
		profiles:  profiles,
		jwtSecret: secret,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	match := usernameRe.FindStringSubmatch(req.Email)
	if match == nil {
		return nil, ErrInvalidEmail
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:    req.Email,
		Password: string(hashedPwd),
		IsActive: true,
	}

	if _, err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := s.profiles.CreateForUser(ctx, u.ID, match[1]); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return &RegisterResponse{ID: u.ID, Email: u.Email}, nil
}

func (s *Service) Login(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    u.ID,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chatroom",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: ss,
		ID:          u.ID,
		Email:       u.Email,
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (int, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	return claims.ID, claims.Email, nil
}

func (s *Service) SearchUsers(ctx context.Context, query string) ([]User, error) {
	return s.store.SearchUsers(ctx, query)
}
