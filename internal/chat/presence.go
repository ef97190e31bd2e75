package chat

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PresenceStore tracks which users are currently connected to a room.
// Membership lives exactly as long as the connections do; nothing is
// persisted to the relational store.
type PresenceStore interface {
	Add(ctx context.Context, roomSlug string, userID int) error
	Remove(ctx context.Context, roomSlug string, userID int) error
	Members(ctx context.Context, roomSlug string) ([]int, error)
}

// RedisPresence keeps one set per room slug. The set operations are
// atomic, which is all the presence counter relies on.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func presenceKey(roomSlug string) string {
	return "users_" + roomSlug
}

func (p *RedisPresence) Add(ctx context.Context, roomSlug string, userID int) error {
	return p.client.SAdd(ctx, presenceKey(roomSlug), userID).Err()
}

func (p *RedisPresence) Remove(ctx context.Context, roomSlug string, userID int) error {
	return p.client.SRem(ctx, presenceKey(roomSlug), userID).Err()
}

func (p *RedisPresence) Members(ctx context.Context, roomSlug string) ([]int, error) {
	raw, err := p.client.SMembers(ctx, presenceKey(roomSlug)).Result()
	if err != nil {
		return nil, err
	}

	users := make([]int, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	sort.Ints(users)
	return users, nil
}
