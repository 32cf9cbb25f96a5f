// Package presence keeps online status in Redis so sibling instances and
// other services can route around offline users.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Status struct {
	Online   bool  `json:"online"`
	LastSeen int64 `json:"last_seen"`
	Sockets  int64 `json:"sockets"`
}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "amity"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) socketsKey(userID string) string {
	return fmt.Sprintf("%s:sockets:%s", s.prefix, userID)
}

func (s *Store) statusKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// Connected records a new socket for the user and marks it online.
func (s *Store) Connected(ctx context.Context, userID, socketID string) error {
	key := s.socketsKey(userID)
	if err := s.client.SAdd(ctx, key, socketID).Err(); err != nil {
		return err
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return err
	}
	return s.setStatus(ctx, userID)
}

// Disconnected drops one socket; the user goes offline when the last one
// closes.
func (s *Store) Disconnected(ctx context.Context, userID, socketID string) error {
	if err := s.client.SRem(ctx, s.socketsKey(userID), socketID).Err(); err != nil {
		return err
	}
	return s.setStatus(ctx, userID)
}

func (s *Store) setStatus(ctx context.Context, userID string) error {
	count, err := s.client.SCard(ctx, s.socketsKey(userID)).Result()
	if err != nil {
		return err
	}
	status := Status{
		Online:   count > 0,
		LastSeen: time.Now().UTC().Unix(),
		Sockets:  count,
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.statusKey(userID), raw, s.ttl).Err()
}

// Get returns the user's presence; a missing key means offline.
func (s *Store) Get(ctx context.Context, userID string) (Status, error) {
	raw, err := s.client.Get(ctx, s.statusKey(userID)).Bytes()
	if err == redis.Nil {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}
