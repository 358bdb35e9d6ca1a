package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tilldesk/register-backend/internal/ledger"
)

type slotClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartSlotKey(registerID string) string
}

// RedisStore keeps a register's parked carts in a single slot key as one
// JSON array. The slot never expires; carts are parked until the cashier
// deletes them or checks them out.
type RedisStore struct {
	client     slotClient
	registerID string
}

// NewRedisStore builds a Redis-backed cart store scoped to one register.
func NewRedisStore(client slotClient, registerID string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if strings.TrimSpace(registerID) == "" {
		return nil, errors.New("register id is required")
	}
	return &RedisStore{client: client, registerID: registerID}, nil
}

// Load returns the register's parked carts. A missing slot is an empty set.
func (s *RedisStore) Load(ctx context.Context) ([]ledger.SavedCart, error) {
	raw, err := s.client.Get(ctx, s.client.CartSlotKey(s.registerID))
	if errors.Is(err, redis.Nil) {
		return []ledger.SavedCart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart slot: %w", err)
	}

	var carts []ledger.SavedCart
	if err := json.Unmarshal([]byte(raw), &carts); err != nil {
		return nil, fmt.Errorf("decoding cart slot: %w", err)
	}
	return carts, nil
}

// Save replaces the register's slot with the given carts.
func (s *RedisStore) Save(ctx context.Context, carts []ledger.SavedCart) error {
	if carts == nil {
		carts = []ledger.SavedCart{}
	}
	payload, err := json.Marshal(carts)
	if err != nil {
		return fmt.Errorf("encoding cart slot: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartSlotKey(s.registerID), payload, 0); err != nil {
		return fmt.Errorf("saving cart slot: %w", err)
	}
	return nil
}
