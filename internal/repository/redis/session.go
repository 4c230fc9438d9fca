package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajoedv/fotolio/internal/domain"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

const keyPrefix = "checkout:"

// SessionRepository implements repository.SessionRepository using Redis.
// The whole checkout session lives under one key per user; the TTL is the
// abandonment mechanism, letting Redis expire stalled checkouts.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new Redis-backed checkout session store.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the user's checkout session.
func (r *SessionRepository) Get(ctx context.Context, userID string) (*domain.CheckoutSession, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get checkout session: %w", err)
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// Save writes the whole session and resets its TTL.
func (r *SessionRepository) Save(ctx context.Context, userID string, session *domain.CheckoutSession) error {
	key := keyPrefix + userID

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkout session: %w", err)
	}
	return nil
}

// Delete erases the session wholesale.
func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del checkout session: %w", err)
	}
	return nil
}
