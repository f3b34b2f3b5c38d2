package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/crypto"
)

// IdempotencyStore tracks processed feed-message ids so redelivered court
// and legal-aid messages are dropped instead of replayed into the
// aggregates. Ids are hashed before storage; the raw id may embed case
// references.
type IdempotencyStore struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore creates a store keeping marks for the given TTL.
func NewIdempotencyStore(client *Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: "idem", ttl: ttl}
}

// MarkProcessed records a message id. Reports false when the id was already
// marked, meaning the message is a redelivery.
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", s.prefix, crypto.HashToken(messageID))
	first, err := s.client.SetNX(ctx, key, "1", s.ttl)
	if err != nil {
		return false, fmt.Errorf("mark message processed: %w", err)
	}
	return first, nil
}

// Clear removes a mark, letting a message be processed again. Used when the
// handler fails after marking and the message should be retried.
func (s *IdempotencyStore) Clear(ctx context.Context, messageID string) error {
	key := fmt.Sprintf("%s:%s", s.prefix, crypto.HashToken(messageID))
	return s.client.Del(ctx, key)
}
