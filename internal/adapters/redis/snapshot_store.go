// Package redis provides Redis-based adapters for the glosswerks API.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// DefaultSnapshotPrefix namespaces snapshot keys.
const DefaultSnapshotPrefix = "glosswerks:session:"

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps the last committed session of each browser client in Redis
// so a restarted process can replay it as an InitialSession.
type SnapshotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// SnapshotStoreOptions configures a SnapshotStore.
type SnapshotStoreOptions struct {
	Prefix string        // Optional: defaults to DefaultSnapshotPrefix
	TTL    time.Duration // Required: how long an untouched snapshot survives
}

// NewSnapshotStore creates a new Redis-based snapshot store.
func NewSnapshotStore(client redis.UniversalClient, opts SnapshotStoreOptions) *SnapshotStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultSnapshotPrefix
	}
	return &SnapshotStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// Save writes sess under clientID and refreshes its TTL.
func (s *SnapshotStore) Save(ctx context.Context, clientID string, sess domainauth.Session) error {
	if clientID == "" {
		return apperrors.ValidationField("client_id", "client id cannot be empty")
	}
	if s.ttl <= 0 {
		return apperrors.Internal("snapshot TTL must be positive")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+clientID, data, s.ttl).Err(); err != nil {
		return apperrors.Transport(err, "redis set")
	}
	return nil
}

// Load returns the snapshot for clientID or a NotFound AppError.
func (s *SnapshotStore) Load(ctx context.Context, clientID string) (domainauth.Session, error) {
	if clientID == "" {
		return domainauth.Session{}, apperrors.NotFound("snapshot not found")
	}

	data, err := s.client.Get(ctx, s.prefix+clientID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, apperrors.NotFound("snapshot not found")
		}
		return domainauth.Session{}, apperrors.Transport(err, "redis get")
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
		// A snapshot we cannot read is as good as none; drop it.
		if delErr := s.Delete(ctx, clientID); delErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup unreadable snapshot: %w", delErr)
		}
		return domainauth.Session{}, apperrors.NotFoundf("snapshot unreadable: %v", unmarshalErr)
	}
	if _, ok := domainauth.ParseRole(string(sess.Role)); !ok || sess.ID == "" {
		return domainauth.Session{}, apperrors.NotFound("snapshot incomplete")
	}

	return sess, nil
}

// Delete removes the snapshot for clientID.
func (s *SnapshotStore) Delete(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+clientID).Err(); err != nil {
		return apperrors.Transport(err, "redis del")
	}
	return nil
}
