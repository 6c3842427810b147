// Package session provides the Redis-backed session store: opaque session
// ids mapped to an identity snapshot with a fixed TTL.
//
// Keys:
//
//	session:<id>       -> JSON identity snapshot, expires with the TTL
//	user_sessions:<uid> -> set of live session ids for one user
//
// Expiry is enforced by Redis itself; Resolve never returns an expired
// record. The per-user index set allows revoking every live session of a
// user when their role changes. Operations on the same session id are
// serialized by Redis command execution, so a Destroy racing a Resolve
// yields either the full record or nothing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sabiarpg/sabia-auth/internal/config"
	"github.com/sabiarpg/sabia-auth/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "user_sessions:"
	userIndexSlack   = time.Hour
	revokeBatchSize  = 100
)

// Store holds sessions in Redis with a fixed TTL per session.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and returns a session store with the given TTL.
func New(ctx context.Context, cfg config.RedisConnection, ttl time.Duration) (*Store, error) {
	const op = "session.New"
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// TTL returns the fixed session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create allocates a new opaque session id for the identity, stores the
// snapshot with the configured TTL and indexes it under the user. The id is
// only handed to the caller after the write completed, so a follow-up
// Resolve with the returned id always observes the session.
func (s *Store) Create(ctx context.Context, identity models.Identity) (string, error) {
	const op = "session.Create"

	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sessionID := uuid.NewString()
	key := sessionKeyPrefix + sessionID
	indexKey := userIndexPrefix + identity.UserUID

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, s.ttl)
	pipe.SAdd(ctx, indexKey, sessionID)
	// The index outlives its members slightly so lazy cleanup in
	// DestroyAllForUser can still find stale ids.
	pipe.Expire(ctx, indexKey, s.ttl+userIndexSlack)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sessionID, nil
}

// Resolve returns the identity snapshot for a live session, or nil when the
// session does not exist or has expired. Expired records are removed by
// Redis itself; no error is reported for a miss.
func (s *Store) Resolve(ctx context.Context, sessionID string) (*models.Identity, error) {
	const op = "session.Resolve"

	val, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &identity, nil
}

// Destroy removes a session unconditionally. Destroying a session that does
// not exist (or never existed) is not an error.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	const op = "session.Destroy"

	// Fetch first so the user index entry can be cleaned up too. A miss
	// between Get and Del only leaves a stale index member, which
	// DestroyAllForUser tolerates.
	identity, err := s.Resolve(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	if identity != nil {
		pipe.SRem(ctx, userIndexPrefix+identity.UserUID, sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DestroyAllForUser removes every live session of one user. Called when the
// user's role changes so that no session keeps acting on stale privileges.
// Session keys are deleted in bounded batches and the index key is dropped
// only after every member has been deleted, so a sweep that fails midway can
// be retried without losing track of the survivors.
func (s *Store) DestroyAllForUser(ctx context.Context, userUID string) error {
	const op = "session.DestroyAllForUser"

	indexKey := userIndexPrefix + userUID
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return nil
	}

	for start := 0; start < len(ids); start += revokeBatchSize {
		end := min(start+revokeBatchSize, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, sessionKeyPrefix+id)
		}
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.rdb.Del(ctx, indexKey).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
