package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"markers-api/internal/session/domain"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// RedisStore keeps one key per session, expiring with the session, and a per-user set of
// token digests for bulk revocation.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

type redisSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisStore returns a session store backed by client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores the session with a TTL matching its expiry.
func (r *RedisStore) Create(ctx context.Context, s *domain.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(redisSession{ID: s.ID, UserID: s.UserID, ExpiresAt: s.ExpiresAt, CreatedAt: s.CreatedAt})
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	userKey := userSessionKeyPrefix + s.UserID
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+s.TokenHash, payload, ttl)
		pipe.SAdd(ctx, userKey, s.TokenHash)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session in redis").
			With("user_id", s.UserID).
			Wrap(err)
	}
	return nil
}

// FindValid returns the unexpired session for tokenHash, or nil if none.
func (r *RedisStore) FindValid(ctx context.Context, tokenHash string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session from redis").
			Wrap(err)
	}
	var rs redisSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	s := &domain.Session{ID: rs.ID, UserID: rs.UserID, TokenHash: tokenHash, ExpiresAt: rs.ExpiresAt, CreatedAt: rs.CreatedAt}
	if !s.ValidAt(r.now()) {
		return nil, nil
	}
	return s, nil
}

// Delete removes the session for tokenHash and its entry in the owner's index.
func (r *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	s, err := r.FindValid(ctx, tokenHash)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKeyPrefix+tokenHash)
		if s != nil {
			pipe.SRem(ctx, userSessionKeyPrefix+s.UserID, tokenHash)
		}
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session from redis").Wrap(err)
	}
	return nil
}

// DeleteAllForUser removes every session listed in the user's index.
func (r *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := userSessionKeyPrefix + userID
	hashes, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").With("user_id", userID).Wrap(err)
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionKeyPrefix+h)
	}
	keys = append(keys, userKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete user sessions from redis").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired prunes per-user indexes of digests whose session key Redis has already evicted
// and returns how many were removed. The session keys themselves expire through their TTL.
func (r *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	var removed int64
	iter := r.client.Scan(ctx, 0, userSessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.pruneIndex(ctx, iter.Val())
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "scan user session indexes").
			Wrap(err)
	}
	return removed, nil
}

func (r *RedisStore) pruneIndex(ctx context.Context, userKey string) (int64, error) {
	hashes, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}
	pipe := r.client.Pipeline()
	checks := make([]*redis.IntCmd, len(hashes))
	for i, h := range hashes {
		checks[i] = pipe.Exists(ctx, sessionKeyPrefix+h)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
	}
	stale := make([]any, 0, len(hashes))
	for i, c := range checks {
		if c.Val() == 0 {
			stale = append(stale, hashes[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := r.client.SRem(ctx, userKey, stale...).Err(); err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
	}
	return int64(len(stale)), nil
}
