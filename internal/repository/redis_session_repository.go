package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/collab-chat-api/internal/models"
)

// userSessionsPrefix keys the per-user set of token hashes
const userSessionsPrefix = "user_sessions:"

// RedisSessionRepository keeps sessions in Redis with a TTL equal to their
// remaining lifetime, plus one set per user for revocation.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionRepository connects to redisURL and verifies the connection
func NewRedisSessionRepository(redisURL string) (*RedisSessionRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisSessionRepositoryWithClient(client), nil
}

// NewRedisSessionRepositoryWithClient wraps an existing client
func NewRedisSessionRepositoryWithClient(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, prefix: "session:"}
}

func (r *RedisSessionRepository) key(tokenHash string) string {
	return r.prefix + tokenHash
}

func (r *RedisSessionRepository) userKey(userID uint64) string {
	return userSessionsPrefix + strconv.FormatUint(userID, 10)
}

func (r *RedisSessionRepository) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	userKey := r.userKey(session.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(session.TokenHash), data, ttl)
		pipe.SAdd(ctx, userKey, session.TokenHash)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save session: %v", ErrTransientStore, err)
	}
	return nil
}

func (r *RedisSessionRepository) Find(ctx context.Context, tokenHash string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		// one retry for the idempotent read
		raw, err = r.client.Get(ctx, r.key(tokenHash)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: lookup session: %v", ErrTransientStore, err)
		}
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepository) SetActiveTenant(ctx context.Context, tokenHash string, tenantID *uint64, tenantCode string) error {
	return r.mutate(ctx, tokenHash, func(s *models.Session) {
		s.ActiveTenantID = tenantID
		s.TenantCode = tenantCode
	})
}

func (r *RedisSessionRepository) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	return r.mutate(ctx, tokenHash, func(s *models.Session) {
		s.LastActivity = at
	})
}

// mutate applies fn under WATCH so a concurrent write aborts the transaction
// instead of being overwritten.
func (r *RedisSessionRepository) mutate(ctx context.Context, tokenHash string, fn func(s *models.Session)) error {
	key := r.key(tokenHash)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var session models.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		fn(&session)

		data, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		ttl := time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return ErrSessionNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: concurrent session update", ErrTransientStore)
	default:
		return fmt.Errorf("%w: update session: %v", ErrTransientStore, err)
	}
}

func (r *RedisSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	session, err := r.Find(ctx, tokenHash)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(tokenHash))
		pipe.SRem(ctx, r.userKey(session.UserID), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrTransientStore, err)
	}
	return nil
}

func (r *RedisSessionRepository) DeleteByUserID(ctx context.Context, userID uint64) error {
	userKey := r.userKey(userID)
	hashes, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: list user sessions: %v", ErrTransientStore, err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, r.key(h))
	}
	keys = append(keys, userKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: revoke user sessions: %v", ErrTransientStore, err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}
