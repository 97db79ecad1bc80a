package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the production session backend. Session keys carry the
// session TTL; override keys are written without expiry so they survive
// session turnover, matching the durable flag the browser used to keep.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisStore(cfg RedisConfig, ttl time.Duration, log *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{rdb: rdb, ttl: ttl, log: log}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) LoadProfile(ctx context.Context, sid string) *profile.UserProfile {
	raw, err := s.rdb.Get(ctx, profileKey(sid)).Result()

	if err != nil {
		if err != redis.Nil {
			s.log.Error("session profile read failed", "err", err)
		}
		return nil
	}

	var p profile.UserProfile

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Error("failed to parse stored profile", "err", err)
		return nil
	}

	normalized := profile.Normalize(p)

	return &normalized
}

func (s *RedisStore) StoreProfile(ctx context.Context, sid string, p profile.UserProfile) error {
	p = profile.Normalize(p)

	raw, err := json.Marshal(p)

	if err != nil {
		return err
	}

	// one round trip so a concurrent load sees the record and its
	// convenience fields move together
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, profileKey(sid), raw, s.ttl)
	pipe.Set(ctx, displayNameKey(sid), p.DisplayName, s.ttl)
	pipe.Set(ctx, bioKey(sid), p.Bio, s.ttl)

	if p.Role != "" {
		pipe.Set(ctx, roleKey(sid), string(p.Role), s.ttl)
	} else {
		pipe.Del(ctx, roleKey(sid))
	}

	_, err = pipe.Exec(ctx)

	return err
}

func (s *RedisStore) ClearProfile(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, profileKey(sid), displayNameKey(sid), bioKey(sid), roleKey(sid)).Err()
}

func (s *RedisStore) Email(ctx context.Context, sid string) string {
	v, err := s.rdb.Get(ctx, emailKey(sid)).Result()

	if err != nil {
		if err != redis.Nil {
			s.log.Error("session email read failed", "err", err)
		}
		return ""
	}

	return v
}

func (s *RedisStore) SetEmail(ctx context.Context, sid, email string) error {
	return s.rdb.Set(ctx, emailKey(sid), email, s.ttl).Err()
}

func (s *RedisStore) RoleMarker(ctx context.Context, sid string) profile.Role {
	v, err := s.rdb.Get(ctx, roleKey(sid)).Result()

	if err != nil {
		return ""
	}

	return profile.ParseRole(v)
}

func (s *RedisStore) SetRoleMarker(ctx context.Context, sid string, role profile.Role) error {
	if role == "" {
		return s.rdb.Del(ctx, roleKey(sid)).Err()
	}

	return s.rdb.Set(ctx, roleKey(sid), string(role), s.ttl).Err()
}

func (s *RedisStore) ClearRoleMarker(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, roleKey(sid)).Err()
}

func (s *RedisStore) PendingToken(ctx context.Context, sid string) string {
	v, err := s.rdb.Get(ctx, pendingTokenKey(sid)).Result()

	if err != nil {
		return ""
	}

	return v
}

func (s *RedisStore) SetPendingToken(ctx context.Context, sid, tokenID string) error {
	if tokenID == "" {
		return s.rdb.Del(ctx, pendingTokenKey(sid)).Err()
	}

	// OTP codes are short-lived; no reason to hold the token for a full session
	return s.rdb.Set(ctx, pendingTokenKey(sid), tokenID, 15*time.Minute).Err()
}

func (s *RedisStore) Override(ctx context.Context, did string) bool {
	v, err := s.rdb.Get(ctx, overrideKey(did)).Result()

	if err != nil {
		// backend unavailable reads as no override
		return false
	}

	return v == overrideSentinel
}

func (s *RedisStore) SetOverride(ctx context.Context, did string, value bool) error {
	if value {
		// no expiry: the override is durable across sessions
		return s.rdb.Set(ctx, overrideKey(did), overrideSentinel, 0).Err()
	}

	return s.rdb.Del(ctx, overrideKey(did)).Err()
}
