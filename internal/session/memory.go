package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

// MemoryStore keeps session state in a TTL map. It backs dev setups without
// redis and every test that needs a session store fake.
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry

	// override keys never expire
	overrides map[string]string

	log *slog.Logger
}

type entry struct {
	val string
	exp time.Time
}

func NewMemoryStore(ttl time.Duration, log *slog.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	if log == nil {
		log = slog.Default()
	}

	return &MemoryStore{
		ttl:       ttl,
		m:         make(map[string]entry),
		overrides: make(map[string]string),
		log:       log,
	}
}

func (s *MemoryStore) get(key string) (string, bool) {
	now := time.Now()

	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}

	if now.After(e.exp) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return "", false
	}

	return e.val, true
}

func (s *MemoryStore) set(key, val string) {
	s.mu.Lock()
	s.m[key] = entry{val: val, exp: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}

func (s *MemoryStore) del(keys ...string) {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
}

func (s *MemoryStore) LoadProfile(_ context.Context, sid string) *profile.UserProfile {
	raw, ok := s.get(profileKey(sid))

	if !ok || raw == "" {
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

func (s *MemoryStore) StoreProfile(_ context.Context, sid string, p profile.UserProfile) error {
	p = profile.Normalize(p)

	raw, err := json.Marshal(p)

	if err != nil {
		return err
	}

	s.mu.Lock()
	exp := time.Now().Add(s.ttl)
	s.m[profileKey(sid)] = entry{val: string(raw), exp: exp}
	s.m[displayNameKey(sid)] = entry{val: p.DisplayName, exp: exp}
	s.m[bioKey(sid)] = entry{val: p.Bio, exp: exp}

	if p.Role != "" {
		s.m[roleKey(sid)] = entry{val: string(p.Role), exp: exp}
	} else {
		delete(s.m, roleKey(sid))
	}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) ClearProfile(_ context.Context, sid string) error {
	s.del(profileKey(sid), displayNameKey(sid), bioKey(sid), roleKey(sid))
	return nil
}

func (s *MemoryStore) Email(_ context.Context, sid string) string {
	v, _ := s.get(emailKey(sid))
	return v
}

func (s *MemoryStore) SetEmail(_ context.Context, sid, email string) error {
	s.set(emailKey(sid), email)
	return nil
}

func (s *MemoryStore) RoleMarker(_ context.Context, sid string) profile.Role {
	v, _ := s.get(roleKey(sid))
	return profile.ParseRole(v)
}

func (s *MemoryStore) SetRoleMarker(_ context.Context, sid string, role profile.Role) error {
	if role == "" {
		s.del(roleKey(sid))
		return nil
	}

	s.set(roleKey(sid), string(role))
	return nil
}

func (s *MemoryStore) ClearRoleMarker(_ context.Context, sid string) error {
	s.del(roleKey(sid))
	return nil
}

func (s *MemoryStore) PendingToken(_ context.Context, sid string) string {
	v, _ := s.get(pendingTokenKey(sid))
	return v
}

func (s *MemoryStore) SetPendingToken(_ context.Context, sid, tokenID string) error {
	if tokenID == "" {
		s.del(pendingTokenKey(sid))
		return nil
	}

	s.set(pendingTokenKey(sid), tokenID)
	return nil
}

func (s *MemoryStore) Override(_ context.Context, did string) bool {
	s.mu.RLock()
	v, ok := s.overrides[overrideKey(did)]
	s.mu.RUnlock()

	return ok && v == overrideSentinel
}

func (s *MemoryStore) SetOverride(_ context.Context, did string, value bool) error {
	s.mu.Lock()
	if value {
		s.overrides[overrideKey(did)] = overrideSentinel
	} else {
		delete(s.overrides, overrideKey(did))
	}
	s.mu.Unlock()

	return nil
}

// HasOverrideKey reports raw key presence, for tests asserting that false is
// stored as absence rather than as a value.
func (s *MemoryStore) HasOverrideKey(did string) bool {
	s.mu.RLock()
	_, ok := s.overrides[overrideKey(did)]
	s.mu.RUnlock()

	return ok
}

// SeedRawProfile writes an arbitrary string under the profile key, bypassing
// serialization. Tests use it to simulate a corrupted cache record.
func (s *MemoryStore) SeedRawProfile(sid, raw string) {
	s.set(profileKey(sid), raw)
}
