package session

import (
	"context"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

// Store is the injected session state boundary. A session ID keys the
// per-session profile cache and its convenience fields; a device ID keys the
// durable admin override, which outlives any single session.
//
// Loads fail soft: a broken backend or a malformed stored record reads as
// "nothing cached", never as an error the caller has to handle.
type Store interface {
	// Profile cache.
	LoadProfile(ctx context.Context, sid string) *profile.UserProfile
	StoreProfile(ctx context.Context, sid string, p profile.UserProfile) error
	ClearProfile(ctx context.Context, sid string) error

	// Last-known email, kept outside the profile record so the gate can
	// re-fetch even after the profile was cleared.
	Email(ctx context.Context, sid string) string
	SetEmail(ctx context.Context, sid, email string) error

	// Convenience role marker written alongside the profile. Read and
	// cleared independently so a stale "admin" marker can be removed
	// without touching the profile record.
	RoleMarker(ctx context.Context, sid string) profile.Role
	ClearRoleMarker(ctx context.Context, sid string) error
	SetRoleMarker(ctx context.Context, sid string, role profile.Role) error

	// Pending OTP token between request-otp and verify-otp.
	PendingToken(ctx context.Context, sid string) string
	SetPendingToken(ctx context.Context, sid, tokenID string) error

	// Durable admin override. Absence means false; no "false" is ever stored.
	Override(ctx context.Context, did string) bool
	SetOverride(ctx context.Context, did string, value bool) error
}

// overrideSentinel is the only value ever written for the override flag.
const overrideSentinel = "true"

// Key layout shared by both backends.

func profileKey(sid string) string {
	return "session:" + sid + ":profile"
}

func displayNameKey(sid string) string {
	return "session:" + sid + ":displayName"
}

func bioKey(sid string) string {
	return "session:" + sid + ":bio"
}

func roleKey(sid string) string {
	return "session:" + sid + ":role"
}

func emailKey(sid string) string {
	return "session:" + sid + ":email"
}

func pendingTokenKey(sid string) string {
	return "session:" + sid + ":pendingTokenId"
}

func overrideKey(did string) string {
	return "device:" + did + ":adminOverride"
}
