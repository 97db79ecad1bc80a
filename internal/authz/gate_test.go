package authz_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/domain/profile"
	"github.com/buildhubhq/buildhub/internal/session"
)

// Fake upstream in the style of the repo fakes: one fn field per call.

type fakeFetcher struct {
	getFn func(ctx context.Context, email string) (profile.Partial, error)
	calls atomic.Int32
}

func (f *fakeFetcher) GetProfile(ctx context.Context, email string) (profile.Partial, error) {
	f.calls.Add(1)

	if f.getFn != nil {
		return f.getFn(ctx, email)
	}

	return profile.Partial{}, nil
}

// countingHandler counts error-level records so tests can assert "logged
// exactly once" without scraping output.
type countingHandler struct {
	errs *atomic.Int32
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h countingHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		h.errs.Add(1)
	}
	return nil
}

func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }

func strPtr(s string) *string {
	return &s
}

func newGateEnv(password string, fetcher *fakeFetcher) (*authz.Gate, *session.MemoryStore, *atomic.Int32) {
	store := session.NewMemoryStore(time.Minute, nil)

	errCount := &atomic.Int32{}
	log := slog.New(countingHandler{errs: errCount})

	return authz.NewGate(store, fetcher, password, log), store, errCount
}

func TestEvaluateOverrideShortCircuits(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{}
	gate, store, _ := newGateEnv("s3cret", fetcher)

	_ = store.SetOverride(ctx, "dev1", true)

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateAuthorized || !d.ViaOverride {
		t.Fatalf("decision = %+v, want authorized via override", d)
	}

	if fetcher.calls.Load() != 0 {
		t.Fatalf("override path must not hit the upstream")
	}
}

func TestEvaluateOverrideIgnoredWithoutPassword(t *testing.T) {
	// the override is only honored while a password is configured; without
	// one the gate cannot re-arm, so the flag must not grant anything
	ctx := context.Background()
	fetcher := &fakeFetcher{}
	gate, store, _ := newGateEnv("", fetcher)

	_ = store.SetOverride(ctx, "dev1", true)

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateDenied {
		t.Fatalf("state = %q, want denied", d.State)
	}
}

func TestEvaluateCachedAdminRole(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{}
	gate, store, _ := newGateEnv("s3cret", fetcher)

	_ = store.StoreProfile(ctx, "sid1", profile.UserProfile{
		Email: "a@b.c",
		Role:  profile.RoleAdmin,
	})

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateAuthorized || d.ViaOverride {
		t.Fatalf("decision = %+v, want authorized via role", d)
	}

	if fetcher.calls.Load() != 0 {
		t.Fatalf("cached admin must skip the fetch")
	}
}

func TestEvaluateFetchElevatesAndPersists(t *testing.T) {
	ctx := context.Background()

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, email string) (profile.Partial, error) {
			if email != "a@b.c" {
				t.Fatalf("fetch keyed by %q, want cached email", email)
			}

			return profile.Partial{
				Email:       strPtr("a@b.c"),
				DisplayName: strPtr("Fresh"),
				Role:        "admin",
			}, nil
		},
	}

	gate, store, _ := newGateEnv("s3cret", fetcher)

	_ = store.StoreProfile(ctx, "sid1", profile.UserProfile{
		Email: "a@b.c",
		Bio:   "cached bio",
		Role:  profile.RoleUser,
	})

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateAuthorized {
		t.Fatalf("state = %q, want authorized after elevation", d.State)
	}

	stored := store.LoadProfile(ctx, "sid1")

	if stored == nil || stored.Role != profile.RoleAdmin {
		t.Fatalf("merged profile not persisted: %#v", stored)
	}

	if stored.Bio != "cached bio" || stored.DisplayName != "Fresh" {
		t.Fatalf("merge lost fields: %#v", stored)
	}
}

func TestEvaluateFallsBackToStoredEmail(t *testing.T) {
	ctx := context.Background()

	var seenEmail string

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, email string) (profile.Partial, error) {
			seenEmail = email
			return profile.Partial{}, nil
		},
	}

	gate, store, _ := newGateEnv("s3cret", fetcher)

	_ = store.SetEmail(ctx, "sid1", "last@x.io")

	_ = gate.Evaluate(ctx, "sid1", "dev1")

	if seenEmail != "last@x.io" {
		t.Fatalf("fetch keyed by %q, want the stored last-known email", seenEmail)
	}
}

func TestEvaluateNonAdminWithPassword(t *testing.T) {
	ctx := context.Background()

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, _ string) (profile.Partial, error) {
			return profile.Partial{Role: "user"}, nil
		},
	}

	gate, store, _ := newGateEnv("s3cret", fetcher)

	_ = store.SetOverride(ctx, "dev1", false)
	_ = store.SetRoleMarker(ctx, "sid1", profile.RoleAdmin) // stale marker

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StatePasswordRequired {
		t.Fatalf("state = %q, want password_required", d.State)
	}

	if store.RoleMarker(ctx, "sid1") != "" {
		t.Fatalf("stale admin marker survived the fallback to the prompt")
	}

	if store.HasOverrideKey("dev1") {
		t.Fatalf("override key present after fallback")
	}
}

func TestEvaluateNonAdminWithoutPasswordIsTerminal(t *testing.T) {
	ctx := context.Background()

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, _ string) (profile.Partial, error) {
			return profile.Partial{Role: "partner"}, nil
		},
	}

	gate, _, _ := newGateEnv("", fetcher)

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateDenied {
		t.Fatalf("state = %q, want denied (never password_required)", d.State)
	}
}

func TestEvaluateFetchFailureDegradesToDenial(t *testing.T) {
	ctx := context.Background()

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, _ string) (profile.Partial, error) {
			return profile.Partial{}, errors.New("connection refused")
		},
	}

	gate, _, errCount := newGateEnv("", fetcher)

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StateDenied {
		t.Fatalf("state = %q, want denied", d.State)
	}

	if got := errCount.Load(); got != 1 {
		t.Fatalf("fetch failure logged %d times, want exactly 1", got)
	}
}

func TestEvaluateFetchFailureFallsTowardPrompt(t *testing.T) {
	ctx := context.Background()

	fetcher := &fakeFetcher{
		getFn: func(_ context.Context, _ string) (profile.Partial, error) {
			return profile.Partial{}, errors.New("boom")
		},
	}

	gate, _, _ := newGateEnv("s3cret", fetcher)

	d := gate.Evaluate(ctx, "sid1", "dev1")

	if d.State != authz.StatePasswordRequired {
		t.Fatalf("state = %q, want password_required when upstream is down", d.State)
	}
}

func TestSubmitPasswordWrong(t *testing.T) {
	ctx := context.Background()
	gate, store, _ := newGateEnv("s3cret", &fakeFetcher{})

	d, err := gate.SubmitPassword(ctx, "sid1", "dev1", "nope", true)

	if !errors.Is(err, authz.ErrInvalidPassword) {
		t.Fatalf("err = %v, want ErrInvalidPassword", err)
	}

	if d.State != authz.StatePasswordRequired {
		t.Fatalf("state = %q, want password_required", d.State)
	}

	if store.HasOverrideKey("dev1") {
		t.Fatalf("wrong password must not touch the override store")
	}
}

func TestSubmitPasswordRemembered(t *testing.T) {
	ctx := context.Background()
	gate, store, _ := newGateEnv("s3cret", &fakeFetcher{})

	d, err := gate.SubmitPassword(ctx, "sid1", "dev1", "  s3cret ", true)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.State != authz.StateAuthorized || !d.ViaOverride {
		t.Fatalf("decision = %+v, want authorized via override", d)
	}

	if !store.Override(ctx, "dev1") {
		t.Fatalf("remember=true must persist the override")
	}

	if store.RoleMarker(ctx, "sid1") != profile.RoleAdmin {
		t.Fatalf("role marker not written for this session")
	}
}

func TestSubmitPasswordNotRemembered(t *testing.T) {
	ctx := context.Background()
	gate, store, _ := newGateEnv("s3cret", &fakeFetcher{})

	d, err := gate.SubmitPassword(ctx, "sid1", "dev1", "s3cret", false)

	if err != nil || d.State != authz.StateAuthorized {
		t.Fatalf("decision = %+v err = %v, want authorized", d, err)
	}

	if store.HasOverrideKey("dev1") {
		t.Fatalf("remember=false must leave no override key behind")
	}
}

func TestGateLogout(t *testing.T) {
	ctx := context.Background()
	gate, store, _ := newGateEnv("s3cret", &fakeFetcher{})

	_, _ = gate.SubmitPassword(ctx, "sid1", "dev1", "s3cret", true)

	if err := gate.Logout(ctx, "sid1", "dev1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if store.Override(ctx, "dev1") {
		t.Fatalf("override survived gate logout")
	}

	if store.RoleMarker(ctx, "sid1") != "" {
		t.Fatalf("role marker survived gate logout")
	}
}
