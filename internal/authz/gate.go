package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
	"github.com/buildhubhq/buildhub/internal/security"
	"github.com/buildhubhq/buildhub/internal/session"
)

type GateState string

const (
	StateChecking         GateState = "checking"
	StateAuthorized       GateState = "authorized"
	StatePasswordRequired GateState = "password_required"
	StateDenied           GateState = "denied"
)

// ErrInvalidPassword is surfaced to the user; the gate stays in
// password_required and never retries on its own.
var ErrInvalidPassword = errors.New("invalid admin password")

type Decision struct {
	State GateState `json:"state"`
	// ViaOverride records that the override, not a server role, authorized
	// this session, so a later gate logout can re-arm the prompt.
	ViaOverride bool         `json:"viaOverride,omitempty"`
	Role        profile.Role `json:"role,omitempty"`
}

// Keep this small so tests can fake the upstream with a single func.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, email string) (profile.Partial, error)
}

// Gate protects the admin view. One Evaluate per protected page load; the
// password round-trip is a separate call from the prompt it produced.
type Gate struct {
	store    session.Store
	profiles ProfileFetcher
	password string
	log      *slog.Logger
}

func NewGate(store session.Store, profiles ProfileFetcher, password string, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}

	return &Gate{
		store:    store,
		profiles: profiles,
		password: password,
		log:      log,
	}
}

// Evaluate runs the checking flow:
//
//  1. override + configured password short-circuits to authorized
//  2. a cached admin role authorizes
//  3. otherwise a background profile fetch may elevate; its failure is
//     logged and swallowed, never shown as a broken page
//  4. with a configured password the fallback is the prompt (and any stale
//     override/role marker is dropped first)
//  5. without one the result is a hard denial
func (g *Gate) Evaluate(ctx context.Context, sid, did string) Decision {
	if g.password != "" && g.store.Override(ctx, did) {
		return Decision{State: StateAuthorized, ViaOverride: true, Role: profile.RoleAdmin}
	}

	authorized := false

	cached := g.store.LoadProfile(ctx, sid)

	if cached != nil && cached.Role == profile.RoleAdmin {
		authorized = true
	} else {
		email := ""

		if cached != nil {
			email = cached.Email
		}

		if email == "" {
			email = g.store.Email(ctx, sid)
		}

		fetched, err := g.profiles.GetProfile(ctx, email)

		if err != nil {
			g.log.Error("failed to verify admin permissions", "err", err)
		} else {
			merged := profile.Merge(fetched, cached, email)

			if err := g.store.StoreProfile(ctx, sid, merged); err != nil {
				g.log.Error("failed to persist merged profile", "err", err)
			}

			if merged.Role == profile.RoleAdmin {
				authorized = true
			}
		}
	}

	if authorized {
		return Decision{State: StateAuthorized, Role: profile.RoleAdmin}
	}

	if g.password != "" {
		// drop anything that could fake authorization on the next load
		if err := g.store.SetOverride(ctx, did, false); err != nil {
			g.log.Error("failed to clear admin override", "err", err)
		}

		if err := g.store.ClearRoleMarker(ctx, sid); err != nil {
			g.log.Error("failed to clear role marker", "err", err)
		}

		return Decision{State: StatePasswordRequired}
	}

	return Decision{State: StateDenied}
}

// SubmitPassword resolves a prompt round-trip. A match authorizes, persists
// the override only when the user asked to be remembered, and writes the
// session role marker. A mismatch keeps the prompt state.
func (g *Gate) SubmitPassword(ctx context.Context, sid, did, input string, remember bool) (Decision, error) {
	if g.password == "" {
		return Decision{State: StateDenied}, nil
	}

	if !security.VerifyAccessPassword(g.password, input) {
		return Decision{State: StatePasswordRequired}, ErrInvalidPassword
	}

	if err := g.store.SetOverride(ctx, did, remember); err != nil {
		g.log.Error("failed to persist admin override", "err", err)
	}

	if err := g.store.SetRoleMarker(ctx, sid, profile.RoleAdmin); err != nil {
		g.log.Error("failed to write role marker", "err", err)
	}

	return Decision{State: StateAuthorized, ViaOverride: true, Role: profile.RoleAdmin}, nil
}

// Logout re-arms the gate for this device: override gone, marker gone.
func (g *Gate) Logout(ctx context.Context, sid, did string) error {
	if err := g.store.SetOverride(ctx, did, false); err != nil {
		return err
	}

	return g.store.ClearRoleMarker(ctx, sid)
}
