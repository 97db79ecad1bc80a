package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/domain/profile"
	"github.com/buildhubhq/buildhub/internal/http/handlers"
	"github.com/buildhubhq/buildhub/internal/session"
)

type gateState struct {
	State string `json:"state"`
}

func decodeGateState(t *testing.T, body []byte) string {
	t.Helper()

	var resp gateState

	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	return resp.State
}

func newGate(store session.Store, password string, getFn func(ctx context.Context, email string) (profile.Partial, error)) *authz.Gate {
	return authz.NewGate(store, &fakeAuthAPI{getFn: getFn}, password, nil)
}

func TestAdminAccessHandler(t *testing.T) {
	adminProfile := func(ctx context.Context, email string) (profile.Partial, error) {
		return profile.Partial{Email: strPtr(email), Role: "admin"}, nil
	}

	userProfile := func(ctx context.Context, email string) (profile.Partial, error) {
		return profile.Partial{Email: strPtr(email), Role: "user"}, nil
	}

	tests := []struct {
		name           string
		password       string
		getFn          func(ctx context.Context, email string) (profile.Partial, error)
		storeSetup     func(*session.MemoryStore)
		wantStatusCode int
		wantState      string
	}{
		{
			name:           "admin_role_authorizes",
			getFn:          adminProfile,
			wantStatusCode: http.StatusOK,
			wantState:      "authorized",
		},
		{
			name:           "non_admin_without_password_is_denied",
			getFn:          userProfile,
			wantStatusCode: http.StatusForbidden,
			wantState:      "denied",
		},
		{
			name:           "non_admin_with_password_gets_prompt",
			password:       "hub-secret",
			getFn:          userProfile,
			wantStatusCode: http.StatusOK,
			wantState:      "password_required",
		},
		{
			name:     "remembered_override_authorizes",
			password: "hub-secret",
			getFn:    userProfile,
			storeSetup: func(s *session.MemoryStore) {
				_ = s.SetOverride(context.Background(), "did-1", true)
			},
			wantStatusCode: http.StatusOK,
			wantState:      "authorized",
		},
		{
			name:  "cached_admin_profile_authorizes",
			getFn: userProfile,
			storeSetup: func(s *session.MemoryStore) {
				_ = s.StoreProfile(context.Background(), "sid-1", profile.UserProfile{
					Email: "sam@buildhub.io",
					Role:  profile.RoleAdmin,
				})
			},
			wantStatusCode: http.StatusOK,
			wantState:      "authorized",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore(time.Minute, nil)

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			gate := newGate(store, tt.password, tt.getFn)
			h := handlers.NewAdminHandler(gate, nil, nil)

			r := setupRouter(http.MethodGet, "/admin/access", "sid-1", "did-1", h.Access)

			req := httptestGet("/admin/access")
			w := serve(r, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if got := decodeGateState(t, w.Body.Bytes()); got != tt.wantState {
				t.Fatalf("got state %q, want %q", got, tt.wantState)
			}
		})
	}
}

func TestAdminPasswordHandler(t *testing.T) {
	userProfile := func(ctx context.Context, email string) (profile.Partial, error) {
		return profile.Partial{Email: strPtr(email), Role: "user"}, nil
	}

	tests := []struct {
		name           string
		password       string
		body           string
		wantStatusCode int
		wantOverride   bool
	}{
		{
			name:           "correct_password_with_remember",
			password:       "hub-secret",
			body:           `{"password": "hub-secret", "remember": true}`,
			wantStatusCode: http.StatusOK,
			wantOverride:   true,
		},
		{
			name:           "correct_password_without_remember",
			password:       "hub-secret",
			body:           `{"password": "hub-secret"}`,
			wantStatusCode: http.StatusOK,
			wantOverride:   false,
		},
		{
			name:           "input_is_trimmed",
			password:       "hub-secret",
			body:           `{"password": "  hub-secret  ", "remember": true}`,
			wantStatusCode: http.StatusOK,
			wantOverride:   true,
		},
		{
			name:           "wrong_password",
			password:       "hub-secret",
			body:           `{"password": "guess"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "missing_password",
			password:       "hub-secret",
			body:           `{}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "no_password_configured",
			password:       "",
			body:           `{"password": "anything"}`,
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore(time.Minute, nil)
			gate := newGate(store, tt.password, userProfile)
			h := handlers.NewAdminHandler(gate, nil, nil)

			r := setupRouter(http.MethodPost, "/admin/access/password", "sid-1", "did-1", h.Password)
			w := postJSON(r, "/admin/access/password", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			if got := store.HasOverrideKey("did-1"); got != tt.wantOverride {
				t.Fatalf("override persisted=%v, want %v", got, tt.wantOverride)
			}

			// a successful prompt also marks the session as admin
			if got := store.RoleMarker(context.Background(), "sid-1"); got != profile.RoleAdmin {
				t.Fatalf("role marker not written, got %q", got)
			}
		})
	}
}

func TestAdminLogoutHandler_ReArmsPrompt(t *testing.T) {
	store := session.NewMemoryStore(time.Minute, nil)
	ctx := context.Background()

	userProfile := func(ctx context.Context, email string) (profile.Partial, error) {
		return profile.Partial{Email: strPtr(email), Role: "user"}, nil
	}

	gate := newGate(store, "hub-secret", userProfile)
	h := handlers.NewAdminHandler(gate, nil, nil)

	if err := store.SetOverride(ctx, "did-1", true); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	logoutRouter := setupRouter(http.MethodPost, "/admin/logout", "sid-1", "did-1", h.Logout)
	w := postJSON(logoutRouter, "/admin/logout", `{}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if store.Override(ctx, "did-1") {
		t.Fatalf("override should be dropped by gate logout")
	}

	accessRouter := setupRouter(http.MethodGet, "/admin/access", "sid-1", "did-1", h.Access)
	w2 := serve(accessRouter, httptestGet("/admin/access"))

	if got := decodeGateState(t, w2.Body.Bytes()); got != "password_required" {
		t.Fatalf("expected the prompt after gate logout, got %q", got)
	}
}
