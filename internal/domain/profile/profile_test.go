package profile_test

import (
	"reflect"
	"testing"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

func strPtr(s string) *string {
	return &s
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  profile.Role
	}{
		{name: "admin", value: "admin", want: profile.RoleAdmin},
		{name: "partner", value: "partner", want: profile.RolePartner},
		{name: "user", value: "user", want: profile.RoleUser},
		{name: "arbitrary string rejected", value: "superadmin", want: ""},
		{name: "empty", value: "", want: ""},
		{name: "case sensitive", value: "Admin", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profile.ParseRole(tt.value)

			if got != tt.want {
				t.Fatalf("ParseRole(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := profile.Normalize(profile.UserProfile{
		Email: "a@b.c",
		Role:  profile.Role("root"),
	})

	if got.Skills == nil || len(got.Skills) != 0 {
		t.Fatalf("expected empty skills slice, got %#v", got.Skills)
	}

	if got.Role != "" {
		t.Fatalf("expected unknown role, got %q", got.Role)
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name string
		p    profile.UserProfile
		want bool
	}{
		{
			name: "all three fields set",
			p:    profile.UserProfile{Username: "a", DisplayName: "b", Bio: "c"},
			want: true,
		},
		{
			name: "missing display name",
			p:    profile.UserProfile{Username: "a", DisplayName: "", Bio: "x"},
			want: false,
		},
		{
			name: "missing bio",
			p:    profile.UserProfile{Username: "a", DisplayName: "b"},
			want: false,
		},
		{
			name: "empty profile",
			p:    profile.UserProfile{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profile.Complete(tt.p); got != tt.want {
				t.Fatalf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodePayloadShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantEmail string
		wantErr   bool
	}{
		{
			name:      "profile envelope",
			body:      `{"profile":{"email":"p@x.io","username":"p"}}`,
			wantEmail: "p@x.io",
		},
		{
			name:      "user envelope",
			body:      `{"user":{"email":"u@x.io"}}`,
			wantEmail: "u@x.io",
		},
		{
			name:      "bare object",
			body:      `{"email":"bare@x.io","bio":"hi"}`,
			wantEmail: "bare@x.io",
		},
		{
			name:    "malformed json",
			body:    `{"profile":`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := profile.DecodePayload([]byte(tt.body))

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Email == nil || *got.Email != tt.wantEmail {
				t.Fatalf("email = %v, want %q", got.Email, tt.wantEmail)
			}
		})
	}
}

func TestDecodePayloadNonStringRole(t *testing.T) {
	got, err := profile.DecodePayload([]byte(`{"profile":{"email":"x@y.z","role":42}}`))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ParsedRole() != "" {
		t.Fatalf("numeric role should parse as unknown, got %q", got.ParsedRole())
	}
}

func TestMergeFetchedWinsPerField(t *testing.T) {
	cached := &profile.UserProfile{
		Email:       "cached@x.io",
		Username:    "cacheduser",
		DisplayName: "Cached Name",
		Bio:         "cached bio",
		Skills:      []string{"go"},
		Role:        profile.RoleAdmin,
	}

	fetched := profile.Partial{
		Username: strPtr("freshuser"),
		Bio:      strPtr(""), // an explicit empty value from the server wins
		Role:     "user",
	}

	got := profile.Merge(fetched, cached, "fallback@x.io")

	if got.Email != "cached@x.io" {
		t.Fatalf("email = %q, want cached fallback", got.Email)
	}

	if got.Username != "freshuser" {
		t.Fatalf("username = %q, want fetched value", got.Username)
	}

	if got.Bio != "" {
		t.Fatalf("bio = %q, want explicit empty from server", got.Bio)
	}

	if got.DisplayName != "Cached Name" {
		t.Fatalf("displayName = %q, want cached fallback", got.DisplayName)
	}

	if !reflect.DeepEqual(got.Skills, []string{"go"}) {
		t.Fatalf("skills = %#v, want cached skills", got.Skills)
	}

	// role comes from the fetched payload only; a stale cached admin must not
	// survive a re-fetch that demoted the user
	if got.Role != profile.RoleUser {
		t.Fatalf("role = %q, want %q", got.Role, profile.RoleUser)
	}
}

func TestMergeWithoutCache(t *testing.T) {
	got := profile.Merge(profile.Partial{}, nil, "new@x.io")

	if got.Email != "new@x.io" {
		t.Fatalf("email = %q, want fallback email", got.Email)
	}

	if got.Skills == nil {
		t.Fatalf("skills must never be nil")
	}

	if got.Role != "" {
		t.Fatalf("role = %q, want unknown", got.Role)
	}
}
