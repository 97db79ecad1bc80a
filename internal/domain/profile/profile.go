package profile

import (
	"encoding/json"
	"errors"
)

// Role gates UI-level access only. The upstream API keeps its own
// authorization; an empty Role means "unknown".
type Role string

const (
	RoleUser    Role = "user"
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts only the closed set of roles. Anything else, including
// arbitrary strings from a tampered cache, comes back as unknown.
func ParseRole(value string) Role {
	switch Role(value) {
	case RoleUser, RolePartner, RoleAdmin:
		return Role(value)
	default:
		return ""
	}
}

type UserProfile struct {
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Location    string   `json:"location"`
	Skills      []string `json:"skills"`
	Socials     string   `json:"socials"`
	Github      string   `json:"github"`
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	Role        Role     `json:"role,omitempty"`
}

// Normalize coerces a profile read from an external source (cache or API)
// into the canonical shape: nil skills become an empty slice and the role is
// restricted to the closed set.
func Normalize(p UserProfile) UserProfile {
	if p.Skills == nil {
		p.Skills = []string{}
	}

	p.Role = ParseRole(string(p.Role))

	return p
}

// Complete reports whether the profile has been through setup. Routing after
// login hinges on exactly these three fields.
func Complete(p UserProfile) bool {
	return p.Username != "" && p.DisplayName != "" && p.Bio != ""
}

// DefaultForEmail is the pre-fill profile handed to the setup form when no
// server-side profile exists yet.
func DefaultForEmail(email string) UserProfile {
	return UserProfile{
		Email:  email,
		Skills: []string{},
		Role:   RoleUser,
	}
}

// Partial is a profile as decoded from an upstream response: pointer fields
// keep the absent-vs-empty distinction so merges can fall back per field.
type Partial struct {
	Email       *string  `json:"email"`
	Username    *string  `json:"username"`
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	Location    *string  `json:"location"`
	Skills      []string `json:"skills"`
	Socials     *string  `json:"socials"`
	Github      *string  `json:"github"`
	DisplayName *string  `json:"displayName"`
	Bio         *string  `json:"bio"`
	UpdatedAt   *string  `json:"updatedAt"`
	Role        any      `json:"role"`
}

var ErrEmptyPayload = errors.New("empty profile payload")

type payloadEnvelope struct {
	Profile *Partial `json:"profile"`
	User    *Partial `json:"user"`
}

// DecodePayload is the single coercion path for every profile-shaped body the
// upstream returns. It tolerates {"profile": {...}}, {"user": {...}} and a
// bare object, in that order of preference.
func DecodePayload(body []byte) (Partial, error) {
	if len(body) == 0 {
		return Partial{}, ErrEmptyPayload
	}

	var env payloadEnvelope

	if err := json.Unmarshal(body, &env); err == nil {
		if env.Profile != nil {
			return *env.Profile, nil
		}

		if env.User != nil {
			return *env.User, nil
		}
	}

	var bare Partial

	if err := json.Unmarshal(body, &bare); err != nil {
		return Partial{}, err
	}

	return bare, nil
}

func (p Partial) ParsedRole() Role {
	if s, ok := p.Role.(string); ok {
		return ParseRole(s)
	}

	return ""
}

// Merge lays a fetched partial over the cached profile: the fetched value
// wins per field, the cached value fills gaps, and only when both are absent
// does a field drop to empty. The role is taken from the fetched payload
// alone; a stale cached role must not survive a re-fetch.
func Merge(fetched Partial, cached *UserProfile, fallbackEmail string) UserProfile {
	base := UserProfile{Skills: []string{}}

	if cached != nil {
		base = Normalize(*cached)
	}

	merged := UserProfile{
		Email:       orString(fetched.Email, firstNonEmpty(base.Email, fallbackEmail)),
		Username:    orString(fetched.Username, base.Username),
		FirstName:   orString(fetched.FirstName, base.FirstName),
		LastName:    orString(fetched.LastName, base.LastName),
		Location:    orString(fetched.Location, base.Location),
		Skills:      base.Skills,
		Socials:     orString(fetched.Socials, base.Socials),
		Github:      orString(fetched.Github, base.Github),
		DisplayName: orString(fetched.DisplayName, base.DisplayName),
		Bio:         orString(fetched.Bio, base.Bio),
		UpdatedAt:   orString(fetched.UpdatedAt, base.UpdatedAt),
		Role:        fetched.ParsedRole(),
	}

	if fetched.Skills != nil {
		merged.Skills = fetched.Skills
	}

	return Normalize(merged)
}

func orString(v *string, fallback string) string {
	if v != nil {
		return *v
	}

	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
