package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

// GetProfile looks up a profile by email. An empty email is sent without the
// query param; the upstream then resolves from its own session, mirroring
// the original contract.
func (c *Client) GetProfile(ctx context.Context, email string) (profile.Partial, error) {
	endpoint := c.authBase + "/profile"

	if email != "" {
		endpoint += "?email=" + url.QueryEscape(email)
	}

	var out profile.Partial

	err := c.observed("profile_get", func() error {
		raw, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "Failed to load profile.")

		if err != nil {
			return err
		}

		out, err = profile.DecodePayload(raw)

		return err
	})

	return out, err
}

// saveProfileBody is the outbound shape: the full profile minus role, which
// only the role endpoint may change.
type saveProfileBody struct {
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
}

func (c *Client) SaveProfile(ctx context.Context, p profile.UserProfile) (profile.Partial, error) {
	p = profile.Normalize(p)

	body := saveProfileBody{
		Email:       p.Email,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Location:    p.Location,
		Skills:      p.Skills,
		Socials:     p.Socials,
		Github:      p.Github,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
	}

	var out profile.Partial

	err := c.observed("profile_save", func() error {
		raw, err := c.doJSON(ctx, http.MethodPost, c.authBase+"/profile", body, "Failed to save profile.")

		if err != nil {
			return err
		}

		out, err = profile.DecodePayload(raw)

		return err
	})

	return out, err
}

func (c *Client) UpdateRole(ctx context.Context, email string, role profile.Role) error {
	body := map[string]string{
		"email": email,
		"role":  string(role),
	}

	return c.observed("role_update", func() error {
		_, err := c.doJSON(ctx, http.MethodPatch, c.authBase+"/profile/role", body, "Failed to update role.")
		return err
	})
}

func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}

	var tokenID string

	err := c.observed("otp_request", func() error {
		raw, err := c.doJSON(ctx, http.MethodPost, c.authBase+"/request-otp", body, "Failed to send code.")

		if err != nil {
			return err
		}

		var parsed struct {
			TokenID string `json:"tokenId"`
		}

		if err := json.Unmarshal(raw, &parsed); err != nil {
			return err
		}

		tokenID = parsed.TokenID

		return nil
	})

	return tokenID, err
}

// VerifyOTP exchanges a code for the user record. The response uses the
// {user: ...} envelope; DecodePayload tolerates the others too.
func (c *Client) VerifyOTP(ctx context.Context, email, otp, tokenID string) (profile.Partial, error) {
	body := map[string]string{
		"email":   email,
		"otp":     otp,
		"tokenId": tokenID,
	}

	var out profile.Partial

	err := c.observed("otp_verify", func() error {
		raw, err := c.doJSON(ctx, http.MethodPost, c.authBase+"/verify-otp", body, "Verification failed.")

		if err != nil {
			return err
		}

		out, err = profile.DecodePayload(raw)

		return err
	})

	return out, err
}
