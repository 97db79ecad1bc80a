package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/buildhubhq/buildhub/internal/domain/bounty"
)

type bountiesEnvelope struct {
	Bounties []bounty.Bounty `json:"bounties"`
}

type bountyEnvelope struct {
	Bounty *bounty.Bounty `json:"bounty"`
}

// ListBounties forwards the supported filters and honors ctx cancellation,
// so an abandoned page load stops the upstream call.
func (c *Client) ListBounties(ctx context.Context, filter bounty.ListFilter) ([]bounty.Bounty, error) {
	q := url.Values{}

	if filter.Status != nil {
		q.Set("status", *filter.Status)
	}

	if filter.Category != nil {
		q.Set("category", *filter.Category)
	}

	if filter.CreatedBy != nil {
		q.Set("createdBy", *filter.CreatedBy)
	}

	endpoint := c.bountiesBase

	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var out []bounty.Bounty

	err := c.observed("bounties_list", func() error {
		raw, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "Failed to fetch bounties.")

		if err != nil {
			return err
		}

		var env bountiesEnvelope

		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}

		out = env.Bounties

		if out == nil {
			out = []bounty.Bounty{}
		}

		return nil
	})

	return out, err
}

func (c *Client) GetBounty(ctx context.Context, id string) (bounty.Bounty, error) {
	var out bounty.Bounty

	err := c.observed("bounty_get", func() error {
		raw, err := c.doJSON(ctx, http.MethodGet, c.bountiesBase+"/"+url.PathEscape(id), nil, "Failed to fetch bounty.")

		if err != nil {
			return err
		}

		return decodeBounty(raw, &out)
	})

	return out, err
}

func (c *Client) CreateBounty(ctx context.Context, body any) (bounty.Bounty, error) {
	var out bounty.Bounty

	err := c.observed("bounty_create", func() error {
		raw, err := c.doJSON(ctx, http.MethodPost, c.bountiesBase, body, "Failed to create bounty.")

		if err != nil {
			return err
		}

		return decodeBounty(raw, &out)
	})

	return out, err
}

func (c *Client) UpdateBounty(ctx context.Context, id string, body any) (bounty.Bounty, error) {
	var out bounty.Bounty

	err := c.observed("bounty_update", func() error {
		raw, err := c.doJSON(ctx, http.MethodPut, c.bountiesBase+"/"+url.PathEscape(id), body, "Failed to update bounty.")

		if err != nil {
			return err
		}

		return decodeBounty(raw, &out)
	})

	return out, err
}

func (c *Client) DeleteBounty(ctx context.Context, id string) error {
	return c.observed("bounty_delete", func() error {
		_, err := c.doJSON(ctx, http.MethodDelete, c.bountiesBase+"/"+url.PathEscape(id), nil, "Failed to delete bounty.")
		return err
	})
}

// tolerate both {bounty: {...}} and a bare bounty object
func decodeBounty(raw []byte, out *bounty.Bounty) error {
	var env bountyEnvelope

	if err := json.Unmarshal(raw, &env); err == nil && env.Bounty != nil {
		*out = *env.Bounty
		return nil
	}

	return json.Unmarshal(raw, out)
}
