package api

import (
	"context"
	"net/http"
)

// Profile mirrors the catalog entry the server returns.
type Profile struct {
	Name           string `json:"name"`
	Source         string `json:"source"`
	Region         string `json:"region,omitempty"`
	HasCredentials bool   `json:"hasCredentials"`
	Expiration     string `json:"expiration,omitempty"`
	Expired        bool   `json:"expired"`
	Color          string `json:"color,omitempty"`
	Icon           string `json:"icon,omitempty"`
	IsSSO          bool   `json:"isSso"`
	SSOStartURL    string `json:"ssoStartUrl,omitempty"`
	SSOSession     string `json:"ssoSession,omitempty"`
}

type profilesResponse struct {
	Profiles []Profile `json:"profiles"`
}

type enrichRequest struct {
	Names []string `json:"names,omitempty"`
}

// ConsoleURLOptions narrows where the console URL lands.
type ConsoleURLOptions struct {
	Region      string `json:"region,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// ConsoleURL is a minted console sign-in URL with the profile's metadata.
type ConsoleURL struct {
	URL         string `json:"url"`
	ProfileName string `json:"profileName"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Health is the body of the health check.
type Health struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Profiles lists all profiles without live SSO token checks.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var resp profilesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/profiles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// ProfilesEnriched lists profiles with live SSO token expiry. A non-empty
// names slice narrows which profiles get the live check.
func (c *Client) ProfilesEnriched(ctx context.Context, names []string) ([]Profile, error) {
	var resp profilesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/profiles/enrich", &enrichRequest{Names: names}, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// ProfileConsoleURL mints a console sign-in URL for the named profile.
func (c *Client) ProfileConsoleURL(ctx context.Context, profileName string, opts *ConsoleURLOptions) (*ConsoleURL, error) {
	if opts == nil {
		opts = &ConsoleURLOptions{}
	}
	var resp ConsoleURL
	if err := c.do(ctx, http.MethodPost, "/v1/profiles/"+profileName+"/console-url", opts, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server without authentication.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
