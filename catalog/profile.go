// Package catalog merges the credentials file, the config file and the SSO
// token cache into a single profile catalog.
package catalog

import (
	"time"
)

// Source identifies which file a profile was discovered in.
type Source string

const (
	SourceCredentialsFile Source = "credentials-file"
	SourceSSOConfig       Source = "sso-config"
)

// Profile is one entry of the aggregated catalog, shaped for the browser
// extension.
type Profile struct {
	Name           string     `json:"name"`
	Source         Source     `json:"source"`
	Region         string     `json:"region,omitempty"`
	HasCredentials bool       `json:"hasCredentials"`
	Expiration     *time.Time `json:"expiration,omitempty"`
	Expired        bool       `json:"expired"`
	Color          string     `json:"color"`
	Icon           string     `json:"icon"`
	IsSSO          bool       `json:"isSso"`
	SSOStartURL    string     `json:"ssoStartUrl,omitempty"`
	SSOSession     string     `json:"ssoSession,omitempty"`
}

// recomputeExpired derives Expired from Expiration at the evaluation time.
// Expired is never carried over as stale truth.
func (p *Profile) recomputeExpired(now time.Time) {
	p.Expired = p.Expiration != nil && p.Expiration.Before(now)
}
