// Package cred resolves a profile name into usable AWS credentials.
package cred

import (
	"errors"
	"time"
)

// CredentialSet is a materialized set of AWS credentials. It exists only
// inside a request's execution and is never written to durable storage.
type CredentialSet struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      *time.Time
}

// Temporary reports whether the set carries a session token. Only temporary
// credentials may be sent to the federation endpoint.
func (c *CredentialSet) Temporary() bool {
	return c.SessionToken != ""
}

// Resolution error taxonomy. The API boundary maps these to actionable
// user-facing messages.
var (
	// ErrNoCredentials: the profile exists nowhere, or exists without
	// usable credentials.
	ErrNoCredentials = errors.New("no credentials configured for profile")

	// ErrSSOTokenMissingOrExpired: terminal for the profile until the user
	// re-authenticates with `aws sso login`. Never retried automatically.
	ErrSSOTokenMissingOrExpired = errors.New("SSO token missing or expired")

	// ErrTokenInvalid: the upstream rejected a present token. Treated the
	// same as expired, not retried.
	ErrTokenInvalid = errors.New("SSO token rejected by AWS")

	// ErrUpstreamUnavailable: transient network or 5xx failure after the
	// one allowed retry.
	ErrUpstreamUnavailable = errors.New("temporarily unable to reach AWS")
)
