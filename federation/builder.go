// Package federation builds AWS console sign-in URLs from temporary
// credentials through the signin federation endpoint.
//
// Credentials pass through this package but are never stored or logged.
package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/logger"
)

const (
	// DefaultEndpoint is the global AWS federation endpoint.
	DefaultEndpoint = "https://signin.aws.amazon.com/federation"

	// DefaultConsoleURL is the destination when no region is requested.
	DefaultConsoleURL = "https://console.aws.amazon.com/"

	requestTimeout = 10 * time.Second
)

// ErrFederationFailed is returned when the federation endpoint does not hand
// back a usable signin token.
var ErrFederationFailed = errors.New("failed to get federation token from AWS")

// Builder turns credential sets into console sign-in URLs.
type Builder struct {
	endpoint        string
	issuer          string
	sessionDuration time.Duration
	client          *retryablehttp.Client
	log             logger.Logger
}

// Config configures a Builder. Zero values fall back to the AWS defaults.
type Config struct {
	Endpoint        string
	Issuer          string
	SessionDuration time.Duration
	Logger          logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = 12 * time.Hour
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   requestTimeout,
	}
	client.RetryMax = 1
	// The request URL carries the session credentials, so the client must not
	// log requests.
	client.Logger = nil

	return &Builder{
		endpoint:        cfg.Endpoint,
		issuer:          cfg.Issuer,
		sessionDuration: cfg.SessionDuration,
		client:          client,
		log:             cfg.Logger.WithSubsystem("federation"),
	}
}

// ConsoleURL builds a sign-in URL for the given credentials. Long-term
// credentials are never sent to the federation endpoint: the bare console
// destination is returned and the browser handles sign-in itself.
func (b *Builder) ConsoleURL(ctx context.Context, creds *cred.CredentialSet, region, destinationPath string) (string, error) {
	if creds == nil || creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return "", cred.ErrNoCredentials
	}

	destination := destinationURL(region, destinationPath)

	if !creds.Temporary() {
		b.log.Debug("long-term credentials, returning bare console URL")
		return destination, nil
	}

	signinToken, err := b.getSigninToken(ctx, creds)
	if err != nil {
		return "", err
	}

	login := url.Values{}
	login.Set("Action", "login")
	login.Set("Issuer", b.issuer)
	login.Set("Destination", destination)
	login.Set("SigninToken", signinToken)

	return b.endpoint + "?" + login.Encode(), nil
}

func (b *Builder) getSigninToken(ctx context.Context, creds *cred.CredentialSet) (string, error) {
	session, err := json.Marshal(map[string]string{
		"sessionId":    creds.AccessKeyID,
		"sessionKey":   creds.SecretAccessKey,
		"sessionToken": creds.SessionToken,
	})
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("Action", "getSigninToken")
	params.Set("DurationSeconds", strconv.Itoa(int(b.sessionDuration.Seconds())))
	params.Set("Session", string(session))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Warn("federation endpoint unreachable", logger.Err(err))
		return "", fmt.Errorf("%w: %v", cred.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Warn("federation endpoint rejected the request",
			logger.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: endpoint returned %d", ErrFederationFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFederationFailed, err)
	}

	var result struct {
		SigninToken string `json:"SigninToken"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: malformed response", ErrFederationFailed)
	}
	if result.SigninToken == "" {
		return "", ErrFederationFailed
	}
	return result.SigninToken, nil
}

// destinationURL builds the console destination, regional when a region is
// requested.
func destinationURL(region, destinationPath string) string {
	if region == "" {
		if destinationPath == "" {
			return DefaultConsoleURL
		}
		return DefaultConsoleURL + trimLeadingSlash(destinationPath)
	}
	if destinationPath == "" {
		return fmt.Sprintf("https://%s.console.aws.amazon.com/console/home?region=%s", region, region)
	}
	return fmt.Sprintf("https://%s.console.aws.amazon.com/%s", region, trimLeadingSlash(destinationPath))
}

func trimLeadingSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
