package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/logger"
)

func testBuilder(t *testing.T, endpoint string) *Builder {
	t.Helper()
	return NewBuilder(Config{
		Endpoint:        endpoint,
		Issuer:          "profilebridge",
		SessionDuration: 12 * time.Hour,
		Logger:          logger.NewZerologLogger(&logger.Config{Level: logger.ErrorLevel}),
	})
}

func tempCreds() *cred.CredentialSet {
	return &cred.CredentialSet{
		AccessKeyID:     "ASIAEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "session-token",
	}
}

func TestConsoleURL_TemporaryCredentials(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]string{"SigninToken": "signin-123"})
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	consoleURL, err := builder.ConsoleURL(context.Background(), tempCreds(), "", "")
	require.NoError(t, err)

	// The signin request carries the session credentials and duration.
	assert.Equal(t, "getSigninToken", got.Get("Action"))
	assert.Equal(t, "43200", got.Get("DurationSeconds"))
	var session map[string]string
	require.NoError(t, json.Unmarshal([]byte(got.Get("Session")), &session))
	assert.Equal(t, "ASIAEXAMPLE", session["sessionId"])
	assert.Equal(t, "secret", session["sessionKey"])
	assert.Equal(t, "session-token", session["sessionToken"])

	parsed, err := url.Parse(consoleURL)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "login", query.Get("Action"))
	assert.Equal(t, "profilebridge", query.Get("Issuer"))
	assert.Equal(t, "signin-123", query.Get("SigninToken"))
	assert.Equal(t, DefaultConsoleURL, query.Get("Destination"))
}

func TestConsoleURL_LongTermCredentialsSkipNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	consoleURL, err := builder.ConsoleURL(context.Background(), &cred.CredentialSet{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConsoleURL, consoleURL)
	assert.False(t, called, "long-term credentials must never reach the federation endpoint")
}

func TestConsoleURL_RegionalDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"SigninToken": "tok"})
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	consoleURL, err := builder.ConsoleURL(context.Background(), tempCreds(), "eu-west-1", "")
	require.NoError(t, err)

	parsed, err := url.Parse(consoleURL)
	require.NoError(t, err)
	assert.Equal(t,
		"https://eu-west-1.console.aws.amazon.com/console/home?region=eu-west-1",
		parsed.Query().Get("Destination"))
}

func TestConsoleURL_DestinationPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"SigninToken": "tok"})
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	consoleURL, err := builder.ConsoleURL(context.Background(), tempCreds(), "us-east-1", "/s3/home")
	require.NoError(t, err)

	parsed, err := url.Parse(consoleURL)
	require.NoError(t, err)
	assert.Equal(t,
		"https://us-east-1.console.aws.amazon.com/s3/home",
		parsed.Query().Get("Destination"))
}

func TestConsoleURL_FederationRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	_, err := builder.ConsoleURL(context.Background(), tempCreds(), "", "")
	assert.ErrorIs(t, err, ErrFederationFailed)
}

func TestConsoleURL_NoSigninToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	builder := testBuilder(t, server.URL)
	_, err := builder.ConsoleURL(context.Background(), tempCreds(), "", "")
	assert.ErrorIs(t, err, ErrFederationFailed)
}

func TestConsoleURL_MissingCredentials(t *testing.T) {
	builder := testBuilder(t, "http://127.0.0.1:0")
	_, err := builder.ConsoleURL(context.Background(), &cred.CredentialSet{}, "", "")
	assert.ErrorIs(t, err, cred.ErrNoCredentials)
}
