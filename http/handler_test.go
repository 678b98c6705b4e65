package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/profilebridge/auth"
	"github.com/stephnangue/profilebridge/catalog"
	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/federation"
	"github.com/stephnangue/profilebridge/logger"
)

const testToken = "test-token"

type fakeCatalog struct {
	profiles      []catalog.Profile
	enriched      []catalog.Profile
	enrichedNames []string
	err           error
}

func (f *fakeCatalog) Aggregate() ([]catalog.Profile, error) {
	return f.profiles, f.err
}

func (f *fakeCatalog) AggregateEnriched(names []string) ([]catalog.Profile, error) {
	f.enrichedNames = names
	return f.enriched, f.err
}

type fakeResolver struct {
	creds *cred.CredentialSet
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, profileName string) (*cred.CredentialSet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.creds, nil
}

type fakeBuilder struct {
	url        string
	err        error
	calls      int
	lastRegion string
}

func (f *fakeBuilder) ConsoleURL(ctx context.Context, creds *cred.CredentialSet, region, destinationPath string) (string, error) {
	f.calls++
	f.lastRegion = region
	if f.err != nil {
		return "", f.err
	}
	if region != "" {
		return f.url + "?region=" + region, nil
	}
	return f.url, nil
}

type fakeAuth struct{ err error }

func (f *fakeAuth) Authenticate(token string) error {
	if token != testToken {
		if f.err != nil {
			return f.err
		}
		return auth.ErrInvalidToken
	}
	return nil
}

func newHandler(t *testing.T, props *HandlerProperties) http.Handler {
	t.Helper()
	if props.Catalog == nil {
		props.Catalog = &fakeCatalog{}
	}
	if props.Credentials == nil {
		props.Credentials = &fakeResolver{}
	}
	if props.Federation == nil {
		props.Federation = &fakeBuilder{}
	}
	if props.Authenticator == nil {
		props.Authenticator = &fakeAuth{}
	}
	props.Logger = logger.NewZerologLogger(&logger.Config{Level: logger.ErrorLevel})
	return Handler(props)
}

func doRequest(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set(apiTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthUnauthenticated(t *testing.T) {
	h := newHandler(t, &HandlerProperties{})
	rec := doRequest(h, http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)
}

func TestAuthRejection(t *testing.T) {
	resolver := &fakeResolver{}
	h := newHandler(t, &HandlerProperties{Credentials: resolver})

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/v1/version"},
		{http.MethodGet, "/v1/profiles"},
		{http.MethodPost, "/v1/profiles/enrich"},
		{http.MethodPost, "/v1/profiles/dev/console-url"},
	}
	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			rec := doRequest(h, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Len(t, resp.Errors, 1)
		})
	}
	assert.Equal(t, 0, resolver.calls, "rejected requests must not reach the engine")
}

func TestAuthRateLimited(t *testing.T) {
	h := newHandler(t, &HandlerProperties{Authenticator: &fakeAuth{err: auth.ErrRateLimited}})
	rec := doRequest(h, http.MethodGet, "/v1/profiles", "wrong", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestListProfiles(t *testing.T) {
	fc := &fakeCatalog{profiles: []catalog.Profile{
		{Name: "prod", Source: catalog.SourceCredentialsFile, Color: "red", Icon: "briefcase"},
	}}
	h := newHandler(t, &HandlerProperties{Catalog: fc})

	rec := doRequest(h, http.MethodGet, "/v1/profiles", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProfilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Profiles, 1)
	assert.Equal(t, "prod", resp.Profiles[0].Name)
	assert.Equal(t, "red", resp.Profiles[0].Color)
}

func TestEnrichProfilesWithNames(t *testing.T) {
	fc := &fakeCatalog{enriched: []catalog.Profile{{Name: "dev-sso"}}}
	h := newHandler(t, &HandlerProperties{Catalog: fc})

	rec := doRequest(h, http.MethodPost, "/v1/profiles/enrich", testToken,
		&EnrichRequest{Names: []string{"dev-sso"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"dev-sso"}, fc.enrichedNames)
}

func TestEnrichProfilesRejectsBadName(t *testing.T) {
	h := newHandler(t, &HandlerProperties{})
	rec := doRequest(h, http.MethodPost, "/v1/profiles/enrich", testToken,
		&EnrichRequest{Names: []string{"bad name!"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsoleURL(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	fc := &fakeCatalog{profiles: []catalog.Profile{
		{Name: "prod", Color: "red", Icon: "briefcase"},
	}}
	resolver := &fakeResolver{creds: &cred.CredentialSet{
		AccessKeyID: "a", SecretAccessKey: "s", SessionToken: "t", Expiration: &expiry,
	}}
	builder := &fakeBuilder{url: "https://signin.aws.amazon.com/federation?Action=login"}

	h := newHandler(t, &HandlerProperties{
		Catalog:     fc,
		Credentials: resolver,
		Federation:  builder,
	})

	rec := doRequest(h, http.MethodPost, "/v1/profiles/prod/console-url", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConsoleURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, builder.url, resp.URL)
	assert.Equal(t, "prod", resp.ProfileName)
	assert.Equal(t, "red", resp.Color)
	assert.Equal(t, "briefcase", resp.Icon)
}

func TestConsoleURLInvalidName(t *testing.T) {
	resolver := &fakeResolver{}
	h := newHandler(t, &HandlerProperties{Credentials: resolver})

	rec := doRequest(h, http.MethodPost, "/v1/profiles/bad%20name/console-url", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, resolver.calls)
}

func TestConsoleURLErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unknown profile", cred.ErrNoCredentials, http.StatusNotFound, "no credentials configured"},
		{"expired sso session", cred.ErrSSOTokenMissingOrExpired, http.StatusForbidden, "aws sso login"},
		{"rejected token", cred.ErrTokenInvalid, http.StatusForbidden, "aws sso login"},
		{"aws unreachable", cred.ErrUpstreamUnavailable, http.StatusBadGateway, "temporarily unable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "failed to resolve"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(t, &HandlerProperties{Credentials: &fakeResolver{err: tc.err}})
			rec := doRequest(h, http.MethodPost, "/v1/profiles/dev/console-url", testToken, nil)
			assert.Equal(t, tc.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Len(t, resp.Errors, 1)
			assert.Contains(t, resp.Errors[0], tc.message)
		})
	}
}

func TestConsoleURLReused(t *testing.T) {
	cache, err := federation.NewURLCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	expiry := time.Now().Add(time.Hour)
	resolver := &fakeResolver{creds: &cred.CredentialSet{
		AccessKeyID: "a", SecretAccessKey: "s", SessionToken: "t", Expiration: &expiry,
	}}
	builder := &fakeBuilder{url: "https://signin/url"}

	h := newHandler(t, &HandlerProperties{
		Credentials: resolver,
		Federation:  builder,
		URLCache:    cache,
	})

	for i := 0; i < 3; i++ {
		rec := doRequest(h, http.MethodPost, "/v1/profiles/dev/console-url", testToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, builder.calls, "repeated opens must reuse the federated session")
}

func TestConsoleURLRegionBypassesCache(t *testing.T) {
	cache, err := federation.NewURLCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	expiry := time.Now().Add(time.Hour)
	resolver := &fakeResolver{creds: &cred.CredentialSet{
		AccessKeyID: "a", SecretAccessKey: "s", SessionToken: "t", Expiration: &expiry,
	}}
	builder := &fakeBuilder{url: "https://signin/url"}

	h := newHandler(t, &HandlerProperties{
		Credentials: resolver,
		Federation:  builder,
		URLCache:    cache,
	})

	// Prime the cache with a default-destination URL.
	rec := doRequest(h, http.MethodPost, "/v1/profiles/dev/console-url", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, builder.calls)

	// An explicit region must reach the builder, not the cached default URL.
	rec = doRequest(h, http.MethodPost, "/v1/profiles/dev/console-url", testToken,
		&ConsoleURLRequest{Region: "eu-west-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, builder.calls)
	assert.Equal(t, "eu-west-1", builder.lastRegion)

	var resp ConsoleURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://signin/url?region=eu-west-1", resp.URL)

	// The region-specific URL must not displace the cached default one.
	rec = doRequest(h, http.MethodPost, "/v1/profiles/dev/console-url", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, builder.calls, "default request must still hit the cache")
}

func TestUnknownPath(t *testing.T) {
	h := newHandler(t, &HandlerProperties{})
	rec := doRequest(h, http.MethodGet, "/other", testToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
