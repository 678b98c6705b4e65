// Package http exposes the profile catalog and console federation over a
// token-authenticated loopback API.
package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stephnangue/profilebridge/auth"
	"github.com/stephnangue/profilebridge/catalog"
	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/federation"
	"github.com/stephnangue/profilebridge/helper"
	"github.com/stephnangue/profilebridge/logger"
)

const apiTokenHeader = "X-API-Token"

// profileNamePattern bounds profile names before any engine work happens.
var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ProfileCatalog lists profiles from the local AWS configuration.
type ProfileCatalog interface {
	Aggregate() ([]catalog.Profile, error)
	AggregateEnriched(names []string) ([]catalog.Profile, error)
}

// CredentialResolver materializes credentials for one profile.
type CredentialResolver interface {
	Resolve(ctx context.Context, profileName string) (*cred.CredentialSet, error)
}

// ConsoleURLBuilder turns credentials into a console sign-in URL.
type ConsoleURLBuilder interface {
	ConsoleURL(ctx context.Context, creds *cred.CredentialSet, region, destinationPath string) (string, error)
}

// Authenticator validates API tokens.
type Authenticator interface {
	Authenticate(token string) error
}

// HandlerProperties contains configuration for the HTTP handler
type HandlerProperties struct {
	Catalog       ProfileCatalog
	Credentials   CredentialResolver
	Federation    ConsoleURLBuilder
	URLCache      *federation.URLCache
	Authenticator Authenticator
	Logger        logger.Logger
}

type handler struct {
	catalog       ProfileCatalog
	credentials   CredentialResolver
	federation    ConsoleURLBuilder
	urlCache      *federation.URLCache
	authenticator Authenticator
	log           logger.Logger
	startedAt     time.Time
}

// Handler creates the main HTTP handler.
func Handler(props *HandlerProperties) http.Handler {
	h := &handler{
		catalog:       props.Catalog,
		credentials:   props.Credentials,
		federation:    props.Federation,
		urlCache:      props.URLCache,
		authenticator: props.Authenticator,
		log:           props.Logger.WithSubsystem("http"),
		startedAt:     time.Now(),
	}

	r := chi.NewRouter()
	r.Use(h.logRequests)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/version", h.handleVersion)
			r.Get("/profiles", h.handleProfiles)
			r.Post("/profiles", h.handleProfiles)
			r.Get("/profiles/enrich", h.handleProfilesEnriched)
			r.Post("/profiles/enrich", h.handleProfilesEnriched)
			r.Post("/profiles/{name}/console-url", h.handleConsoleURL)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "path must begin with /v1/")
	})

	return r
}

// logRequests traces every request with a fresh request ID. Paths never
// carry secrets; tokens travel in the header, which is not logged.
func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := helper.GenerateRequestID()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.log.Debug("handled request",
			logger.String("request_id", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

// authenticate rejects requests before any engine work happens.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.authenticator.Authenticate(r.Header.Get(apiTokenHeader))
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			respondError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		case err != nil:
			respondError(w, http.StatusUnauthorized, "invalid or missing API token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
