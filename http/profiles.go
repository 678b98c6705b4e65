package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stephnangue/profilebridge/catalog"
	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/federation"
	"github.com/stephnangue/profilebridge/logger"
)

// ProfilesResponse is the body of the profile listing endpoints.
type ProfilesResponse struct {
	Profiles []catalog.Profile `json:"profiles"`
}

// EnrichRequest optionally narrows enrichment to named profiles.
type EnrichRequest struct {
	Names []string `json:"names,omitempty"`
}

// ConsoleURLRequest carries the optional region and destination for a
// console-url request.
type ConsoleURLRequest struct {
	Region      string `json:"region,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// ConsoleURLResponse is the body of a successful console-url request.
type ConsoleURLResponse struct {
	URL         string `json:"url"`
	ProfileName string `json:"profileName"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

func (h *handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.catalog.Aggregate()
	if err != nil {
		h.log.Error("profile aggregation failed", logger.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to read AWS configuration")
		return
	}
	respondOk(w, &ProfilesResponse{Profiles: profiles})
}

func (h *handler) handleProfilesEnriched(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	for _, name := range req.Names {
		if !profileNamePattern.MatchString(name) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid profile name: %q", name))
			return
		}
	}

	profiles, err := h.catalog.AggregateEnriched(req.Names)
	if err != nil {
		h.log.Error("profile enrichment failed", logger.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to read AWS configuration")
		return
	}
	respondOk(w, &ProfilesResponse{Profiles: profiles})
}

func (h *handler) handleConsoleURL(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !profileNamePattern.MatchString(name) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid profile name: %q", name))
		return
	}

	var req ConsoleURLRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	creds, err := h.credentials.Resolve(r.Context(), name)
	if err != nil {
		h.respondCredentialError(w, name, err)
		return
	}

	// Only default-destination URLs go through the cache. A request with an
	// explicit region or destination must not be answered with a cached
	// default URL.
	defaultDestination := req.Region == "" && req.Destination == ""

	var consoleURL string
	var cached bool
	if defaultDestination {
		consoleURL, cached = h.cachedURL(name, creds)
	}
	if !cached {
		consoleURL, err = h.federation.ConsoleURL(r.Context(), creds, req.Region, req.Destination)
		if err != nil {
			h.respondFederationError(w, name, err)
			return
		}
		if h.urlCache != nil && defaultDestination {
			h.urlCache.Set(name, consoleURL, creds.Expiration)
		}
	}

	resp := &ConsoleURLResponse{URL: consoleURL, ProfileName: name}
	if color, icon, ok := h.profileMetadata(name); ok {
		resp.Color = color
		resp.Icon = icon
	}
	respondOk(w, resp)
}

// cachedURL serves a previously built URL so reopening a profile does not
// mint a new federated session and log out existing console tabs. Only the
// default destination is cached.
func (h *handler) cachedURL(name string, creds *cred.CredentialSet) (string, bool) {
	if h.urlCache == nil {
		return "", false
	}
	return h.urlCache.Get(name, creds.Expiration)
}

func (h *handler) profileMetadata(name string) (color, icon string, ok bool) {
	profiles, err := h.catalog.Aggregate()
	if err != nil {
		return "", "", false
	}
	for i := range profiles {
		if profiles[i].Name == name {
			return profiles[i].Color, profiles[i].Icon, true
		}
	}
	return "", "", false
}

func (h *handler) respondCredentialError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, cred.ErrNoCredentials):
		respondError(w, http.StatusNotFound,
			fmt.Sprintf("no credentials configured for profile %s", name))
	case errors.Is(err, cred.ErrSSOTokenMissingOrExpired), errors.Is(err, cred.ErrTokenInvalid):
		respondError(w, http.StatusForbidden,
			fmt.Sprintf("SSO session expired for profile %s, run: aws sso login --profile %s", name, name))
	case errors.Is(err, cred.ErrUpstreamUnavailable):
		respondError(w, http.StatusBadGateway, "temporarily unable to reach AWS, try again")
	default:
		h.log.Error("credential resolution failed",
			logger.String("profile", name),
			logger.Err(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to resolve credentials")
	}
}

func (h *handler) respondFederationError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, cred.ErrUpstreamUnavailable), errors.Is(err, federation.ErrFederationFailed):
		respondError(w, http.StatusBadGateway, "temporarily unable to reach AWS, try again")
	default:
		h.log.Error("console URL generation failed",
			logger.String("profile", name),
			logger.Err(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to generate console URL")
	}
}
