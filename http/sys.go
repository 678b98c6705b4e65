package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/stephnangue/profilebridge/version"
)

// HealthResponse is the body of the unauthenticated health check.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// VersionResponse is the body of the version endpoint.
type VersionResponse struct {
	APIVersion  string `json:"api_version"`
	APIProtocol string `json:"api_protocol"`
	GitCommit   string `json:"git_commit,omitempty"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOk(w, &HealthResponse{
		Status:        "healthy",
		Version:       version.Version,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondOk(w, &VersionResponse{
		APIVersion:  version.Version,
		APIProtocol: version.APIProtocol,
		GitCommit:   version.GitCommit,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	})
}
