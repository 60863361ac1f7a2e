package core

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout is the maximum time allowed for the database probe. If
// the probe exceeds this deadline, the health check returns 503.
const healthCheckTimeout = 2 * time.Second

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth pings the database with a short timeout. Returns 200 OK when
// the database is reachable, 503 Service Unavailable otherwise.
//
// This endpoint is public and is mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Components: map[string]componentStatus{},
	}
	if s.Config != nil {
		resp.Version = s.Config.Build.Version
	}

	status := http.StatusOK

	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.DB.Ping(ctx); err != nil {
			s.Logger.Warn("health check database probe failed", "error", err)
			resp.Status = "unhealthy"
			resp.Components["database"] = componentStatus{
				Status:  "unhealthy",
				Message: "database unreachable",
			}
			status = http.StatusServiceUnavailable
		} else {
			resp.Components["database"] = componentStatus{Status: "healthy"}
		}
	}

	JSON(w, r, status, resp)
}
