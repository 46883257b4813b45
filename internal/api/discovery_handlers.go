package api

import (
	"encoding/json"
	"net/http"
)

type syncRequest struct {
	Provider string `json:"provider"`
}

// handleDiscoverySync runs a discovery sync for the requested provider and
// returns the run summary.
func (s *Server) handleDiscoverySync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.sync == nil {
		s.writeErr(ctx, w, http.StatusServiceUnavailable, "discovery not configured", "")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Provider == "" {
		s.writeErr(ctx, w, http.StatusBadRequest, "provider is required", "")
		return
	}

	result, err := s.sync.Sync(ctx, req.Provider)
	if err != nil {
		if result == nil {
			s.writeErr(ctx, w, http.StatusBadRequest, "sync failed", err.Error())
			return
		}
		// Collector reached the provider but the run failed midway.
		s.writeErr(ctx, w, http.StatusBadGateway, "sync failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDiscoveryProviders lists the registered discovery providers.
func (s *Server) handleDiscoveryProviders(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeJSON(w, http.StatusOK, map[string]any{"providers": []string{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": s.sync.Providers()})
}
