// Package api exposes the range conversion service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"iprange/internal/auth"
	"iprange/internal/discovery"
	"iprange/internal/observability"
	"iprange/internal/storage"
)

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server wires the converter, storage, and discovery services into HTTP
// handlers on a ServeMux.
type Server struct {
	mux         *http.ServeMux
	store       storage.Store
	logger      observability.Logger
	metrics     *observability.Metrics
	sync        *discovery.SyncService
	version     string
	authEnabled bool
}

// NewServer creates a new HTTP server with the given dependencies.
// If logger is nil, a default logger will be used.
// If metrics is nil, metrics collection is disabled.
// If sync is nil, the discovery endpoints return 503.
func NewServer(mux *http.ServeMux, store storage.Store, logger observability.Logger, metrics *observability.Metrics, sync *discovery.SyncService) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &Server{mux: mux, store: store, logger: logger, metrics: metrics, sync: sync, version: "dev"}
}

// SetVersion sets the version string reported by /api/v1/version.
func (s *Server) SetVersion(v string) {
	if v != "" {
		s.version = v
	}
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, detail string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if detail != "" {
		fields = append(fields, "detail", detail)
	}
	fields = appendRequestID(ctx, fields)
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

// writeStoreErr maps a storage-layer error to the appropriate HTTP status
// code using errors.Is() against the storage sentinels, falling back to
// 500 for unknown errors.
func (s *Server) writeStoreErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeErr(ctx, w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, storage.ErrConflict):
		s.writeErr(ctx, w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, storage.ErrValidation):
		s.writeErr(ctx, w, http.StatusBadRequest, err.Error(), "")
	default:
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) { s.status = code; s.ResponseWriter.WriteHeader(code) }

// RegisterRoutes registers all HTTP routes. When keyStore is non-nil,
// API endpoints require a Bearer API key with the matching scope; health,
// readiness, version, and metrics stay public.
func (s *Server) RegisterRoutes(keyStore auth.KeyStore) {
	s.authEnabled = keyStore != nil

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/api/v1/version", s.handleVersion)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}

	authMW := AuthMiddleware(keyStore, s.authEnabled, s.logger)
	protect := func(scope string, h http.HandlerFunc) http.Handler {
		return authMW(s.requireScope(scope, h))
	}

	s.mux.Handle("POST /api/v1/convert", protect("convert:run", s.handleConvert))
	s.mux.Handle("GET /api/v1/conversions", protect("conversions:read", s.handleListConversions))
	s.mux.Handle("GET /api/v1/conversions/{id}", protect("conversions:read", s.handleGetConversion))
	s.mux.Handle("DELETE /api/v1/conversions/{id}", protect("conversions:write", s.handleDeleteConversion))
	s.mux.Handle("GET /api/v1/export", protect("conversions:read", s.handleExport))
	s.mux.Handle("POST /api/v1/discovery/sync", protect("discovery:sync", s.handleDiscoverySync))
	s.mux.Handle("GET /api/v1/discovery/providers", protect("discovery:sync", s.handleDiscoveryProviders))
}

// requireScope enforces the given scope when authentication is enabled.
func (s *Server) requireScope(scope string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authEnabled {
			if err := auth.RequireScope(r.Context(), scope); err != nil {
				s.writeErr(r.Context(), w, http.StatusForbidden, "forbidden", "missing scope "+scope)
				return
			}
		}
		next(w, r)
	})
}
