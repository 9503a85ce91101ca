// Package api exposes the inspection service over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/assure/inspectd/internal/inspection"
	"github.com/assure/inspectd/internal/metrics"
	"github.com/assure/inspectd/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds dependencies for the HTTP handler. Metrics and Limiter are optional.
type Deps struct {
	Service        *inspection.Service
	Metrics        *metrics.Metrics
	Limiter        *RateLimiter
	MaxUploadBytes int64
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 100 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/health", handleHealth(deps))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cache-status", handleCacheStatus(deps))
		r.Get("/conversations/{report_id}", handleConversations(deps))
		r.Get("/shared/{share_token}", handleShared(deps))
		r.Get("/warranty/{report_id}/{warranty_id}", handleGetWarranty(deps))
		r.Get("/report-warranties/{report_id}", handleReportWarranties(deps))
		r.Get("/warranty-queries/{report_id}", handleWarrantyQueries(deps))

		// Completion-backed routes.
		r.Group(func(r chi.Router) {
			r.Use(deps.Limiter.Middleware)
			r.Post("/upload", handleUpload(deps))
			r.Post("/ask/{report_id}", handleAsk(deps))
			r.Post("/referral-request", handleReferralRequest(deps))
			r.Post("/upload-warranty/{report_id}", handleUploadWarranty(deps))
			r.Post("/warranty-claim-check/{report_id}/{warranty_id}", handleClaimCheck(deps))
			r.Post("/warranty-ask/{report_id}/{warranty_id}", handleWarrantyAsk(deps))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/contractors", handleListContractors(deps))
			r.Post("/contractors", handleCreateContractor(deps))
			r.Put("/contractors/{id}", handleUpdateContractor(deps))
			r.Delete("/contractors/{id}", handleDeleteContractor(deps))
			r.Get("/leads", handleListLeads(deps))
			r.Put("/leads/{id}", handleUpdateLead(deps))
			r.Get("/analytics/questions", handleQuestionAnalytics(deps))
			r.Get("/analytics/contractors", handleContractorAnalytics(deps))
			r.Get("/dashboard/stats", handleDashboard(deps))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := deps.Service.CacheStatus()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "inspectd",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"cache": map[string]int{
				"size":     st.Size,
				"capacity": st.Capacity,
			},
		})
	}
}

func handleCacheStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.CacheStatus())
	}
}

// recoverer turns a handler panic into a JSON 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("handler panic", "panic", rec, "path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()))
				httpError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// serviceError maps a service error to a status. Validation and not-found
// messages are shown to the caller; anything else is logged and replaced
// with failMsg.
func serviceError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	var ve *inspection.ValidationError
	var nf *inspection.NotFoundError
	switch {
	case errors.As(err, &ve):
		httpError(w, http.StatusBadRequest, "%s", ve.Msg)
	case errors.As(err, &nf):
		httpError(w, http.StatusNotFound, "%s", nf.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not found")
	default:
		slog.Error(failMsg, "error", err, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()))
		httpError(w, http.StatusInternalServerError, "%s", failMsg)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}
