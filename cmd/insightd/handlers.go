package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	insightengine "github.com/mat-labs/insight-engine"
	"github.com/mat-labs/insight-engine/internal/auth"
	"github.com/mat-labs/insight-engine/internal/logging"
	"github.com/mat-labs/insight-engine/internal/metrics"
	"github.com/mat-labs/insight-engine/internal/ratelimit"
	"github.com/mat-labs/insight-engine/providers"
)

type insightRequestBody struct {
	WrestlerID string         `json:"wrestler_id"`
	ChartID    string         `json:"chart_id"`
	Section    string         `json:"section,omitempty"`
	ChartData  map[string]any `json:"chart_data"`
	Context    map[string]any `json:"context,omitempty"`
	Locale     string         `json:"locale,omitempty"`
}

type programRequestBody struct {
	WrestlerID string `json:"wrestler_id"`
	Goal       string `json:"goal"`
	TargetDate string `json:"target_date"`
	Locale     string `json:"locale,omitempty"`
}

type scoreRequestBody struct {
	Metrics map[string]float64 `json:"metrics"`
}

// newRouter builds the HTTP router.
func newRouter(engine *insightengine.Engine, limiter *ratelimit.PerUser) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"fast_tier": engine.FastTierState(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/ai", func(r chi.Router) {
			r.Use(rateLimitMiddleware(limiter))
			r.Post("/chart-insight", chartInsightHandler(engine, false))
			r.Post("/chart-insight/advanced", chartInsightHandler(engine, true))
			r.Post("/training-program", trainingProgramHandler(engine))
		})

		r.Route("/wrestlers/{wrestlerID}/scores", func(r chi.Router) {
			r.Get("/overall", overallHandler(engine))
			r.Get("/domains", domainsHandler(engine))
			r.Get("/explanation", explanationHandler(engine))
			r.Get("/{sectionKey}/history", historyHandler(engine))
			r.Post("/{sectionKey}", recordScoreHandler(engine))
			r.Delete("/{sectionKey}/{scoreID}", deleteScoreHandler(engine))
		})
	})

	return r
}

// rateLimitMiddleware applies the per-user budget on generation endpoints.
func rateLimitMiddleware(limiter *ratelimit.PerUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "forbidden", "authentication required")
				return
			}
			if !limiter.Allow(id.UserID) {
				metrics.RateLimitRejections.Inc()
				writeError(w, http.StatusTooManyRequests, "rate_limited", "AI request budget exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func chartInsightHandler(engine *insightengine.Engine, advanced bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body insightRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "malformed request body")
			return
		}
		if !authorize(w, r, body.WrestlerID) {
			return
		}

		req := providers.InsightRequest{
			WrestlerID: body.WrestlerID,
			ChartID:    body.ChartID,
			Section:    body.Section,
			ChartData:  body.ChartData,
			Context:    body.Context,
			Locale:     body.Locale,
		}
		var (
			ins any
			err error
		)
		if advanced {
			ins, err = engine.GetOrGenerateAdvancedInsight(r.Context(), req)
		} else {
			ins, err = engine.GetOrGenerateChartInsight(r.Context(), req)
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ins)
	}
}

func trainingProgramHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body programRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "malformed request body")
			return
		}
		if !authorize(w, r, body.WrestlerID) {
			return
		}

		program, err := engine.GenerateTrainingProgram(r.Context(), providers.ProgramRequest{
			WrestlerID: body.WrestlerID,
			Goal:       body.Goal,
			TargetDate: body.TargetDate,
			Locale:     body.Locale,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, program)
	}
}

func recordScoreHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		sectionKey := chi.URLParam(r, "sectionKey")
		if !authorize(w, r, wrestlerID) {
			return
		}

		var body scoreRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "malformed request body")
			return
		}
		row, err := engine.RecordSectionScore(r.Context(), wrestlerID, sectionKey, body.Metrics)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	}
}

func historyHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		sectionKey := chi.URLParam(r, "sectionKey")
		if !authorize(w, r, wrestlerID) {
			return
		}

		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "since must be RFC 3339")
				return
			}
			since = parsed
		}
		rows, err := engine.ScoreHistory(r.Context(), wrestlerID, sectionKey, since)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scores": rows})
	}
}

// deleteScoreHandler is operator cleanup for mistaken entries; only
// admins and the wrestler's coach may use it.
func deleteScoreHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		if !authorize(w, r, wrestlerID) {
			return
		}
		if id, _ := auth.FromContext(r.Context()); id.Role == auth.RoleAthlete {
			writeError(w, http.StatusForbidden, "forbidden", "athletes cannot delete score history")
			return
		}
		if err := engine.DeleteScore(r.Context(), wrestlerID, chi.URLParam(r, "scoreID")); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func overallHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		if !authorize(w, r, wrestlerID) {
			return
		}
		overall, err := engine.Overall(r.Context(), wrestlerID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, overall)
	}
}

func domainsHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		if !authorize(w, r, wrestlerID) {
			return
		}
		domains, err := engine.DomainScores(r.Context(), wrestlerID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sections": domains})
	}
}

func explanationHandler(engine *insightengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrestlerID := chi.URLParam(r, "wrestlerID")
		sectionKey := r.URL.Query().Get("section")
		if sectionKey == "" {
			writeError(w, http.StatusBadRequest, "invalid_input", "section query parameter is required")
			return
		}
		if !authorize(w, r, wrestlerID) {
			return
		}
		explanation, err := engine.Explain(r.Context(), wrestlerID, sectionKey)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, explanation)
	}
}

// authorize enforces the role rules before any engine call. Writes the
// error response and returns false when access is denied.
func authorize(w http.ResponseWriter, r *http.Request, wrestlerID string) bool {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "forbidden", "authentication required")
		return false
	}
	if wrestlerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "wrestler id is required")
		return false
	}
	if !id.CanAccess(wrestlerID) {
		writeError(w, http.StatusForbidden, "forbidden", "not allowed to access this wrestler")
		return false
	}
	return true
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := insightengine.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case insightengine.KindInvalidInput:
		status = http.StatusBadRequest
	case insightengine.KindForbidden:
		status = http.StatusForbidden
	case insightengine.KindNotFound:
		status = http.StatusNotFound
	case insightengine.KindInsufficientData:
		status = http.StatusUnprocessableEntity
	case insightengine.KindAIProviderError:
		if errors.Is(err, providers.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		} else {
			status = http.StatusBadGateway
		}
	}

	var engineErr *insightengine.Error
	message := "internal error"
	if errors.As(err, &engineErr) {
		message = engineErr.Message
	}
	writeError(w, status, string(kind), message)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"kind":    kind,
			"message": message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
