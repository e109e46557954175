// Package insightengine is the caching and deduplication layer between
// the analytics API and the AI generation backends. Identical chart
// payloads produce identical fingerprints, and each fingerprint is
// generated at most once: concurrent identical requests coalesce onto a
// single generator call, and the result is persisted durably with a fast
// tier in front.
package insightengine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mat-labs/insight-engine/internal/cache"
	"github.com/mat-labs/insight-engine/internal/fingerprint"
	"github.com/mat-labs/insight-engine/internal/logging"
	"github.com/mat-labs/insight-engine/internal/metrics"
	"github.com/mat-labs/insight-engine/internal/providerlog"
	"github.com/mat-labs/insight-engine/internal/sanitize"
	"github.com/mat-labs/insight-engine/internal/store"
	"github.com/mat-labs/insight-engine/providers"
)

// DefaultGeneratorTimeout bounds a single generator call.
const DefaultGeneratorTimeout = 60 * time.Second

// Engine orchestrates the insight pipeline: sanitize, fingerprint,
// cache lookup, and — only on a genuine miss — one shared generator
// invocation per fingerprint.
type Engine struct {
	cache     *cache.Tiered
	generator providers.Generator
	store     store.Store
	audit     providerlog.Writer
	timeout   time.Duration
	flight    singleflight.Group
}

// EngineOptions assembles an Engine. Cache, Generator, and Store are
// required; Audit defaults to a no-op writer.
type EngineOptions struct {
	Cache     *cache.Tiered
	Generator providers.Generator
	Store     store.Store
	Audit     providerlog.Writer
	// GeneratorTimeout bounds a single generator call. Zero means
	// DefaultGeneratorTimeout.
	GeneratorTimeout time.Duration
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) *Engine {
	audit := opts.Audit
	if audit == nil {
		audit = providerlog.NoopWriter{}
	}
	timeout := opts.GeneratorTimeout
	if timeout <= 0 {
		timeout = DefaultGeneratorTimeout
	}
	return &Engine{
		cache:     opts.Cache,
		generator: opts.Generator,
		store:     opts.Store,
		audit:     audit,
		timeout:   timeout,
	}
}

// FastTierState reports the fast cache tier's availability, for the
// health endpoint and the state gauge.
func (e *Engine) FastTierState() string {
	return e.cache.FastState().String()
}

// GetOrGenerateChartInsight returns the cached insight for the request's
// fingerprint, generating it first if no one ever has.
func (e *Engine) GetOrGenerateChartInsight(ctx context.Context, req providers.InsightRequest) (*store.Insight, error) {
	return e.getOrGenerate(ctx, providers.KindChartInsight, req)
}

// GetOrGenerateAdvancedInsight is the section-level variant: the section
// key participates in the fingerprint, so each section of the same chart
// caches independently.
func (e *Engine) GetOrGenerateAdvancedInsight(ctx context.Context, req providers.InsightRequest) (*store.Insight, error) {
	if req.Section == "" {
		return nil, E(KindInvalidInput, "advanced insight requires a section", nil)
	}
	return e.getOrGenerate(ctx, providers.KindAdvancedInsight, req)
}

// GenerateTrainingProgram invokes the generator directly. Programs are
// date-anchored and personal, so they bypass the insight cache.
func (e *Engine) GenerateTrainingProgram(ctx context.Context, req providers.ProgramRequest) (*providers.TrainingProgram, error) {
	if req.WrestlerID == "" {
		return nil, E(KindInvalidInput, "wrestler id is required", nil)
	}
	if req.Locale == "" {
		req.Locale = "en-US"
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	program, err := e.generator.GenerateTrainingProgram(callCtx, req)
	e.recordInvocation(ctx, providerlog.Entry{
		TraceID:    logging.TraceIDFromContext(ctx),
		WrestlerID: req.WrestlerID,
		Kind:       providers.KindTrainingProgram,
		Generator:  e.generator.Name(),
		Locale:     req.Locale,
		DurationMs: time.Since(start).Milliseconds(),
	}, err)
	if err != nil {
		metrics.InsightRequestsTotal.WithLabelValues(providers.KindTrainingProgram, "error").Inc()
		return nil, e.mapGeneratorErr(err)
	}
	metrics.InsightRequestsTotal.WithLabelValues(providers.KindTrainingProgram, "generated").Inc()
	return program, nil
}

func (e *Engine) getOrGenerate(ctx context.Context, kind string, req providers.InsightRequest) (*store.Insight, error) {
	if req.WrestlerID == "" || req.ChartID == "" {
		return nil, E(KindInvalidInput, "wrestler id and chart id are required", nil)
	}
	if len(req.ChartData) == 0 {
		return nil, E(KindInvalidInput, "chart data is required", nil)
	}
	if req.Locale == "" {
		req.Locale = "en-US"
	}

	chartData, err := sanitize.Strip(req.ChartData)
	if err != nil {
		return nil, E(KindSanitizationError, "chart data failed sanitization", err)
	}
	var reqContext map[string]any
	if req.Context != nil {
		if reqContext, err = sanitize.Strip(req.Context); err != nil {
			return nil, E(KindSanitizationError, "request context failed sanitization", err)
		}
	}
	req.ChartData = chartData
	req.Context = reqContext

	fp, err := fingerprint.Compute(req.WrestlerID, req.ChartID, req.Section, chartData, reqContext, req.Locale)
	if err != nil {
		return nil, E(KindInvalidInput, "payload cannot be fingerprinted", err)
	}

	if ins, tier, err := e.cache.GetInsight(ctx, req.WrestlerID, req.ChartID, fp); err == nil {
		metrics.CacheHitsTotal.WithLabelValues(string(tier)).Inc()
		metrics.InsightRequestsTotal.WithLabelValues(kind, "cache_hit").Inc()
		e.publishFastTierState()
		return ins, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, E(KindInternal, "cache lookup failed", err)
	}

	// Coalesce concurrent identical requests. The shared computation
	// runs detached from any single caller's cancellation: one impatient
	// client must not abort work that nine others are waiting on.
	key := req.WrestlerID + "|" + req.ChartID + "|" + fp
	genCtx := context.WithoutCancel(ctx)
	// Do reports shared=true to every caller of a shared flight, the
	// executor included, so it cannot distinguish the one request that
	// did the work. Track that with a flag only the executed closure
	// sets.
	var executed bool
	v, err, _ := e.flight.Do(key, func() (any, error) {
		executed = true
		return e.generate(genCtx, kind, req, fp)
	})
	if err != nil {
		metrics.InsightRequestsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	if executed {
		metrics.InsightRequestsTotal.WithLabelValues(kind, "generated").Inc()
	} else {
		metrics.InsightRequestsTotal.WithLabelValues(kind, "coalesced").Inc()
	}
	e.publishFastTierState()
	return v.(*store.Insight), nil
}

// generate runs inside the single-flight group, at most once per key.
func (e *Engine) generate(ctx context.Context, kind string, req providers.InsightRequest, fp string) (*store.Insight, error) {
	// A racing writer may have finished between our miss and the flight
	// acquiring the key.
	if ins, tier, err := e.cache.GetInsight(ctx, req.WrestlerID, req.ChartID, fp); err == nil {
		metrics.CacheHitsTotal.WithLabelValues(string(tier)).Inc()
		return ins, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	var (
		generated *providers.Insight
		err       error
	)
	if kind == providers.KindAdvancedInsight {
		generated, err = e.generator.GenerateAdvancedInsight(callCtx, req)
	} else {
		generated, err = e.generator.GenerateChartInsight(callCtx, req)
	}
	duration := time.Since(start)
	metrics.GeneratorDuration.WithLabelValues(e.generator.Name(), kind).Observe(duration.Seconds())
	e.recordInvocation(ctx, providerlog.Entry{
		TraceID:     logging.TraceIDFromContext(ctx),
		WrestlerID:  req.WrestlerID,
		Kind:        kind,
		Generator:   e.generator.Name(),
		Locale:      req.Locale,
		Fingerprint: fp,
		DurationMs:  duration.Milliseconds(),
	}, err)
	if err != nil {
		return nil, e.mapGeneratorErr(err)
	}
	if err := generated.Validate(); err != nil {
		return nil, e.mapGeneratorErr(err)
	}

	stored, err := e.cache.PutInsight(ctx, &store.Insight{
		ID:          uuid.NewString(),
		WrestlerID:  req.WrestlerID,
		ChartID:     req.ChartID,
		Fingerprint: fp,
		Insight:     *generated,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, E(KindInternal, "persisting insight failed", err)
	}
	return stored, nil
}

// recordInvocation writes the audit entry and per-generator metrics for a
// single generator call. Audit failures are logged, never surfaced.
func (e *Engine) recordInvocation(ctx context.Context, entry providerlog.Entry, callErr error) {
	metrics.GeneratorInvocations.WithLabelValues(entry.Generator, entry.Kind).Inc()
	if callErr != nil {
		entry.ErrorMessage = callErr.Error()
		metrics.GeneratorErrors.WithLabelValues(entry.Generator, generatorErrType(callErr)).Inc()
	}
	if err := e.audit.Write(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("provider audit write failed",
			slog.String("generator", entry.Generator),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) mapGeneratorErr(err error) error {
	switch {
	case errors.Is(err, providers.ErrTimeout):
		return E(KindAIProviderError, "generator timed out", err)
	case errors.Is(err, providers.ErrMalformedOutput):
		return E(KindAIProviderError, "generator returned malformed output", err)
	default:
		return E(KindAIProviderError, "generator unavailable", err)
	}
}

func (e *Engine) publishFastTierState() {
	metrics.FastTierState.Set(float64(e.cache.FastState()))
}

func generatorErrType(err error) string {
	switch {
	case errors.Is(err, providers.ErrTimeout):
		return "timeout"
	case errors.Is(err, providers.ErrMalformedOutput):
		return "malformed_output"
	default:
		return "unavailable"
	}
}
