package insightengine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mat-labs/insight-engine/internal/availability"
	"github.com/mat-labs/insight-engine/internal/cache"
	"github.com/mat-labs/insight-engine/internal/metrics"
	"github.com/mat-labs/insight-engine/internal/store"
	"github.com/mat-labs/insight-engine/providers"
)

// countingGenerator wraps the mock and counts real invocations.
type countingGenerator struct {
	inner providers.Generator
	calls atomic.Int64
	delay time.Duration
	err   error
}

func newCountingGenerator() *countingGenerator {
	return &countingGenerator{inner: providers.NewMock()}
}

func (g *countingGenerator) Name() string { return "counting" }

func (g *countingGenerator) GenerateChartInsight(ctx context.Context, req providers.InsightRequest) (*providers.Insight, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.GenerateChartInsight(ctx, req)
}

func (g *countingGenerator) GenerateAdvancedInsight(ctx context.Context, req providers.InsightRequest) (*providers.Insight, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.GenerateAdvancedInsight(ctx, req)
}

func (g *countingGenerator) GenerateTrainingProgram(ctx context.Context, req providers.ProgramRequest) (*providers.TrainingProgram, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.GenerateTrainingProgram(ctx, req)
}

// failingFast always errors, like an unreachable Redis.
type failingFast struct{}

func (failingFast) Get(context.Context, string) ([]byte, error) {
	return nil, errors.Join(cache.ErrUnavailable, errors.New("connection refused"))
}

func (failingFast) Set(context.Context, string, []byte, time.Duration) error {
	return errors.Join(cache.ErrUnavailable, errors.New("connection refused"))
}

func (failingFast) Delete(context.Context, string) error {
	return errors.Join(cache.ErrUnavailable, errors.New("connection refused"))
}

func newTestEngine(t *testing.T, gen providers.Generator, fast cache.FastCache) *Engine {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if fast == nil {
		fast = cache.NewMemory(128, time.Minute)
	}
	tiered := cache.NewTiered(fast, st, availability.New(3, time.Minute), time.Minute, nil)
	return NewEngine(EngineOptions{Cache: tiered, Generator: gen, Store: st})
}

func chartReq(values ...float64) providers.InsightRequest {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return providers.InsightRequest{
		WrestlerID: "w1",
		ChartID:    "radar-1",
		ChartData:  map[string]any{"chart_type": "overview_radar", "values": vals},
		Locale:     "en-US",
	}
}

func TestEngine_IdenticalRequestsGenerateOnce(t *testing.T) {
	gen := newCountingGenerator()
	e := newTestEngine(t, gen, nil)
	ctx := context.Background()

	first, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if got := gen.calls.Load(); got != 1 {
		t.Errorf("expected 1 generator call, got %d", got)
	}
	if first.ID != second.ID {
		t.Errorf("expected identical records, got %q and %q", first.ID, second.ID)
	}
}

func TestEngine_ValueChangeGeneratesFresh(t *testing.T) {
	gen := newCountingGenerator()
	e := newTestEngine(t, gen, nil)
	ctx := context.Background()

	a, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 91))
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if got := gen.calls.Load(); got != 2 {
		t.Errorf("expected 2 generator calls, got %d", got)
	}
	if a.Fingerprint == b.Fingerprint {
		t.Error("expected different fingerprints for different values")
	}
}

func TestEngine_ConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	gen := newCountingGenerator()
	gen.delay = 50 * time.Millisecond
	e := newTestEngine(t, gen, nil)

	const n = 12
	var wg sync.WaitGroup
	results := make([]*store.Insight, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.GetOrGenerateChartInsight(context.Background(), chartReq(80, 90))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
	}
	if got := gen.calls.Load(); got != 1 {
		t.Errorf("expected 1 generator call for %d concurrent requests, got %d", n, got)
	}
	for i := 1; i < n; i++ {
		if results[i].ID != results[0].ID {
			t.Errorf("request %d got record %q, want %q", i, results[i].ID, results[0].ID)
		}
	}
}

func TestEngine_CoalesceOutcomeCountsExecutorOnce(t *testing.T) {
	gen := newCountingGenerator()
	gen.delay = 150 * time.Millisecond
	e := newTestEngine(t, gen, nil)

	generatedBefore := testutil.ToFloat64(metrics.InsightRequestsTotal.WithLabelValues(providers.KindChartInsight, "generated"))
	coalescedBefore := testutil.ToFloat64(metrics.InsightRequestsTotal.WithLabelValues(providers.KindChartInsight, "coalesced"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.GetOrGenerateChartInsight(context.Background(), chartReq(70, 75))
	}()
	// Let the first request reach the generator so the followers join
	// its in-flight computation rather than racing it.
	for gen.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	const followers = 3
	for i := 0; i < followers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.GetOrGenerateChartInsight(context.Background(), chartReq(70, 75))
		}()
	}
	wg.Wait()

	generated := testutil.ToFloat64(metrics.InsightRequestsTotal.WithLabelValues(providers.KindChartInsight, "generated")) - generatedBefore
	coalesced := testutil.ToFloat64(metrics.InsightRequestsTotal.WithLabelValues(providers.KindChartInsight, "coalesced")) - coalescedBefore
	if generated != 1 {
		t.Errorf("expected 1 generated outcome, got %v", generated)
	}
	if coalesced != followers {
		t.Errorf("expected %d coalesced outcomes, got %v", followers, coalesced)
	}
}

func TestEngine_CallerCancellationDoesNotAbortSharedWork(t *testing.T) {
	gen := newCountingGenerator()
	gen.delay = 50 * time.Millisecond
	e := newTestEngine(t, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	// The shared computation finishes and the result is cached; a later
	// caller gets a hit instead of a second generation.
	if _, err := e.GetOrGenerateChartInsight(context.Background(), chartReq(80, 90)); err != nil {
		t.Fatalf("follow-up request: %v", err)
	}
	// Give the detached flight time to persist before counting.
	if got := gen.calls.Load(); got != 1 {
		t.Errorf("expected 1 generator call, got %d", got)
	}
}

func TestEngine_FailingFastTierIsTransparent(t *testing.T) {
	gen := newCountingGenerator()
	e := newTestEngine(t, gen, failingFast{})
	ctx := context.Background()

	first, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	if err != nil {
		t.Fatalf("first request with failing fast tier: %v", err)
	}
	second, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90))
	if err != nil {
		t.Fatalf("second request with failing fast tier: %v", err)
	}

	if got := gen.calls.Load(); got != 1 {
		t.Errorf("expected durable tier to dedupe, got %d generator calls", got)
	}
	if first.ID != second.ID {
		t.Errorf("expected identical records, got %q and %q", first.ID, second.ID)
	}
}

func TestEngine_InvalidInput(t *testing.T) {
	e := newTestEngine(t, newCountingGenerator(), nil)

	_, err := e.GetOrGenerateChartInsight(context.Background(), providers.InsightRequest{
		WrestlerID: "w1", // no chart id
		ChartData:  map[string]any{"values": []any{1.0}},
	})
	if KindOf(err) != KindInvalidInput {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestEngine_SanitizationError(t *testing.T) {
	e := newTestEngine(t, newCountingGenerator(), nil)

	req := chartReq(80, 90)
	req.ChartData["notes"] = "reach me at someone@example.com"
	_, err := e.GetOrGenerateChartInsight(context.Background(), req)
	if KindOf(err) != KindSanitizationError {
		t.Errorf("expected sanitization_error, got %v", err)
	}
}

func TestEngine_GeneratorFailureMapsToProviderError(t *testing.T) {
	gen := newCountingGenerator()
	gen.err = providers.ErrUnavailable
	e := newTestEngine(t, gen, nil)

	_, err := e.GetOrGenerateChartInsight(context.Background(), chartReq(80, 90))
	if KindOf(err) != KindAIProviderError {
		t.Errorf("expected ai_provider_error, got %v", err)
	}
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestEngine_FailedGenerationIsNotCached(t *testing.T) {
	gen := newCountingGenerator()
	gen.err = providers.ErrUnavailable
	e := newTestEngine(t, gen, nil)
	ctx := context.Background()

	if _, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90)); err == nil {
		t.Fatal("expected failure")
	}

	gen.err = nil
	if _, err := e.GetOrGenerateChartInsight(ctx, chartReq(80, 90)); err != nil {
		t.Fatalf("retry after generator recovery: %v", err)
	}
	if got := gen.calls.Load(); got != 2 {
		t.Errorf("expected 2 generator calls (failure then success), got %d", got)
	}
}

func TestEngine_AdvancedInsightRequiresSection(t *testing.T) {
	e := newTestEngine(t, newCountingGenerator(), nil)

	_, err := e.GetOrGenerateAdvancedInsight(context.Background(), chartReq(80, 90))
	if KindOf(err) != KindInvalidInput {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestEngine_AdvancedSectionsCacheIndependently(t *testing.T) {
	gen := newCountingGenerator()
	e := newTestEngine(t, gen, nil)
	ctx := context.Background()

	req := chartReq(80, 90)
	req.Section = "bloodwork"
	if _, err := e.GetOrGenerateAdvancedInsight(ctx, req); err != nil {
		t.Fatalf("bloodwork: %v", err)
	}
	req.Section = "recovery"
	if _, err := e.GetOrGenerateAdvancedInsight(ctx, req); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if got := gen.calls.Load(); got != 2 {
		t.Errorf("expected one generation per section, got %d", got)
	}
}

func TestEngine_TrainingProgramBypassesCache(t *testing.T) {
	gen := newCountingGenerator()
	e := newTestEngine(t, gen, nil)
	ctx := context.Background()

	req := providers.ProgramRequest{WrestlerID: "w1", Goal: "cut to 74kg", TargetDate: "2026-10-01"}
	if _, err := e.GenerateTrainingProgram(ctx, req); err != nil {
		t.Fatalf("first program: %v", err)
	}
	if _, err := e.GenerateTrainingProgram(ctx, req); err != nil {
		t.Fatalf("second program: %v", err)
	}
	if got := gen.calls.Load(); got != 2 {
		t.Errorf("expected programs to bypass the cache, got %d calls", got)
	}
}
