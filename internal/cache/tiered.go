package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mat-labs/insight-engine/internal/availability"
	"github.com/mat-labs/insight-engine/internal/store"
)

// Tier identifies which layer served a cache read.
type Tier string

const (
	// TierFast — served from the in-process or Redis tier.
	TierFast Tier = "fast"
	// TierDurable — served from the database; fast tier repopulated.
	TierDurable Tier = "durable"
)

// Durable is the slice of the store the tiered cache needs.
type Durable interface {
	InsertInsightIfAbsent(ctx context.Context, ins *store.Insight) (*store.Insight, error)
	FindInsight(ctx context.Context, wrestlerID, chartID, fingerprint string) (*store.Insight, error)
}

// Tiered is the read-through insight cache. Reads try the fast tier, fall
// back to the durable store, and repopulate the fast tier on a durable
// hit. Writes go durable-first so a fast-tier crash can never lose an
// insight. Fast-tier failures degrade the tier via the tracker and are
// otherwise invisible to callers.
type Tiered struct {
	fast    FastCache
	durable Durable
	tracker *availability.Tracker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewTiered assembles the two tiers. ttl applies to fast-tier entries
// only; durable records never expire.
func NewTiered(fast FastCache, durable Durable, tracker *availability.Tracker, ttl time.Duration, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{
		fast:    fast,
		durable: durable,
		tracker: tracker,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "cache")),
	}
}

// Key builds the fast-tier key for an insight.
func Key(wrestlerID, chartID, fingerprint string) string {
	return fmt.Sprintf("insight:%s:%s:%s", wrestlerID, chartID, fingerprint)
}

// FastState reports the fast tier's current availability state.
func (t *Tiered) FastState() availability.State {
	return t.tracker.State()
}

// GetInsight looks an insight up by its identity key. A full miss is
// ErrMiss; durable-store failures are returned as-is.
func (t *Tiered) GetInsight(ctx context.Context, wrestlerID, chartID, fingerprint string) (*store.Insight, Tier, error) {
	key := Key(wrestlerID, chartID, fingerprint)

	if t.tracker.Allow() {
		raw, err := t.fast.Get(ctx, key)
		switch {
		case err == nil:
			t.tracker.RecordSuccess()
			var ins store.Insight
			if jsonErr := json.Unmarshal(raw, &ins); jsonErr == nil {
				return &ins, TierFast, nil
			}
			// Corrupt entry; drop it and fall through to the durable tier.
			t.logger.Warn("dropping undecodable fast-tier entry", slog.String("key", key))
			_ = t.fast.Delete(ctx, key)
		case errors.Is(err, ErrMiss):
			t.tracker.RecordSuccess()
		default:
			t.tracker.RecordFailure()
			t.logger.Warn("fast tier read failed",
				slog.String("key", key),
				slog.String("state", t.tracker.State().String()),
				slog.String("error", err.Error()))
		}
	}

	ins, err := t.durable.FindInsight(ctx, wrestlerID, chartID, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrMiss
		}
		return nil, "", err
	}

	t.repopulate(ctx, key, ins)
	return ins, TierDurable, nil
}

// PutInsight persists an insight durable-first, then mirrors whatever the
// store kept into the fast tier. Under a write race the store's
// first-writer-wins record is returned, not necessarily ins.
func (t *Tiered) PutInsight(ctx context.Context, ins *store.Insight) (*store.Insight, error) {
	stored, err := t.durable.InsertInsightIfAbsent(ctx, ins)
	if err != nil {
		return nil, err
	}
	t.repopulate(ctx, Key(stored.WrestlerID, stored.ChartID, stored.Fingerprint), stored)
	return stored, nil
}

// repopulate writes through to the fast tier, best effort.
func (t *Tiered) repopulate(ctx context.Context, key string, ins *store.Insight) {
	if !t.tracker.Allow() {
		return
	}
	raw, err := json.Marshal(ins)
	if err != nil {
		return
	}
	if err := t.fast.Set(ctx, key, raw, t.ttl); err != nil {
		t.tracker.RecordFailure()
		t.logger.Warn("fast tier write failed",
			slog.String("key", key),
			slog.String("state", t.tracker.State().String()),
			slog.String("error", err.Error()))
		return
	}
	t.tracker.RecordSuccess()
}
