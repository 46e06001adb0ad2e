package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"OptionsSentinel/internal/model"
	"OptionsSentinel/internal/store"
)

// PriceSource is the gateway surface the tracker polls. *collector.Gateway
// satisfies it.
type PriceSource interface {
	OptionOpenPrice(ctx context.Context, key model.OptionKey) (float64, error)
	OptionHighPrice(ctx context.Context, key model.OptionKey) (float64, error)
}

// Status is the per-candidate result of one polling pass.
type Status string

const (
	StatusImproved  Status = "improved"
	StatusUnchanged Status = "unchanged"
	StatusMalformed Status = "malformed"
	StatusNoOpen    Status = "no_open"
	StatusNoHigh    Status = "no_high"
)

// PollResult records what one pass did with one candidate.
type PollResult struct {
	ID     string
	Status Status
	Err    error
}

// Summary is the outcome of a Run.
type Summary struct {
	Date       string
	Passes     int
	Candidates []model.OptionCandidate
}

// Tracker polls the latest DailyRecord and raises each candidate's
// percentage whenever the session high implies a larger gain over the open.
type Tracker struct {
	Market   PriceSource
	Store    store.Store
	Interval time.Duration
	Budget   time.Duration
	Log      *zap.SugaredLogger
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Tracker using the wall clock.
func New(market PriceSource, st store.Store, interval, budget time.Duration, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		Market:   market,
		Store:    st,
		Interval: interval,
		Budget:   budget,
		Log:      log,
		Now:      time.Now,
		Sleep:    sleepContext,
	}
}

// Run polls until the budget elapses, the record has no candidates, or ctx
// is cancelled. A missing record yields an empty summary. Cancellation
// returns the summary so far together with ctx.Err().
func (t *Tracker) Run(ctx context.Context) (*Summary, error) {
	rec, err := t.Store.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		t.Log.Infow("no daily record to track")
		return &Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest record: %w", err)
	}

	summary := &Summary{Date: rec.Date, Candidates: rec.Options}
	log := t.Log.With("date", rec.Date)
	start := t.Now()

	for {
		if elapsed := t.Now().Sub(start); elapsed > t.Budget {
			log.Infow("polling budget exhausted", "elapsed", elapsed, "passes", summary.Passes)
			return summary, nil
		}
		if len(summary.Candidates) == 0 {
			log.Infow("no candidates to track")
			return summary, nil
		}

		dirty, results := t.Poll(ctx, summary.Candidates)
		summary.Passes++
		log.Debugw("pass complete", "pass", summary.Passes, "candidates", len(results), "improved", len(dirty))

		if len(dirty) > 0 {
			if _, err := store.Upsert(ctx, t.Store, rec.Date, dirty); err != nil {
				// the in-memory percentages are kept; the next improvement rewrites them
				log.Warnw("write-back failed", "error", err, "count", len(dirty))
			} else {
				log.Infow("updated candidates", "count", len(dirty))
			}
		}

		if err := t.Sleep(ctx, t.Interval); err != nil {
			return summary, err
		}
	}
}

// Poll runs one pass over candidates, updating improved entries in place,
// and returns the improved candidates together with a result per entry.
func (t *Tracker) Poll(ctx context.Context, candidates []model.OptionCandidate) ([]model.OptionCandidate, []PollResult) {
	var dirty []model.OptionCandidate
	results := make([]PollResult, 0, len(candidates))

	for i := range candidates {
		c := &candidates[i]
		res := t.pollOne(ctx, c)
		results = append(results, res)
		if res.Status == StatusImproved {
			dirty = append(dirty, *c)
		}
	}
	return dirty, results
}

func (t *Tracker) pollOne(ctx context.Context, c *model.OptionCandidate) PollResult {
	res := PollResult{ID: c.ID}
	key, ok := c.Key()
	if !ok {
		t.Log.Debugw("skipping malformed option id", "id", c.ID)
		res.Status = StatusMalformed
		return res
	}

	open, err := t.Market.OptionOpenPrice(ctx, key)
	if err != nil {
		t.Log.Debugw("no open price", "id", c.ID, "error", err)
		res.Status, res.Err = StatusNoOpen, err
		return res
	}
	high, err := t.Market.OptionHighPrice(ctx, key)
	if err != nil {
		t.Log.Debugw("no high price", "id", c.ID, "error", err)
		res.Status, res.Err = StatusNoHigh, err
		return res
	}

	res.Status = StatusUnchanged
	if high <= open {
		return res
	}
	if p := Percentage(open, high); p > c.Percentage {
		t.Log.Infow("new high-water mark", "id", c.ID, "open", open, "high", high, "percentage", p, "previous", c.Percentage)
		c.Percentage, c.OpenPrice, c.HighPrice = p, open, high
		res.Status = StatusImproved
	}
	return res
}

// Percentage returns the gain from open to high in percent, rounded to two
// decimals.
func Percentage(open, high float64) float64 {
	if open <= 0 {
		return 0
	}
	d := decimal.NewFromFloat(high).Sub(decimal.NewFromFloat(open)).
		Div(decimal.NewFromFloat(open)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return d.InexactFloat64()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
