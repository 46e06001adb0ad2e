package selector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"OptionsSentinel/internal/collector"
	"OptionsSentinel/internal/model"
	"OptionsSentinel/internal/store"
)

// MarketData is the gateway surface the selector needs. *collector.Gateway
// satisfies it.
type MarketData interface {
	NearestExpiration(ctx context.Context, symbol string) (time.Time, error)
	CallStrikes(ctx context.Context, symbol string, expiration time.Time) ([]float64, error)
	PreviousClose(ctx context.Context, symbol string) (float64, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	OptionPreviousClose(ctx context.Context, key model.OptionKey) (float64, error)
}

// Status is the per-symbol result of a selection pass.
type Status string

const (
	StatusSelected      Status = "selected"
	StatusSentinel      Status = "sentinel"
	StatusBadPrice      Status = "bad_price"
	StatusNoExpirations Status = "no_expirations"
	StatusNoStrikes     Status = "no_strikes"
	StatusTooFar        Status = "too_far"
	StatusFetchFailed   Status = "fetch_failed"
)

// Outcome records what happened to one screener row.
type Outcome struct {
	Symbol    string
	Status    Status
	Candidate *model.OptionCandidate
	// Quotes gathered for a selected symbol, kept for reporting.
	StockClose, StockLatest, OptionClose float64
	Err                                  error
}

// Report is the result of one Select call.
type Report struct {
	Date       string
	Candidates []model.OptionCandidate
	Outcomes   []Outcome
}

// Config holds the selection rules.
type Config struct {
	SkipSymbols     []string
	MaxDaysToExpiry int
	// CreatedAtOffset shifts the candidate creation timestamp.
	CreatedAtOffset time.Duration
}

// Selector picks the nearest-the-money near-term call for each screener row.
type Selector struct {
	Market MarketData
	Store  store.Store
	Config Config
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

// New creates a Selector using the wall clock.
func New(market MarketData, st store.Store, cfg Config, log *zap.SugaredLogger) *Selector {
	return &Selector{Market: market, Store: st, Config: cfg, Log: log, Now: time.Now}
}

// Select evaluates every row and adds the resulting candidates to today's
// record in one write. Candidates already in the record keep their tracked
// values. Per-symbol failures are reported in the
// outcomes; only a store failure is returned as an error.
func (s *Selector) Select(ctx context.Context, rows []model.ScreenerRow) (*Report, error) {
	now := s.Now()
	report := &Report{Date: now.Format(model.DateLayout)}

	for _, row := range rows {
		out := s.evaluate(ctx, row, now)
		report.Outcomes = append(report.Outcomes, out)
		if out.Candidate != nil {
			report.Candidates = append(report.Candidates, *out.Candidate)
		}
	}

	if _, err := store.Insert(ctx, s.Store, report.Date, report.Candidates); err != nil {
		return report, fmt.Errorf("write candidates: %w", err)
	}
	s.Log.Infow("candidates written", "date", report.Date, "count", len(report.Candidates), "rows", len(rows))
	return report, nil
}

func (s *Selector) evaluate(ctx context.Context, row model.ScreenerRow, now time.Time) Outcome {
	out := Outcome{Symbol: row.Symbol}
	log := s.Log.With("symbol", row.Symbol)

	if s.isSentinel(row.Symbol) {
		out.Status = StatusSentinel
		return out
	}

	price, err := row.PremarketPriceValue()
	if err != nil {
		log.Warnw("unparsable pre-market price", "raw", row.PremarketPrice)
		out.Status, out.Err = StatusBadPrice, err
		return out
	}

	expiration, err := s.Market.NearestExpiration(ctx, row.Symbol)
	if err != nil {
		log.Debugw("no expirations", "error", err)
		out.Status, out.Err = noDataOr(err, StatusNoExpirations), err
		return out
	}
	strikes, err := s.Market.CallStrikes(ctx, row.Symbol, expiration)
	if err != nil {
		log.Debugw("no call strikes", "error", err)
		out.Status, out.Err = noDataOr(err, StatusNoStrikes), err
		return out
	}
	strike, _ := NearestStrike(strikes, price)

	if days := DaysUntil(now, expiration); days > s.Config.MaxDaysToExpiry {
		log.Debugw("expiration too far", "expiration", expiration.Format(model.DateLayout), "days", days)
		out.Status = StatusTooFar
		return out
	}

	key := model.OptionKey{Symbol: row.Symbol, Strike: strike, Type: model.Call, Expiration: expiration}

	if out.StockClose, err = s.Market.PreviousClose(ctx, row.Symbol); err == nil {
		if out.StockLatest, err = s.Market.LatestPrice(ctx, row.Symbol); err == nil {
			out.OptionClose, err = s.Market.OptionPreviousClose(ctx, key)
		}
	}
	if err != nil {
		log.Warnw("error fetching data", "option", key.String(), "error", err)
		out.Status, out.Err = StatusFetchFailed, err
		return out
	}

	log.Infow("candidate selected",
		"option", key.String(),
		"stock_close", out.StockClose,
		"stock_premarket", out.StockLatest,
		"option_close", out.OptionClose,
	)
	c := model.NewCandidate(key, now.Add(s.Config.CreatedAtOffset))
	out.Status, out.Candidate = StatusSelected, &c
	return out
}

// noDataOr maps an empty-result error to status and anything else to
// StatusFetchFailed.
func noDataOr(err error, status Status) Status {
	if errors.Is(err, collector.ErrNoData) {
		return status
	}
	return StatusFetchFailed
}

func (s *Selector) isSentinel(symbol string) bool {
	for _, skip := range s.Config.SkipSymbols {
		if symbol == skip {
			return true
		}
	}
	return false
}

// NearestStrike returns the strike with the smallest absolute distance to
// price. The first of several equally near strikes wins. ok is false for an
// empty chain.
func NearestStrike(strikes []float64, price float64) (float64, bool) {
	if len(strikes) == 0 {
		return 0, false
	}
	best, bestDiff := strikes[0], math.Abs(strikes[0]-price)
	for _, s := range strikes[1:] {
		if d := math.Abs(s - price); d < bestDiff {
			best, bestDiff = s, d
		}
	}
	return best, true
}

// DaysUntil counts whole calendar days from now's date to expiration's date.
func DaysUntil(now, expiration time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exp := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24)
}
