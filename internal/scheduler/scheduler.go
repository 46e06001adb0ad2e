package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"OptionsSentinel/internal/model"
	"OptionsSentinel/internal/notifier"
	"OptionsSentinel/internal/selector"
	"OptionsSentinel/internal/tracker"
)

// WaitFor blocks until the next firing of the six-field cron spec (seconds
// first) in loc, or until ctx is cancelled. A nil loc means time.Local.
func WaitFor(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	fired := make(chan struct{})
	var once sync.Once
	if _, err := c.AddFunc(spec, func() { once.Do(func() { close(fired) }) }); err != nil {
		return fmt.Errorf("register wait %q: %w", spec, err)
	}
	c.Start()
	defer c.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}

// Next reports when spec fires next after now.
func Next(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", spec, err)
	}
	return sched.Next(now), nil
}

// FiredToday reports whether spec already fired today at or before now, in
// now's location.
func FiredToday(spec string, now time.Time) (bool, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first, err := Next(spec, midnight.Add(-time.Second))
	if err != nil {
		return false, err
	}
	return !first.After(now), nil
}

// Scraper produces the screener rows for one session.
type Scraper interface {
	Scrape(ctx context.Context) ([]model.ScreenerRow, error)
}

// Selector turns screener rows into stored candidates.
type Selector interface {
	Select(ctx context.Context, rows []model.ScreenerRow) (*selector.Report, error)
}

// Tracker polls the stored candidates.
type Tracker interface {
	Run(ctx context.Context) (*tracker.Summary, error)
}

// Session runs one pre-market session: scrape, select, report, wait for the
// open slot, track, report.
type Session struct {
	Scraper  Scraper
	Selector Selector
	Tracker  Tracker
	Notifier notifier.Notifier
	Log      *zap.SugaredLogger
	// OpenCron, when set, delays tracking until its next firing unless it
	// already fired today.
	OpenCron string
	Location *time.Location
	Retries  int
	Now      func() time.Time
}

// Run executes the session once. A scrape or store failure ends the session;
// notification failures are only logged.
func (s *Session) Run(ctx context.Context) error {
	log := s.Log.With("run_id", uuid.NewString())
	log.Infow("session started")

	rows, err := s.Scraper.Scrape(ctx)
	if err != nil {
		return fmt.Errorf("scrape screener: %w", err)
	}

	report, err := s.Selector.Select(ctx, rows)
	if err != nil {
		return fmt.Errorf("select candidates: %w", err)
	}
	s.trySend(ctx, log, notifier.FormatSelection(report))

	if err := s.waitForOpen(ctx, log); err != nil {
		return err
	}

	summary, err := s.Tracker.Run(ctx)
	if summary != nil {
		s.trySend(context.WithoutCancel(ctx), log, notifier.FormatTracking(summary))
	}
	if err != nil {
		return fmt.Errorf("track candidates: %w", err)
	}
	log.Infow("session finished", "date", summary.Date, "passes", summary.Passes)
	return nil
}

func (s *Session) waitForOpen(ctx context.Context, log *zap.SugaredLogger) error {
	if s.OpenCron == "" {
		return nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	current := now().In(s.location())

	fired, err := FiredToday(s.OpenCron, current)
	if err != nil {
		return fmt.Errorf("open schedule: %w", err)
	}
	if fired {
		log.Infow("market already open, tracking now", "now", current)
		return nil
	}
	if next, err := Next(s.OpenCron, current); err == nil {
		log.Infow("waiting for market open", "at", next)
	}
	if err := WaitFor(ctx, s.OpenCron, s.location()); err != nil {
		return fmt.Errorf("wait for open: %w", err)
	}
	return nil
}

func (s *Session) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *Session) trySend(ctx context.Context, log *zap.SugaredLogger, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, s.Retries); err != nil {
		log.Errorw("send notification", "error", err)
	}
}
