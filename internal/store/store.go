package store

import (
	"context"
	"errors"
	"fmt"

	"OptionsSentinel/internal/model"
)

// ErrNotFound is returned when no DailyRecord matches the lookup.
var ErrNotFound = errors.New("daily record not found")

// Collection is the name of the document collection holding daily records.
const Collection = "options_data"

// Store persists DailyRecords keyed by date.
type Store interface {
	// Get returns the record for date or ErrNotFound.
	Get(ctx context.Context, date string) (*model.DailyRecord, error)
	// Latest returns the record with the greatest date or ErrNotFound.
	Latest(ctx context.Context) (*model.DailyRecord, error)
	// Set replaces the whole document for rec.Date.
	Set(ctx context.Context, rec *model.DailyRecord) error
	Close() error
}

// Merge folds updates into existing by id. A matching entry gets its
// percentage, high and open prices overwritten; every other field (time,
// position) is preserved. Unknown ids are appended in update order.
func Merge(existing, updates []model.OptionCandidate) []model.OptionCandidate {
	merged := make([]model.OptionCandidate, len(existing), len(existing)+len(updates))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, opt := range merged {
		if _, seen := index[opt.ID]; !seen {
			index[opt.ID] = i
		}
	}
	for _, upd := range updates {
		if i, ok := index[upd.ID]; ok {
			merged[i].Percentage = upd.Percentage
			merged[i].HighPrice = upd.HighPrice
			merged[i].OpenPrice = upd.OpenPrice
			continue
		}
		index[upd.ID] = len(merged)
		merged = append(merged, upd)
	}
	return merged
}

// Append returns existing followed by the candidates whose ids it does not
// already contain. Known entries are left untouched.
func Append(existing, candidates []model.OptionCandidate) []model.OptionCandidate {
	out := make([]model.OptionCandidate, len(existing), len(existing)+len(candidates))
	copy(out, existing)

	known := make(map[string]struct{}, len(out))
	for _, opt := range out {
		known[opt.ID] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := known[c.ID]; ok {
			continue
		}
		known[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Upsert reads the record for date, merges updates into it and writes the
// full document back. A missing record is created.
func Upsert(ctx context.Context, st Store, date string, updates []model.OptionCandidate) (*model.DailyRecord, error) {
	return modify(ctx, st, date, updates, Merge)
}

// Insert reads the record for date, appends the candidates it does not
// already hold and writes the full document back. A missing record is
// created.
func Insert(ctx context.Context, st Store, date string, candidates []model.OptionCandidate) (*model.DailyRecord, error) {
	return modify(ctx, st, date, candidates, Append)
}

func modify(ctx context.Context, st Store, date string, updates []model.OptionCandidate,
	combine func(existing, updates []model.OptionCandidate) []model.OptionCandidate,
) (*model.DailyRecord, error) {
	var existing []model.OptionCandidate
	rec, err := st.Get(ctx, date)
	switch {
	case err == nil:
		existing = rec.Options
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("get %s: %w", date, err)
	}

	out := &model.DailyRecord{Date: date, Options: combine(existing, updates)}
	if err := st.Set(ctx, out); err != nil {
		return nil, fmt.Errorf("set %s: %w", date, err)
	}
	return out, nil
}
