package model

import "time"

// TimestampLayout is the layout of OptionCandidate.Time.
const TimestampLayout = "2006-01-02 15:04:05"

// OptionCandidate is one tracked contract inside a DailyRecord.
type OptionCandidate struct {
	ID         string  `json:"id" firestore:"id"`
	Percentage float64 `json:"percentage" firestore:"percentage"`
	OpenPrice  float64 `json:"open_price,omitempty" firestore:"open_price,omitempty"`
	HighPrice  float64 `json:"high_price,omitempty" firestore:"high_price,omitempty"`
	Time       string  `json:"time,omitempty" firestore:"time,omitempty"`
}

// NewCandidate builds an untracked candidate for key created at the given time.
func NewCandidate(key OptionKey, created time.Time) OptionCandidate {
	return OptionCandidate{
		ID:         key.String(),
		Percentage: 0,
		Time:       created.Format(TimestampLayout),
	}
}

// Key parses the candidate id.
func (c OptionCandidate) Key() (OptionKey, bool) {
	return ParseOptionKey(c.ID)
}

// DailyRecord is the per-day document holding every candidate of that day.
type DailyRecord struct {
	Date    string            `json:"date" firestore:"date"`
	Options []OptionCandidate `json:"options" firestore:"options"`
}
