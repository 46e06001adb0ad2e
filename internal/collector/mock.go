package collector

import (
	"context"
	"sort"
	"time"
)

// MockFetcher returns controllable fixed chains for development and testing.
type MockFetcher struct {
	// Chains maps symbol -> expiration (YYYY-MM-DD) -> call strikes.
	Chains map[string]map[string][]float64
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Expirations(_ context.Context, symbol string) ([]time.Time, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var dates []time.Time
	for exp := range m.Chains[symbol] {
		d, err := time.Parse("2006-01-02", exp)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (m *MockFetcher) CallStrikes(_ context.Context, symbol string, expiration time.Time) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Chains[symbol][expiration.Format("2006-01-02")], nil
}
