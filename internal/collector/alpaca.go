package collector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// occSymbol matches OCC contract symbols such as AMD240308C00180000.
var occSymbol = regexp.MustCompile(`^([A-Z][A-Z0-9.]*?)(\d{6})([CP])(\d{8})$`)

// chainGetter is the part of *marketdata.Client used here.
type chainGetter interface {
	GetOptionChain(underlyingSymbol string, req marketdata.GetOptionChainRequest) (map[string]marketdata.OptionSnapshot, error)
}

// AlpacaFetcher implements ChainFetcher using the Alpaca options snapshot
// chain. One chain request per symbol is cached for the fetcher's lifetime.
type AlpacaFetcher struct {
	client    chainGetter
	lookahead int
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]map[time.Time][]float64
}

// NewAlpacaFetcher creates a fetcher limited to expirations within
// lookaheadDays of today.
func NewAlpacaFetcher(apiKey, apiSecret string, lookaheadDays int) *AlpacaFetcher {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return newAlpacaFetcher(client, lookaheadDays, time.Now)
}

func newAlpacaFetcher(client chainGetter, lookaheadDays int, now func() time.Time) *AlpacaFetcher {
	if lookaheadDays <= 0 {
		lookaheadDays = 14
	}
	return &AlpacaFetcher{
		client:    client,
		lookahead: lookaheadDays,
		now:       now,
		cache:     make(map[string]map[time.Time][]float64),
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) chain(symbol string) (map[time.Time][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[symbol]; ok {
		return c, nil
	}

	today := f.now()
	snaps, err := f.client.GetOptionChain(symbol, marketdata.GetOptionChainRequest{
		Type:              marketdata.Call,
		ExpirationDateGte: civil.DateOf(today),
		ExpirationDateLte: civil.DateOf(today.AddDate(0, 0, f.lookahead)),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca option chain %s: %w", symbol, err)
	}

	byExp := make(map[time.Time][]float64)
	for contract := range snaps {
		exp, right, strike, ok := parseOCC(contract)
		if !ok || right != "C" {
			continue
		}
		byExp[exp] = append(byExp[exp], strike)
	}
	for exp := range byExp {
		sort.Float64s(byExp[exp])
	}
	f.cache[symbol] = byExp
	return byExp, nil
}

func (f *AlpacaFetcher) Expirations(_ context.Context, symbol string) ([]time.Time, error) {
	c, err := f.chain(symbol)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(c))
	for exp := range c {
		dates = append(dates, exp)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (f *AlpacaFetcher) CallStrikes(_ context.Context, symbol string, expiration time.Time) ([]float64, error) {
	c, err := f.chain(symbol)
	if err != nil {
		return nil, err
	}
	day := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	return c[day], nil
}

// parseOCC splits an OCC contract symbol into expiration (UTC midnight),
// right ("C" or "P") and strike.
func parseOCC(contract string) (time.Time, string, float64, bool) {
	m := occSymbol.FindStringSubmatch(contract)
	if m == nil {
		return time.Time{}, "", 0, false
	}
	exp, err := time.Parse("060102", m[2])
	if err != nil {
		return time.Time{}, "", 0, false
	}
	milli, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return time.Time{}, "", 0, false
	}
	return exp, m[3], float64(milli) / 1000, true
}
