package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OptionsSentinel/internal/broker"
	"OptionsSentinel/internal/model"
)

// ErrNoData marks a lookup that succeeded but returned nothing usable:
// no listed contract, no bars yet, or no trades today.
var ErrNoData = errors.New("no market data")

// Broker is the brokerage surface used by the gateway. *broker.Client
// satisfies it.
type Broker interface {
	FindOptions(ctx context.Context, key model.OptionKey) ([]broker.OptionInstrument, error)
	OptionMarketData(ctx context.Context, instrumentID string) (*broker.OptionMarketData, error)
	OptionHistoricals(ctx context.Context, instrumentID, interval, span string) ([]model.OHLCV, error)
	PreviousClose(ctx context.Context, symbol string) (float64, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// Gateway combines an option-chain provider with the brokerage into the
// lookups the selector and tracker need.
type Gateway struct {
	Chains ChainFetcher
	Broker Broker
}

// NewGateway creates a new Gateway.
func NewGateway(chains ChainFetcher, b Broker) *Gateway {
	return &Gateway{Chains: chains, Broker: b}
}

// NearestExpiration returns the earliest listed expiration of symbol, or
// ErrNoData when none is listed.
func (g *Gateway) NearestExpiration(ctx context.Context, symbol string) (time.Time, error) {
	dates, err := g.Chains.Expirations(ctx, symbol)
	if err != nil {
		return time.Time{}, fmt.Errorf("expirations %s: %w", symbol, err)
	}
	if len(dates) == 0 {
		return time.Time{}, fmt.Errorf("expirations %s: %w", symbol, ErrNoData)
	}
	return dates[0], nil
}

// CallStrikes returns the call strikes listed for expiration.
func (g *Gateway) CallStrikes(ctx context.Context, symbol string, expiration time.Time) ([]float64, error) {
	strikes, err := g.Chains.CallStrikes(ctx, symbol, expiration)
	if err != nil {
		return nil, fmt.Errorf("strikes %s: %w", symbol, err)
	}
	if len(strikes) == 0 {
		return nil, fmt.Errorf("strikes %s: %w", symbol, ErrNoData)
	}
	return strikes, nil
}

func (g *Gateway) PreviousClose(ctx context.Context, symbol string) (float64, error) {
	return g.Broker.PreviousClose(ctx, symbol)
}

func (g *Gateway) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return g.Broker.LatestPrice(ctx, symbol)
}

func (g *Gateway) instrument(ctx context.Context, key model.OptionKey) (string, error) {
	instruments, err := g.Broker.FindOptions(ctx, key)
	if err != nil {
		return "", err
	}
	for _, inst := range instruments {
		if inst.IsCall() == (key.Type == model.Call) {
			return inst.ID, nil
		}
	}
	return "", fmt.Errorf("instrument %s: %w", key, ErrNoData)
}

func (g *Gateway) marketData(ctx context.Context, key model.OptionKey) (*broker.OptionMarketData, error) {
	id, err := g.instrument(ctx, key)
	if err != nil {
		return nil, err
	}
	md, err := g.Broker.OptionMarketData(ctx, id)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, fmt.Errorf("market data %s: %w", key, ErrNoData)
	}
	return md, nil
}

// OptionPreviousClose returns the contract's previous session close.
func (g *Gateway) OptionPreviousClose(ctx context.Context, key model.OptionKey) (float64, error) {
	md, err := g.marketData(ctx, key)
	if err != nil {
		return 0, err
	}
	v, ok, err := md.PreviousCloseValue()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("previous close %s: %w", key, ErrNoData)
	}
	return v, nil
}

// OptionOpenPrice returns the open of the first 5-minute bar of the day.
func (g *Gateway) OptionOpenPrice(ctx context.Context, key model.OptionKey) (float64, error) {
	id, err := g.instrument(ctx, key)
	if err != nil {
		return 0, err
	}
	bars, err := g.Broker.OptionHistoricals(ctx, id, "5minute", "day")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("historicals %s: %w", key, ErrNoData)
	}
	return bars[0].Open, nil
}

// OptionHighPrice returns the contract's session high, ErrNoData when it has
// not traded.
func (g *Gateway) OptionHighPrice(ctx context.Context, key model.OptionKey) (float64, error) {
	md, err := g.marketData(ctx, key)
	if err != nil {
		return 0, err
	}
	v, ok, err := md.HighPriceValue()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("high price %s: %w", key, ErrNoData)
	}
	return v, nil
}
