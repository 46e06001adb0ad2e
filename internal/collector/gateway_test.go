package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OptionsSentinel/internal/broker"
	"OptionsSentinel/internal/model"
)

type fakeBroker struct {
	instruments map[string][]broker.OptionInstrument
	marketData  map[string]*broker.OptionMarketData
	bars        map[string][]model.OHLCV
	prevClose   map[string]float64
	latest      map[string]float64
}

func (f *fakeBroker) FindOptions(_ context.Context, key model.OptionKey) ([]broker.OptionInstrument, error) {
	return f.instruments[key.String()], nil
}

func (f *fakeBroker) OptionMarketData(_ context.Context, id string) (*broker.OptionMarketData, error) {
	return f.marketData[id], nil
}

func (f *fakeBroker) OptionHistoricals(_ context.Context, id, _, _ string) ([]model.OHLCV, error) {
	return f.bars[id], nil
}

func (f *fakeBroker) PreviousClose(_ context.Context, symbol string) (float64, error) {
	v, ok := f.prevClose[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return v, nil
}

func (f *fakeBroker) LatestPrice(_ context.Context, symbol string) (float64, error) {
	v, ok := f.latest[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return v, nil
}

var amdKey = model.OptionKey{Symbol: "AMD", Strike: 180, Type: model.Call, Expiration: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)}

func TestGateway_NearestExpiration(t *testing.T) {
	g := NewGateway(&MockFetcher{Chains: map[string]map[string][]float64{
		"AMD": {"2024-03-15": {180}, "2024-03-08": {175, 180}},
	}}, &fakeBroker{})
	ctx := context.Background()

	exp, err := g.NearestExpiration(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-08", exp.Format(model.DateLayout))

	_, err = g.NearestExpiration(ctx, "TSLA")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = g.CallStrikes(ctx, "AMD", time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGateway_OptionPrices(t *testing.T) {
	fb := &fakeBroker{
		instruments: map[string][]broker.OptionInstrument{amdKey.String(): {{ID: "inst-1", Type: "call"}}},
		marketData: map[string]*broker.OptionMarketData{
			"inst-1": {HighPrice: "3.40", PreviousClosePrice: "2.75"},
		},
		bars: map[string][]model.OHLCV{"inst-1": {{Open: 2.8}, {Open: 3.1}}},
	}
	g := NewGateway(&MockFetcher{}, fb)
	ctx := context.Background()

	open, err := g.OptionOpenPrice(ctx, amdKey)
	require.NoError(t, err)
	assert.Equal(t, 2.8, open)

	high, err := g.OptionHighPrice(ctx, amdKey)
	require.NoError(t, err)
	assert.Equal(t, 3.4, high)

	prev, err := g.OptionPreviousClose(ctx, amdKey)
	require.NoError(t, err)
	assert.Equal(t, 2.75, prev)
}

func TestGateway_MissingData(t *testing.T) {
	other := amdKey
	other.Strike = 185
	fb := &fakeBroker{
		instruments: map[string][]broker.OptionInstrument{amdKey.String(): {{ID: "inst-1", Type: "call"}}},
		marketData:  map[string]*broker.OptionMarketData{"inst-1": {HighPrice: ""}},
	}
	g := NewGateway(&MockFetcher{}, fb)
	ctx := context.Background()

	_, err := g.OptionHighPrice(ctx, amdKey)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = g.OptionOpenPrice(ctx, amdKey)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = g.OptionHighPrice(ctx, other)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGateway_SkipsPutInstruments(t *testing.T) {
	fb := &fakeBroker{
		instruments: map[string][]broker.OptionInstrument{amdKey.String(): {
			{ID: "put-1", Type: "put"},
			{ID: "call-1", Type: "call"},
		}},
		marketData: map[string]*broker.OptionMarketData{
			"put-1":  {HighPrice: "9.00"},
			"call-1": {HighPrice: "3.40"},
		},
	}
	g := NewGateway(&MockFetcher{}, fb)

	high, err := g.OptionHighPrice(context.Background(), amdKey)
	require.NoError(t, err)
	assert.Equal(t, 3.4, high)

	fb.instruments[amdKey.String()] = []broker.OptionInstrument{{ID: "put-1", Type: "put"}}
	_, err = g.OptionHighPrice(context.Background(), amdKey)
	assert.ErrorIs(t, err, ErrNoData)
}
