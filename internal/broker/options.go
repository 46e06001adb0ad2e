package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"OptionsSentinel/internal/model"
)

// FindOptions returns the active instruments matching symbol, expiration,
// strike and type. An empty slice means the contract is not listed.
func (c *Client) FindOptions(ctx context.Context, key model.OptionKey) ([]OptionInstrument, error) {
	q := url.Values{}
	q.Set("chain_symbol", key.Symbol)
	q.Set("expiration_dates", key.ExpirationDate())
	q.Set("strike_price", fmt.Sprintf("%.4f", key.Strike))
	q.Set("type", key.Type.Lower())
	q.Set("state", "active")

	var out []OptionInstrument
	path := "/options/instruments/"
	for path != "" {
		var page instrumentPage
		if err := c.get(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("find options %s: %w", key, err)
		}
		out = append(out, page.Results...)

		path, q = "", nil
		if page.Next != "" {
			next, err := url.Parse(page.Next)
			if err != nil {
				return nil, fmt.Errorf("parse next page: %w", err)
			}
			path, q = next.Path, next.Query()
		}
	}
	return out, nil
}

// OptionMarketData returns the market snapshot for an instrument id.
// The result is nil when the broker has no data for it.
func (c *Client) OptionMarketData(ctx context.Context, instrumentID string) (*OptionMarketData, error) {
	q := url.Values{}
	q.Set("instruments", c.baseURL+"/options/instruments/"+instrumentID+"/")

	var page marketDataPage
	if err := c.get(ctx, "/marketdata/options/", q, &page); err != nil {
		return nil, fmt.Errorf("option market data %s: %w", instrumentID, err)
	}
	for _, md := range page.Results {
		if md != nil {
			return md, nil
		}
	}
	return nil, nil
}

// OptionHistoricals returns the bars of an instrument for interval/span,
// e.g. "5minute" over "day", oldest first.
func (c *Client) OptionHistoricals(ctx context.Context, instrumentID, interval, span string) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("span", span)

	var resp historicalsResponse
	path := "/marketdata/options/historicals/" + instrumentID + "/"
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("option historicals %s: %w", instrumentID, err)
	}

	bars := make([]model.OHLCV, 0, len(resp.DataPoints))
	for _, dp := range resp.DataPoints {
		open, ok, err := parsePrice(dp.OpenPrice)
		if err != nil || !ok {
			continue
		}
		high, _, _ := parsePrice(dp.HighPrice)
		low, _, _ := parsePrice(dp.LowPrice)
		closing, _, _ := parsePrice(dp.ClosePrice)
		bars = append(bars, model.OHLCV{
			Time:   dp.BeginsAt,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closing,
			Volume: dp.Volume,
		})
	}
	return bars, nil
}

// HighPriceValue reports the session high of the snapshot. ok is false when the
// contract has not traded.
func (md *OptionMarketData) HighPriceValue() (float64, bool, error) {
	return parsePrice(md.HighPrice)
}

// PreviousCloseValue reports the previous session close of the snapshot.
func (md *OptionMarketData) PreviousCloseValue() (float64, bool, error) {
	return parsePrice(md.PreviousClosePrice)
}

// IsCall reports whether the instrument is a call.
func (i OptionInstrument) IsCall() bool {
	return strings.EqualFold(i.Type, "call")
}
