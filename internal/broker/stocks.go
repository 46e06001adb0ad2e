package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// StockQuote returns the quote for symbol.
func (c *Client) StockQuote(ctx context.Context, symbol string) (*Quote, error) {
	q := url.Values{}
	q.Set("symbols", strings.ToUpper(symbol))

	var page quotePage
	if err := c.get(ctx, "/quotes/", q, &page); err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	for _, quote := range page.Results {
		if quote != nil {
			return quote, nil
		}
	}
	return nil, fmt.Errorf("quote %s: no result", symbol)
}

// PreviousClose returns the previous session close of symbol.
func (c *Client) PreviousClose(ctx context.Context, symbol string) (float64, error) {
	quote, err := c.StockQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	v, ok, err := parsePrice(quote.PreviousClose)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("quote %s: no previous close", symbol)
	}
	return v, nil
}

// LatestPrice returns the extended-hours trade price when present, otherwise
// the last regular trade price.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := c.StockQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	for _, raw := range []string{quote.LastExtendedHoursTradePrice, quote.LastTradePrice} {
		v, ok, err := parsePrice(raw)
		if err != nil {
			return 0, err
		}
		if ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("quote %s: no trade price", symbol)
}
