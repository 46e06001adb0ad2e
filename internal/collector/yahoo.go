package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const yahooOptionsURL = "https://query2.finance.yahoo.com/v7/finance/options"

// YahooFetcher implements ChainFetcher using the Yahoo Finance options API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooOptionsURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooOptions is the response structure from the Yahoo options API.
type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Options          []struct {
				ExpirationDate int64 `json:"expirationDate"`
				Calls          []struct {
					ContractSymbol string  `json:"contractSymbol"`
					Strike         float64 `json:"strike"`
				} `json:"calls"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

func (f *YahooFetcher) fetch(ctx context.Context, symbol string, expiration *time.Time) (*yahooOptions, error) {
	u := fmt.Sprintf("%s/%s", f.BaseURL, url.PathEscape(symbol))
	if expiration != nil {
		u += fmt.Sprintf("?date=%d", expiration.Unix())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out yahooOptions
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if out.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", out.OptionChain.Error.Description)
	}
	return &out, nil
}

func (f *YahooFetcher) Expirations(ctx context.Context, symbol string) ([]time.Time, error) {
	out, err := f.fetch(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	if len(out.OptionChain.Result) == 0 {
		return nil, nil
	}
	stamps := out.OptionChain.Result[0].ExpirationDates
	dates := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		dates = append(dates, time.Unix(ts, 0).UTC())
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (f *YahooFetcher) CallStrikes(ctx context.Context, symbol string, expiration time.Time) ([]float64, error) {
	out, err := f.fetch(ctx, symbol, &expiration)
	if err != nil {
		return nil, err
	}
	if len(out.OptionChain.Result) == 0 || len(out.OptionChain.Result[0].Options) == 0 {
		return nil, nil
	}
	calls := out.OptionChain.Result[0].Options[0].Calls
	strikes := make([]float64, 0, len(calls))
	for _, c := range calls {
		strikes = append(strikes, c.Strike)
	}
	return strikes, nil
}
