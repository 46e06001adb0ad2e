package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"OptionsSentinel/internal/model"
)

const testMFASecret = "JBSWY3DPEHPK3PXP"

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["username"] != "trader" || body["password"] != "secret" || len(body["mfa_code"]) != 6 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"bad credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":86400}`))
	})
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newLoggedInClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSecond: 1000}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, c.Login(context.Background(), "trader", "secret", testMFASecret))
	return c
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewClient(Options{BaseURL: srv.URL}, zaptest.NewLogger(t).Sugar())

	err := c.Login(context.Background(), "trader", "wrong", testMFASecret)
	assert.Error(t, err)

	require.NoError(t, c.Login(context.Background(), "trader", "secret", testMFASecret))
	assert.Equal(t, "tok-123", c.token)
}

func TestLogin_InvalidSecret(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewClient(Options{BaseURL: srv.URL}, zaptest.NewLogger(t).Sugar())

	err := c.Login(context.Background(), "trader", "secret", "not base32!")
	assert.Error(t, err)
}

func TestDataCallsRequireLogin(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewClient(Options{BaseURL: srv.URL}, zaptest.NewLogger(t).Sugar())

	_, err := c.StockQuote(context.Background(), "AMD")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFindOptions_FollowsPages(t *testing.T) {
	var srv *httptest.Server
	srv = newTestServer(t, map[string]http.HandlerFunc{
		"/options/instruments/": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cursor") == "" {
				assert.Equal(t, "AMD", r.URL.Query().Get("chain_symbol"))
				assert.Equal(t, "2024-03-08", r.URL.Query().Get("expiration_dates"))
				assert.Equal(t, "180.0000", r.URL.Query().Get("strike_price"))
				assert.Equal(t, "call", r.URL.Query().Get("type"))
				w.Write([]byte(`{"next":"` + srv.URL + `/options/instruments/?cursor=2","results":[{"id":"inst-1","type":"call"}]}`))
				return
			}
			w.Write([]byte(`{"next":null,"results":[{"id":"inst-2","type":"call"}]}`))
		},
	})
	c := newLoggedInClient(t, srv)

	key := model.OptionKey{Symbol: "AMD", Strike: 180, Type: model.Call, Expiration: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)}
	got, err := c.FindOptions(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "inst-1", got[0].ID)
	assert.True(t, got[1].IsCall())
}

func TestOptionMarketData(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/marketdata/options/": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[{"instrument_id":"inst-1","high_price":"1,250.50","previous_close_price":"3.10"}]}`))
		},
	})
	c := newLoggedInClient(t, srv)

	md, err := c.OptionMarketData(context.Background(), "inst-1")
	require.NoError(t, err)
	require.NotNil(t, md)

	high, ok, err := md.HighPriceValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1250.5, high)

	prev, ok, err := md.PreviousCloseValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.1, prev)
}

func TestOptionMarketData_NoTrades(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/marketdata/options/": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[{"instrument_id":"inst-1","high_price":null}]}`))
		},
	})
	c := newLoggedInClient(t, srv)

	md, err := c.OptionMarketData(context.Background(), "inst-1")
	require.NoError(t, err)
	_, ok, err := md.HighPriceValue()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOptionHistoricals(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/marketdata/options/historicals/inst-1/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5minute", r.URL.Query().Get("interval"))
			assert.Equal(t, "day", r.URL.Query().Get("span"))
			w.Write([]byte(`{"data_points":[
				{"begins_at":"2024-03-04T14:30:00Z","open_price":"2.50","close_price":"2.60","high_price":"2.70","low_price":"2.40","volume":12},
				{"begins_at":"2024-03-04T14:35:00Z","open_price":"","close_price":"2.60","high_price":"2.70","low_price":"2.40","volume":0},
				{"begins_at":"2024-03-04T14:40:00Z","open_price":"2.60","close_price":"2.90","high_price":"3.00","low_price":"2.55","volume":30}
			]}`))
		},
	})
	c := newLoggedInClient(t, srv)

	bars, err := c.OptionHistoricals(context.Background(), "inst-1", "5minute", "day")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.5, bars[0].Open)
	assert.Equal(t, 3.0, bars[1].High)
}

func TestLatestPriceAndPreviousClose(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/quotes/": func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("symbols") {
			case "AMD":
				w.Write([]byte(`{"results":[{"symbol":"AMD","last_trade_price":"180.00","last_extended_hours_trade_price":"183.25","previous_close":"179.10"}]}`))
			case "NVDA":
				w.Write([]byte(`{"results":[{"symbol":"NVDA","last_trade_price":"880.00","last_extended_hours_trade_price":null,"previous_close":"1,870.00"}]}`))
			default:
				w.Write([]byte(`{"results":[null]}`))
			}
		},
	})
	c := newLoggedInClient(t, srv)
	ctx := context.Background()

	p, err := c.LatestPrice(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, 183.25, p)

	p, err = c.LatestPrice(ctx, "nvda")
	require.NoError(t, err)
	assert.Equal(t, 880.0, p)

	prev, err := c.PreviousClose(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 1870.0, prev)

	_, err = c.PreviousClose(ctx, "ZZZZ")
	assert.Error(t, err)
}
