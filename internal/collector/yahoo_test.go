package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooFetcher_ExpirationsAndStrikes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AMD", r.URL.Path)
		if r.URL.Query().Get("date") == "" {
			w.Write([]byte(`{"optionChain":{"result":[{"underlyingSymbol":"AMD","expirationDates":[1710460800,1709856000],"options":[]}],"error":null}}`))
			return
		}
		assert.Equal(t, "1709856000", r.URL.Query().Get("date"))
		w.Write([]byte(`{"optionChain":{"result":[{"underlyingSymbol":"AMD","expirationDates":[1709856000],"options":[{"expirationDate":1709856000,"calls":[{"contractSymbol":"AMD240308C00175000","strike":175},{"contractSymbol":"AMD240308C00180000","strike":180}]}]}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	ctx := context.Background()

	dates, err := f.Expirations(ctx, "AMD")
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-03-08", dates[0].Format("2006-01-02"))
	assert.Equal(t, "2024-03-15", dates[1].Format("2006-01-02"))

	strikes, err := f.CallStrikes(ctx, "AMD", dates[0])
	require.NoError(t, err)
	assert.Equal(t, []float64{175, 180}, strikes)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"optionChain":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	_, err := f.Expirations(context.Background(), "ZZZZ")
	assert.ErrorContains(t, err, "No data found")
}

func TestYahooFetcher_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"optionChain":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	dates, err := f.Expirations(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, dates)

	strikes, err := f.CallStrikes(context.Background(), "ZZZZ", time.Now())
	require.NoError(t, err)
	assert.Empty(t, strikes)
}
