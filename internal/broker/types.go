package broker

import "time"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// OptionInstrument is a listed option contract.
type OptionInstrument struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	ChainSymbol    string `json:"chain_symbol"`
	StrikePrice    string `json:"strike_price"`
	ExpirationDate string `json:"expiration_date"`
	Type           string `json:"type"`
	State          string `json:"state"`
	Tradability    string `json:"tradability"`
}

type instrumentPage struct {
	Next    string             `json:"next"`
	Results []OptionInstrument `json:"results"`
}

// OptionMarketData is the market snapshot of one option instrument. Prices
// are left as strings; empty means the field was absent or null.
type OptionMarketData struct {
	InstrumentID       string `json:"instrument_id"`
	AskPrice           string `json:"ask_price"`
	BidPrice           string `json:"bid_price"`
	MarkPrice          string `json:"mark_price"`
	LastTradePrice     string `json:"last_trade_price"`
	HighPrice          string `json:"high_price"`
	LowPrice           string `json:"low_price"`
	PreviousClosePrice string `json:"previous_close_price"`
	Volume             int64  `json:"volume"`
	OpenInterest       int64  `json:"open_interest"`
}

type marketDataPage struct {
	Results []*OptionMarketData `json:"results"`
}

type historicalsResponse struct {
	DataPoints []struct {
		BeginsAt   time.Time `json:"begins_at"`
		OpenPrice  string    `json:"open_price"`
		ClosePrice string    `json:"close_price"`
		HighPrice  string    `json:"high_price"`
		LowPrice   string    `json:"low_price"`
		Volume     float64   `json:"volume"`
	} `json:"data_points"`
}

// Quote is a stock quote.
type Quote struct {
	Symbol                      string `json:"symbol"`
	LastTradePrice              string `json:"last_trade_price"`
	LastExtendedHoursTradePrice string `json:"last_extended_hours_trade_price"`
	PreviousClose               string `json:"previous_close"`
	AdjustedPreviousClose       string `json:"adjusted_previous_close"`
	AskPrice                    string `json:"ask_price"`
	BidPrice                    string `json:"bid_price"`
}

type quotePage struct {
	Results []*Quote `json:"results"`
}
