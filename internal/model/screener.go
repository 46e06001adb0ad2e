package model

import (
	"strconv"
	"strings"
)

// ScreenerRow is one row of the pre-market screener table, as scraped.
type ScreenerRow struct {
	Symbol          string `json:"Symbol"`
	CompanyName     string `json:"Company Name"`
	MarketCap       string `json:"Market Cap"`
	PremarketChange string `json:"Premkt. Chg."`
	PremarketPrice  string `json:"Premkt. Price"`
	Close           string `json:"Close"`
}

// PremarketPriceValue parses PremarketPrice, ignoring thousands separators.
func (r ScreenerRow) PremarketPriceValue() (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(r.PremarketPrice, ",", ""), 64)
}
