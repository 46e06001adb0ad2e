package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used for record keys and expirations.
const DateLayout = "2006-01-02"

// ContractType is the option right as written in candidate ids.
type ContractType string

const (
	Call ContractType = "Call"
	Put  ContractType = "Put"
)

// Lower returns the lowercase form expected by broker query parameters.
func (c ContractType) Lower() string { return strings.ToLower(string(c)) }

// OptionKey identifies a single listed option contract.
type OptionKey struct {
	Symbol     string
	Strike     float64
	Type       ContractType
	Expiration time.Time
}

// optionIDPattern matches ids such as "SMCI $1040.0 Call 2024-03-08".
var optionIDPattern = regexp.MustCompile(`^(\w+)\s+\$([\d,]+\.\d+)\s+(\w+)\s+(\d{4}-\d{2}-\d{2})`)

// String renders the key as the id stored with each candidate.
func (k OptionKey) String() string {
	return fmt.Sprintf("%s $%s %s %s", k.Symbol, FormatStrike(k.Strike), k.Type, k.ExpirationDate())
}

// ExpirationDate returns the expiration as YYYY-MM-DD.
func (k OptionKey) ExpirationDate() string {
	return k.Expiration.Format(DateLayout)
}

// ParseOptionKey is the inverse of OptionKey.String. ok is false when id does
// not follow the "SYMBOL $STRIKE Type YYYY-MM-DD" form.
func ParseOptionKey(id string) (OptionKey, bool) {
	m := optionIDPattern.FindStringSubmatch(id)
	if m == nil {
		return OptionKey{}, false
	}
	strike, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return OptionKey{}, false
	}
	exp, err := time.Parse(DateLayout, m[4])
	if err != nil {
		return OptionKey{}, false
	}
	return OptionKey{
		Symbol:     m[1],
		Strike:     strike,
		Type:       ContractType(m[3]),
		Expiration: exp,
	}, true
}

// FormatStrike renders a strike with at least one fractional digit, so 102
// becomes "102.0" and 102.5 stays "102.5".
func FormatStrike(strike float64) string {
	s := decimal.NewFromFloat(strike).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
