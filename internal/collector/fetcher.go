package collector

import (
	"context"
	"time"
)

// ChainFetcher lists option expirations and call strikes for an underlying.
type ChainFetcher interface {
	// Expirations returns listed expiration dates, earliest first.
	Expirations(ctx context.Context, symbol string) ([]time.Time, error)
	// CallStrikes returns the call strikes listed for expiration, in the
	// provider's order.
	CallStrikes(ctx context.Context, symbol string, expiration time.Time) ([]float64, error)
	Name() string
}
