package service

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// RateSource defines the interface for fetching asset exchange rates.
type RateSource interface {
	// GetRate returns the rate to convert from source to target asset
	// (rate = target per unit of source).
	GetRate(ctx context.Context, source, target string) (decimal.Decimal, error)
}

// StaticRateSource serves rates from a fixed table keyed against a USD base.
// It backs tests and local development; production swaps in a market feed.
type StaticRateSource struct {
	usdPer map[string]decimal.Decimal
}

func NewStaticRateSource() *StaticRateSource {
	return &StaticRateSource{
		usdPer: map[string]decimal.Decimal{
			"USD":  decimal.NewFromInt(1),
			"EUR":  decimal.RequireFromString("1.087"),
			"GBP":  decimal.RequireFromString("1.266"),
			"NGN":  decimal.RequireFromString("0.00065"),
			"KES":  decimal.RequireFromString("0.0077"),
			"BTC":  decimal.RequireFromString("64000"),
			"ETH":  decimal.RequireFromString("3100"),
			"USDT": decimal.NewFromInt(1),
		},
	}
}

// GetRate computes target/source from the USD table. Unknown assets fail
// with provider_unavailable so callers surface a retryable condition rather
// than quoting at zero.
func (s *StaticRateSource) GetRate(ctx context.Context, source, target string) (decimal.Decimal, error) {
	if source == target {
		return decimal.NewFromInt(1), nil
	}
	sourceUSD, ok := s.usdPer[source]
	if !ok {
		return decimal.Zero, domain.E(domain.KindProviderUnavailable, "no rate for asset %s", source)
	}
	targetUSD, ok := s.usdPer[target]
	if !ok {
		return decimal.Zero, domain.E(domain.KindProviderUnavailable, "no rate for asset %s", target)
	}
	return sourceUSD.Div(targetUSD), nil
}
