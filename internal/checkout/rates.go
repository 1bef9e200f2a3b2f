package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateProvider supplies the multiplier applied to USD minor units when a
// session is priced in another currency. Feeding it from a live FX source is
// a configuration change, not a code change.
type RateProvider interface {
	Rate(from, to string) (decimal.Decimal, error)
}

type FixedRateProvider struct {
	rates map[string]decimal.Decimal
}

// NewFixedRateProvider carries the placeholder rates the storefront launched
// with. TODO: replace the USD/BRL constant with a daily-updated rate once the
// pricing service exposes one.
func NewFixedRateProvider() *FixedRateProvider {
	return &FixedRateProvider{
		rates: map[string]decimal.Decimal{
			"USD/BRL": decimal.NewFromInt(5),
		},
	}
}

func (p *FixedRateProvider) Rate(from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := p.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s/%s", from, to)
	}
	return rate, nil
}
