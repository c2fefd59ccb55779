package projection

import (
	"fmt"
	"math"
)

// PricingOptions tune reverse pricing. Capex is spread evenly over AmortizeYears
// starting in year 1; Margin is a markup fraction (0.1 for 10%).
type PricingOptions struct {
	IncludeCapex  bool    `json:"include_capex"`
	AmortizeYears int     `json:"amortize_years"`
	Margin        float64 `json:"margin"`
}

// MinFeePerUser returns the fee each subscriber must pay per year to cover opex
// plus amortized capex, marked up by margin. Zero subscribers are floored to one.
// The result has one entry per year present in both series.
func MinFeePerUser(subscribers []int, opex []float64, capex float64, amortizeYears int, margin float64) ([]float64, error) {
	if amortizeYears <= 0 {
		return nil, fmt.Errorf("%w: amortization window must be at least 1 year, got %d", ErrInvalidInput, amortizeYears)
	}

	n := min(len(subscribers), len(opex))
	fees := make([]float64, n)
	for i := 0; i < n; i++ {
		cost := opex[i]
		if i < amortizeYears {
			cost += capex / float64(amortizeYears)
		}
		fees[i] = cost / float64(max(subscribers[i], 1)) * (1 + margin)
		if math.IsNaN(fees[i]) || math.IsInf(fees[i], 0) {
			return nil, fmt.Errorf("%w: fee overflows in year %d", ErrInvalidInput, i+1)
		}
	}
	return fees, nil
}

// MinFeePerUser runs reverse pricing on this scenario's own projections
func (c *Calculator) MinFeePerUser(opts PricingOptions) ([]float64, error) {
	capex := 0.0
	if opts.IncludeCapex {
		capex = c.inputs.Capex
	}
	amortize := opts.AmortizeYears
	if amortize == 0 {
		amortize = 1
	}
	return MinFeePerUser(c.ProjectSubscribers(), c.ProjectOpex(), capex, amortize, opts.Margin)
}

// PricedReport pairs the reverse-priced fees with the inputs that produced them
type PricedReport struct {
	Scenario    string         `json:"scenario"`
	Years       []string       `json:"years"`
	Subscribers []int          `json:"subscribers"`
	Opex        []float64      `json:"opex"`
	Fees        []float64      `json:"fees"`
	Options     PricingOptions `json:"options"`
}

// ReversePricing builds a PricedReport for the scenario
func (c *Calculator) ReversePricing(opts PricingOptions) (*PricedReport, error) {
	fees, err := c.MinFeePerUser(opts)
	if err != nil {
		return nil, err
	}
	return &PricedReport{
		Scenario:    c.scenario.Name,
		Years:       YearLabels(c.inputs.Years),
		Subscribers: c.ProjectSubscribers(),
		Opex:        c.ProjectOpex(),
		Fees:        fees,
		Options:     opts,
	}, nil
}
