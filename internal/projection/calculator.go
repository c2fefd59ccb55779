// Package projection turns scenario assumptions and financial inputs into
// year-indexed series and summary metrics. Everything here is pure: a
// Calculator holds no mutable state and is safe to share between goroutines.
package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/Dan9191/tea-service/internal/models"
)

// ErrInvalidInput is returned for inputs the engine cannot project
var ErrInvalidInput = errors.New("invalid input")

// Calculator projects a single scenario
type Calculator struct {
	scenario models.ScenarioAssumptions
	inputs   models.FinancialInputs
}

// NewCalculator validates the horizon and clamps the subscription ratio
func NewCalculator(scenario models.ScenarioAssumptions, inputs models.FinancialInputs) (*Calculator, error) {
	if inputs.Years <= 0 {
		return nil, fmt.Errorf("%w: years must be at least 1, got %d", ErrInvalidInput, inputs.Years)
	}
	inputs.SubscriptionRatio = inputs.ClampedRatio()
	c := &Calculator{scenario: scenario, inputs: inputs}
	if err := c.checkFinite(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkFinite rejects inputs whose series or metrics overflow float64.
// An infinite ROI without capex is the documented sentinel and passes.
func (c *Calculator) checkFinite() error {
	running := float64(c.inputs.StartingSubscribers)
	for i := 1; i < c.inputs.Years; i++ {
		running *= 1 + c.scenario.SubscriberGrowthRate
		if !isFinite(running) || running >= math.MaxInt64 {
			return fmt.Errorf("%w: subscribers overflow in year %d", ErrInvalidInput, i+1)
		}
	}

	series := []struct {
		name   string
		values []float64
	}{
		{"opex", c.ProjectOpex()},
		{"revenue", c.ProjectRevenue()},
		{"profit", c.CalculateProfit()},
		{"cumulative cash flow", c.CalculateCumulativeCashFlow()},
	}
	for _, s := range series {
		for i, v := range s.values {
			if !isFinite(v) {
				return fmt.Errorf("%w: %s overflows in year %d", ErrInvalidInput, s.name, i+1)
			}
		}
	}
	if !isFinite(c.CalculateNPV()) {
		return fmt.Errorf("%w: npv is not finite", ErrInvalidInput)
	}
	if roi := c.CalculateROI(); math.IsNaN(roi) || (c.inputs.Capex > 0 && math.IsInf(roi, 0)) {
		return fmt.Errorf("%w: roi is not finite", ErrInvalidInput)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Inputs returns the inputs the calculator works with, ratio already clamped
func (c *Calculator) Inputs() models.FinancialInputs {
	return c.inputs
}

// ProjectSubscribers compounds the subscriber base on the unrounded running
// value and truncates each reported year toward zero.
func (c *Calculator) ProjectSubscribers() []int {
	subs := make([]int, c.inputs.Years)
	running := float64(c.inputs.StartingSubscribers)
	for i := range subs {
		if i > 0 {
			running *= 1 + c.scenario.SubscriberGrowthRate
		}
		subs[i] = int(running)
	}
	return subs
}

// ProjectOpex compounds base opex by the opex growth rate
func (c *Calculator) ProjectOpex() []float64 {
	opex := make([]float64, c.inputs.Years)
	opex[0] = c.inputs.BaseOpex
	for i := 1; i < len(opex); i++ {
		opex[i] = opex[i-1] * (1 + c.scenario.OpexGrowthRate)
	}
	return opex
}

// ProjectRevenue returns total revenue per year
func (c *Calculator) ProjectRevenue() []float64 {
	sub, ppu := c.ProjectRevenueBreakdown()
	revenue := make([]float64, len(sub))
	for i := range sub {
		revenue[i] = sub[i] + ppu[i]
	}
	return revenue
}

// ProjectRevenueBreakdown returns subscription and pay-per-use revenue per year.
// Users are split by fraction, without truncating head counts.
func (c *Calculator) ProjectRevenueBreakdown() (subscription, payPerUse []float64) {
	subscribers := c.ProjectSubscribers()
	ratio := c.inputs.SubscriptionRatio

	subscription = make([]float64, len(subscribers))
	payPerUse = make([]float64, len(subscribers))
	for i, s := range subscribers {
		subscription[i] = float64(s) * ratio * c.inputs.SubscriptionFee
		payPerUse[i] = float64(s) * (1 - ratio) * c.inputs.PayPerUseFee
	}
	return subscription, payPerUse
}

// CalculateProfit returns revenue minus opex per year
func (c *Calculator) CalculateProfit() []float64 {
	revenue := c.ProjectRevenue()
	opex := c.ProjectOpex()
	profit := make([]float64, len(revenue))
	for i := range revenue {
		profit[i] = revenue[i] - opex[i]
	}
	return profit
}

// CalculateCumulativeCashFlow is the running sum of profit starting from -capex
func (c *Calculator) CalculateCumulativeCashFlow() []float64 {
	profit := c.CalculateProfit()
	flow := make([]float64, len(profit))
	total := -c.inputs.Capex
	for i, p := range profit {
		total += p
		flow[i] = total
	}
	return flow
}

// CalculateNPV discounts each year's profit with 1-indexed exponents.
// Capex is not part of this sum.
func (c *Calculator) CalculateNPV() float64 {
	var npv float64
	for i, p := range c.CalculateProfit() {
		npv += p / math.Pow(1+c.scenario.DiscountRate, float64(i+1))
	}
	return npv
}

// CalculateROI returns (total profit - capex) / capex, or +Inf without capex
func (c *Calculator) CalculateROI() float64 {
	if c.inputs.Capex <= 0 {
		return math.Inf(1)
	}
	var total float64
	for _, p := range c.CalculateProfit() {
		total += p
	}
	return (total - c.inputs.Capex) / c.inputs.Capex
}

// CalculateBreakevenYear returns the first 1-indexed year whose cumulative cash
// flow is >= 0, or models.BreakevenNotReached.
func (c *Calculator) CalculateBreakevenYear() int {
	return BreakevenYear(c.CalculateCumulativeCashFlow())
}

// BreakevenYear finds the first non-negative entry of a cumulative cash flow
func BreakevenYear(cumulative []float64) int {
	for i, cf := range cumulative {
		if cf >= 0 {
			return i + 1
		}
	}
	return models.BreakevenNotReached
}

// Metrics bundles NPV, ROI and break-even year
func (c *Calculator) Metrics() models.Metrics {
	return models.Metrics{
		NPV:           c.CalculateNPV(),
		ROI:           c.CalculateROI(),
		BreakevenYear: c.CalculateBreakevenYear(),
	}
}

// Project computes every series and metric for the scenario
func (c *Calculator) Project() *models.Projection {
	subscribers := c.ProjectSubscribers()
	opex := c.ProjectOpex()
	sub, ppu := c.ProjectRevenueBreakdown()
	// reverse fee on the projection covers opex only; capex options live in MinFeePerUser
	reverse, _ := MinFeePerUser(subscribers, opex, 0, 1, 0)

	return &models.Projection{
		Scenario:            c.scenario.Name,
		YearLabels:          YearLabels(c.inputs.Years),
		Subscribers:         subscribers,
		SubscriptionRevenue: sub,
		PayPerUseRevenue:    ppu,
		Revenue:             c.ProjectRevenue(),
		Opex:                opex,
		Profit:              c.CalculateProfit(),
		CumulativeCashFlow:  c.CalculateCumulativeCashFlow(),
		ReverseFee:          reverse,
		Metrics:             c.Metrics(),
	}
}

// YearLabels returns "Year 1".."Year n"
func YearLabels(years int) []string {
	if years <= 0 {
		return nil
	}
	labels := make([]string, years)
	for i := range labels {
		labels[i] = fmt.Sprintf("Year %d", i+1)
	}
	return labels
}
