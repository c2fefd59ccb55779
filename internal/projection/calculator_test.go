package projection

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/tea-service/internal/models"
)

func baseScenario() models.ScenarioConfig {
	return models.ScenarioConfig{
		Name:                 "Base",
		SubscriberGrowthRate: 20,
		OpexGrowthRate:       10,
		DiscountRate:         5,
	}
}

func baseInputs() models.FinancialInputs {
	return models.FinancialInputs{
		StartingSubscribers: 100,
		SubscriptionFee:     100,
		PayPerUseFee:        20,
		BaseOpex:            10000,
		Capex:               30000,
		Years:               5,
		SubscriptionRatio:   1.0,
	}
}

func newCalc(t *testing.T, sc models.ScenarioConfig, in models.FinancialInputs) *Calculator {
	t.Helper()
	calc, err := NewCalculator(sc.Assumptions(), in)
	require.NoError(t, err)
	return calc
}

func TestCalculator_ReferenceScenario(t *testing.T) {
	calc := newCalc(t, baseScenario(), baseInputs())

	assert.Equal(t, []int{100, 120, 144, 172, 207}, calc.ProjectSubscribers())
	assert.InDeltaSlice(t, []float64{10000, 11000, 12100, 13310, 14641}, calc.ProjectOpex(), 1e-6)
	assert.InDeltaSlice(t, []float64{10000, 12000, 14400, 17200, 20700}, calc.ProjectRevenue(), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 1000, 2300, 3890, 6059}, calc.CalculateProfit(), 1e-6)
	assert.InDeltaSlice(t, []float64{-30000, -29000, -26700, -22810, -16751}, calc.CalculateCumulativeCashFlow(), 1e-6)
	assert.InDelta(t, 10841.553624653257, calc.CalculateNPV(), 1e-6)
	assert.InDelta(t, -0.5583666666666667, calc.CalculateROI(), 1e-9)
	assert.Equal(t, models.BreakevenNotReached, calc.CalculateBreakevenYear())
}

func TestProjectSubscribers_CompoundsUnroundedValue(t *testing.T) {
	calc := newCalc(t, baseScenario(), baseInputs())
	subs := calc.ProjectSubscribers()

	// truncating every intermediate year would give 206 in year 5
	stepTruncated := []int{100}
	for i := 1; i < 5; i++ {
		stepTruncated = append(stepTruncated, int(float64(stepTruncated[i-1])*1.2))
	}
	assert.Equal(t, 206, stepTruncated[4])
	assert.Equal(t, 207, subs[4])

	for i, s := range subs {
		assert.LessOrEqual(t, float64(s), 100*math.Pow(1.2, float64(i))+1e-9)
	}
}

func TestProjectSubscribers_TruncatesNotRounds(t *testing.T) {
	sc := baseScenario()
	sc.SubscriberGrowthRate = 15
	in := baseInputs()
	in.StartingSubscribers = 3
	in.Years = 3

	calc := newCalc(t, sc, in)
	// 3, 3.45, 3.9675
	assert.Equal(t, []int{3, 3, 3}, calc.ProjectSubscribers())
}

func TestProjectSubscribers_ZeroGrowth(t *testing.T) {
	sc := baseScenario()
	sc.SubscriberGrowthRate = 0
	calc := newCalc(t, sc, baseInputs())
	assert.Equal(t, []int{100, 100, 100, 100, 100}, calc.ProjectSubscribers())
}

func TestRevenueBreakdown_SplitsByFraction(t *testing.T) {
	in := baseInputs()
	in.SubscriptionRatio = 0.7
	calc := newCalc(t, baseScenario(), in)

	sub, ppu := calc.ProjectRevenueBreakdown()
	revenue := calc.ProjectRevenue()
	require.Len(t, sub, 5)

	assert.InDelta(t, 7000, sub[0], 1e-9)
	assert.InDelta(t, 600, ppu[0], 1e-9)
	assert.InDeltaSlice(t, []float64{7600, 9120, 10944, 13072, 15732}, revenue, 1e-6)
	for i := range revenue {
		assert.InDelta(t, revenue[i], sub[i]+ppu[i], 1e-9)
	}
}

func TestRevenueBreakdown_RatioClamped(t *testing.T) {
	in := baseInputs()
	in.SubscriptionRatio = 1.5
	calc := newCalc(t, baseScenario(), in)
	_, ppu := calc.ProjectRevenueBreakdown()
	assert.Equal(t, 1.0, calc.Inputs().SubscriptionRatio)
	for _, v := range ppu {
		assert.Zero(t, v)
	}

	in.SubscriptionRatio = -0.2
	calc = newCalc(t, baseScenario(), in)
	sub, _ := calc.ProjectRevenueBreakdown()
	for _, v := range sub {
		assert.Zero(t, v)
	}
}

func TestCumulativeCashFlow_EndsAtSumOfProfitMinusCapex(t *testing.T) {
	calc := newCalc(t, baseScenario(), baseInputs())
	profit := calc.CalculateProfit()
	flow := calc.CalculateCumulativeCashFlow()

	var sum float64
	for _, p := range profit {
		sum += p
	}
	assert.InDelta(t, -30000+sum, flow[len(flow)-1], 1e-6)
}

func TestCalculateNPV_ExcludesCapex(t *testing.T) {
	in := baseInputs()
	withCapex := newCalc(t, baseScenario(), in).CalculateNPV()
	in.Capex = 0
	withoutCapex := newCalc(t, baseScenario(), in).CalculateNPV()
	assert.Equal(t, withCapex, withoutCapex)
}

func TestCalculateNPV_DiscountsFirstYearOnce(t *testing.T) {
	sc := baseScenario()
	sc.DiscountRate = 10
	in := baseInputs()
	in.Years = 1
	in.BaseOpex = 0
	in.StartingSubscribers = 11
	calc := newCalc(t, sc, in)
	// 1100 / 1.1
	assert.InDelta(t, 1000, calc.CalculateNPV(), 1e-9)
}

func TestCalculateROI_InfiniteIffNoCapex(t *testing.T) {
	in := baseInputs()
	in.Capex = 0
	calc := newCalc(t, baseScenario(), in)
	assert.True(t, math.IsInf(calc.CalculateROI(), 1))
	assert.True(t, calc.Metrics().ROIInfinite())

	in.Capex = 1
	calc = newCalc(t, baseScenario(), in)
	assert.False(t, math.IsInf(calc.CalculateROI(), 0))
}

func TestCalculateBreakevenYear(t *testing.T) {
	in := baseInputs()
	in.Capex = 5000
	calc := newCalc(t, baseScenario(), in)
	// -5000, -4000, -1700, 2190
	assert.Equal(t, 4, calc.CalculateBreakevenYear())

	in.Capex = 0
	calc = newCalc(t, baseScenario(), in)
	// year 1 profit is exactly zero and counts as break-even
	assert.Equal(t, 1, calc.CalculateBreakevenYear())
}

func TestBreakevenYear_SmallestNonNegativeIndex(t *testing.T) {
	cases := []struct {
		flow []float64
		want int
	}{
		{[]float64{-3, -2, -1}, models.BreakevenNotReached},
		{[]float64{-1, 0, 5}, 2},
		{[]float64{4, -1, 5}, 1},
		{nil, models.BreakevenNotReached},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BreakevenYear(tc.flow), "flow %v", tc.flow)
	}
}

func TestNewCalculator_RejectsNonPositiveYears(t *testing.T) {
	for _, years := range []int{0, -3} {
		in := baseInputs()
		in.Years = years
		_, err := NewCalculator(baseScenario().Assumptions(), in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	}
}

func TestNewCalculator_RejectsOverflowingProjections(t *testing.T) {
	cases := map[string]func(*models.ScenarioConfig, *models.FinancialInputs){
		"opex growth":       func(sc *models.ScenarioConfig, in *models.FinancialInputs) { sc.OpexGrowthRate = 1e200 },
		"subscriber growth": func(sc *models.ScenarioConfig, in *models.FinancialInputs) { sc.SubscriberGrowthRate = 1e200 },
		"huge fee":          func(sc *models.ScenarioConfig, in *models.FinancialInputs) { in.SubscriptionFee = math.MaxFloat64 },
		"huge opex":         func(sc *models.ScenarioConfig, in *models.FinancialInputs) { in.BaseOpex = math.MaxFloat64 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc, in := baseScenario(), baseInputs()
			mutate(&sc, &in)
			_, err := NewCalculator(sc.Assumptions(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewCalculator_NamesFirstOverflowingSeries(t *testing.T) {
	sc := baseScenario()
	sc.OpexGrowthRate = 1e200
	_, err := NewCalculator(sc.Assumptions(), baseInputs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opex overflows in year 3")
}

func TestNewCalculator_AcceptsInfiniteROIWithoutCapex(t *testing.T) {
	in := baseInputs()
	in.Capex = 0
	calc := newCalc(t, baseScenario(), in)
	assert.True(t, math.IsInf(calc.CalculateROI(), 1))
}

func TestScenarioConfig_ConvertsPercentOnce(t *testing.T) {
	a := baseScenario().Assumptions()
	assert.InDelta(t, 0.20, a.SubscriberGrowthRate, 1e-12)
	assert.InDelta(t, 0.10, a.OpexGrowthRate, 1e-12)
	assert.InDelta(t, 0.05, a.DiscountRate, 1e-12)
}

func TestProject_AssemblesAllSeries(t *testing.T) {
	calc := newCalc(t, baseScenario(), baseInputs())
	p := calc.Project()

	assert.Equal(t, "Base", p.Scenario)
	assert.Equal(t, []string{"Year 1", "Year 2", "Year 3", "Year 4", "Year 5"}, p.YearLabels)
	assert.Equal(t, calc.ProjectSubscribers(), p.Subscribers)
	assert.Equal(t, calc.CalculateCumulativeCashFlow(), p.CumulativeCashFlow)
	assert.InDelta(t, 100, p.ReverseFee[0], 1e-9)
	assert.Equal(t, calc.Metrics(), p.Metrics)
}

func TestCalculator_ConcurrentUse(t *testing.T) {
	calc := newCalc(t, baseScenario(), baseInputs())
	want := calc.Project()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, calc.Project())
		}()
	}
	wg.Wait()
}
