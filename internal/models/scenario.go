package models

// ScenarioConfig holds growth and discount assumptions as the user enters them.
// Rates are human-readable percentages (20 means 20%).
type ScenarioConfig struct {
	Name                 string  `json:"name" yaml:"name"`
	SubscriberGrowthRate float64 `json:"subscriber_growth_rate" yaml:"subscriber_growth_rate"`
	OpexGrowthRate       float64 `json:"opex_growth_rate" yaml:"opex_growth_rate"`
	DiscountRate         float64 `json:"discount_rate" yaml:"discount_rate"`
}

// ScenarioAssumptions holds the same assumptions as decimal fractions.
// Only ScenarioConfig.Assumptions creates one, so the percent conversion happens once.
type ScenarioAssumptions struct {
	Name                 string
	SubscriberGrowthRate float64
	OpexGrowthRate       float64
	DiscountRate         float64
}

// Assumptions converts the percent-valued config into engine fractions
func (c ScenarioConfig) Assumptions() ScenarioAssumptions {
	return ScenarioAssumptions{
		Name:                 c.Name,
		SubscriberGrowthRate: c.SubscriberGrowthRate / 100,
		OpexGrowthRate:       c.OpexGrowthRate / 100,
		DiscountRate:         c.DiscountRate / 100,
	}
}
