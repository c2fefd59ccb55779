package models

const (
	DefaultYears             = 5
	DefaultSubscriptionRatio = 1.0
)

// FinancialInputs holds the business inputs of a scenario. Monetary values are
// plain euros; SubscriptionRatio is the fraction of subscribers on the
// subscription plan, the rest pay per use.
type FinancialInputs struct {
	StartingSubscribers int     `json:"starting_subscribers" yaml:"starting_subscribers"`
	SubscriptionFee     float64 `json:"subscription_fee" yaml:"subscription_fee"`
	PayPerUseFee        float64 `json:"pay_per_use_fee" yaml:"pay_per_use_fee"`
	BaseOpex            float64 `json:"base_opex" yaml:"base_opex"`
	Capex               float64 `json:"capex" yaml:"capex"`
	Years               int     `json:"years" yaml:"years"`
	SubscriptionRatio   float64 `json:"subscription_ratio" yaml:"subscription_ratio"`
}

// ClampedRatio returns SubscriptionRatio limited to [0,1]
func (f FinancialInputs) ClampedRatio() float64 {
	switch {
	case f.SubscriptionRatio < 0:
		return 0
	case f.SubscriptionRatio > 1:
		return 1
	}
	return f.SubscriptionRatio
}
