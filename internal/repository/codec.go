package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/Dan9191/tea-service/internal/models"
)

// Format is the on-disk encoding of a record
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Wire types use pointers so that missing fields can be told apart from zero values.
type recordWire struct {
	Scenario   *scenarioWire           `json:"scenario" yaml:"scenario"`
	Financials *financialsWire         `json:"financials" yaml:"financials"`
	Metrics    *models.MetricsSnapshot `json:"metrics" yaml:"metrics"`
}

type scenarioWire struct {
	Name                 *string  `json:"name" yaml:"name"`
	SubscriberGrowthRate *float64 `json:"subscriber_growth_rate" yaml:"subscriber_growth_rate"`
	OpexGrowthRate       *float64 `json:"opex_growth_rate" yaml:"opex_growth_rate"`
	DiscountRate         *float64 `json:"discount_rate" yaml:"discount_rate"`
}

type financialsWire struct {
	StartingSubscribers *int     `json:"starting_subscribers" yaml:"starting_subscribers"`
	SubscriptionFee     *float64 `json:"subscription_fee" yaml:"subscription_fee"`
	PayPerUseFee        *float64 `json:"pay_per_use_fee" yaml:"pay_per_use_fee"`
	BaseOpex            *float64 `json:"base_opex" yaml:"base_opex"`
	Capex               *float64 `json:"capex" yaml:"capex"`
	Years               *int     `json:"years" yaml:"years"`
	SubscriptionRatio   *float64 `json:"subscription_ratio" yaml:"subscription_ratio"`
}

// EncodeRecord serializes a record in the given format
func EncodeRecord(record *models.ScenarioRecord, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(record)
	case FormatJSON:
		return json.MarshalIndent(record, "", "  ")
	}
	return nil, fmt.Errorf("unsupported record format %q", format)
}

// DecodeRecord parses a record and checks required fields.
// Capex defaults to 0 and subscription ratio to 1.0 when absent.
func DecodeRecord(data []byte, format Format) (*models.ScenarioRecord, error) {
	var wire recordWire
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &wire)
	case FormatJSON:
		err = json.Unmarshal(data, &wire)
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}

	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	sc, fin := wire.Scenario, wire.Financials
	need(sc != nil, "scenario")
	need(fin != nil, "financials")
	if sc != nil {
		need(sc.Name != nil, "scenario.name")
		need(sc.SubscriberGrowthRate != nil, "scenario.subscriber_growth_rate")
		need(sc.OpexGrowthRate != nil, "scenario.opex_growth_rate")
		need(sc.DiscountRate != nil, "scenario.discount_rate")
	}
	if fin != nil {
		need(fin.StartingSubscribers != nil, "financials.starting_subscribers")
		need(fin.SubscriptionFee != nil, "financials.subscription_fee")
		need(fin.PayPerUseFee != nil, "financials.pay_per_use_fee")
		need(fin.BaseOpex != nil, "financials.base_opex")
		need(fin.Years != nil, "financials.years")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrRecordMalformed, strings.Join(missing, ", "))
	}

	record := &models.ScenarioRecord{
		Scenario: models.ScenarioConfig{
			Name:                 *sc.Name,
			SubscriberGrowthRate: *sc.SubscriberGrowthRate,
			OpexGrowthRate:       *sc.OpexGrowthRate,
			DiscountRate:         *sc.DiscountRate,
		},
		Financials: models.FinancialInputs{
			StartingSubscribers: *fin.StartingSubscribers,
			SubscriptionFee:     *fin.SubscriptionFee,
			PayPerUseFee:        *fin.PayPerUseFee,
			BaseOpex:            *fin.BaseOpex,
			Years:               *fin.Years,
			SubscriptionRatio:   models.DefaultSubscriptionRatio,
		},
		Metrics: wire.Metrics,
	}
	if fin.Capex != nil {
		record.Financials.Capex = *fin.Capex
	}
	if fin.SubscriptionRatio != nil {
		record.Financials.SubscriptionRatio = *fin.SubscriptionRatio
	}
	return record, nil
}
