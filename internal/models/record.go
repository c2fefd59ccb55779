package models

// ScenarioRecord is the persisted bundle of a named scenario
type ScenarioRecord struct {
	Scenario   ScenarioConfig   `json:"scenario" yaml:"scenario"`
	Financials FinancialInputs  `json:"financials" yaml:"financials"`
	Metrics    *MetricsSnapshot `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}
