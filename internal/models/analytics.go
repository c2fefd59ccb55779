package models

// ScenarioSummary is one row of the comparison summary table
type ScenarioSummary struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metrics     Metrics `json:"metrics"`
}

// Comparison holds projections keyed by record name and summary rows in request order
type Comparison struct {
	Results map[string]*Projection `json:"results"`
	Summary []ScenarioSummary      `json:"summary"`
}

// ReportRow is one year of the exported projection table
type ReportRow struct {
	Year                string
	Subscribers         int
	SubscriptionUsers   int
	PayPerUseUsers      int
	SubscriptionRevenue float64
	PayPerUseRevenue    float64
	Revenue             float64
	Opex                float64
	Profit              float64
	CumulativeCashFlow  float64
	ReverseFee          float64
}

// Report is a projection flattened into a table
type Report struct {
	ID       string
	Scenario string
	Metrics  Metrics
	Rows     []ReportRow
}
