package models

import (
	"encoding/json"
	"math"
)

// BreakevenNotReached marks a horizon in which cumulative cash flow never turns non-negative
const BreakevenNotReached = -1

// Metrics are the scalar results of a projection.
// ROI is +Inf when there is no capex.
type Metrics struct {
	NPV           float64
	ROI           float64
	BreakevenYear int
}

// ROIInfinite reports whether ROI carries the uncapitalized sentinel
func (m Metrics) ROIInfinite() bool {
	return math.IsInf(m.ROI, 1)
}

// BreakevenReached reports whether a break-even year exists within the horizon
func (m Metrics) BreakevenReached() bool {
	return m.BreakevenYear != BreakevenNotReached
}

// Snapshot converts metrics into their persisted form
func (m Metrics) Snapshot() *MetricsSnapshot {
	s := &MetricsSnapshot{NPV: m.NPV, BreakevenYear: m.BreakevenYear}
	if !m.ROIInfinite() {
		roi := m.ROI
		s.ROI = &roi
	}
	return s
}

type metricsJSON struct {
	NPV              float64  `json:"npv"`
	ROI              *float64 `json:"roi"`
	ROIInfinite      bool     `json:"roi_infinite"`
	BreakevenYear    int      `json:"breakeven_year"`
	BreakevenReached bool     `json:"breakeven_reached"`
}

// MarshalJSON encodes an infinite ROI as null plus roi_infinite
func (m Metrics) MarshalJSON() ([]byte, error) {
	s := m.Snapshot()
	return json.Marshal(metricsJSON{
		NPV:              s.NPV,
		ROI:              s.ROI,
		ROIInfinite:      m.ROIInfinite(),
		BreakevenYear:    m.BreakevenYear,
		BreakevenReached: m.BreakevenReached(),
	})
}

// UnmarshalJSON restores the +Inf sentinel from a null ROI
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MetricsSnapshot{NPV: raw.NPV, ROI: raw.ROI, BreakevenYear: raw.BreakevenYear}.Metrics()
	return nil
}

// MetricsSnapshot is the stored copy of a scenario's metrics. A nil ROI means infinite.
type MetricsSnapshot struct {
	NPV           float64  `json:"npv" yaml:"npv"`
	ROI           *float64 `json:"roi" yaml:"roi"`
	BreakevenYear int      `json:"breakeven_year" yaml:"breakeven_year"`
}

// Metrics converts the snapshot back, restoring +Inf for a nil ROI
func (s MetricsSnapshot) Metrics() Metrics {
	m := Metrics{NPV: s.NPV, ROI: math.Inf(1), BreakevenYear: s.BreakevenYear}
	if s.ROI != nil {
		m.ROI = *s.ROI
	}
	return m
}

// Projection holds every year-indexed series for one scenario plus its metrics
type Projection struct {
	Scenario            string    `json:"scenario"`
	YearLabels          []string  `json:"years"`
	Subscribers         []int     `json:"subscribers"`
	SubscriptionRevenue []float64 `json:"subscription_revenue"`
	PayPerUseRevenue    []float64 `json:"pay_per_use_revenue"`
	Revenue             []float64 `json:"revenue"`
	Opex                []float64 `json:"opex"`
	Profit              []float64 `json:"profit"`
	CumulativeCashFlow  []float64 `json:"cumulative_cash_flow"`
	ReverseFee          []float64 `json:"reverse_fee"`
	Metrics             Metrics   `json:"metrics"`
}
