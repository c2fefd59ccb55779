package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/tea-service/internal/models"
)

var reportHeader = []string{
	"Year",
	"Subscribers",
	"Subscription Users",
	"Pay-per-use Users",
	"Subscription Revenue (€)",
	"Pay-per-use Revenue (€)",
	"Total Revenue (€)",
	"Opex (€)",
	"Profit (€)",
	"Cumulative Cash Flow (€)",
	"Min Fee per User (€)",
}

// SummaryHeader is the header of the comparison summary CSV
var SummaryHeader = []string{"Scenario File", "Description", "NPV (€)", "ROI", "Break-even Year"}

// money renders a value fixed to two decimals; non-finite values use their metric spelling
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatMetric(v)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// WriteCSV writes the report table, money fixed to two decimals
func WriteCSV(w io.Writer, report *models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range report.Rows {
		record := []string{
			r.Year,
			strconv.Itoa(r.Subscribers),
			strconv.Itoa(r.SubscriptionUsers),
			strconv.Itoa(r.PayPerUseUsers),
			money(r.SubscriptionRevenue),
			money(r.PayPerUseRevenue),
			money(r.Revenue),
			money(r.Opex),
			money(r.Profit),
			money(r.CumulativeCashFlow),
			money(r.ReverseFee),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes comparison summary rows at full precision so the file
// can serve as a validation reference. Infinite ROI is written as inf.
func WriteSummaryCSV(w io.Writer, summary []models.ScenarioSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, s := range summary {
		record := []string{
			s.Name,
			s.Description,
			FormatMetric(s.Metrics.NPV),
			FormatMetric(s.Metrics.ROI),
			strconv.Itoa(s.Metrics.BreakevenYear),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatMetric renders a metric value at full precision
func FormatMetric(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
