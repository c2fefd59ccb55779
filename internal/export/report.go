// Package export flattens projections into tables and writes them as CSV or XML.
package export

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Dan9191/tea-service/internal/models"
	"github.com/Dan9191/tea-service/internal/projection"
)

// Format is an export file format
type Format string

const (
	FormatCSV Format = "csv"
	FormatXML Format = "xml"
)

// ParseFormat accepts csv and xml, defaulting to csv when empty
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml"
	}
	return "text/csv"
}

// BuildReport projects the calculator's scenario into per-year rows.
// User counts split the truncated head count; revenue keeps the fractional split.
func BuildReport(calc *projection.Calculator, scenario string, opts projection.PricingOptions) (*models.Report, error) {
	fees, err := calc.MinFeePerUser(opts)
	if err != nil {
		return nil, err
	}

	subscribers := calc.ProjectSubscribers()
	subRevenue, ppuRevenue := calc.ProjectRevenueBreakdown()
	revenue := calc.ProjectRevenue()
	opex := calc.ProjectOpex()
	profit := calc.CalculateProfit()
	cumulative := calc.CalculateCumulativeCashFlow()
	labels := projection.YearLabels(len(subscribers))
	ratio := calc.Inputs().SubscriptionRatio

	rows := make([]models.ReportRow, len(subscribers))
	for i, s := range subscribers {
		subUsers := int(float64(s) * ratio)
		rows[i] = models.ReportRow{
			Year:                labels[i],
			Subscribers:         s,
			SubscriptionUsers:   subUsers,
			PayPerUseUsers:      s - subUsers,
			SubscriptionRevenue: subRevenue[i],
			PayPerUseRevenue:    ppuRevenue[i],
			Revenue:             revenue[i],
			Opex:                opex[i],
			Profit:              profit[i],
			CumulativeCashFlow:  cumulative[i],
			ReverseFee:          fees[i],
		}
	}

	return &models.Report{
		ID:       uuid.NewString(),
		Scenario: scenario,
		Metrics:  calc.Metrics(),
		Rows:     rows,
	}, nil
}
