package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Dan9191/tea-service/internal/models"
)

// WriteXML writes the report as a <report> document with <metrics> and one <year> per row
func WriteXML(w io.Writer, report *models.Report) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("report")
	root.CreateAttr("id", report.ID)
	root.CreateAttr("scenario", report.Scenario)

	metrics := root.CreateElement("metrics")
	metrics.CreateElement("npv").SetText(money(report.Metrics.NPV))
	roi := metrics.CreateElement("roi")
	if report.Metrics.ROIInfinite() {
		roi.CreateAttr("infinite", "true")
	} else {
		roi.SetText(FormatMetric(report.Metrics.ROI))
	}
	be := metrics.CreateElement("breakeven_year")
	be.CreateAttr("reached", strconv.FormatBool(report.Metrics.BreakevenReached()))
	be.SetText(strconv.Itoa(report.Metrics.BreakevenYear))

	for _, r := range report.Rows {
		year := root.CreateElement("year")
		year.CreateAttr("label", r.Year)
		year.CreateElement("subscribers").SetText(strconv.Itoa(r.Subscribers))
		year.CreateElement("subscription_users").SetText(strconv.Itoa(r.SubscriptionUsers))
		year.CreateElement("pay_per_use_users").SetText(strconv.Itoa(r.PayPerUseUsers))
		year.CreateElement("subscription_revenue").SetText(money(r.SubscriptionRevenue))
		year.CreateElement("pay_per_use_revenue").SetText(money(r.PayPerUseRevenue))
		year.CreateElement("revenue").SetText(money(r.Revenue))
		year.CreateElement("opex").SetText(money(r.Opex))
		year.CreateElement("profit").SetText(money(r.Profit))
		year.CreateElement("cumulative_cash_flow").SetText(money(r.CumulativeCashFlow))
		year.CreateElement("min_fee_per_user").SetText(money(r.ReverseFee))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xml report: %w", err)
	}
	return nil
}

// Write dispatches on format
func Write(w io.Writer, report *models.Report, format Format) error {
	switch format {
	case FormatXML:
		return WriteXML(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	}
	return fmt.Errorf("unsupported export format %q", format)
}
