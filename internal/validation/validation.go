// Package validation checks recomputed scenario metrics against a reference table.
package validation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Dan9191/tea-service/internal/models"
	"github.com/Dan9191/tea-service/internal/projection"
	"github.com/Dan9191/tea-service/internal/repository"
)

// DefaultTolerance is the absolute difference accepted per metric
const DefaultTolerance = 1e-2

const (
	FieldNPV       = "NPV (€)"
	FieldROI       = "ROI"
	FieldBreakeven = "Break-even Year"
)

var fields = []string{FieldNPV, FieldROI, FieldBreakeven}

// Reference holds expected metrics per scenario. A nil value means the cell was empty.
type Reference map[string]map[string]*float64

// ReadReference parses a CSV with a Scenario (or Scenario File) column and metric columns
func ReadReference(r io.Reader) (Reference, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read reference csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("reference csv is empty")
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	nameCol, ok := col["Scenario"]
	if !ok {
		if nameCol, ok = col["Scenario File"]; !ok {
			return nil, errors.New("reference csv has no Scenario column")
		}
	}

	ref := make(Reference, len(rows)-1)
	for line, row := range rows[1:] {
		name := strings.TrimSpace(row[nameCol])
		values := make(map[string]*float64, len(fields))
		for _, f := range fields {
			i, ok := col[f]
			if !ok || strings.TrimSpace(row[i]) == "" {
				values[f] = nil
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line+2, f, row[i], err)
			}
			values[f] = &v
		}
		ref[name] = values
	}
	return ref, nil
}

// FieldResult is the outcome of one metric comparison
type FieldResult struct {
	Field    string
	Expected *float64
	Got      float64
	OK       bool
}

// Result is the outcome for one stored scenario
type Result struct {
	Scenario string
	// NotInReference is set when the reference has no row for the scenario
	NotInReference bool
	Err            error
	Fields         []FieldResult
}

// Failed reports a load error or any mismatching field
func (r Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, f := range r.Fields {
		if !f.OK {
			return true
		}
	}
	return false
}

// Run recomputes metrics for every stored scenario and compares them with ref
func Run(ctx context.Context, store repository.Store, ref Reference, tolerance float64) ([]Result, error) {
	names, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(names))
	for _, name := range names {
		res := Result{Scenario: name}
		expected, ok := ref[name]
		if !ok {
			res.NotInReference = true
			results = append(results, res)
			continue
		}

		metrics, err := recompute(ctx, store, name)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		got := map[string]float64{
			FieldNPV:       metrics.NPV,
			FieldROI:       metrics.ROI,
			FieldBreakeven: float64(metrics.BreakevenYear),
		}
		for _, f := range fields {
			fr := FieldResult{Field: f, Expected: expected[f], Got: got[f]}
			// an empty reference cell is reported but not failed
			fr.OK = fr.Expected == nil || within(*fr.Expected, fr.Got, tolerance)
			res.Fields = append(res.Fields, fr)
		}
		results = append(results, res)
	}
	return results, nil
}

func recompute(ctx context.Context, store repository.Store, name string) (models.Metrics, error) {
	record, err := store.Load(ctx, name)
	if err != nil {
		return models.Metrics{}, err
	}
	calc, err := projection.NewCalculator(record.Scenario.Assumptions(), record.Financials)
	if err != nil {
		return models.Metrics{}, err
	}
	return calc.Metrics(), nil
}

func within(expected, got, tolerance float64) bool {
	if math.IsInf(expected, 0) || math.IsInf(got, 0) {
		return expected == got
	}
	return math.Abs(expected-got) <= tolerance
}

// Print writes a human-readable report and returns the number of failed scenarios
func Print(w io.Writer, results []Result) int {
	failed := 0
	for _, r := range results {
		fmt.Fprintf(w, "Validating %s...\n", r.Scenario)
		switch {
		case r.NotInReference:
			fmt.Fprintf(w, "  WARN scenario %q not found in reference\n", r.Scenario)
		case r.Err != nil:
			fmt.Fprintf(w, "  FAIL %v\n", r.Err)
		default:
			for _, f := range r.Fields {
				switch {
				case f.Expected == nil:
					fmt.Fprintf(w, "  WARN %s: expected value missing\n", f.Field)
				case f.OK:
					fmt.Fprintf(w, "  OK   %s\n", f.Field)
				default:
					fmt.Fprintf(w, "  FAIL %s mismatch: expected %v, got %v\n", f.Field, *f.Expected, f.Got)
				}
			}
		}
		if r.Failed() {
			failed++
		}
	}
	fmt.Fprintf(w, "Validation complete: %d scenario(s), %d failed.\n", len(results), failed)
	return failed
}
