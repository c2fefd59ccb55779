package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/Dan9191/tea-service/internal/models"
	"github.com/Dan9191/tea-service/internal/projection"
	"github.com/Dan9191/tea-service/internal/repository"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request decoding failures
type errBadRequest struct {
	msg string
}

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, args...)}
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type listResponse struct {
	Scenarios []string `json:"scenarios"`
}

type emailRequest struct {
	To      string                    `json:"to"`
	Options projection.PricingOptions `json:"options"`
}

type emailResponse struct {
	Status   string `json:"status"`
	ReportID string `json:"report_id"`
	To       string `json:"to"`
}

type reversePricingRequest struct {
	Options projection.PricingOptions `json:"options"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("failed to read request body: %v", err)
	}
	return data, nil
}

// decodeRecord parses a {scenario, financials} body with the stored-record rules
func decodeRecord(data []byte) (*models.ScenarioRecord, error) {
	record, err := repository.DecodeRecord(data, repository.FormatJSON)
	if err != nil {
		return nil, badRequest("invalid request body: %v", err)
	}
	return record, nil
}

func decodeReversePricing(data []byte) (*models.ScenarioRecord, projection.PricingOptions, error) {
	record, err := decodeRecord(data)
	if err != nil {
		return nil, projection.PricingOptions{}, err
	}
	var req reversePricingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, projection.PricingOptions{}, badRequest("invalid options: %v", err)
	}
	return record, req.Options, nil
}

func decodeEmail(data []byte) (*emailRequest, error) {
	var req emailRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest("invalid request body: %v", err)
	}
	addr, err := mail.ParseAddress(req.To)
	if err != nil {
		return nil, badRequest("invalid recipient %q", req.To)
	}
	req.To = addr.Address
	return &req, nil
}

// pricingOptionsFromQuery reads include_capex, amortize_years and margin
func pricingOptionsFromQuery(r *http.Request) (projection.PricingOptions, error) {
	var opts projection.PricingOptions
	q := r.URL.Query()
	var err error
	if v := q.Get("include_capex"); v != "" {
		if opts.IncludeCapex, err = strconv.ParseBool(v); err != nil {
			return opts, badRequest("invalid include_capex %q", v)
		}
	}
	if v := q.Get("amortize_years"); v != "" {
		if opts.AmortizeYears, err = strconv.Atoi(v); err != nil {
			return opts, badRequest("invalid amortize_years %q", v)
		}
	}
	if v := q.Get("margin"); v != "" {
		if opts.Margin, err = strconv.ParseFloat(v, 64); err != nil {
			return opts, badRequest("invalid margin %q", v)
		}
	}
	return opts, nil
}
