package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/export"
	"github.com/Dan9191/tea-service/internal/integrations/cbr"
	"github.com/Dan9191/tea-service/internal/middleware"
	"github.com/Dan9191/tea-service/internal/projection"
	"github.com/Dan9191/tea-service/internal/repository"
	"github.com/Dan9191/tea-service/internal/service"
)

// RateProvider supplies the reference discount rate
type RateProvider interface {
	Current(ctx context.Context) (*cbr.ReferenceRate, error)
}

type Handler struct {
	svc   *service.Service
	rates RateProvider
	log   *logrus.Logger
}

// NewHandler creates the HTTP handlers. rates may be nil.
func NewHandler(svc *service.Service, rates RateProvider, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, rates: rates, log: log}
}

// Router wires all routes behind the logging middleware
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(h.log))

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/projections", h.Project).Methods("POST")
	r.HandleFunc("/projections/reverse-pricing", h.ReversePricing).Methods("POST")
	r.HandleFunc("/scenarios", h.ListScenarios).Methods("GET")
	r.HandleFunc("/scenarios/{name}", h.LoadScenario).Methods("GET")
	r.HandleFunc("/scenarios/{name}", h.SaveScenario).Methods("PUT")
	r.HandleFunc("/scenarios/{name}/projection", h.ProjectScenario).Methods("GET")
	r.HandleFunc("/scenarios/{name}/export", h.ExportScenario).Methods("GET")
	r.HandleFunc("/scenarios/{name}/report/email", h.EmailReport).Methods("POST")
	r.HandleFunc("/compare", h.Compare).Methods("GET")
	r.HandleFunc("/compare/export", h.ExportComparison).Methods("GET")
	r.HandleFunc("/discount-rate/reference", h.ReferenceDiscountRate).Methods("GET")
	return r
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Project handles projection of raw assumptions and inputs
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	record, err := decodeRecord(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Project(r.Context(), record.Scenario, record.Financials)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, p)
}

// ReversePricing handles the min-fee calculation
func (h *Handler) ReversePricing(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	record, opts, err := decodeReversePricing(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.svc.ReversePricing(r.Context(), record.Scenario, record.Financials, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

// ListScenarios lists stored scenario names
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, listResponse{Scenarios: names})
}

// LoadScenario returns a stored record
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, record)
}

// SaveScenario stores a record under the path name
func (h *Handler) SaveScenario(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	record, err := decodeRecord(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	saved, err := h.svc.Save(r.Context(), mux.Vars(r)["name"], record)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, saved)
}

// ProjectScenario projects a stored record
func (h *Handler) ProjectScenario(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ProjectSaved(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, p)
}

// ExportScenario downloads the report of a stored record as CSV or XML
func (h *Handler) ExportScenario(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, badRequest("%v", err))
		return
	}
	opts, err := pricingOptionsFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.svc.Report(r.Context(), name, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report, format); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_report.%s"`, name, format))
	w.Write(buf.Bytes())
}

// EmailReport mails the CSV report of a stored record
func (h *Handler) EmailReport(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeEmail(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.svc.EmailReport(r.Context(), mux.Vars(r)["name"], req.To, req.Options)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, emailResponse{Status: "sent", ReportID: report.ID, To: req.To})
}

// Compare projects several stored records, named by repeated name query parameters
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.svc.Compare(r.Context(), r.URL.Query()["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, cmp)
}

// ExportComparison downloads the comparison summary as CSV
func (h *Handler) ExportComparison(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.svc.Compare(r.Context(), r.URL.Query()["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSummaryCSV(&buf, cmp.Summary); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="scenario_metrics_summary.csv"`)
	w.Write(buf.Bytes())
}

// ReferenceDiscountRate suggests a discount rate from the central bank key rate
func (h *Handler) ReferenceDiscountRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		h.writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Status: "fail", Message: "reference rate is not configured"})
		return
	}
	rate, err := h.rates.Current(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to get key rate")
		h.writeJSON(w, r, http.StatusBadGateway, errorResponse{Status: "fail", Message: fmt.Sprintf("Failed to get key rate: %v", err)})
		return
	}
	h.writeJSON(w, r, http.StatusOK, rate)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", middleware.RequestID(r.Context())).Error("Request failed")
	}
	data, _ := json.Marshal(errorResponse{Status: "fail", Message: err.Error()})
	writeBody(w, status, data)
}

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, projection.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrRecordMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrMailerDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v in full before the status line is written
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.fail(w, r, fmt.Errorf("failed to encode response: %w", err))
		return
	}
	writeBody(w, status, data)
}

func writeBody(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
