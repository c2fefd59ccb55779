package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Dan9191/tea-service/internal/cache"
	"github.com/Dan9191/tea-service/internal/export"
	"github.com/Dan9191/tea-service/internal/models"
	"github.com/Dan9191/tea-service/internal/projection"
	"github.com/Dan9191/tea-service/internal/repository"
)

// MaxYears bounds the projection horizon accepted from callers
const MaxYears = 50

// ErrMailerDisabled is returned by EmailReport when no mailer is configured
var ErrMailerDisabled = errors.New("email reports are not configured")

// Mailer delivers exported reports
type Mailer interface {
	SendReport(to string, report *models.Report, attachment []byte) error
}

// Options tune the service
type Options struct {
	// CompareWorkers bounds concurrent projections in Compare
	CompareWorkers int
}

// Service handles business logic
type Service struct {
	store   repository.Store
	cache   cache.Cache
	mailer  Mailer
	log     *logrus.Logger
	workers int
}

// NewService initializes a new service. cache and mailer may be nil.
func NewService(store repository.Store, c cache.Cache, mailer Mailer, log *logrus.Logger, opts Options) *Service {
	workers := opts.CompareWorkers
	if workers < 1 {
		workers = 1
	}
	return &Service{store: store, cache: c, mailer: mailer, log: log, workers: workers}
}

// ValidateInputs checks the ranges a caller may submit. Failures wrap projection.ErrInvalidInput.
func ValidateInputs(cfg models.ScenarioConfig, fin models.FinancialInputs) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{projection.ErrInvalidInput}, args...)...)
	}
	switch {
	case fin.Years < 1 || fin.Years > MaxYears:
		return invalid("years must be between 1 and %d, got %d", MaxYears, fin.Years)
	case fin.StartingSubscribers < 0:
		return invalid("starting_subscribers must not be negative")
	case fin.SubscriptionFee < 0, fin.PayPerUseFee < 0:
		return invalid("fees must not be negative")
	case fin.BaseOpex < 0:
		return invalid("base_opex must not be negative")
	case fin.Capex < 0:
		return invalid("capex must not be negative")
	case fin.SubscriptionRatio < 0 || fin.SubscriptionRatio > 1:
		return invalid("subscription_ratio must be between 0 and 1, got %g", fin.SubscriptionRatio)
	case cfg.SubscriberGrowthRate < 0, cfg.OpexGrowthRate < 0, cfg.DiscountRate < 0:
		return invalid("rates must not be negative")
	}
	return nil
}

func newCalculator(cfg models.ScenarioConfig, fin models.FinancialInputs) (*projection.Calculator, error) {
	return projection.NewCalculator(cfg.Assumptions(), fin)
}

// Project validates the inputs and returns the full projection
func (s *Service) Project(ctx context.Context, cfg models.ScenarioConfig, fin models.FinancialInputs) (*models.Projection, error) {
	if err := ValidateInputs(cfg, fin); err != nil {
		return nil, err
	}
	return s.project(ctx, cfg, fin)
}

// project consults the cache before running the engine
func (s *Service) project(ctx context.Context, cfg models.ScenarioConfig, fin models.FinancialInputs) (*models.Projection, error) {
	key := cache.Key(cfg, fin)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var p models.Projection
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				s.log.WithField("key", key).Debug("Projection cache hit")
				return &p, nil
			}
			s.log.WithField("key", key).Warn("Discarding undecodable cached projection")
		}
	}

	calc, err := newCalculator(cfg, fin)
	if err != nil {
		return nil, err
	}
	p := calc.Project()

	if s.cache != nil {
		s.log.WithField("key", key).Debug("Projection cache miss")
		if data, err := json.Marshal(p); err == nil {
			if err := s.cache.Set(ctx, key, string(data)); err != nil {
				s.log.WithError(err).Warn("Failed to cache projection")
			}
		}
	}
	return p, nil
}

// Save validates a record, attaches its metrics and stores it under name
func (s *Service) Save(ctx context.Context, name string, record *models.ScenarioRecord) (*models.ScenarioRecord, error) {
	if err := repository.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateInputs(record.Scenario, record.Financials); err != nil {
		return nil, err
	}
	calc, err := newCalculator(record.Scenario, record.Financials)
	if err != nil {
		return nil, err
	}

	saved := *record
	saved.Metrics = calc.Metrics().Snapshot()
	if err := s.store.Save(ctx, name, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Load returns the stored record
func (s *Service) Load(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	return s.store.Load(ctx, name)
}

// List returns all stored record names
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// ProjectSaved loads a record and projects it
func (s *Service) ProjectSaved(ctx context.Context, name string) (*models.Projection, error) {
	record, err := s.loadRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, record.Scenario, record.Financials)
}

// ReversePricing returns the minimum fee per subscriber for each year
func (s *Service) ReversePricing(ctx context.Context, cfg models.ScenarioConfig, fin models.FinancialInputs, opts projection.PricingOptions) (*projection.PricedReport, error) {
	if err := ValidateInputs(cfg, fin); err != nil {
		return nil, err
	}
	if opts.Margin < 0 {
		return nil, fmt.Errorf("%w: margin must not be negative", projection.ErrInvalidInput)
	}
	calc, err := newCalculator(cfg, fin)
	if err != nil {
		return nil, err
	}
	return calc.ReversePricing(opts)
}

// Compare projects several saved scenarios concurrently. Results are keyed by
// record name; summary rows follow the order of names with duplicates dropped.
func (s *Service) Compare(ctx context.Context, names []string) (*models.Comparison, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one scenario is required", projection.ErrInvalidInput)
	}

	records, err := s.loadMany(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := checkHorizon(name, records[name]); err != nil {
			return nil, err
		}
	}

	projections := make([]*models.Projection, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		rec := records[name]
		g.Go(func() error {
			p, err := s.project(gctx, rec.Scenario, rec.Financials)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
			projections[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := &models.Comparison{
		Results: make(map[string]*models.Projection, len(names)),
		Summary: make([]models.ScenarioSummary, len(names)),
	}
	for i, name := range names {
		cmp.Results[name] = projections[i]
		cmp.Summary[i] = models.ScenarioSummary{
			Name:        name,
			Description: Describe(records[name].Scenario),
			Metrics:     projections[i].Metrics,
		}
	}
	s.log.WithField("scenarios", names).Debug("Scenarios compared")
	return cmp, nil
}

// Describe returns the short tag shown next to a scenario in comparisons
func Describe(cfg models.ScenarioConfig) string {
	return fmt.Sprintf("%s (%.0f%% subs/yr)", cfg.Name, cfg.SubscriberGrowthRate)
}

func (s *Service) loadMany(ctx context.Context, names []string) (map[string]*models.ScenarioRecord, error) {
	if bulk, ok := s.store.(repository.BulkLoader); ok {
		return bulk.LoadMany(ctx, names)
	}

	loaded := make([]*models.ScenarioRecord, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			rec, err := s.store.Load(gctx, name)
			if err != nil {
				return err
			}
			loaded[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make(map[string]*models.ScenarioRecord, len(names))
	for i, name := range names {
		records[name] = loaded[i]
	}
	return records, nil
}

// loadRecord reads a stored record and bounds its horizon. Other ranges are
// left to the engine, which clamps the ratio and rejects what it cannot project.
func (s *Service) loadRecord(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	record, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkHorizon(name, record); err != nil {
		return nil, err
	}
	return record, nil
}

func checkHorizon(name string, record *models.ScenarioRecord) error {
	if record.Financials.Years > MaxYears {
		return fmt.Errorf("%w: scenario %s: years must be at most %d, got %d",
			projection.ErrInvalidInput, name, MaxYears, record.Financials.Years)
	}
	return nil
}

// Report builds the export table of a saved scenario
func (s *Service) Report(ctx context.Context, name string, opts projection.PricingOptions) (*models.Report, error) {
	record, err := s.loadRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	calc, err := newCalculator(record.Scenario, record.Financials)
	if err != nil {
		return nil, err
	}
	return export.BuildReport(calc, name, opts)
}

// EmailReport mails the CSV report of a saved scenario
func (s *Service) EmailReport(ctx context.Context, name, to string, opts projection.PricingOptions) (*models.Report, error) {
	if s.mailer == nil {
		return nil, ErrMailerDisabled
	}
	report, err := s.Report(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, report); err != nil {
		return nil, err
	}
	if err := s.mailer.SendReport(to, report, buf.Bytes()); err != nil {
		return nil, err
	}
	return report, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
