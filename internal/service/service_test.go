package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/tea-service/internal/cache"
	"github.com/Dan9191/tea-service/internal/models"
	"github.com/Dan9191/tea-service/internal/projection"
	"github.com/Dan9191/tea-service/internal/repository"
)

type mockMailer struct {
	to         string
	report     *models.Report
	attachment []byte
	err        error
}

func (m *mockMailer) SendReport(to string, report *models.Report, attachment []byte) error {
	m.to, m.report, m.attachment = to, report, attachment
	return m.err
}

// countingStore records Load calls and never exposes LoadMany
type countingStore struct {
	repository.Store
	loads atomic.Int32
}

func (c *countingStore) Load(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	c.loads.Add(1)
	return c.Store.Load(ctx, name)
}

type bulkStore struct {
	*repository.MemoryStore
	bulkCalls int
}

func (b *bulkStore) LoadMany(ctx context.Context, names []string) (map[string]*models.ScenarioRecord, error) {
	b.bulkCalls++
	out := make(map[string]*models.ScenarioRecord, len(names))
	for _, n := range names {
		r, err := b.Load(ctx, n)
		if err != nil {
			return nil, err
		}
		out[n] = r
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func baseConfig() models.ScenarioConfig {
	return models.ScenarioConfig{Name: "Base", SubscriberGrowthRate: 20, OpexGrowthRate: 10, DiscountRate: 5}
}

func baseFinancials() models.FinancialInputs {
	return models.FinancialInputs{
		StartingSubscribers: 100,
		SubscriptionFee:     100,
		PayPerUseFee:        20,
		BaseOpex:            10000,
		Capex:               30000,
		Years:               5,
		SubscriptionRatio:   1,
	}
}

func baseRecord() *models.ScenarioRecord {
	return &models.ScenarioRecord{Scenario: baseConfig(), Financials: baseFinancials()}
}

func newTestService(store repository.Store, c cache.Cache, m Mailer) *Service {
	return NewService(store, c, m, testLogger(), Options{CompareWorkers: 2})
}

func TestProject_ReferenceScenario(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), nil, nil)

	p, err := svc.Project(context.Background(), baseConfig(), baseFinancials())
	require.NoError(t, err)

	assert.Equal(t, []int{100, 120, 144, 172, 207}, p.Subscribers)
	assert.InDelta(t, 10841.553624653257, p.Metrics.NPV, 1e-6)
	assert.InDelta(t, -0.5583666666666667, p.Metrics.ROI, 1e-12)
	assert.Equal(t, -1, p.Metrics.BreakevenYear)
}

func TestProject_UsesCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	svc := newTestService(repository.NewMemoryStore(), mc, nil)
	ctx := context.Background()

	fin := baseFinancials()
	fin.Capex = 0
	first, err := svc.Project(ctx, baseConfig(), fin)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.Len())

	second, err := svc.Project(ctx, baseConfig(), fin)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, math.IsInf(second.Metrics.ROI, 1))
	assert.Equal(t, 1, mc.Len())
}

func TestProject_IgnoresCorruptCacheEntry(t *testing.T) {
	mc := cache.NewMemoryCache()
	svc := newTestService(repository.NewMemoryStore(), mc, nil)
	ctx := context.Background()
	require.NoError(t, mc.Set(ctx, cache.Key(baseConfig(), baseFinancials()), "{broken"))

	p, err := svc.Project(ctx, baseConfig(), baseFinancials())
	require.NoError(t, err)
	assert.Len(t, p.Subscribers, 5)
}

func TestValidateInputs(t *testing.T) {
	cases := map[string]func(*models.ScenarioConfig, *models.FinancialInputs){
		"zero years":         func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.Years = 0 },
		"too many years":     func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.Years = 51 },
		"negative opex":      func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.BaseOpex = -1 },
		"negative fee":       func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.PayPerUseFee = -0.5 },
		"negative capex":     func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.Capex = -10 },
		"ratio above one":    func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.SubscriptionRatio = 1.2 },
		"negative growth":    func(c *models.ScenarioConfig, f *models.FinancialInputs) { c.SubscriberGrowthRate = -5 },
		"negative discount":  func(c *models.ScenarioConfig, f *models.FinancialInputs) { c.DiscountRate = -1 },
		"negative customers": func(c *models.ScenarioConfig, f *models.FinancialInputs) { f.StartingSubscribers = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, fin := baseConfig(), baseFinancials()
			mutate(&cfg, &fin)
			assert.ErrorIs(t, ValidateInputs(cfg, fin), projection.ErrInvalidInput)
		})
	}
	assert.NoError(t, ValidateInputs(baseConfig(), baseFinancials()))
}

func TestSave_AttachesMetrics(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	saved, err := svc.Save(ctx, "base", baseRecord())
	require.NoError(t, err)
	require.NotNil(t, saved.Metrics)
	assert.InDelta(t, 10841.553624653257, saved.Metrics.NPV, 1e-6)

	loaded, err := svc.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, 20.0, loaded.Scenario.SubscriberGrowthRate)

	names, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, names)
}

func TestSave_Rejects(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), nil, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, "no spaces", baseRecord())
	assert.ErrorIs(t, err, repository.ErrInvalidName)

	rec := baseRecord()
	rec.Financials.Years = 0
	_, err = svc.Save(ctx, "base", rec)
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	_, err = svc.Load(ctx, "base")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestProjectSaved(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	// stored records are projected even when outside request ranges; the engine clamps the ratio
	rec := baseRecord()
	rec.Financials.SubscriptionRatio = 1.5
	require.NoError(t, store.Save(ctx, "legacy", rec))

	p, err := svc.ProjectSaved(ctx, "legacy")
	require.NoError(t, err)
	assert.InDelta(t, 10000, p.Revenue[0], 1e-9)

	_, err = svc.ProjectSaved(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestCompare(t *testing.T) {
	store := &countingStore{Store: repository.NewMemoryStore()}
	svc := newTestService(store, cache.NewMemoryCache(), nil)
	ctx := context.Background()

	fast := baseRecord()
	fast.Scenario.Name = "Fast"
	fast.Scenario.SubscriberGrowthRate = 35
	fast.Financials.Capex = 5000
	_, err := svc.Save(ctx, "fast", fast)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "base", baseRecord())
	require.NoError(t, err)

	cmp, err := svc.Compare(ctx, []string{"fast", "base", "fast"})
	require.NoError(t, err)

	require.Len(t, cmp.Summary, 2)
	assert.Equal(t, "fast", cmp.Summary[0].Name)
	assert.Equal(t, "Fast (35% subs/yr)", cmp.Summary[0].Description)
	assert.Equal(t, "Base (20% subs/yr)", cmp.Summary[1].Description)
	assert.Equal(t, -1, cmp.Summary[1].Metrics.BreakevenYear)
	assert.Len(t, cmp.Results, 2)
	assert.Equal(t, cmp.Results["fast"].Metrics, cmp.Summary[0].Metrics)
	assert.Equal(t, int32(2), store.loads.Load())
}

func TestCompare_UsesBulkLoader(t *testing.T) {
	store := &bulkStore{MemoryStore: repository.NewMemoryStore()}
	svc := newTestService(store, nil, nil)
	ctx := context.Background()
	_, err := svc.Save(ctx, "a", baseRecord())
	require.NoError(t, err)
	_, err = svc.Save(ctx, "b", baseRecord())
	require.NoError(t, err)

	cmp, err := svc.Compare(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, cmp.Results, 2)
	assert.Equal(t, 1, store.bulkCalls)
}

func TestCompare_Errors(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), nil, nil)
	ctx := context.Background()

	_, err := svc.Compare(ctx, nil)
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	_, err = svc.Save(ctx, "a", baseRecord())
	require.NoError(t, err)
	_, err = svc.Compare(ctx, []string{"a", "missing"})
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestReversePricing(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), nil, nil)
	ctx := context.Background()

	report, err := svc.ReversePricing(ctx, baseConfig(), baseFinancials(), projection.PricingOptions{
		IncludeCapex: true, AmortizeYears: 3, Margin: 0.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 300, report.Fees[0], 1e-9)
	assert.Len(t, report.Fees, 5)

	_, err = svc.ReversePricing(ctx, baseConfig(), baseFinancials(), projection.PricingOptions{Margin: -1})
	assert.ErrorIs(t, err, projection.ErrInvalidInput)
}

func TestEmailReport(t *testing.T) {
	store := repository.NewMemoryStore()
	mailer := &mockMailer{}
	svc := newTestService(store, nil, mailer)
	ctx := context.Background()
	_, err := svc.Save(ctx, "base", baseRecord())
	require.NoError(t, err)

	report, err := svc.EmailReport(ctx, "base", "cfo@example.com", projection.PricingOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cfo@example.com", mailer.to)
	assert.Equal(t, report, mailer.report)
	assert.True(t, strings.HasPrefix(string(mailer.attachment), "Year,Subscribers,"))

	mailer.err = errors.New("smtp down")
	_, err = svc.EmailReport(ctx, "base", "cfo@example.com", projection.PricingOptions{})
	assert.Error(t, err)

	noMail := newTestService(store, nil, nil)
	_, err = noMail.EmailReport(ctx, "base", "cfo@example.com", projection.PricingOptions{})
	assert.ErrorIs(t, err, ErrMailerDisabled)
}

func TestStoredRecordHorizonIsBounded(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	rec := baseRecord()
	rec.Financials.Years = 1_000_000_000
	require.NoError(t, store.Save(ctx, "endless", rec))
	_, err := svc.Save(ctx, "base", baseRecord())
	require.NoError(t, err)

	_, err = svc.ProjectSaved(ctx, "endless")
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	_, err = svc.Report(ctx, "endless", projection.PricingOptions{})
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	_, err = svc.Compare(ctx, []string{"base", "endless"})
	assert.ErrorIs(t, err, projection.ErrInvalidInput)
	assert.Contains(t, err.Error(), "endless")

	rec.Financials.Years = MaxYears
	require.NoError(t, store.Save(ctx, "longest", rec))
	p, err := svc.ProjectSaved(ctx, "longest")
	require.NoError(t, err)
	assert.Len(t, p.Subscribers, MaxYears)
}

func TestOverflowingInputsAreRejected(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, cache.NewMemoryCache(), nil)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.OpexGrowthRate = 1e200

	_, err := svc.Project(ctx, cfg, baseFinancials())
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	rec := baseRecord()
	rec.Scenario = cfg
	_, err = svc.Save(ctx, "huge", rec)
	assert.ErrorIs(t, err, projection.ErrInvalidInput)

	_, err = store.Load(ctx, "huge")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}
