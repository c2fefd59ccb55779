package cbr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RateSource fetches a fresh reference rate
type RateSource interface {
	GetKeyRate(ctx context.Context) (*ReferenceRate, error)
}

// Refresher keeps the last fetched reference rate and refreshes it on a cron schedule
type Refresher struct {
	source  RateSource
	log     *logrus.Logger
	cron    *cron.Cron
	timeout time.Duration

	mu     sync.RWMutex
	latest *ReferenceRate
}

// NewRefresher registers the refresh job; Start runs it
func NewRefresher(source RateSource, schedule string, log *logrus.Logger) (*Refresher, error) {
	r := &Refresher{
		source:  source,
		log:     log,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}
	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start fetches once in the background and starts the scheduler
func (r *Refresher) Start() {
	go r.refresh()
	r.cron.Start()
	r.log.Info("CBR key rate refresher started")
}

// Stop halts the scheduler and waits for a running refresh
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("CBR key rate refresher stopped")
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.Refresh(ctx); err != nil {
		r.log.WithError(err).Warn("Failed to refresh CBR key rate")
	}
}

// Refresh fetches a new rate and caches it
func (r *Refresher) Refresh(ctx context.Context) (*ReferenceRate, error) {
	rate, err := r.source.GetKeyRate(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.latest = rate
	r.mu.Unlock()
	return rate, nil
}

// Current returns the cached rate, fetching live when nothing is cached yet
func (r *Refresher) Current(ctx context.Context) (*ReferenceRate, error) {
	r.mu.RLock()
	latest := r.latest
	r.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}
	return r.Refresh(ctx)
}
