package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Dan9191/tea-service/internal/models"
)

var (
	// ErrRecordNotFound is returned when no record exists under a name
	ErrRecordNotFound = errors.New("scenario record not found")
	// ErrRecordMalformed is returned when a stored record misses required fields or cannot be decoded
	ErrRecordMalformed = errors.New("scenario record malformed")
	// ErrInvalidName is returned for names that cannot key a record
	ErrInvalidName = errors.New("invalid scenario name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store persists named scenario records. Writes to the same name are last-writer-wins.
type Store interface {
	Save(ctx context.Context, name string, record *models.ScenarioRecord) error
	Load(ctx context.Context, name string) (*models.ScenarioRecord, error)
	List(ctx context.Context) ([]string, error)
}

// BulkLoader is implemented by stores that can read several records in one round trip
type BulkLoader interface {
	LoadMany(ctx context.Context, names []string) (map[string]*models.ScenarioRecord, error)
}

// ValidateName checks that a name is usable as a record key
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (letters, digits, '-' and '_' only)", ErrInvalidName, name)
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrRecordNotFound, name)
}

func cloneRecord(r *models.ScenarioRecord) *models.ScenarioRecord {
	c := *r
	if r.Metrics != nil {
		m := *r.Metrics
		if r.Metrics.ROI != nil {
			roi := *r.Metrics.ROI
			m.ROI = &roi
		}
		c.Metrics = &m
	}
	return &c
}
