package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/events"
	"github.com/tbourn/hoststand/internal/floor"
	"github.com/tbourn/hoststand/internal/repo"
)

// Deps is what every service shares: the store, the floor rules, the
// telemetry sinks and the clock. Zero-valued sinks and clock are replaced by
// no-ops and time.Now.
type Deps struct {
	DB       *gorm.DB
	Settings FloorSettings
	Metrics  MetricsSink
	Events   EventPublisher
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().In(d.loc())
	}
	return time.Now().In(d.loc())
}

func (d Deps) loc() *time.Location {
	if d.Settings.Location != nil {
		return d.Settings.Location
	}
	return time.Local
}

func (d Deps) metrics() MetricsSink {
	if d.Metrics != nil {
		return d.Metrics
	}
	return NopMetrics{}
}

func (d Deps) observe(op string, start time.Time, err error) {
	d.metrics().ObserveOperation(op, OutcomeOf(err), time.Since(start))
}

// publish sends events after a commit. Failures are logged only.
func (d Deps) publish(ctx context.Context, evs ...events.Event) {
	if d.Events == nil {
		return
	}
	for _, ev := range evs {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = d.now().UTC()
		}
		if err := d.Events.Publish(ctx, ev); err != nil {
			logger(ctx).Warn().Err(err).Str("event", ev.Type).Msg("event publish failed")
		}
	}
}

func (d Deps) calculator() floor.Calculator {
	return floor.Calculator{Duration: d.Settings.Duration}
}

// logger returns the request logger when one is attached, else the global.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// readOnce runs an idempotent read, retrying once on a store failure.
// Not-found and cancelled contexts are not retried.
func readOnce[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || errors.Is(err, repo.ErrNotFound) || ctx.Err() != nil {
		return v, err
	}
	logger(ctx).Warn().Err(err).Str("op", op).Msg("store read failed; retrying once")
	return fn()
}

const (
	dateLayout    = "2006-01-02"
	maxIDAttempts = 5
)

// uniqueCode draws codes from gen until one is unused, up to maxIDAttempts.
func uniqueCode(ctx context.Context, db *gorm.DB, model any, gen func() string) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		code := gen()
		taken, err := repo.CodeExists(ctx, db, model, code)
		if err != nil {
			return "", translate(err, "id allocation")
		}
		if !taken {
			return code, nil
		}
	}
	return "", conflictf("could not allocate a unique id after %d attempts", maxIDAttempts)
}

// totalCapacity is the configured capacity or the sum of active tables.
func (d Deps) totalCapacity(ctx context.Context, db *gorm.DB) (int, error) {
	if d.Settings.Capacity > 0 {
		return d.Settings.Capacity, nil
	}
	tables, err := readOnce(ctx, "list-tables", func() ([]domain.Table, error) {
		return repo.ListTables(ctx, db, repo.TableFilter{})
	})
	if err != nil {
		return 0, translate(err, "tables")
	}
	return floor.TotalCapacity(tables), nil
}
