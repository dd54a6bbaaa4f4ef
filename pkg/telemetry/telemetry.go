package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitTelemetry starts Go runtime instrumentation, registers connection pool
// gauges and initializes the business metrics.
func InitTelemetry(provider *metric.MeterProvider, pool *pgxpool.Pool) error {
	if err := runtime.Start(
		runtime.WithMeterProvider(provider),
		runtime.WithMinimumReadMemStatsInterval(15*time.Second),
	); err != nil {
		slog.Error("Error starting runtime instrumentation", slog.String("error", err.Error()))
		return err
	}

	if err := registerPoolMetrics(provider, pool); err != nil {
		return err
	}

	return InitBusinessMetrics(provider)
}

func registerPoolMetrics(provider *metric.MeterProvider, pool *pgxpool.Pool) error {
	meter := provider.Meter("db_pool")

	totalConns, err := meter.Int64ObservableGauge("db.pool.connections.total",
		api.WithDescription("Total connections in the pool"))
	if err != nil {
		return err
	}

	idleConns, err := meter.Int64ObservableGauge("db.pool.connections.idle",
		api.WithDescription("Idle connections in the pool"))
	if err != nil {
		return err
	}

	acquiredConns, err := meter.Int64ObservableGauge("db.pool.connections.acquired",
		api.WithDescription("Connections currently acquired from the pool"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o api.Observer) error {
		stat := pool.Stat()
		o.ObserveInt64(totalConns, int64(stat.TotalConns()))
		o.ObserveInt64(idleConns, int64(stat.IdleConns()))
		o.ObserveInt64(acquiredConns, int64(stat.AcquiredConns()))
		return nil
	}, totalConns, idleConns, acquiredConns)
	return err
}
