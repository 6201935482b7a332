// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the payment system.
// It tracks batch activity, cheque generation and outstanding advance
// exposure.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	batchPostedTotal     *Counter
	batchVoidedTotal     *Counter
	chequeGeneratedTotal *Counter
	chequeVoidedTotal    *Counter
	paidAmountTotal      *Counter

	// Gauge metrics (point-in-time values)
	advanceOutstanding *Gauge
	openExceptions     *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	exposureProvider ExposureMetricsProvider
}

// ExposureMetricsProvider provides payment exposure data for periodic metrics
// collection. The interface lets the telemetry layer query financial state
// without depending on the payment domain directly.
type ExposureMetricsProvider interface {
	// GetOutstandingAdvanceTotal returns the summed outstanding balance of
	// all non-cancelled advances, in cents.
	GetOutstandingAdvanceTotal(ctx context.Context) (int64, error)

	// GetOpenExceptionCount returns the number of open reconciliation
	// exceptions.
	GetOpenExceptionCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	CollectInterval  time.Duration // Default: 5 minutes
	ExposureProvider ExposureMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		exposureProvider: cfg.ExposureProvider,
	}

	var err error

	bm.batchPostedTotal, err = NewCounter(
		cfg.Meter,
		"harvestpay_batch_posted_total",
		"Total number of payment batches posted",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	bm.batchVoidedTotal, err = NewCounter(
		cfg.Meter,
		"harvestpay_batch_voided_total",
		"Total number of payment batches rolled back",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	bm.chequeGeneratedTotal, err = NewCounter(
		cfg.Meter,
		"harvestpay_cheque_generated_total",
		"Total number of cheques generated",
		"{cheques}",
	)
	if err != nil {
		return nil, err
	}

	bm.chequeVoidedTotal, err = NewCounter(
		cfg.Meter,
		"harvestpay_cheque_voided_total",
		"Total number of cheques voided",
		"{cheques}",
	)
	if err != nil {
		return nil, err
	}

	bm.paidAmountTotal, err = NewCounter(
		cfg.Meter,
		"harvestpay_paid_amount_total",
		"Total amount paid out in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.advanceOutstanding, err = NewGauge(
		cfg.Meter,
		"harvestpay_advance_outstanding_cents",
		"Current outstanding advance balance in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.openExceptions, err = NewGauge(
		cfg.Meter,
		"harvestpay_open_exceptions",
		"Number of open reconciliation exceptions",
		"{exceptions}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordBatchPosted records a successful batch posting.
func (bm *BusinessMetrics) RecordBatchPosted(ctx context.Context, paymentType string, cropYear int) {
	bm.batchPostedTotal.Inc(ctx,
		AttrPaymentType.String(paymentType),
		AttrCropYear.Int(cropYear),
	)
}

// RecordBatchVoided records a batch rollback.
func (bm *BusinessMetrics) RecordBatchVoided(ctx context.Context, paymentType string, cropYear int) {
	bm.batchVoidedTotal.Inc(ctx,
		AttrPaymentType.String(paymentType),
		AttrCropYear.Int(cropYear),
	)
}

// RecordChequeGenerated records a generated cheque.
func (bm *BusinessMetrics) RecordChequeGenerated(ctx context.Context, series, currency string) {
	bm.chequeGeneratedTotal.Inc(ctx,
		AttrChequeSeries.String(series),
		AttrCurrency.String(currency),
	)
}

// RecordChequeVoided records a voided cheque.
func (bm *BusinessMetrics) RecordChequeVoided(ctx context.Context, series, currency string) {
	bm.chequeVoidedTotal.Inc(ctx,
		AttrChequeSeries.String(series),
		AttrCurrency.String(currency),
	)
}

// RecordPaidAmount records money paid out. Amount is converted to cents for
// the counter; metrics tolerate the precision loss, the ledger does not.
func (bm *BusinessMetrics) RecordPaidAmount(ctx context.Context, currency string, amount decimal.Decimal) {
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.paidAmountTotal.Add(ctx, cents,
		AttrCurrency.String(currency),
	)
}

// RecordAdvanceOutstanding records the current total outstanding advance
// balance. This gauge is updated by the periodic collector.
func (bm *BusinessMetrics) RecordAdvanceOutstanding(ctx context.Context, cents int64) {
	bm.advanceOutstanding.Record(ctx, cents)
}

// RecordOpenExceptions records the current open exception count.
func (bm *BusinessMetrics) RecordOpenExceptions(ctx context.Context, count int64) {
	bm.openExceptions.Record(ctx, count)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// Non-blocking; use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectExposureMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectExposureMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectExposureMetrics(ctx context.Context) {
	if bm.exposureProvider == nil {
		bm.logger.Debug("No exposure provider configured, skipping exposure metrics collection")
		return
	}

	outstanding, err := bm.exposureProvider.GetOutstandingAdvanceTotal(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding advance total", zap.Error(err))
	} else {
		bm.RecordAdvanceOutstanding(ctx, outstanding)
	}

	open, err := bm.exposureProvider.GetOpenExceptionCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get open exception count", zap.Error(err))
	} else {
		bm.RecordOpenExceptions(ctx, open)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
