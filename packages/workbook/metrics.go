package workbook

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("go-spreadsheet.workbook")
	meter  = otel.Meter("go-spreadsheet.workbook")
)

var (
	shiftLatency      metric.Float64Histogram
	shiftTotal        metric.Int64Counter
	structuresDropped metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		shiftLatency, err = meter.Float64Histogram(
			"workbook_shift_duration_seconds",
			metric.WithDescription("Duration of structural row and column edits"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		shiftTotal, err = meter.Int64Counter(
			"workbook_shifts_total",
			metric.WithDescription("Total number of structural row and column edits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		structuresDropped, err = meter.Int64Counter(
			"workbook_structures_dropped_total",
			metric.WithDescription("Derived structures removed because a shift made them invalid"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func direction(delta int) string {
	if delta < 0 {
		return "delete"
	}
	return "insert"
}

func startShiftSpan(ctx context.Context, shift Shift) (context.Context, trace.Span) {
	return tracer.Start(ctx, "MutationEngine.Shift",
		trace.WithAttributes(
			attribute.String("workbook.sheet", shift.Sheet),
			attribute.String("workbook.axis", shift.Axis.String()),
			attribute.String("workbook.anchor", shift.Anchor.String()),
			attribute.Int("workbook.delta", shift.Delta),
		),
	)
}

func setShiftSpanResult(span trace.Span, report *ShiftReport) {
	span.SetAttributes(
		attribute.Int("workbook.cells_moved", report.CellsMoved),
		attribute.Int("workbook.cells_removed", report.CellsRemoved),
		attribute.Int("workbook.structures_dropped", report.Dropped()),
	)
}

func recordShiftMetrics(ctx context.Context, shift Shift, duration time.Duration, report *ShiftReport) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("axis", shift.Axis.String()),
		attribute.String("direction", direction(shift.Delta)),
	)
	shiftLatency.Record(ctx, duration.Seconds(), attrs)
	shiftTotal.Add(ctx, 1, attrs)

	for kind, n := range report.droppedByKind() {
		if n == 0 {
			continue
		}
		structuresDropped.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}
