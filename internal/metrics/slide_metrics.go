package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("slide-metrics")

// SlideMetrics provides metrics collection for content-generation runs.
// A nil *SlideMetrics is valid and records nothing, so tests can skip
// metrics wiring entirely.
type SlideMetrics struct {
	slidesGeneratedCounter metric.Int64Counter
	slidesFailedCounter    metric.Int64Counter
	runDurationHistogram   metric.Float64Histogram
	runsActiveGauge        metric.Int64UpDownCounter
}

// NewSlideMetrics creates a new slide metrics collector
func NewSlideMetrics() (*SlideMetrics, error) {
	slidesGeneratedCounter, err := meter.Int64Counter(
		"deck_orchestrator.slides.generated",
		metric.WithDescription("Total number of slides generated successfully"),
		metric.WithUnit("{slide}"),
	)
	if err != nil {
		return nil, err
	}

	slidesFailedCounter, err := meter.Int64Counter(
		"deck_orchestrator.slides.failed",
		metric.WithDescription("Total number of slides that failed generation"),
		metric.WithUnit("{slide}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"deck_orchestrator.run.duration",
		metric.WithDescription("Duration of content-generation runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runsActiveGauge, err := meter.Int64UpDownCounter(
		"deck_orchestrator.runs.active",
		metric.WithDescription("Number of content-generation runs in flight"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &SlideMetrics{
		slidesGeneratedCounter: slidesGeneratedCounter,
		slidesFailedCounter:    slidesFailedCounter,
		runDurationHistogram:   runDurationHistogram,
		runsActiveGauge:        runsActiveGauge,
	}, nil
}

// RunStarted records the start of a content-generation run
func (sm *SlideMetrics) RunStarted(ctx context.Context) {
	if sm == nil {
		return
	}
	sm.runsActiveGauge.Add(ctx, 1)
}

// RunFinished records the outcome of a content-generation run
func (sm *SlideMetrics) RunFinished(ctx context.Context, duration time.Duration, generated, failed int) {
	if sm == nil {
		return
	}
	status := "completed"
	if generated == 0 {
		status = "failed"
	}
	sm.slidesGeneratedCounter.Add(ctx, int64(generated),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	sm.slidesFailedCounter.Add(ctx, int64(failed),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	sm.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	sm.runsActiveGauge.Add(ctx, -1)
}
