package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	pipelineMetricsOnce   sync.Once
	pipelineRuns          otelmetric.Int64Counter
	pipelineStageDuration otelmetric.Float64Histogram
)

func initPipelineMetrics() {
	meter := otel.Meter("trendscope/pipeline")
	var err error
	pipelineRuns, err = meter.Int64Counter(
		"pipeline_runs_total",
		otelmetric.WithDescription("Pipeline runs by terminal outcome"),
	)
	if err != nil {
		log.Printf("pipeline metrics init: pipeline_runs_total: %v", err)
	}
	pipelineStageDuration, err = meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		otelmetric.WithDescription("Wall time spent in each pipeline stage"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		log.Printf("pipeline metrics init: pipeline_stage_duration_seconds: %v", err)
	}
}

func recordRunOutcome(ctx context.Context, outcome string) {
	pipelineMetricsOnce.Do(initPipelineMetrics)
	if pipelineRuns == nil {
		return
	}
	pipelineRuns.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordStageDuration(ctx context.Context, stage string, d time.Duration) {
	pipelineMetricsOnce.Do(initPipelineMetrics)
	if pipelineStageDuration == nil {
		return
	}
	pipelineStageDuration.Record(ctx, d.Seconds(),
		otelmetric.WithAttributes(attribute.String("stage", stage)))
}
