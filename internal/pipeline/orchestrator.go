package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer = otel.Tracer("trendscope/internal/pipeline")

// Orchestrator drives one query through research, analysis, and report in
// strict order. It owns the per-run event stream; stages never emit events
// themselves.
type Orchestrator struct {
	research *ResearchStage
	analysis *AnalysisStage
	report   *ReportStage
	logger   *log.Logger
}

// NewOrchestrator wires the three stages together.
func NewOrchestrator(research *ResearchStage, analysis *AnalysisStage, report *ReportStage, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Orchestrator{research: research, analysis: analysis, report: report, logger: logger}
}

// Run starts the pipeline for query and returns its event stream. The channel
// carries stage transitions in order, then either result+done or a single
// terminal error event, and is always closed when the run finishes. Cancelling
// ctx aborts the run; no further events are delivered after cancellation.
func (o *Orchestrator) Run(ctx context.Context, query string) <-chan Event {
	events := make(chan Event, 1)
	runID := "pipeline-" + uuid.NewString()[:8]
	go o.run(ctx, runID, query, events)
	return events
}

func (o *Orchestrator) run(ctx context.Context, runID, query string, out chan<- Event) {
	defer close(out)

	ctx, span := pipelineTracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	emit := func(e Event) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordRunOutcome(ctx, string(KindOf(err)))
		o.logger.Printf("run %s failed: %v", runID, err)
		emit(errorEvent(err))
	}

	o.logger.Printf("run %s started: %q", runID, query)
	started := time.Now()

	if !emit(stageEvent(StageResearching, "Searching the web...", false)) {
		return
	}
	summary, err := o.runResearch(ctx, query)
	if err != nil {
		fail(err)
		return
	}
	if !emit(stageEvent(StageResearching, "Research complete", true)) {
		return
	}

	if !emit(stageEvent(StageAnalysing, "Analysing findings...", false)) {
		return
	}
	analysis, err := o.runAnalysis(ctx, summary)
	if err != nil {
		fail(err)
		return
	}
	if !emit(stageEvent(StageAnalysing, "Analysis complete", true)) {
		return
	}

	if !emit(stageEvent(StageWriting, "Writing report...", false)) {
		return
	}
	report, err := o.runReport(ctx, analysis)
	if err != nil {
		fail(err)
		return
	}
	if !emit(stageEvent(StageWriting, "Report ready", true)) {
		return
	}

	if !emit(resultEvent(report)) {
		return
	}
	recordRunOutcome(ctx, "ok")
	o.logger.Printf("run %s finished in %s", runID, time.Since(started).Round(time.Millisecond))
	emit(doneEvent())
}

func (o *Orchestrator) runResearch(ctx context.Context, query string) (string, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.research")
	defer span.End()
	start := time.Now()
	summary, err := o.research.Run(ctx, query)
	recordStageDuration(ctx, StageResearching, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return summary, err
}

func (o *Orchestrator) runAnalysis(ctx context.Context, summary string) (AnalysisResult, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.analysis")
	defer span.End()
	start := time.Now()
	result, err := o.analysis.Run(ctx, summary)
	recordStageDuration(ctx, StageAnalysing, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (o *Orchestrator) runReport(ctx context.Context, analysis AnalysisResult) (FinalReport, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.report")
	defer span.End()
	start := time.Now()
	report, err := o.report.Run(ctx, analysis)
	recordStageDuration(ctx, StageWriting, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return report, err
}
