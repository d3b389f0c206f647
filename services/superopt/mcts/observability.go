// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AleutianAI/AleutianSuperopt/services/superopt/reward"
)

const tracerName = "aleutian.superopt"

// Tracer provides OpenTelemetry tracing for search runs.
//
// Spans go to the global TracerProvider; with tracing disabled every Start
// returns a noop span. Run durations are recorded on the global
// MeterProvider when metrics are enabled.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	enabled     bool
	traceEpochs bool

	duration metric.Float64Histogram
	saved    metric.Int64Histogram
}

// NewTracer creates a tracer.
//
// Inputs:
//   - logger: Logger for structured logging (nil uses slog.Default).
//   - config: Observability configuration.
func NewTracer(logger *slog.Logger, config ObservabilityConfig) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracer{
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
		enabled:     config.TracingEnabled,
		traceEpochs: config.TracingEnabled && config.TraceEpochs,
	}
	if config.MetricsEnabled {
		t.initInstruments()
	}
	return t
}

func (t *Tracer) initInstruments() {
	meter := otel.Meter(tracerName)

	duration, err := meter.Float64Histogram("superopt.search.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of one search run"),
	)
	if err != nil {
		t.logger.Warn("create search duration histogram", slog.String("error", err.Error()))
	} else {
		t.duration = duration
	}

	saved, err := meter.Int64Histogram("superopt.search.saved_cost",
		metric.WithDescription("Cost saved by the best program of a run, 0 when none was found"),
	)
	if err != nil {
		t.logger.Warn("create saved cost histogram", slog.String("error", err.Error()))
	} else {
		t.saved = saved
	}
}

// StartSearch starts the span covering one search run.
func (t *Tracer) StartSearch(ctx context.Context, runID string, worker int, config SearchConfig, ref reward.Reference) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "superopt.search",
		trace.WithAttributes(
			attribute.String("superopt.run_id", runID),
			attribute.Int("superopt.worker", worker),
			attribute.Int("superopt.epochs", config.Epochs),
			attribute.Int("superopt.rollout_steps", config.RolloutSteps),
			attribute.Float64("superopt.exploration_constant", config.ExplorationConstant),
			attribute.Int("superopt.reference.cost", ref.Cost),
			attribute.Int("superopt.reference.outputs", len(ref.Output)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSearch records the run metrics and completes the run span.
func (t *Tracer) EndSearch(ctx context.Context, span trace.Span, out *Outcome, elapsed time.Duration, err error) {
	t.recordRun(ctx, out, elapsed)

	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if out != nil {
		span.SetAttributes(
			attribute.Int("superopt.result.epochs", out.Epochs),
			attribute.Bool("superopt.result.cancelled", out.Cancelled),
			attribute.Int("superopt.result.nodes", out.Stats.Nodes),
			attribute.Int("superopt.result.max_depth", out.Stats.MaxDepth),
			attribute.Bool("superopt.result.found", out.Best != nil),
		)
		if out.Best != nil {
			span.SetAttributes(
				attribute.Int("superopt.result.improvement", out.Best.Improvement),
				attribute.Int("superopt.result.cost", out.Best.Result.Cost),
			)
		}
	}

	span.End()
}

func (t *Tracer) recordRun(ctx context.Context, out *Outcome, elapsed time.Duration) {
	if out == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Int("worker", out.Worker),
		attribute.Bool("cancelled", out.Cancelled),
	)
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if t.saved != nil {
		saved := int64(0)
		if out.Best != nil {
			saved = int64(out.Best.Improvement)
		}
		t.saved.Record(ctx, saved, attrs)
	}
}

// TraceEpoch starts a span for one epoch when epoch tracing is on.
func (t *Tracer) TraceEpoch(ctx context.Context, epoch int) (context.Context, trace.Span) {
	if !t.traceEpochs {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "superopt.epoch",
		trace.WithAttributes(attribute.Int("superopt.epoch", epoch)),
	)
}

// EndEpoch completes an epoch span.
func (t *Tracer) EndEpoch(span trace.Span, depth, expanded, outcome int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("superopt.epoch.depth", depth),
		attribute.Int("superopt.epoch.children", expanded),
		attribute.Int("superopt.epoch.outcome", outcome),
	)
	span.End()
}

// RecordImprovement logs a new best program and adds an event to the span
// in ctx. A nil logger falls back to the tracer's own.
func (t *Tracer) RecordImprovement(ctx context.Context, logger *slog.Logger, best *Best) {
	if logger == nil {
		logger = t.logger
	}
	logger.InfoContext(ctx, "found improved program",
		slog.Int("epoch", best.Epoch),
		slog.Int("improvement", best.Improvement),
		slog.Int("cost", best.Result.Cost),
		slog.Int("length", best.Program.Len()),
	)

	if !t.enabled {
		return
	}
	trace.SpanFromContext(ctx).AddEvent("superopt.improvement",
		trace.WithAttributes(
			attribute.Int("epoch", best.Epoch),
			attribute.Int("improvement", best.Improvement),
			attribute.Int("cost", best.Result.Cost),
			attribute.String("fingerprint", best.Program.Fingerprint()),
		),
	)
}
