// Package telemetry instruments the mesh with OpenTelemetry traces and
// metrics. It uses the global tracer and meter providers, so wiring an
// exporter stays the embedding application's concern; without one the calls
// are no-ops.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/hupe1980/parkmesh"

// Instruments bundles the tracer and counters used across a mesh instance.
type Instruments struct {
	tracer           trace.Tracer
	handoffs         metric.Int64Counter
	cues             metric.Int64Counter
	cueDrops         metric.Int64Counter
	guardrailRejects metric.Int64Counter
	runs             metric.Int64Counter
}

// New creates the mesh instruments against the global providers.
func New() (*Instruments, error) {
	meter := otel.Meter(scope)

	handoffs, err := meter.Int64Counter("parkmesh.handoffs",
		metric.WithDescription("Handoff attempts by outcome"))
	if err != nil {
		return nil, err
	}

	cues, err := meter.Int64Counter("parkmesh.cues",
		metric.WithDescription("Cues queued on the bus"))
	if err != nil {
		return nil, err
	}

	cueDrops, err := meter.Int64Counter("parkmesh.cue_drops",
		metric.WithDescription("Cues dropped by reason"))
	if err != nil {
		return nil, err
	}

	guardrailRejects, err := meter.Int64Counter("parkmesh.guardrail_rejects",
		metric.WithDescription("Guardrail rejections by policy"))
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("parkmesh.runs",
		metric.WithDescription("Completed runs by status"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		tracer:           otel.Tracer(scope),
		handoffs:         handoffs,
		cues:             cues,
		cueDrops:         cueDrops,
		guardrailRejects: guardrailRejects,
		runs:             runs,
	}, nil
}

// StartRunSpan opens the root span for a run.
func (i *Instruments) StartRunSpan(ctx context.Context, runID, taskID, kind string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "parkmesh.run",
		trace.WithAttributes(
			attribute.String("parkmesh.run_id", runID),
			attribute.String("parkmesh.task_id", taskID),
			attribute.String("parkmesh.task_kind", kind),
		))
}

// StartAgentSpan opens a child span for one agent invocation.
func (i *Instruments) StartAgentSpan(ctx context.Context, agentID, taskID string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "parkmesh.agent",
		trace.WithAttributes(
			attribute.String("parkmesh.agent_id", agentID),
			attribute.String("parkmesh.task_id", taskID),
		))
}

// RecordHandoff counts one handoff attempt.
func (i *Instruments) RecordHandoff(ctx context.Context, to string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}

	i.handoffs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parkmesh.agent_id", to),
		attribute.String("parkmesh.outcome", outcome),
	))
}

// RecordCue counts one queued cue.
func (i *Instruments) RecordCue(ctx context.Context, source, target string) {
	i.cues.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parkmesh.source", source),
		attribute.String("parkmesh.target", target),
	))
}

// RecordCueDrop counts one dropped cue.
func (i *Instruments) RecordCueDrop(ctx context.Context, target, reason string) {
	i.cueDrops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parkmesh.target", target),
		attribute.String("parkmesh.reason", reason),
	))
}

// RecordGuardrailReject counts one guardrail rejection.
func (i *Instruments) RecordGuardrailReject(ctx context.Context, policy, agentID string) {
	i.guardrailRejects.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parkmesh.policy", policy),
		attribute.String("parkmesh.agent_id", agentID),
	))
}

// RecordRun counts one completed run.
func (i *Instruments) RecordRun(ctx context.Context, status string) {
	i.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parkmesh.status", status),
	))
}
