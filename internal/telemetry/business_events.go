package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations above the HTTP and DB layers
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("circle/social"),
	}
}

// ToggleAttrs describes a relationship toggle
type ToggleAttrs struct {
	Kind       string // "follow", "like", "bookmark"
	ActorID    string
	TargetType string // "user", "post", "comment"
	TargetID   string
}

// TraceToggle starts a span for a relationship toggle
func (be *BusinessEvents) TraceToggle(ctx context.Context, attrs ToggleAttrs) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "social.toggle."+attrs.Kind,
		trace.WithAttributes(
			attribute.String("actor.id", attrs.ActorID),
			attribute.String("target.type", attrs.TargetType),
			attribute.String("target.id", attrs.TargetID),
		),
	)
}

// RecordToggleResult annotates a toggle span with its outcome
func RecordToggleResult(span trace.Span, active bool, count int, attempts int) {
	span.SetAttributes(
		attribute.Bool("toggle.active", active),
		attribute.Int("toggle.count", count),
		attribute.Int("toggle.attempts", attempts),
	)
}

// TraceShare starts a span for a share event
func (be *BusinessEvents) TraceShare(ctx context.Context, actorID, postID, platform string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "social.share",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("post.id", postID),
			attribute.String("share.platform", platform),
		),
	)
}

// TraceCommentTree starts a span for assembling a post's comment tree
func (be *BusinessEvents) TraceCommentTree(ctx context.Context, postID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "comments.tree",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
}

// TraceCommentDelete starts a span for a cascading comment delete
func (be *BusinessEvents) TraceCommentDelete(ctx context.Context, commentID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "comments.delete",
		trace.WithAttributes(attribute.String("comment.id", commentID)),
	)
}

// TraceAudit starts a span for a counter audit pass
func (be *BusinessEvents) TraceAudit(ctx context.Context, repair bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "counters.audit",
		trace.WithAttributes(attribute.Bool("audit.repair", repair)),
	)
}

// RecordError marks the span as failed. A nil error is a no-op.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

var globalBusinessEvents = NewBusinessEvents()

// GetBusinessEvents returns the global business events tracer
func GetBusinessEvents() *BusinessEvents {
	return globalBusinessEvents
}
