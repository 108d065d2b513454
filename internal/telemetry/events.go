package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracePOIRefresh creates a span around one provider fetch + store cycle
func TracePOIRefresh(ctx context.Context, source string, lat, lng, radiusMeters float64) (context.Context, trace.Span) {
	return otel.Tracer("pois").Start(ctx, "pois.refresh",
		trace.WithAttributes(
			attribute.String("poi.source", source),
			attribute.Float64("poi.lat", lat),
			attribute.Float64("poi.lng", lng),
			attribute.Float64("poi.radius_m", radiusMeters),
		),
	)
}

// TraceThreadAllocation creates a span for a reply thread id allocation
func TraceThreadAllocation(ctx context.Context, postID string, anonymous bool) (context.Context, trace.Span) {
	return otel.Tracer("threads").Start(ctx, "threads.allocate",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.Bool("user.anonymous", anonymous),
		),
	)
}

// TraceRewardClaim creates a span for the circle reward claim transaction
func TraceRewardClaim(ctx context.Context, rewardID, circleType string) (context.Context, trace.Span) {
	return otel.Tracer("circles").Start(ctx, "circles.claim_reward",
		trace.WithAttributes(
			attribute.String("reward.id", rewardID),
			attribute.String("circle.type", circleType),
		),
	)
}

// TraceReferralClaim creates a span for the referral code redemption transaction
func TraceReferralClaim(ctx context.Context, inviteeID string) (context.Context, trace.Span) {
	return otel.Tracer("referrals").Start(ctx, "referrals.claim",
		trace.WithAttributes(attribute.String("user.id", inviteeID)),
	)
}

// TraceJob creates a root span for a scheduled job run
func TraceJob(ctx context.Context, job string) (context.Context, trace.Span) {
	return otel.Tracer("scheduler").Start(ctx, "job."+job,
		trace.WithNewRoot(),
		trace.WithAttributes(attribute.String("job.name", job)),
	)
}

// EndSpan records err (if any) on the span and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
