package middleware

import (
	"context"

	"github.com/toolcrib/toolcrib-backend/internal/policy"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// ActorFromContext returns the authenticated actor, or false when the
// request never passed the auth middleware.
func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	if ctx == nil {
		return policy.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(policy.Actor)
	return actor, ok
}

// AccessIDFromContext returns the session identifier carried by the token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the actor into the context; tests use it to bypass
// token parsing.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// WithAccessID injects the session identifier into the context.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
