package core

import "context"

type runIDKey struct{}
type modeKey struct{}

func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithMode(ctx context.Context, mode Mode) context.Context {
	if ctx == nil || mode == "" {
		return ctx
	}
	return context.WithValue(ctx, modeKey{}, mode)
}

func ModeFromContext(ctx context.Context) Mode {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(modeKey{}).(Mode); ok {
		return v
	}
	return ""
}
