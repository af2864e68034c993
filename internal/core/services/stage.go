package services

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

type stageKey struct{}

// stageFunc is told when a turn enters a new state.
type stageFunc func(domain.TurnState)

// withStage returns a context that reports stage changes to fn.
func withStage(ctx context.Context, fn stageFunc) context.Context {
	return context.WithValue(ctx, stageKey{}, fn)
}

func stageFrom(ctx context.Context) stageFunc {
	fn, _ := ctx.Value(stageKey{}).(stageFunc)
	return fn
}

func (fn stageFunc) enter(s domain.TurnState) {
	if fn != nil {
		fn(s)
	}
}
