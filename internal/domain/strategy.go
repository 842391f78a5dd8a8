package domain

import (
	"context"
	"log/slog"
)

// Strategy is one named attempt in an ordered fallback chain. Try reports
// ok=false for a miss. A returned error is logged and treated as a miss.
type Strategy[In, Out any] struct {
	Name string
	Try  func(ctx context.Context, in In) (Out, bool, error)
}

// FirstMatch runs strategies in order and returns the first hit together with
// the name of the strategy that produced it. It stops early when ctx is done.
func FirstMatch[In, Out any](ctx context.Context, logger *slog.Logger, in In, strategies ...Strategy[In, Out]) (Out, string, bool) {
	var zero Out
	for _, s := range strategies {
		if ctx.Err() != nil {
			return zero, "", false
		}
		out, ok, err := s.Try(ctx, in)
		if err != nil {
			logger.Warn("strategy failed, trying next", "strategy", s.Name, "error", err)
			continue
		}
		if ok {
			return out, s.Name, true
		}
	}
	return zero, "", false
}
