package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Cycler runs one poll cycle
type Cycler interface {
	Cycle(ctx context.Context) (CycleStats, error)
}

var _ Cycler = (*Pipeline)(nil)

// Loop runs c immediately and then every interval until ctx is done. A
// failing or panicking cycle is logged and retried on the next tick. With
// once set, Loop returns after the first cycle with its error.
func Loop(ctx context.Context, c Cycler, interval time.Duration, once bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("roomwatch started", "interval", interval.String(), "once", once)

	err := safeCycle(ctx, c, logger)
	if once {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			_ = safeCycle(ctx, c, logger)
		}
	}
}

func safeCycle(ctx context.Context, c Cycler, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	logger.Info("starting cycle")
	if _, err = c.Cycle(ctx); err != nil {
		logger.Warn("cycle aborted", "error", err)
	}
	return err
}
