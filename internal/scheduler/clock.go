package scheduler

import (
	"context"
	"runtime"
	"time"
)

// Clock is where every task yields. Sleep returns the context error when
// the run is cancelled; a zero duration only yields the processor.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

// WallClock sleeps on real timers.
func WallClock() Clock {
	return wallClock{}
}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type taskKey struct{}

func withTask(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, taskKey{}, name)
}

// TaskFromContext returns the name of the task ctx was handed to, or "".
func TaskFromContext(ctx context.Context) string {
	name, _ := ctx.Value(taskKey{}).(string)
	return name
}
