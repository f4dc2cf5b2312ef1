package service

import (
	"context"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"go.uber.org/zap"
)

// StopFunc tears a watch down and waits for its goroutine to exit.
type StopFunc func()

// watch calls fn with the loaded state, then reloads and calls it again after
// every change to the given collections. Bursts of changes are coalesced into
// one reload. It runs until ctx is cancelled or the returned StopFunc is called.
func watch[T any](
	ctx context.Context,
	src ChangeSource,
	collections []events.Collection,
	load func(context.Context) (T, error),
	fn func(T),
	logger *zap.Logger,
) (StopFunc, error) {
	// subscribe first so nothing written during the initial load is missed
	sub := src.Subscribe(collections...)

	initial, err := load(ctx)
	if err != nil {
		sub.Close()
		return nil, err
	}
	fn(initial)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok || !drain(sub.C) {
					return
				}
				state, err := load(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error("Failed to reload watched state", zap.Error(err))
					continue
				}
				fn(state)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// drain empties whatever is buffered. It reports false once c is closed.
func drain(c <-chan events.ChangeEvent) bool {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
