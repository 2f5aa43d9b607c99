package live

import "context"

// Query reads the current state of some slice of the store.
type Query[T any] func(ctx context.Context) (T, error)

// Result is one emission of a watched query.
type Result[T any] struct {
	Value T
	// Version is the hub version observed before the query ran; the value
	// reflects at least every change up to it.
	Version uint64
	Err     error
}

// Watch runs query once immediately and again after every change published
// on h, until ctx is done. The returned channel is closed on exit.
func Watch[T any](ctx context.Context, h *Hub, query Query[T]) <-chan Result[T] {
	// Subscribe before the first read so no change can slip in between.
	sub := h.Subscribe()
	out := make(chan Result[T])

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			version := h.Version()
			value, err := query(ctx)
			if ctx.Err() != nil {
				return
			}

			select {
			case out <- Result[T]{Value: value, Version: version, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-sub.C():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
