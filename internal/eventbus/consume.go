package eventbus

import "context"

// Consume reads typed events from sub until ctx is cancelled or the
// subscription closes, invoking handler once per event in arrival order.
// The returned channel is closed after the last handler call has returned,
// so callers can wait for in-flight work before declaring teardown complete.
func Consume[T any](ctx context.Context, sub *TypedSubscription[T], handler func(TypedEnvelope[T])) <-chan struct{} {
	done := make(chan struct{})
	if sub == nil || handler == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-sub.C():
				if !ok {
					return
				}
				// Cancellation wins over a pending event.
				if ctx.Err() != nil {
					return
				}
				handler(env)
			}
		}
	}()
	return done
}
