package session

import "context"

// pending is one cancellable background call whose single result is picked
// up by a non-blocking poll from the UI goroutine.
type pending[T any] struct {
	ch     <-chan T
	cancel context.CancelFunc
}

func run[T any](parent context.Context, fn func(ctx context.Context) T) pending[T] {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan T, 1)
	go func() {
		defer close(ch)
		v := fn(ctx)
		if ctx.Err() == nil {
			ch <- v
		}
	}()
	return pending[T]{ch: ch, cancel: cancel}
}

func (p *pending[T]) active() bool { return p.ch != nil }

// stop cancels the call; whatever it produces afterwards is dropped.
func (p *pending[T]) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	*p = pending[T]{}
}

// poll returns the result if it is ready. A channel closed without a value
// ends the call with ok == false.
func (p *pending[T]) poll() (v T, ok bool) {
	if p.ch == nil {
		return v, false
	}
	select {
	case v, ok = <-p.ch:
		p.cancel()
		*p = pending[T]{}
		return v, ok
	default:
		return v, false
	}
}
