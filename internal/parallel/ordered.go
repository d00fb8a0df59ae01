package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// handle refers to a single in-flight or completed mapFunc call.
type handle[D any] struct {
	done chan struct{}
	d    D
	e    error
}

func (h *handle[D]) wait(ctx context.Context) (D, error) {
	select {
	case <-h.done:
		return h.d, h.e
	case <-ctx.Done():
		var zero D
		return zero, ctx.Err()
	}
}

// Ordered runs mapFunc for each input element in its own goroutine and yields
// the results in the input order, regardless of the order in which the calls
// finish. Typical usage is
//
//	for result, err := range parallel.NewOrdered(ctx, limit, mapFunc).Iter(input) {}
//
// At most limit calls are started and not yet consumed by the caller at any
// time. The dispatcher acquires a permit before starting a call and the
// permit is released once the caller has consumed the result, so a slow
// consumer blocks the reading of further input.
//
// Ordered is context aware, canceling the context or breaking out of the
// loop stops the dispatching and cancels the context passed to running
// mapFuncs. It does not wait for them to return.
type Ordered[E, D any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	g       errgroup.Group
	permits *semaphore.Weighted
	queue   chan *handle[D]
	mapFunc func(context.Context, E) (D, error)
}

// NewOrdered returns Ordered with given limit. Limit lower than one is
// treated as one, which processes inputs strictly one after another.
func NewOrdered[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Ordered[E, D] {
	limit = max(limit, 1)
	ctx, cancel := context.WithCancel(parentCtx)
	return &Ordered[E, D]{
		ctx:     ctx,
		cancel:  cancel,
		permits: semaphore.NewWeighted(int64(limit)),
		queue:   make(chan *handle[D], limit),
		mapFunc: mapFunc,
	}
}

// dispatch starts a call per element and pushes its handle to the queue.
// An error from seq is pushed as a completed handle and ends the dispatching.
func (o *Ordered[E, D]) dispatch(seq iter.Seq2[E, error]) error {
	defer close(o.queue)
	for entry, seqErr := range seq {
		if err := o.permits.Acquire(o.ctx, 1); err != nil {
			return err
		}

		h := &handle[D]{done: make(chan struct{})}
		if seqErr != nil {
			h.e = seqErr
			close(h.done)
		} else {
			o.g.Go(func() error {
				defer close(h.done)
				h.d, h.e = o.mapFunc(o.ctx, entry)
				return nil
			})
		}

		// never blocks on a full queue, as the queued handles hold permits
		select {
		case o.queue <- h:
		case <-o.ctx.Done():
			return o.ctx.Err()
		}
		if seqErr != nil {
			return nil
		}
	}
	return nil
}

// Iter consumes seq and returns the mapped results in seq order. It must be
// called once.
func (o *Ordered[E, D]) Iter(seq iter.Seq2[E, error]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer o.cancel()
		o.g.Go(func() error {
			return o.dispatch(seq)
		})

		for h := range o.queue {
			d, err := h.wait(o.ctx)
			if ctxErr := o.ctx.Err(); ctxErr != nil {
				var zero D
				_ = yield(zero, ctxErr)
				return
			}
			if !yield(d, err) {
				return
			}
			o.permits.Release(1)
		}
		if err := o.g.Wait(); err != nil {
			var zero D
			_ = yield(zero, err)
		}
	}
}
