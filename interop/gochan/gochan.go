// Package gochan bridges coop channels and native Go channels, so coop
// receivers can sit in select statements and existing producers can feed a
// coop.Channel.
package gochan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-coop/coop"
)

// ToChan forwards every value received from r to the returned channel. The
// channel is closed when r reaches end of stream or ctx ends. A value already
// taken from r but not yet read from the returned channel when ctx ends is
// dropped.
func ToChan[T any](ctx context.Context, r coop.Receiver[T]) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range r.All(ctx) {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// FromChan sends every value read from ch into dst and closes dst once ch is
// closed. It blocks until then, or until ctx ends or dst rejects a send.
func FromChan[T any](ctx context.Context, ch <-chan T, dst *coop.Channel[T]) error {
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				dst.Close()
				return nil
			}
			if err := dst.Send(v); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Merge drains every source into dst concurrently and closes dst when all of
// them reach end of stream. Order is preserved per source only. On the first
// failed send, or when ctx ends, the remaining sources stop and dst is left
// open.
func Merge[T any](ctx context.Context, dst *coop.Channel[T], srcs ...coop.Receiver[T]) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range srcs {
		g.Go(func() error {
			for v := range src.All(gctx) {
				if err := dst.Send(v); err != nil {
					return err
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	dst.Close()
	return nil
}
