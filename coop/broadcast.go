package coop

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// Broadcast fans each Send and Close out to an independent Channel per
// receiver. Ordering holds within one receiver only. The zero value is an
// empty Broadcast ready to use.
type Broadcast[T any] struct {
	mu      sync.Mutex
	members map[*Channel[T]]struct{}
	opts    Options
}

func NewBroadcast[T any](optFns ...Option) *Broadcast[T] {
	return &Broadcast[T]{
		members: make(map[*Channel[T]]struct{}),
		opts:    buildOptions(optFns),
	}
}

// Receiver adds a member channel and returns its receive-only surface.
func (b *Broadcast[T]) Receiver() Receiver[T] {
	ch := newChannel[T](b.opts)
	b.mu.Lock()
	if b.members == nil {
		b.members = make(map[*Channel[T]]struct{})
	}
	b.members[ch] = struct{}{}
	b.mu.Unlock()
	return member[T]{ch: ch}
}

// RemoveReceiver drops r from the membership. It does not close r; callers
// that want r's iteration to end must arrange that first.
func (b *Broadcast[T]) RemoveReceiver(r Receiver[T]) {
	m, ok := r.(member[T])
	if !ok {
		return
	}
	b.mu.Lock()
	delete(b.members, m.ch)
	b.mu.Unlock()
}

// Len reports the current number of receivers.
func (b *Broadcast[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.members)
}

// Send sends v to every current receiver. Failures from individual members
// are joined.
func (b *Broadcast[T]) Send(v T) error {
	var errs []error
	for _, ch := range b.snapshot() {
		if err := ch.Send(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every current receiver.
func (b *Broadcast[T]) Close() {
	for _, ch := range b.snapshot() {
		ch.Close()
	}
}

// CloseReceiver closes r without touching the other receivers. It reports
// false if r did not come from a Broadcast.
func (b *Broadcast[T]) CloseReceiver(r Receiver[T]) bool {
	m, ok := r.(member[T])
	if !ok {
		return false
	}
	m.ch.Close()
	return true
}

func (b *Broadcast[T]) snapshot() []*Channel[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Channel[T], 0, len(b.members))
	for ch := range b.members {
		out = append(out, ch)
	}
	return out
}

// member hides Send from broadcast receivers.
type member[T any] struct {
	ch *Channel[T]
}

func (m member[T]) Receive(ctx context.Context) (T, error) { return m.ch.Receive(ctx) }
func (m member[T]) ReceiveAsync() <-chan Outcome[T]        { return m.ch.ReceiveAsync() }
func (m member[T]) TryReceive() (T, bool, error)           { return m.ch.TryReceive() }
func (m member[T]) All(ctx context.Context) iter.Seq[T]    { return m.ch.All(ctx) }
func (m member[T]) State() State                           { return m.ch.State() }
