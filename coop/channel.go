package coop

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by receive operations once the channel has
	// delivered its end of stream, and to a pending receiver rejected by Close.
	ErrClosed = errors.New("coop: channel closed")
	// ErrSendOnClosed is returned by Send after the channel has been closed.
	ErrSendOnClosed = errors.New("coop: send on closed channel")
)

// State is the phase of a Channel's state machine.
type State int

const (
	// StateEmpty: nothing buffered and nobody waiting.
	StateEmpty State = iota
	// StateReceiving: at least one receiver is queued and the buffer is empty.
	StateReceiving
	// StateBuffered: values (or the close marker) are queued and nobody waits.
	StateBuffered
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReceiving:
		return "receiver"
	case StateBuffered:
		return "data"
	case StateClosed:
		return "close"
	default:
		return "unknown"
	}
}

// Outcome is the resolution of a deferred receive: either a value or the
// end of the stream.
type Outcome[T any] struct {
	Value  T
	Closed bool
}

// Unwrap returns the value, or ErrClosed if the receive was rejected.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Closed {
		var zero T
		return zero, ErrClosed
	}
	return o.Value, nil
}

// Receiver is the receive-only surface of a Channel.
type Receiver[T any] interface {
	Receive(ctx context.Context) (T, error)
	ReceiveAsync() <-chan Outcome[T]
	TryReceive() (T, bool, error)
	All(ctx context.Context) iter.Seq[T]
	State() State
}

type entry[T any] struct {
	value    T
	sentinel bool
}

type waiter[T any] struct {
	ch    chan Outcome[T]
	since time.Time
}

// Channel is an unbounded, ordered queue with deferred receive. Either the
// buffer or the waiter queue is populated, never both. Receivers queue in
// FIFO order and each is satisfied by a distinct later Send.
type Channel[T any] struct {
	mu      sync.Mutex
	state   State
	buf     []entry[T]
	waiters []*waiter[T]

	opts Options
	obs  Observer
}

var _ Receiver[int] = (*Channel[int])(nil)

func NewChannel[T any](optFns ...Option) *Channel[T] {
	return newChannel[T](buildOptions(optFns))
}

func newChannel[T any](opts Options) *Channel[T] {
	return &Channel[T]{state: StateEmpty, opts: opts, obs: opts.Observer}
}

// State returns a snapshot of the current state.
func (c *Channel[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Len reports the number of buffered values, not counting a pending close.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.buf)
	if c.closingLocked() {
		n--
	}
	return n
}

// Waiting reports the number of queued receivers.
func (c *Channel[T]) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Send delivers v to the oldest waiting receiver, or buffers it when no one
// is waiting. A waiter is resolved before Send returns.
func (c *Channel[T]) Send(v T) error {
	c.mu.Lock()
	if c.state == StateClosed || c.closingLocked() {
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Misused(c.opts.Name, ErrSendOnClosed)
		}
		return ErrSendOnClosed
	}
	if c.state != StateReceiving {
		c.buf = append(c.buf, entry[T]{value: v})
		c.state = StateBuffered
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Sent(c.opts.Name, false)
		}
		return nil
	}
	w := c.popWaiterLocked()
	w.ch <- Outcome[T]{Value: v}
	if len(c.waiters) == 0 {
		c.state = StateEmpty
	}
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.Sent(c.opts.Name, true)
		c.obs.Received(c.opts.Name, time.Since(w.since), false)
	}
	return nil
}

// Close ends the stream. With no receiver waiting, the close is queued behind
// any buffered values. Otherwise only the oldest waiting receiver is
// rejected; the channel becomes closed once no waiters remain, and the rest
// stay pending until a later Send or Close reaches them.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.state == StateClosed || c.closingLocked() {
		c.mu.Unlock()
		return
	}
	if c.state != StateReceiving {
		c.buf = append(c.buf, entry[T]{sentinel: true})
		c.state = StateBuffered
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Closed(c.opts.Name)
		}
		return
	}
	w := c.popWaiterLocked()
	w.ch <- Outcome[T]{Closed: true}
	if len(c.waiters) == 0 {
		c.state = StateClosed
	}
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.Closed(c.opts.Name)
		c.obs.Received(c.opts.Name, time.Since(w.since), true)
	}
}

// ReceiveAsync starts a receive and returns its deferred result. The receive
// takes its place in the queue before ReceiveAsync returns. The returned
// channel yields exactly one Outcome.
func (c *Channel[T]) ReceiveAsync() <-chan Outcome[T] {
	out, w := c.receive()
	if w != nil {
		return w.ch
	}
	ch := make(chan Outcome[T], 1)
	ch <- out
	return ch
}

// Receive waits for the next value. It returns ErrClosed at end of stream.
// If ctx ends first the queued receive is withdrawn and ctx.Err() returned;
// a value that was already handed over is returned instead of being lost.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	out, w := c.receive()
	if w == nil {
		return out.Unwrap()
	}
	select {
	case out = <-w.ch:
		return out.Unwrap()
	case <-ctx.Done():
	}
	if c.withdraw(w) {
		var zero T
		return zero, ctx.Err()
	}
	return (<-w.ch).Unwrap()
}

// TryReceive takes a buffered value without queueing. ok is false when
// nothing was available.
func (c *Channel[T]) TryReceive() (v T, ok bool, err error) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return v, false, ErrClosed
	case StateBuffered:
		out := c.dequeueLocked()
		c.mu.Unlock()
		c.observeImmediate(out)
		if out.Closed {
			return v, false, ErrClosed
		}
		return out.Value, true, nil
	}
	c.mu.Unlock()
	return v, false, nil
}

// All returns an iterator over received values. Iteration stops without
// error at end of stream or when ctx ends.
func (c *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := c.Receive(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

func (c *Channel[T]) receive() (Outcome[T], *waiter[T]) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return Outcome[T]{Closed: true}, nil
	case StateBuffered:
		out := c.dequeueLocked()
		c.mu.Unlock()
		c.observeImmediate(out)
		return out, nil
	}
	w := &waiter[T]{ch: make(chan Outcome[T], 1), since: time.Now()}
	c.waiters = append(c.waiters, w)
	c.state = StateReceiving
	c.mu.Unlock()
	return Outcome[T]{}, w
}

func (c *Channel[T]) dequeueLocked() Outcome[T] {
	e := c.buf[0]
	c.buf[0] = entry[T]{}
	c.buf = c.buf[1:]
	if e.sentinel {
		c.buf = nil
		c.state = StateClosed
		return Outcome[T]{Closed: true}
	}
	if len(c.buf) == 0 {
		c.buf = nil
		c.state = StateEmpty
	}
	return Outcome[T]{Value: e.value}
}

func (c *Channel[T]) popWaiterLocked() *waiter[T] {
	w := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	if len(c.waiters) == 0 {
		c.waiters = nil
	}
	return w
}

// withdraw removes w from the queue. It reports false if w was already
// resolved.
func (c *Channel[T]) withdraw(w *waiter[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.waiters, w)
	if i < 0 {
		return false
	}
	c.waiters = slices.Delete(c.waiters, i, i+1)
	if len(c.waiters) == 0 {
		c.waiters = nil
		c.state = StateEmpty
	}
	return true
}

// closingLocked reports whether the close marker is buffered.
func (c *Channel[T]) closingLocked() bool {
	return len(c.buf) > 0 && c.buf[len(c.buf)-1].sentinel
}

func (c *Channel[T]) observeImmediate(out Outcome[T]) {
	if c.obs != nil {
		c.obs.Received(c.opts.Name, 0, out.Closed)
	}
}
