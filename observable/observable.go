// Package observable wraps a value with change notification. Each receiver
// gets its own stream of snapshots delivered by a coop.Broadcast.
package observable

import (
	"sync"

	"github.com/NetPo4ki/go-coop/coop"
)

type Observable[T any] struct {
	mu    sync.Mutex
	value T
	bc    *coop.Broadcast[T]
}

// New wraps v. Options are applied to every receiver channel.
func New[T any](v T, optFns ...coop.Option) *Observable[T] {
	return &Observable[T]{value: v, bc: coop.NewBroadcast[T](optFns...)}
}

func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set stores v and notifies every receiver.
func (o *Observable[T]) Set(v T) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	return o.bc.Send(v)
}

// Update mutates the value in place and notifies every receiver.
func (o *Observable[T]) Update(fn func(*T)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.value)
	return o.bc.Send(o.value)
}

// Notify sends the current value to every receiver.
func (o *Observable[T]) Notify() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bc.Send(o.value)
}

func (o *Observable[T]) Receiver() coop.Receiver[T] { return o.bc.Receiver() }

// RemoveReceiver stops notifying r and then closes it. Notifications already
// queued on r are still delivered before its iteration ends. Detaching
// happens under the notify lock, so no in-flight Set can reach r after it
// is closed; the close itself runs unlocked so observer hooks may notify.
func (o *Observable[T]) RemoveReceiver(r coop.Receiver[T]) {
	o.mu.Lock()
	o.bc.RemoveReceiver(r)
	o.mu.Unlock()
	o.bc.CloseReceiver(r)
}

// Close ends every receiver's stream. Receivers are kept, so a later
// Notify reports coop.ErrSendOnClosed for each of them.
func (o *Observable[T]) Close() { o.bc.Close() }

// Receivers reports the number of attached receivers.
func (o *Observable[T]) Receivers() int { return o.bc.Len() }
