package coop

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrGuardReleased is returned by Guard.Release when the guard no longer
// owns the lock.
var ErrGuardReleased = errors.New("coop: guard already released")

// Mutex is a FIFO-fair lock. Release hands the lock directly to the oldest
// waiter, so it never appears free while someone is queued. The zero value
// is an unlocked Mutex. A Mutex must not be copied after first use.
type Mutex struct {
	once sync.Once
	cell *lockCell
}

// lockCell is the state shared by a Mutex and every Guard it issues.
type lockCell struct {
	mu      sync.Mutex
	locked  bool
	ticket  uint64
	since   time.Time
	waiters []*acquirer

	opts Options
	obs  Observer
}

type acquirer struct {
	ch    chan Guard
	since time.Time
}

// Guard is ownership of a Mutex's critical section. Every grant shares the
// mutex's state but carries its own ticket, so a guard whose ownership has
// moved on cannot release the lock again.
type Guard struct {
	cell   *lockCell
	ticket uint64
}

func NewMutex(optFns ...Option) *Mutex {
	opts := buildOptions(optFns)
	return &Mutex{cell: &lockCell{opts: opts, obs: opts.Observer}}
}

func (m *Mutex) state() *lockCell {
	m.once.Do(func() {
		if m.cell == nil {
			m.cell = &lockCell{}
		}
	})
	return m.cell
}

// Acquire waits for the lock. If ctx ends first the queued request is
// withdrawn; a grant that raced with cancellation is kept and returned.
func (m *Mutex) Acquire(ctx context.Context) (Guard, error) {
	if err := ctx.Err(); err != nil {
		return Guard{}, err
	}
	c := m.state()
	g, a := c.acquire()
	if a == nil {
		return g, nil
	}
	select {
	case g = <-a.ch:
		return g, nil
	case <-ctx.Done():
	}
	if c.withdraw(a) {
		return Guard{}, ctx.Err()
	}
	return <-a.ch, nil
}

// AcquireAsync queues an acquire and returns its deferred Guard. The request
// holds its FIFO position from the moment AcquireAsync returns.
func (m *Mutex) AcquireAsync() <-chan Guard {
	g, a := m.state().acquire()
	if a != nil {
		return a.ch
	}
	ch := make(chan Guard, 1)
	ch <- g
	return ch
}

// TryAcquire takes the lock only if it is free.
func (m *Mutex) TryAcquire() (Guard, bool) {
	c := m.state()
	c.mu.Lock()
	if c.locked {
		c.mu.Unlock()
		return Guard{}, false
	}
	c.locked = true
	g := c.grantLocked()
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.Acquired(c.opts.Name, 0)
	}
	return g, true
}

// Locked reports whether some guard currently holds the lock.
func (m *Mutex) Locked() bool {
	c := m.state()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// Waiting reports the number of queued acquirers.
func (m *Mutex) Waiting() int {
	c := m.state()
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Held reports whether g still owns the lock.
func (g Guard) Held() bool {
	if g.cell == nil {
		return false
	}
	g.cell.mu.Lock()
	defer g.cell.mu.Unlock()
	return g.cell.locked && g.cell.ticket == g.ticket
}

// Release passes the lock to the oldest waiter, or unlocks when none is
// queued. Releasing a guard that no longer owns the lock returns
// ErrGuardReleased and changes nothing.
func (g Guard) Release() error {
	c := g.cell
	if c == nil {
		return ErrGuardReleased
	}
	c.mu.Lock()
	if !c.locked || c.ticket != g.ticket {
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Misused(c.opts.Name, ErrGuardReleased)
		}
		return ErrGuardReleased
	}
	held := time.Since(c.since)
	if len(c.waiters) == 0 {
		c.locked = false
		c.ticket++
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Released(c.opts.Name, held, false)
		}
		return nil
	}
	a := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	a.ch <- c.grantLocked()
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.Released(c.opts.Name, held, true)
		c.obs.Acquired(c.opts.Name, time.Since(a.since))
	}
	return nil
}

func (c *lockCell) acquire() (Guard, *acquirer) {
	c.mu.Lock()
	if !c.locked {
		c.locked = true
		g := c.grantLocked()
		c.mu.Unlock()
		if c.obs != nil {
			c.obs.Acquired(c.opts.Name, 0)
		}
		return g, nil
	}
	a := &acquirer{ch: make(chan Guard, 1), since: time.Now()}
	c.waiters = append(c.waiters, a)
	c.mu.Unlock()
	return Guard{}, a
}

func (c *lockCell) grantLocked() Guard {
	c.ticket++
	c.since = time.Now()
	return Guard{cell: c, ticket: c.ticket}
}

func (c *lockCell) withdraw(a *acquirer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.waiters, a)
	if i < 0 {
		return false
	}
	c.waiters = slices.Delete(c.waiters, i, i+1)
	return true
}
