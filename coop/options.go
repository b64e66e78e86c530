package coop

import "time"

type Option func(*Options)

type Options struct {
	Name     string
	Observer Observer
}

func defaultOptions() Options { return Options{} }

func buildOptions(optFns []Option) Options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithName labels a primitive for observers.
func WithName(name string) Option { return func(o *Options) { o.Name = name } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// Observer receives lifecycle events from channels and mutexes. Hooks are
// invoked after the primitive's internal lock has been released.
type Observer interface {
	Sent(name string, handoff bool)
	Received(name string, wait time.Duration, closed bool)
	Closed(name string)
	Acquired(name string, wait time.Duration)
	Released(name string, held time.Duration, handoff bool)
	Misused(name string, err error)
}

// Observers returns an Observer that forwards every event to each of obs in
// order. Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Sent(name string, handoff bool) {
	for _, o := range m {
		o.Sent(name, handoff)
	}
}

func (m multiObserver) Received(name string, wait time.Duration, closed bool) {
	for _, o := range m {
		o.Received(name, wait, closed)
	}
}

func (m multiObserver) Closed(name string) {
	for _, o := range m {
		o.Closed(name)
	}
}

func (m multiObserver) Acquired(name string, wait time.Duration) {
	for _, o := range m {
		o.Acquired(name, wait)
	}
}

func (m multiObserver) Released(name string, held time.Duration, handoff bool) {
	for _, o := range m {
		o.Released(name, held, handoff)
	}
}

func (m multiObserver) Misused(name string, err error) {
	for _, o := range m {
		o.Misused(name, err)
	}
}
