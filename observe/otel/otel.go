package otel

import (
	"time"

	"github.com/NetPo4ki/go-coop/coop"
)

// Nop is a no-op implementation of coop.Observer.
type Nop struct{}

var _ coop.Observer = (*Nop)(nil)

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) Sent(string, bool)                    {}
func (*Nop) Received(string, time.Duration, bool) {}
func (*Nop) Closed(string)                        {}
func (*Nop) Acquired(string, time.Duration)       {}
func (*Nop) Released(string, time.Duration, bool) {}
func (*Nop) Misused(string, error)                {}
