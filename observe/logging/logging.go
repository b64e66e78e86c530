// Package logging writes coop channel and mutex events to a logrus logger.
// Regular traffic is logged at debug level; misuse at warn.
package logging

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NetPo4ki/go-coop/coop"
)

type Observer struct {
	log *logrus.Entry
}

var _ coop.Observer = (*Observer)(nil)

// New returns an Observer writing to l, or to logrus.StandardLogger when l
// is nil.
func New(l *logrus.Logger) *Observer {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Observer{log: logrus.NewEntry(l)}
}

func (o *Observer) channel(name string) *logrus.Entry {
	return o.log.WithFields(logrus.Fields{"primitive": "channel", "name": name})
}

func (o *Observer) mutex(name string) *logrus.Entry {
	return o.log.WithFields(logrus.Fields{"primitive": "mutex", "name": name})
}

func (o *Observer) Sent(name string, handoff bool) {
	o.channel(name).WithField("handoff", handoff).Debug("sent")
}

func (o *Observer) Received(name string, wait time.Duration, closed bool) {
	e := o.channel(name).WithField("wait", wait)
	if closed {
		e.Debug("receive rejected: end of stream")
		return
	}
	e.Debug("received")
}

func (o *Observer) Closed(name string) {
	o.channel(name).Debug("closed")
}

func (o *Observer) Acquired(name string, wait time.Duration) {
	o.mutex(name).WithField("wait", wait).Debug("acquired")
}

func (o *Observer) Released(name string, held time.Duration, handoff bool) {
	o.mutex(name).WithFields(logrus.Fields{"held": held, "handoff": handoff}).Debug("released")
}

func (o *Observer) Misused(name string, err error) {
	e := o.log.WithField("name", name)
	switch {
	case errors.Is(err, coop.ErrSendOnClosed):
		e = o.channel(name)
	case errors.Is(err, coop.ErrGuardReleased):
		e = o.mutex(name)
	}
	e.WithError(err).Warn("misuse")
}
