// Package coop provides small cooperative concurrency primitives: an ordered
// Channel with deferred receive, a Broadcast fan-out built from Channels, and
// a FIFO Mutex whose release hands the lock straight to the next waiter.
package coop
