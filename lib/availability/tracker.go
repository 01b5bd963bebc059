// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package availability

import (
	"sync"
	"sync/atomic"
)

// Monitor reports broker channel transitions.
type Monitor interface {
	// AddReceivedListenerSticky registers fn to run whenever the
	// channel becomes available. If it is available at registration,
	// fn also runs immediately.
	AddReceivedListenerSticky(fn func())

	// AddDeadListener registers fn to run whenever the channel dies.
	AddDeadListener(fn func())
}

// Tracker is a last-write-wins availability flag.
type Tracker struct {
	available atomic.Bool
	once      sync.Once
}

// Init subscribes the tracker to monitor for the rest of the process.
// Only the first call has an effect.
func (t *Tracker) Init(monitor Monitor) {
	t.once.Do(func() {
		monitor.AddReceivedListenerSticky(func() { t.available.Store(true) })
		monitor.AddDeadListener(func() { t.available.Store(false) })
	})
}

// Available returns the last reported state. False until a monitor
// reports otherwise.
func (t *Tracker) Available() bool {
	return t.available.Load()
}

// Default is the process-wide tracker.
var Default = &Tracker{}

// Init subscribes Default to monitor.
func Init(monitor Monitor) {
	Default.Init(monitor)
}

// Available reports Default's state.
func Available() bool {
	return Default.Available()
}
