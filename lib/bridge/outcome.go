// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"

	"github.com/bureau-foundation/patchbay/lib/task"
)

// outcome is the single result of one Install. The first resolve wins;
// later ones are dropped. Writes to the task go through the same lock
// so none can land after the outcome is settled.
type outcome struct {
	task task.Context

	mu       sync.Mutex
	resolved bool
	err      error
	done     chan struct{}
}

func newOutcome(task task.Context) *outcome {
	return &outcome{task: task, done: make(chan struct{})}
}

// update runs fn against the task if the outcome is still open and
// reports whether it ran.
func (o *outcome) update(fn func(task.Context)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved {
		return false
	}
	fn(o.task)
	return true
}

// resolve settles the outcome with err, logging line first if it is
// not empty. Reports whether this call settled it.
func (o *outcome) resolve(line string, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved {
		return false
	}
	if line != "" {
		o.task.Log(line)
	}
	o.resolved = true
	o.err = err
	close(o.done)
	return true
}

// result returns the settled error. Only valid after done is closed.
func (o *outcome) result() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
