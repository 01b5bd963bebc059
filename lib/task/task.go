// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task defines the progress sink long-running operations
// report into, and a recording implementation of it.
package task

import (
	"log/slog"
	"sync"
)

// Indeterminate is the progress value for work whose completion
// fraction is unknown.
const Indeterminate = -1.0

// Context receives progress from a long-running operation. The label
// names the current phase, progress is Indeterminate or a fraction in
// [0, 1], and Log appends one human-readable line. Implementations
// must be safe for concurrent use.
type Context interface {
	SetTask(label string)
	SetProgress(progress float64)
	Log(line string)
}

// Recorder is a Context that keeps everything it is told. Lines are
// optionally mirrored to a logger as they arrive.
type Recorder struct {
	mu       sync.Mutex
	label    string
	progress float64
	lines    []string
	logger   *slog.Logger
	notify   chan struct{}
}

// NewRecorder returns a Recorder with Indeterminate progress. A nil
// logger disables mirroring.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		progress: Indeterminate,
		logger:   logger,
		notify:   make(chan struct{}, 1),
	}
}

// SetTask sets the phase label.
func (r *Recorder) SetTask(label string) {
	r.mu.Lock()
	r.label = label
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Debug("task", "label", label)
	}
	r.signal()
}

// SetProgress sets the completion fraction. Values outside [0, 1]
// other than Indeterminate are clamped.
func (r *Recorder) SetProgress(progress float64) {
	if progress != Indeterminate {
		progress = min(max(progress, 0), 1)
	}
	r.mu.Lock()
	r.progress = progress
	r.mu.Unlock()
	r.signal()
}

// Log appends a line.
func (r *Recorder) Log(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Info(line)
	}
	r.signal()
}

// Task returns the current phase label.
func (r *Recorder) Task() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.label
}

// Progress returns the current completion fraction.
func (r *Recorder) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Lines returns a copy of the log.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Changed returns a channel that receives after any update. Updates
// that arrive while a notification is pending coalesce into it.
func (r *Recorder) Changed() <-chan struct{} {
	return r.notify
}

func (r *Recorder) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}
