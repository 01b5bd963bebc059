// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/patchbay/lib/testutil"
)

func TestRecorderStartsIndeterminate(t *testing.T) {
	recorder := NewRecorder(nil)
	if recorder.Progress() != Indeterminate {
		t.Errorf("Progress() = %v, want Indeterminate", recorder.Progress())
	}
	if recorder.Task() != "" {
		t.Errorf("Task() = %q, want empty", recorder.Task())
	}
	if len(recorder.Lines()) != 0 {
		t.Errorf("Lines() = %v, want empty", recorder.Lines())
	}
}

func TestRecorderClampsProgress(t *testing.T) {
	recorder := NewRecorder(nil)
	for _, test := range []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{1.7, 1},
		{-0.3, 0},
		{Indeterminate, Indeterminate},
	} {
		recorder.SetProgress(test.in)
		if got := recorder.Progress(); got != test.want {
			t.Errorf("SetProgress(%v): Progress() = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestRecorderLinesAreSnapshots(t *testing.T) {
	recorder := NewRecorder(nil)
	recorder.Log("first")
	lines := recorder.Lines()
	recorder.Log("second")

	if len(lines) != 1 {
		t.Errorf("snapshot grew to %v", lines)
	}
	if got := recorder.Lines(); len(got) != 2 || got[1] != "second" {
		t.Errorf("Lines() = %v", got)
	}
}

func TestRecorderMirrorsToLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, nil))
	recorder := NewRecorder(logger)
	recorder.Log("Installation succeeded")

	if !strings.Contains(buffer.String(), "Installation succeeded") {
		t.Errorf("logger output %q missing line", buffer.String())
	}
}

func TestRecorderChangedSignals(t *testing.T) {
	recorder := NewRecorder(nil)
	recorder.SetTask("Installing")
	recorder.Log("a")

	// Two updates coalesce into one pending notification.
	testutil.RequireReceive(t, recorder.Changed(), 5*time.Second, "waiting for change")
	testutil.RequireNoReceive(t, recorder.Changed(), 10*time.Millisecond, "notifications did not coalesce")
}

func TestRecorderConcurrentUse(t *testing.T) {
	recorder := NewRecorder(nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				recorder.Log("line")
				recorder.SetProgress(0.5)
			}
		}()
	}
	wg.Wait()
	if got := len(recorder.Lines()); got != 800 {
		t.Errorf("len(Lines()) = %d, want 800", got)
	}
}
