// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestCode(t *testing.T) {
	saved := VersionCode
	t.Cleanup(func() { VersionCode = saved })

	VersionCode = "42"
	if got := Code(); got != 42 {
		t.Errorf("Code() = %d, want 42", got)
	}

	VersionCode = "not-a-number"
	if got := Code(); got != 0 {
		t.Errorf("Code() with malformed VersionCode = %d, want 0", got)
	}
}

func TestInfoMentionsDebug(t *testing.T) {
	saved := DebugBuild
	t.Cleanup(func() { DebugBuild = saved })

	DebugBuild = "false"
	if strings.Contains(Info(), "debug") {
		t.Errorf("release Info() = %q mentions debug", Info())
	}

	DebugBuild = "true"
	if !Debug() {
		t.Fatal("Debug() = false with DebugBuild=true")
	}
	if !strings.Contains(Info(), "debug") {
		t.Errorf("debug Info() = %q does not mention debug", Info())
	}
}
