// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"strconv"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version.
	Version = "0.1.0-dev"

	// VersionCode is the integer build number. Strings only, because
	// -X cannot set other types.
	VersionCode = "1"

	// DebugBuild is "true" for debug builds.
	DebugBuild = "false"
)

// Info returns a formatted version string for --version output.
func Info() string {
	debug := ""
	if Debug() {
		debug = ", debug"
	}
	return fmt.Sprintf("%s (build %d, %s, %s%s)", Version, Code(), GitCommit, BuildTime, debug)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Code returns VersionCode as an integer. A malformed value yields 0,
// which no release uses, so the broker treats such a build as
// mismatching every real one.
func Code() int {
	code, err := strconv.Atoi(VersionCode)
	if err != nil {
		return 0
	}
	return code
}

// Debug reports whether this is a debug build.
func Debug() bool {
	return DebugBuild == "true"
}
