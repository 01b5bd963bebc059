// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package availability tracks whether the broker can currently be
// reached.
//
// The answer is advisory. A [Tracker] holds one boolean updated from a
// [Monitor]'s callbacks, with no history and no correlation to any
// particular request; by the time a caller acts on it the broker may
// have come or gone. Install paths must still handle an unreachable
// broker. The flag exists so a UI can grey out an install button, not
// so callers can skip error handling.
package availability
