// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge installs files with privileges the caller does not
// hold, by binding an installer worker through the broker and handing
// it the file paths.
//
// [Bridge.Install] blocks only its own goroutine. Binding, the worker
// call, and the broker's notifications all run elsewhere; Install
// waits in a select for whichever comes first of a result, an
// unexpected disconnect, the bind timeout, or the caller's
// cancellation, and always unbinds before returning so the worker does
// not outlive the call.
//
// Progress and outcome lines go to the caller's [task.Context]. Once
// Install has an outcome nothing more is written to it: a result that
// arrives after cancellation is dropped, not logged.
package bridge
