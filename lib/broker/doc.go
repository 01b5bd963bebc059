// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package broker launches privileged workers on behalf of unprivileged
// clients and keeps them alive exactly as long as someone is bound to
// them.
//
// The [Server] runs in a privileged process and listens on a Unix
// socket. A client binds a worker by opening a "bind" stream with an
// [ipc.Descriptor]. The broker launches the component's binary (or
// reuses a running one with the same key, version tag, debug flag, and
// binary digest), waits for the worker's socket, and streams a
// "connected" event carrying the socket path. The stream stays open for
// the life of the binding: when the worker exits the broker sends
// "disconnected" with its exit code, and when the client closes the
// stream the binding ends and a non-daemon worker with no remaining
// bindings is stopped.
//
// The [Client] side delivers those events to a [Connection] on its own
// goroutine, so callers can wait on connect, disconnect, and their own
// cancellation in one select.
package broker
