// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix socket request protocol shared by
// the patchbay broker and its workers.
//
// Every connection starts with one CBOR request carrying an "action"
// field. Plain actions registered with [SocketServer.Handle] answer
// with a single [Response] envelope and the connection closes. Stream
// actions registered with [SocketServer.HandleStream] take over the
// connection and write as many CBOR values as they like; the broker's
// bind is one, where the connection's lifetime is the binding's
// lifetime.
//
// Access control is the socket's file mode. The broker socket is
// created by a privileged process and only users allowed to reach the
// run directory can bind workers.
package service
