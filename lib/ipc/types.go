// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"fmt"
	"strings"
)

// Broker actions.
const (
	// ActionBind opens a long-lived binding. The broker answers with a
	// stream of BindEvent values; closing the connection unbinds.
	ActionBind = "bind"

	// ActionStatus is a one-shot request answered with StatusResponse.
	ActionStatus = "status"
)

// Worker actions.
const (
	// ActionInstall asks the installer worker to install files. The
	// request is InstallRequest; the response data is InstallResult.
	ActionInstall = "install"
)

// Bind event kinds.
const (
	// EventConnected reports the worker is running and its socket is
	// accepting connections.
	EventConnected = "connected"

	// EventDisconnected reports the worker exited. It is the last
	// event on the stream.
	EventDisconnected = "disconnected"

	// EventRefused reports the broker will not bind the descriptor. It
	// is the only event on the stream.
	EventRefused = "refused"
)

// Descriptor identifies the worker a client wants bound.
type Descriptor struct {
	// Component names the worker binary in the broker's worker table.
	Component string `cbor:"component"`

	// Daemon keeps the worker running after the binding that started
	// it goes away. When false the broker kills the worker on unbind.
	Daemon bool `cbor:"daemon"`

	// ProcessNameSuffix isolates this binding's worker from other
	// workers of the same component.
	ProcessNameSuffix string `cbor:"process_name_suffix"`

	// Debug starts the worker with debug logging. A running worker
	// with a different debug flag is relaunched.
	Debug bool `cbor:"debug"`

	// Version is the client's version tag. A running worker started
	// for a different version is relaunched.
	Version int `cbor:"version"`
}

// Key is the broker's identity for a running worker.
func (d Descriptor) Key() string {
	return d.Component + ":" + d.ProcessNameSuffix
}

// Validate reports descriptor fields the broker cannot act on.
func (d Descriptor) Validate() error {
	if d.Component == "" {
		return fmt.Errorf("descriptor: component is required")
	}
	if d.ProcessNameSuffix == "" {
		return fmt.Errorf("descriptor: process_name_suffix is required")
	}
	// Both parts name the worker's socket file.
	for _, part := range []string{d.Component, d.ProcessNameSuffix} {
		if strings.ContainsAny(part, "/:") || part == "." || part == ".." {
			return fmt.Errorf("descriptor: %q may not contain '/' or ':' or be a dot name", part)
		}
	}
	return nil
}

// BindRequest is the first and only value a client writes on a bind
// connection.
type BindRequest struct {
	Action     string     `cbor:"action"`
	Descriptor Descriptor `cbor:"descriptor"`
}

// BindEvent is one value on the broker's bind stream.
type BindEvent struct {
	// Event is EventConnected, EventDisconnected, or EventRefused.
	// Empty when the server answered with a plain error envelope.
	Event string `cbor:"event,omitempty"`

	// SocketPath is the worker's socket (connected).
	SocketPath string `cbor:"socket_path,omitempty"`

	// PID is the worker's process ID (connected).
	PID int `cbor:"pid,omitempty"`

	// ExitCode is the worker's exit code (disconnected). A pointer
	// distinguishes a clean exit from an absent field.
	ExitCode *int `cbor:"exit_code,omitempty"`

	// Reason explains a refusal.
	Reason string `cbor:"reason,omitempty"`

	// Error carries the message of an error envelope sent before the
	// stream started, for example an unknown action.
	Error string `cbor:"error,omitempty"`
}

// StatusResponse is the data of a successful status call.
type StatusResponse struct {
	// Version is the broker's version string.
	Version string `cbor:"version"`

	// VersionCode is the broker's integer version tag.
	VersionCode int `cbor:"version_code"`

	// Components maps each configured component to its worker binary's
	// BLAKE3 digest, hex-encoded. Empty when the binary is unreadable.
	Components map[string]string `cbor:"components"`

	// Workers lists running workers sorted by key.
	Workers []WorkerEntry `cbor:"workers"`
}

// WorkerEntry describes one running worker.
type WorkerEntry struct {
	Key          string `cbor:"key"`
	PID          int    `cbor:"pid"`
	SocketPath   string `cbor:"socket_path"`
	Version      int    `cbor:"version"`
	Debug        bool   `cbor:"debug"`
	Daemon       bool   `cbor:"daemon"`
	Bindings     int    `cbor:"bindings"`
	BinaryDigest string `cbor:"binary_digest"`
}

// InstallRequest is the worker install request.
type InstallRequest struct {
	Action string   `cbor:"action"`
	Paths  []string `cbor:"paths"`
}

// InstallResult is the data of a successful install call. An empty
// Reason means the install succeeded; otherwise Reason is the
// human-readable failure.
type InstallResult struct {
	Reason string `cbor:"reason"`
}
