// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR-encoded message types spoken between
// patchbay clients, the broker, and workers. The broker, the worker,
// and their clients import this package so the wire types are defined
// once rather than mirrored.
package ipc
