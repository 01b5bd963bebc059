// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the single CBOR configuration used on every
// patchbay socket: the CLI↔broker bind stream, the bridge↔worker
// install call, and the broker status call.
//
// JSON is reserved for things a person might open in an editor (the
// plugin manifest, --json CLI output). Everything that crosses a Unix
// socket between patchbay processes is CBOR, encoded with Core
// Deterministic Encoding so the same message always produces the same
// bytes.
//
// Buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Streams (a bind connection carries several values back to back;
// CBOR items are self-delimiting so no framing is needed):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only ever travel over a socket use `cbor` struct tags.
// Types that are also printed with --json use `json` tags, which
// fxamacker/cbor reads as a fallback. Never put both on one field.
package codec
