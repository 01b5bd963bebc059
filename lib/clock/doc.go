// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the bridge's bind timeout, the broker's
// socket-readiness polling and the plugin registry's lock wait run
// against fake time in tests.
//
// Production code holds a Clock field set to Real(). Tests pass
// Fake(epoch), wait for the code under test to register its timer
// with WaitForTimers, then fire it with Advance:
//
//	fake := clock.Fake(epoch)
//	installer := bridge.New(bridge.Config{Broker: client, Clock: fake})
//	go installer.Install(ctx, files, recorder)
//	fake.WaitForTimers(1)
//	fake.Advance(30 * time.Second)
package clock
