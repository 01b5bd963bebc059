// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package availability

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/patchbay/lib/clock"
	"github.com/bureau-foundation/patchbay/lib/testutil"
)

const waitTimeout = 10 * time.Second

// runMonitor starts monitor.Run and returns channels fed by its
// listeners.
func runMonitor(t *testing.T, monitor *SocketMonitor) (received, dead chan bool) {
	t.Helper()
	received = make(chan bool, 16)
	dead = make(chan bool, 16)
	monitor.AddReceivedListenerSticky(func() { received <- true })
	monitor.AddDeadListener(func() { dead <- true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, waitTimeout, "monitor shutdown"); err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	return received, dead
}

func TestSocketMonitorSeesBrokerComeAndGo(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "broker.sock")
	monitor := NewSocketMonitor(socketPath, clock.Real(), nil)
	monitor.SetProbeInterval(20 * time.Millisecond)
	tracker := &Tracker{}
	tracker.Init(monitor)

	received, dead := runMonitor(t, monitor)
	testutil.RequireReceive(t, dead, waitTimeout, "initial probe should report dead")

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	testutil.RequireReceive(t, received, waitTimeout, "socket creation not observed")
	if !tracker.Available() {
		t.Error("tracker not available after socket appeared")
	}

	// Closing a Unix listener unlinks its socket.
	listener.Close()
	testutil.RequireReceive(t, dead, waitTimeout, "socket removal not observed")
	if tracker.Available() {
		t.Error("tracker still available after socket removed")
	}
}

func TestSocketMonitorReplaysToLateSubscriber(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "broker.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	monitor := NewSocketMonitor(socketPath, clock.Real(), nil)
	received, _ := runMonitor(t, monitor)
	testutil.RequireReceive(t, received, waitTimeout, "existing socket not reported")

	late := make(chan bool, 1)
	monitor.AddReceivedListenerSticky(func() { late <- true })
	testutil.RequireReceive(t, late, time.Second, "late subscriber got no replay")
}

func TestSocketMonitorStaleSocketFile(t *testing.T) {
	dir := testutil.SocketDir(t)
	socketPath := filepath.Join(dir, "broker.sock")
	// A regular file where the socket should be: exists, but nothing
	// answers.
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	monitor := NewSocketMonitor(socketPath, clock.Real(), nil)
	received, dead := runMonitor(t, monitor)
	testutil.RequireReceive(t, dead, waitTimeout, "stale socket reported available")
	testutil.RequireNoReceive(t, received, 50*time.Millisecond, "stale socket reported available")
}

func TestSocketMonitorMissingDirectory(t *testing.T) {
	monitor := NewSocketMonitor(filepath.Join(t.TempDir(), "absent", "broker.sock"), nil, nil)
	if err := monitor.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded with no directory to watch")
	}
}

func TestEventsName(t *testing.T) {
	// Two events: "other" then "broker.sock", each padded to 16 bytes.
	buffer := append(rawEvent("other", 16), rawEvent("broker.sock", 16)...)
	if !eventsName(buffer, "broker.sock") {
		t.Error("second event not matched")
	}
	if eventsName(buffer, "broker") {
		t.Error("prefix matched")
	}
	if eventsName(buffer[:10], "other") {
		t.Error("truncated buffer matched")
	}
}

func rawEvent(name string, padded int) []byte {
	event := make([]byte, 16+padded)
	event[12] = byte(padded)
	copy(event[16:], name)
	return event
}
