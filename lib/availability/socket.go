// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package availability

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/patchbay/lib/clock"
)

const (
	// DefaultProbeInterval is how often a SocketMonitor re-dials the
	// socket between filesystem events, to notice a broker that died
	// without removing its socket.
	DefaultProbeInterval = 5 * time.Second

	probeTimeout = time.Second
)

// SocketMonitor is a Monitor over a broker's Unix socket. The socket
// is available when it exists and accepts a connection.
type SocketMonitor struct {
	socketPath    string
	probeInterval time.Duration
	clock         clock.Clock
	logger        *slog.Logger

	mu        sync.Mutex
	known     bool
	available bool
	received  []func()
	dead      []func()
}

// NewSocketMonitor returns a monitor for socketPath. It reports nothing
// until Run starts.
func NewSocketMonitor(socketPath string, clk clock.Clock, logger *slog.Logger) *SocketMonitor {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketMonitor{
		socketPath:    socketPath,
		probeInterval: DefaultProbeInterval,
		clock:         clk,
		logger:        logger,
	}
}

// SetProbeInterval changes the periodic re-probe interval. Call before
// Run.
func (m *SocketMonitor) SetProbeInterval(interval time.Duration) {
	m.probeInterval = interval
}

// AddReceivedListenerSticky implements Monitor.
func (m *SocketMonitor) AddReceivedListenerSticky(fn func()) {
	m.mu.Lock()
	m.received = append(m.received, fn)
	replay := m.known && m.available
	m.mu.Unlock()
	if replay {
		fn()
	}
}

// AddDeadListener implements Monitor.
func (m *SocketMonitor) AddDeadListener(fn func()) {
	m.mu.Lock()
	m.dead = append(m.dead, fn)
	m.mu.Unlock()
}

// Run watches the socket until ctx is cancelled. The inotify watch is
// armed before the first probe so a socket created between the two is
// still seen.
func (m *SocketMonitor) Run(ctx context.Context) error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify_init1: %w", err)
	}
	directory := filepath.Dir(m.socketPath)
	mask := uint32(unix.IN_CREATE | unix.IN_MOVED_TO | unix.IN_DELETE | unix.IN_MOVED_FROM)
	if _, err := unix.InotifyAddWatch(fd, directory, mask); err != nil {
		unix.Close(fd)
		return fmt.Errorf("inotify_add_watch on %s: %w", directory, err)
	}

	changed := make(chan struct{}, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		inotifyReadLoop(ctx, fd, filepath.Base(m.socketPath), changed)
	}()
	defer func() { <-readerDone }()

	ticker := m.clock.NewTicker(m.probeInterval)
	defer ticker.Stop()

	m.update(m.probe())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			m.update(m.probe())
		case <-ticker.C:
			m.update(m.probe())
		}
	}
}

func (m *SocketMonitor) probe() bool {
	conn, err := net.DialTimeout("unix", m.socketPath, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// update records a state and notifies listeners on a transition.
func (m *SocketMonitor) update(available bool) {
	m.mu.Lock()
	if m.known && m.available == available {
		m.mu.Unlock()
		return
	}
	m.known = true
	m.available = available
	listeners := m.dead
	if available {
		listeners = m.received
	}
	listeners = append([]func(){}, listeners...)
	m.mu.Unlock()

	m.logger.Info("broker availability changed", "socket", m.socketPath, "available", available)
	for _, fn := range listeners {
		fn()
	}
}

// inotifyReadLoop signals changed whenever an event names target. It
// closes fd when ctx is cancelled or the descriptor fails.
func inotifyReadLoop(ctx context.Context, fd int, target string, changed chan<- struct{}) {
	defer unix.Close(fd)

	buffer := make([]byte, 4096)
	for ctx.Err() == nil {
		// poll(2) with a 100ms timeout keeps the loop responsive to
		// cancellation.
		pollDescriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}

		if eventsName(buffer[:bytesRead], target) {
			select {
			case changed <- struct{}{}:
			default:
			}
		}
	}
}

// eventsName reports whether any raw inotify event in buffer names
// target.
//
// Event layout (inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded
//	};
func eventsName(buffer []byte, target string) bool {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		if nameLength > 0 {
			name := buffer[offset+unix.SizeofInotifyEvent : offset+eventSize]
			if end := bytes.IndexByte(name, 0); end >= 0 {
				name = name[:end]
			}
			if string(name) == target {
				return true
			}
		}
		offset += eventSize
	}
	return false
}
