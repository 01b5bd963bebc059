// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/patchbay/lib/clock"
)

const (
	lockWaitTimeout = 30 * time.Second
	lockPollEvery   = 50 * time.Millisecond
)

type fileLock struct {
	file *os.File
}

// acquireFileLock opens or creates path and takes an exclusive
// advisory lock on it, polling on clk until lockWaitTimeout.
func acquireFileLock(path string, clk clock.Clock) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	deadline := clk.After(lockWaitTimeout)
	ticker := clk.NewTicker(lockPollEvery)
	defer ticker.Stop()
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: file}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			file.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		select {
		case <-deadline:
			file.Close()
			return nil, fmt.Errorf("locking %s: still held after %s", path, lockWaitTimeout)
		case <-ticker.C:
		}
	}
}

// release unlocks and closes the lock file.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
