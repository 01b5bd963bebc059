// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/patchbay/lib/broker"
	"github.com/bureau-foundation/patchbay/lib/clock"
	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/service"
	"github.com/bureau-foundation/patchbay/lib/task"
	"github.com/bureau-foundation/patchbay/lib/version"
	"github.com/bureau-foundation/patchbay/lib/worker"
)

// Task labels and log lines written during Install.
const (
	LabelStarting   = "Starting privileged service"
	LabelInstalling = "Installing"

	LineSucceeded    = "Installation succeeded"
	LineDisconnected = "Installation failed: privileged service disconnected unexpectedly"
)

// DefaultBindTimeout bounds the wait for the worker to connect.
const DefaultBindTimeout = 30 * time.Second

// Config configures a Bridge.
type Config struct {
	// Broker reaches the broker.
	Broker *broker.Client

	// Component is the worker component to bind.
	Component string

	// ProcessNameSuffix isolates the bridge's worker. Defaults to
	// "installer".
	ProcessNameSuffix string

	// BindTimeout defaults to DefaultBindTimeout.
	BindTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Bridge performs privileged installs.
type Bridge struct {
	broker      *broker.Client
	descriptor  ipc.Descriptor
	bindTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// New returns a Bridge for config.
func New(config Config) *Bridge {
	if config.ProcessNameSuffix == "" {
		config.ProcessNameSuffix = "installer"
	}
	if config.BindTimeout <= 0 {
		config.BindTimeout = DefaultBindTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		broker: config.Broker,
		descriptor: ipc.Descriptor{
			Component:         config.Component,
			Daemon:            false,
			ProcessNameSuffix: config.ProcessNameSuffix,
			Debug:             version.Debug(),
			Version:           version.Code(),
		},
		bindTimeout: config.BindTimeout,
		clock:       config.Clock,
		logger:      config.Logger,
	}
}

// Descriptor returns the worker descriptor the bridge binds.
func (b *Bridge) Descriptor() ipc.Descriptor {
	return b.descriptor
}

// Install installs files through a freshly bound worker and reports
// progress to progress. It returns nil on success, otherwise an
// *InstallError. Relative paths are resolved against the working
// directory.
func (b *Bridge) Install(ctx context.Context, files []string, progress task.Context) error {
	progress.SetTask(LabelStarting)
	progress.SetProgress(task.Indeterminate)

	out := newOutcome(progress)

	paths := make([]string, len(files))
	for index, file := range files {
		absolute, err := filepath.Abs(file)
		if err != nil {
			out.resolve("Installation error: "+err.Error(), &InstallError{Kind: ErrInstallRejected, Err: err})
			return out.result()
		}
		paths[index] = absolute
	}

	connection := &installConnection{
		ctx:       ctx,
		paths:     paths,
		outcome:   out,
		logger:    b.logger,
		connected: make(chan struct{}),
	}

	logger := b.logger.With("key", b.descriptor.Key(), "files", len(paths))
	logger.Info("binding installer")

	binding, err := b.broker.Bind(ctx, b.descriptor, connection)
	if err != nil {
		if ctx.Err() != nil {
			out.resolve("", &InstallError{Kind: ErrCancelled, Err: ctx.Err()})
		} else {
			out.resolve("Installation error: "+err.Error(), &InstallError{Kind: ErrServiceUnavailable, Err: err})
		}
		return out.result()
	}
	defer binding.Unbind()

	connected := connection.connected
	timeout := b.clock.After(b.bindTimeout)
	for {
		select {
		case <-out.done:
			err := out.result()
			logger.Info("install finished", "error", err)
			return err
		case <-connected:
			timeout = nil
			connected = nil
		case <-timeout:
			out.resolve(
				fmt.Sprintf("Installation error: privileged service did not connect within %s", b.bindTimeout),
				&InstallError{Kind: ErrServiceUnavailable, Err: context.DeadlineExceeded},
			)
		case <-ctx.Done():
			out.resolve("", &InstallError{Kind: ErrCancelled, Err: ctx.Err()})
		}
	}
}

// installConnection receives one binding's notifications.
type installConnection struct {
	ctx     context.Context
	paths   []string
	outcome *outcome
	logger  *slog.Logger

	connectOnce sync.Once
	connected   chan struct{}
}

// Connected starts the install call on its own goroutine so the
// notification goroutine stays free to report a disconnect.
func (c *installConnection) Connected(handle worker.Handle) {
	c.connectOnce.Do(func() { close(c.connected) })
	c.logger.Info("installer connected", "pid", handle.PID)

	go func() {
		open := c.outcome.update(func(progress task.Context) {
			progress.SetTask(LabelInstalling)
		})
		if !open {
			return
		}

		reason, err := handle.Install(c.ctx, c.paths)
		switch {
		case err != nil && c.ctx.Err() != nil:
			c.outcome.resolve("", &InstallError{Kind: ErrCancelled, Err: c.ctx.Err()})
		case err != nil:
			kind := ErrWorkerCrash
			var serviceErr *service.ServiceError
			if errors.As(err, &serviceErr) {
				kind = ErrBindFailure
			}
			c.outcome.resolve("Installation error: "+err.Error(), &InstallError{Kind: kind, Err: err})
		case reason != "":
			c.outcome.resolve(failureLine(reason), &InstallError{Kind: ErrInstallRejected, Reason: reason})
		default:
			c.outcome.resolve(LineSucceeded, nil)
		}
	}()
}

// Disconnected settles a binding that died before a result.
func (c *installConnection) Disconnected() {
	c.outcome.resolve(LineDisconnected, &InstallError{Kind: ErrWorkerCrash})
}

// Refused settles a binding the broker would not make.
func (c *installConnection) Refused(reason string) {
	c.outcome.resolve(
		"Installation error: privileged service refused binding: "+reason,
		&InstallError{Kind: ErrBindFailure, Reason: reason},
	)
}

// failureLine formats a worker's failure reason for the task log. The
// installer worker already phrases its reasons as full lines.
func failureLine(reason string) string {
	if strings.HasPrefix(reason, "Installation failed") {
		return reason
	}
	return "Installation failed: " + reason
}
