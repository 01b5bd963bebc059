// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/netutil"
	"github.com/bureau-foundation/patchbay/lib/service"
	"github.com/bureau-foundation/patchbay/lib/worker"
)

// Connection receives the events of one binding. Methods are called
// from the binding's notification goroutine, one at a time, and never
// after Unbind returns. Exactly one of Connected or Refused comes
// first; Disconnected may follow Connected.
type Connection interface {
	// Connected reports the worker is accepting calls.
	Connected(handle worker.Handle)

	// Disconnected reports the binding ended without the client
	// unbinding: the worker exited or the broker went away.
	Disconnected()

	// Refused reports the broker would not bind the descriptor.
	Refused(reason string)
}

// ErrUnreachable classifies failures to reach the broker socket at
// all, as opposed to refusals the broker reported.
var ErrUnreachable = errors.New("broker unreachable")

// Client talks to a broker.
type Client struct {
	service *service.ServiceClient
	logger  *slog.Logger
}

// NewClient returns a client for the broker at socketPath.
func NewClient(socketPath string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		service: service.NewServiceClient(socketPath),
		logger:  logger,
	}
}

// SocketPath returns the broker socket the client dials.
func (c *Client) SocketPath() string {
	return c.service.SocketPath()
}

// Binding is an open bind stream.
type Binding struct {
	stream   *service.Stream
	unbound  atomic.Bool
	once     sync.Once
	finished chan struct{}
}

// Bind asks the broker to bind descriptor. It returns once the request
// is sent; the outcome arrives on conn. An error means the broker could
// not be reached and conn will never be called.
func (c *Client) Bind(ctx context.Context, descriptor ipc.Descriptor, conn Connection) (*Binding, error) {
	stream, err := c.service.OpenStream(ctx, ipc.ActionBind, map[string]any{
		"descriptor": descriptor,
	})
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w: %w", descriptor.Key(), ErrUnreachable, err)
	}

	binding := &Binding{
		stream:   stream,
		finished: make(chan struct{}),
	}
	go binding.deliver(descriptor, conn, c.logger)
	return binding, nil
}

// deliver reads bind events and forwards them to conn until the stream
// ends.
func (b *Binding) deliver(descriptor ipc.Descriptor, conn Connection, logger *slog.Logger) {
	defer close(b.finished)
	defer b.stream.Close()

	connected := false
	for {
		var event ipc.BindEvent
		err := b.stream.Next(&event)
		if b.unbound.Load() {
			return
		}
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				logger.Warn("bind stream failed", "key", descriptor.Key(), "error", err)
			}
			if connected {
				conn.Disconnected()
			} else {
				conn.Refused(fmt.Sprintf("broker closed the binding before connecting: %v", err))
			}
			return
		}

		switch event.Event {
		case ipc.EventConnected:
			connected = true
			conn.Connected(worker.Handle{SocketPath: event.SocketPath, PID: event.PID})
		case ipc.EventDisconnected:
			if event.ExitCode != nil {
				logger.Info("worker disconnected", "key", descriptor.Key(), "exit_code", *event.ExitCode)
			}
			conn.Disconnected()
			return
		case ipc.EventRefused:
			conn.Refused(event.Reason)
			return
		default:
			if event.Error != "" {
				conn.Refused(event.Error)
			} else {
				conn.Refused(fmt.Sprintf("unexpected bind event %q", event.Event))
			}
			return
		}
	}
}

// Unbind ends the binding. The broker stops a non-daemon worker once
// its last binding ends. No Connection method is called after Unbind
// returns, except one already in progress on the notification
// goroutine. Safe to call more than once.
func (b *Binding) Unbind() {
	b.once.Do(func() {
		b.unbound.Store(true)
		b.stream.Close()
	})
}

// Done is closed when the notification goroutine has exited.
func (b *Binding) Done() <-chan struct{} {
	return b.finished
}

// Status fetches the broker's status.
func (c *Client) Status(ctx context.Context) (*ipc.StatusResponse, error) {
	var status ipc.StatusResponse
	if err := c.service.Call(ctx, ipc.ActionStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
