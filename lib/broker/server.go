// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/patchbay/lib/binhash"
	"github.com/bureau-foundation/patchbay/lib/clock"
	"github.com/bureau-foundation/patchbay/lib/codec"
	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/netutil"
	"github.com/bureau-foundation/patchbay/lib/service"
)

// Defaults for Config fields left zero.
const (
	defaultStartTimeout = 10 * time.Second
	defaultStopTimeout  = 5 * time.Second
	socketPollInterval  = 10 * time.Millisecond
)

// Config configures a Server.
type Config struct {
	// SocketPath is the broker's listening socket.
	SocketPath string

	// SocketMode is applied to SocketPath after listening. Zero keeps
	// the umask-derived mode.
	SocketMode os.FileMode

	// RunDir holds worker sockets.
	RunDir string

	// Workers maps component names to worker binaries. Binds for any
	// other component are refused.
	Workers map[string]string

	// WorkerArgs are appended to every worker's command line.
	WorkerArgs []string

	// Version and VersionCode identify the broker in status replies.
	Version     string
	VersionCode int

	// StartTimeout bounds how long a launched worker has to create its
	// socket. StopTimeout bounds how long a worker has to exit after
	// SIGTERM before it is killed.
	StartTimeout time.Duration
	StopTimeout  time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Server is the broker.
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock

	// mu guards workers and pending. It is never held while a worker
	// starts or stops.
	mu      sync.Mutex
	workers map[string]*managedWorker

	// pending marks keys whose worker is being launched or stopped.
	// Binds for such a key wait for done and look again, so two binds
	// with the same key share one worker and a new worker never races
	// an old one for its socket path.
	pending map[string]chan struct{}
}

// managedWorker is a worker process the broker launched.
type managedWorker struct {
	key        string
	descriptor ipc.Descriptor
	digest     binhash.Digest
	socketPath string
	process    *os.Process

	// bindings counts open bind streams. Guarded by Server.mu.
	bindings int

	// done is closed by the reap goroutine when the process exits.
	// exitCode is valid after done is closed.
	done     chan struct{}
	exitCode int
}

// NewServer returns a broker for config.
func NewServer(config Config) *Server {
	if config.StartTimeout == 0 {
		config.StartTimeout = defaultStartTimeout
	}
	if config.StopTimeout == 0 {
		config.StopTimeout = defaultStopTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:  config,
		logger:  config.Logger,
		clock:   config.Clock,
		workers: make(map[string]*managedWorker),
		pending: make(map[string]chan struct{}),
	}
}

// Serve runs the broker until ctx is cancelled, then stops every
// worker it launched.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(s.config.RunDir, 0o755); err != nil {
		return fmt.Errorf("creating run directory %s: %w", s.config.RunDir, err)
	}

	server := service.NewSocketServer(s.config.SocketPath, s.logger)
	server.SetMode(s.config.SocketMode)
	server.HandleStream(ipc.ActionBind, s.handleBind)
	server.Handle(ipc.ActionStatus, s.handleStatus)

	err := server.Serve(ctx)
	s.shutdownAllWorkers()
	return err
}

// handleBind runs one binding for the life of its connection.
func (s *Server) handleBind(ctx context.Context, raw []byte, conn net.Conn) {
	encoder := codec.NewEncoder(conn)
	send := func(event ipc.BindEvent) bool {
		if err := encoder.Encode(event); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				s.logger.Error("writing bind event", "event", event.Event, "error", err)
			}
			return false
		}
		return true
	}

	var request ipc.BindRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		if diagnostic, diagErr := codec.Diagnose(raw); diagErr == nil {
			s.logger.Debug("malformed bind request", "request", diagnostic)
		}
		send(ipc.BindEvent{Event: ipc.EventRefused, Reason: fmt.Sprintf("invalid bind request: %v", err)})
		return
	}
	descriptor := request.Descriptor

	worker, err := s.acquire(ctx, descriptor)
	if err != nil {
		s.logger.Warn("bind refused", "key", descriptor.Key(), "error", err)
		send(ipc.BindEvent{Event: ipc.EventRefused, Reason: err.Error()})
		return
	}

	s.logger.Info("bound",
		"key", worker.key,
		"pid", worker.process.Pid,
		"daemon", descriptor.Daemon,
	)
	if !send(ipc.BindEvent{
		Event:      ipc.EventConnected,
		SocketPath: worker.socketPath,
		PID:        worker.process.Pid,
	}) {
		s.release(worker)
		return
	}

	peerGone := watchDisconnect(conn)
	select {
	case <-worker.done:
		exitCode := worker.exitCode
		send(ipc.BindEvent{Event: ipc.EventDisconnected, ExitCode: &exitCode})
		s.release(worker)
	case <-peerGone:
		s.logger.Info("unbound", "key", worker.key)
		s.release(worker)
	case <-ctx.Done():
		// Serve stops every worker after the handlers return.
	}
}

// watchDisconnect returns a channel closed when the peer closes conn.
// Clients never write after the bind request, so any Read return means
// the binding is over.
func watchDisconnect(conn net.Conn) <-chan struct{} {
	closed := make(chan struct{})
	go func() {
		buffer := make([]byte, 1)
		conn.Read(buffer)
		close(closed)
	}()
	return closed
}

// acquire returns a running worker for descriptor with its binding
// count raised, launching one if needed.
func (s *Server) acquire(ctx context.Context, descriptor ipc.Descriptor) (*managedWorker, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	binary, ok := s.config.Workers[descriptor.Component]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", descriptor.Component)
	}
	digest, err := binhash.HashFile(binary)
	if err != nil {
		return nil, fmt.Errorf("hashing worker binary for %q: %w", descriptor.Component, err)
	}

	key := descriptor.Key()
	s.mu.Lock()
	for {
		done, busy := s.pending[key]
		if !busy {
			break
		}
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		s.mu.Lock()
	}

	stale, running := s.workers[key]
	if running {
		reason := staleReason(stale, descriptor, digest)
		if reason == "" {
			stale.bindings++
			stale.descriptor.Daemon = stale.descriptor.Daemon || descriptor.Daemon
			s.mu.Unlock()
			return stale, nil
		}
		s.logger.Info("replacing stale worker",
			"key", key,
			"pid", stale.process.Pid,
			"reason", reason,
		)
		delete(s.workers, key)
	}
	finish := s.markPendingLocked(key)
	s.mu.Unlock()

	if running {
		s.stop(stale)
	}
	worker, err := s.launch(descriptor, binary, digest)

	s.mu.Lock()
	if err == nil {
		worker.bindings = 1
		s.workers[key] = worker
	}
	finish()
	s.mu.Unlock()
	return worker, err
}

// markPendingLocked marks key busy and returns the function that
// clears the mark and wakes waiters. Both run with s.mu held.
func (s *Server) markPendingLocked(key string) func() {
	done := make(chan struct{})
	s.pending[key] = done
	return func() {
		delete(s.pending, key)
		close(done)
	}
}

// staleReason reports why a running worker cannot serve descriptor, or
// "" if it can.
func staleReason(worker *managedWorker, descriptor ipc.Descriptor, digest binhash.Digest) string {
	select {
	case <-worker.done:
		return "exited"
	default:
	}
	switch {
	case worker.descriptor.Version != descriptor.Version:
		return fmt.Sprintf("version %d, want %d", worker.descriptor.Version, descriptor.Version)
	case worker.descriptor.Debug != descriptor.Debug:
		return fmt.Sprintf("debug %t, want %t", worker.descriptor.Debug, descriptor.Debug)
	case worker.digest != digest:
		return "worker binary changed"
	}
	return ""
}

// launch starts a worker process and waits for its socket. The
// caller holds the pending mark for the worker's key.
func (s *Server) launch(descriptor ipc.Descriptor, binary string, digest binhash.Digest) (*managedWorker, error) {
	key := descriptor.Key()
	socketPath := filepath.Join(s.config.RunDir, strings.ReplaceAll(key, ":", ".")+".sock")
	// A socket left by a worker that died with the broker.
	os.Remove(socketPath)

	args := []string{"--socket", socketPath}
	if descriptor.Debug {
		args = append(args, "--debug")
	}
	args = append(args, s.config.WorkerArgs...)

	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	// Workers must not outlive the broker.
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGTERM}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", binary, err)
	}

	worker := &managedWorker{
		key:        key,
		descriptor: descriptor,
		digest:     digest,
		socketPath: socketPath,
		process:    cmd.Process,
		done:       make(chan struct{}),
	}

	// Reap in the background so exited workers never linger as
	// zombies, and so waiters can select on done.
	go func() {
		waitError := cmd.Wait()
		exitCode := 0
		if waitError != nil {
			var exitErr *exec.ExitError
			if errors.As(waitError, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		worker.exitCode = exitCode
		close(worker.done)
		s.logger.Info("worker exited",
			"key", key,
			"pid", cmd.Process.Pid,
			"exit_code", exitCode,
		)
	}()

	if err := s.waitForSocket(socketPath, worker.done); err != nil {
		cmd.Process.Kill()
		<-worker.done
		os.Remove(socketPath)
		return nil, fmt.Errorf("worker %s: %w", key, err)
	}

	s.logger.Info("worker launched",
		"key", key,
		"pid", cmd.Process.Pid,
		"binary", binary,
		"digest", binhash.FormatDigest(digest),
		"version", descriptor.Version,
		"debug", descriptor.Debug,
	)
	return worker, nil
}

// waitForSocket polls for socketPath to accept connections. Returns an
// error if the process exits first or StartTimeout elapses.
func (s *Server) waitForSocket(socketPath string, processDone <-chan struct{}) error {
	deadline := s.clock.After(s.config.StartTimeout)
	ticker := s.clock.NewTicker(socketPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-processDone:
			return fmt.Errorf("process exited before socket %s appeared", socketPath)
		case <-deadline:
			return fmt.Errorf("timed out after %v waiting for socket %s", s.config.StartTimeout, socketPath)
		case <-ticker.C:
			if _, err := os.Stat(socketPath); err == nil {
				return nil
			}
		}
	}
}

// release drops one binding. A non-daemon worker left with no
// bindings is stopped; an exited worker is forgotten.
func (s *Server) release(worker *managedWorker) {
	s.mu.Lock()
	worker.bindings--
	if s.workers[worker.key] != worker {
		// Already replaced or stopped.
		s.mu.Unlock()
		return
	}

	select {
	case <-worker.done:
		delete(s.workers, worker.key)
		os.Remove(worker.socketPath)
		s.mu.Unlock()
		return
	default:
	}

	if worker.bindings > 0 || worker.descriptor.Daemon {
		s.mu.Unlock()
		return
	}
	delete(s.workers, worker.key)
	finish := s.markPendingLocked(worker.key)
	s.mu.Unlock()

	s.stop(worker)

	s.mu.Lock()
	finish()
	s.mu.Unlock()
}

// stop terminates worker, waits for it to be reaped, and removes its
// socket. The worker must already be out of s.workers, and s.mu must
// not be held.
func (s *Server) stop(worker *managedWorker) {
	select {
	case <-worker.done:
	default:
		s.logger.Info("stopping worker", "key", worker.key, "pid", worker.process.Pid)
		worker.process.Signal(unix.SIGTERM)
		select {
		case <-worker.done:
		case <-s.clock.After(s.config.StopTimeout):
			s.logger.Warn("worker ignored SIGTERM, killing", "key", worker.key, "pid", worker.process.Pid)
			worker.process.Kill()
			<-worker.done
		}
	}
	os.Remove(worker.socketPath)
}

// shutdownAllWorkers stops every worker concurrently. Called after
// every bind handler has returned.
func (s *Server) shutdownAllWorkers() {
	s.mu.Lock()
	workers := make([]*managedWorker, 0, len(s.workers))
	for key, worker := range s.workers {
		workers = append(workers, worker)
		delete(s.workers, key)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, worker := range workers {
		wg.Go(func() { s.stop(worker) })
	}
	wg.Wait()
}

// handleStatus reports configured components and running workers.
func (s *Server) handleStatus(ctx context.Context, raw []byte) (any, error) {
	response := ipc.StatusResponse{
		Version:     s.config.Version,
		VersionCode: s.config.VersionCode,
		Components:  make(map[string]string, len(s.config.Workers)),
		Workers:     []ipc.WorkerEntry{},
	}
	for component, binary := range s.config.Workers {
		digest, err := binhash.HashFile(binary)
		if err != nil {
			response.Components[component] = ""
			continue
		}
		response.Components[component] = binhash.FormatDigest(digest)
	}

	s.mu.Lock()
	for _, worker := range s.workers {
		response.Workers = append(response.Workers, ipc.WorkerEntry{
			Key:          worker.key,
			PID:          worker.process.Pid,
			SocketPath:   worker.socketPath,
			Version:      worker.descriptor.Version,
			Debug:        worker.descriptor.Debug,
			Daemon:       worker.descriptor.Daemon,
			Bindings:     worker.bindings,
			BinaryDigest: binhash.FormatDigest(worker.digest),
		})
	}
	s.mu.Unlock()

	slices.SortFunc(response.Workers, func(a, b ipc.WorkerEntry) int {
		return strings.Compare(a.Key, b.Key)
	})
	return response, nil
}
