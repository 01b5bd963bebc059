// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/patchbay/lib/codec"
	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/service"
)

// NewServer returns a socket server exposing installer as the install
// action. The caller runs it with Serve.
func NewServer(socketPath string, installer Installer, logger *slog.Logger) *service.SocketServer {
	server := service.NewSocketServer(socketPath, logger)
	server.Handle(ipc.ActionInstall, func(ctx context.Context, raw []byte) (any, error) {
		var request ipc.InstallRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid install request: %w", err)
		}

		logger.Info("install requested", "files", len(request.Paths))
		reason := installer.Install(ctx, request.Paths)
		if reason != "" {
			logger.Warn("install failed", "reason", reason)
		}
		return ipc.InstallResult{Reason: reason}, nil
	})
	return server
}

// Serve runs the worker on socketPath until ctx is cancelled.
func Serve(ctx context.Context, socketPath string, installer Installer, logger *slog.Logger) error {
	return NewServer(socketPath, installer, logger).Serve(ctx)
}
