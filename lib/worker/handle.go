// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"

	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/service"
)

// Handle reaches a running worker.
type Handle struct {
	// SocketPath is the worker's socket, as reported by the broker.
	SocketPath string

	// PID is the worker's process ID, for logging.
	PID int
}

// Install asks the worker to install paths. A nil error with an empty
// reason is success; a nil error with a reason is the worker's
// refusal. A non-nil error means the call itself failed: a
// *service.ServiceError if the worker rejected the request, otherwise
// a transport failure.
func (h Handle) Install(ctx context.Context, paths []string) (string, error) {
	var result ipc.InstallResult
	err := service.NewServiceClient(h.SocketPath).Call(ctx, ipc.ActionInstall, map[string]any{
		"paths": paths,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Reason, nil
}
