// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "errors"

// Install failure kinds. Every error Install returns is an
// *InstallError matching exactly one of these with errors.Is.
var (
	// ErrServiceUnavailable means the broker could not be reached or
	// the worker never connected within the bind timeout.
	ErrServiceUnavailable = errors.New("privileged service unavailable")

	// ErrBindFailure means the broker refused the binding or the
	// worker rejected the request.
	ErrBindFailure = errors.New("privileged service binding failed")

	// ErrWorkerCrash means the worker went away before answering.
	ErrWorkerCrash = errors.New("privileged service disconnected")

	// ErrInstallRejected means the worker answered with a failure
	// reason.
	ErrInstallRejected = errors.New("installation rejected")

	// ErrCancelled means the caller's context ended first.
	ErrCancelled = errors.New("installation cancelled")
)

// InstallError is a failed install.
type InstallError struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Reason is the worker's failure reason for ErrInstallRejected,
	// or the broker's refusal for ErrBindFailure.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *InstallError) Error() string {
	switch {
	case e.Reason != "":
		return e.Kind.Error() + ": " + e.Reason
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and
// errors.As.
func (e *InstallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Succeeded reports whether an Install result means success.
func Succeeded(err error) bool {
	return err == nil
}
