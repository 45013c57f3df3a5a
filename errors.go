// Copyright 2025 The graingc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graingc

import (
	"errors"
	"fmt"
)

// Status is the exhaustive result code every public operation returns,
// either alone or alongside a value.
type Status int

const (
	// OK indicates the operation completed successfully.
	OK Status = iota
	// Memory indicates an allocation could not be satisfied.
	Memory
	// Resource indicates an OS-level resource (address space, handles) was
	// exhausted.
	Resource
	// Limit indicates a configured limit was hit (e.g. the busy-trace set
	// is full).
	Limit
	// Unimpl indicates the operation is not supported by this pool class.
	Unimpl
	// Fail indicates the operation was semantically declined, e.g. a
	// single-access scan could not handle the fault.
	Fail
	// IO indicates an underlying I/O operation failed (config loading).
	IO
	// Param indicates an invalid argument was supplied.
	Param
)

// String implements [fmt.Stringer].
func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Memory:
		return "MEMORY"
	case Resource:
		return "RESOURCE"
	case Limit:
		return "LIMIT"
	case Unimpl:
		return "UNIMPL"
	case Fail:
		return "FAIL"
	case IO:
		return "IO"
	case Param:
		return "PARAM"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusError adapts a [Status] to the standard [error] interface, so
// callers that prefer errors.Is/errors.As composition are not forced into a
// bespoke enum comparison. Public operations still return Status directly;
// this type exists for the cases (Config loading, io.Reader-backed helpers)
// that have to return a plain error to satisfy a stdlib interface.
type StatusError struct {
	Status Status
	Op     string
	Err    error
}

// Error implements [error].
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("graingc: %s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("graingc: %s: %s", e.Op, e.Status)
}

// Unwrap implements error unwrapping via [errors.Unwrap].
func (e *StatusError) Unwrap() error { return e.Err }

// Is reports whether target is a *StatusError with the same [Status], so
// that errors.Is(err, otherStatusErr) works across wrapped causes.
func (e *StatusError) Is(target error) bool {
	var se *StatusError
	if errors.As(target, &se) {
		return se.Status == e.Status
	}
	return false
}

// newError builds a *StatusError for op failing with status, optionally
// wrapping cause.
func newError(op string, status Status, cause error) *StatusError {
	return &StatusError{Op: op, Status: status, Err: cause}
}
