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

//go:build unix

// Package vmunix is the default shield Provider, backed by mprotect(2) on
// page-granular slices of the arena's own memory. Clients embedding graingc
// in an environment with its own notion of "protect this range" (a remoted
// arena, a simulator) supply their own Provider instead; this package only
// covers the common case of a POSIX process protecting its own address
// space.
package vmunix

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mode mirrors the access a protected segment should still permit.
type Mode int

const (
	// ModeNone forbids all access; any read or write faults.
	ModeNone Mode = iota
	// ModeRead permits reads only; writes fault.
	ModeRead
	// ModeReadWrite permits both; this is the "unprotected" state.
	ModeReadWrite
)

// Provider implements the arena shield's protection primitive using
// mprotect over the calling process's own address space. Create one with
// New; the zero value has no page size to round ranges to.
type Provider struct {
	pageSize int
}

// New returns a ready-to-use Provider.
func New() *Provider {
	return &Provider{pageSize: unix.Getpagesize()}
}

// Protect restricts access to the byte range [base, base+size) to mode. The
// range is rounded out to whole pages, since mprotect accepts nothing finer;
// callers (the shield) are expected to have already grain-aligned it to a
// page multiple, making the rounding a no-op in the common case.
func (p *Provider) Protect(base uintptr, size int, mode Mode) error {
	if size == 0 {
		return nil
	}

	pageBase := base &^ uintptr(p.pageSize-1)
	extra := int(base - pageBase)
	pageSize := roundUp(extra+size, p.pageSize)

	var prot int
	switch mode {
	case ModeNone:
		prot = unix.PROT_NONE
	case ModeRead:
		prot = unix.PROT_READ
	case ModeReadWrite:
		prot = unix.PROT_READ | unix.PROT_WRITE
	default:
		prot = unix.PROT_READ | unix.PROT_WRITE
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(pageBase)), pageSize)
	return unix.Mprotect(mem, prot)
}

// PageSize returns the granularity at which Protect actually operates.
func (p *Provider) PageSize() int { return p.pageSize }

func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
