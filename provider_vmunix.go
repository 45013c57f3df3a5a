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

import "github.com/graingc/graingc/internal/vmunix"

// VMProvider adapts internal/vmunix's mprotect-backed Provider to the
// collector's Provider interface. An Arena's Addr space is logical (see
// Addr's doc comment: object storage is client-owned, the collector only
// manipulates offsets), so VMProvider needs the real base pointer the
// client has actually mapped this arena's bytes onto before it can turn an
// Addr into something mprotect understands.
//
// Use VMProvider only when the arena is backed by memory the calling
// process owns at a fixed address (an mmap'd reservation sized to
// ArenaSize, say); for the common case of a purely logical arena driven
// through a client Format, leave the arena's provider unset and let the
// shield fall back to its no-op default.
type VMProvider struct {
	base uintptr
	vm   *vmunix.Provider
}

// NewVMProvider returns a Provider enforcing real page protection over the
// arena's address range, anchored at base.
func NewVMProvider(base uintptr) *VMProvider {
	return &VMProvider{base: base, vm: vmunix.New()}
}

// Protect translates addr to base+addr and mode to vmunix's Mode before
// delegating to the underlying mprotect call.
func (p *VMProvider) Protect(addr Addr, size int, mode ProtMode) error {
	return p.vm.Protect(p.base+uintptr(addr), size, protModeToVMMode(mode))
}

// PageSize reports the granularity the underlying provider actually
// enforces; Shield rounds exposed ranges to the arena's grain size, which
// callers are responsible for keeping a multiple of this.
func (p *VMProvider) PageSize() int { return p.vm.PageSize() }

func protModeToVMMode(mode ProtMode) vmunix.Mode {
	switch mode {
	case ProtRead:
		return vmunix.ModeRead
	case ProtNone:
		return vmunix.ModeNone
	default:
		return vmunix.ModeReadWrite
	}
}
