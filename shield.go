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

// Provider is the out-of-scope virtual-memory collaborator: it turns a
// desired [ProtMode] into an actual page-protection change over a byte
// range. The collector depends only on this interface; [NewVMProvider]
// adapts internal/vmunix's mprotect-backed implementation to it, and any
// client may substitute its own (a remoted arena, a simulator for tests).
// An arena with no provider set uses a no-op one.
type Provider interface {
	// Protect changes the protection of [base, base+size) to the access
	// permitted by mode. size is always a multiple of the arena's grain
	// size.
	Protect(base Addr, size int, mode ProtMode) error
}

// ProtMode is the page-protection level a segment desires or currently has;
// ProtReadWrite is "no protection."
type ProtMode int

const (
	ProtReadWrite ProtMode = iota
	ProtRead
	ProtNone
)

// noopProvider never actually changes protection; used when the client
// does not supply one and the arena has no default available (also what
// internal/vmunix substitutes on non-unix build targets).
type noopProvider struct{}

func (noopProvider) Protect(Addr, int, ProtMode) error { return nil }

// queueCap bounds the shield's deferred-protection cache; once a Cover
// fills it, Cover flushes it, amortizing Provider.Protect calls across
// several segments touched in a row.
const queueCap = 64

// Shield mediates between a segment's desired and effective page
// protections, so that repeated expose/cover pairs on the same segment (or
// several segments visited in a row) do not each incur a syscall.
type Shield struct {
	provider Provider
	queue    []*Segment
}

// newShield returns a shield using provider, or a no-op provider if nil.
func newShield(provider Provider) *Shield {
	if provider == nil {
		provider = noopProvider{}
	}
	return &Shield{provider: provider}
}

// Expose lifts all protection on seg so the collector may read/write it
// freely, incrementing a nesting counter. Expose/Cover pairs may nest;
// protection is only actually lifted on the outermost Expose.
func (sh *Shield) Expose(seg *Segment) error {
	if seg.exposeDepth == 0 && seg.effective != ProtReadWrite {
		if err := sh.provider.Protect(seg.Base(), seg.Size(), ProtReadWrite); err != nil {
			return err
		}
		seg.effective = ProtReadWrite
	}
	seg.exposeDepth++
	return nil
}

// Cover decrements seg's expose nesting counter; when it reaches zero, the
// segment's desired protection is queued for lazy reinstatement rather than
// applied immediately.
func (sh *Shield) Cover(seg *Segment) {
	if seg.exposeDepth == 0 {
		return
	}
	seg.exposeDepth--
	if seg.exposeDepth != 0 {
		return
	}
	seg.desired = seg.desiredProtection()
	if seg.desired == seg.effective {
		return
	}
	if !seg.queued {
		seg.queued = true
		sh.queue = append(sh.queue, seg)
	}
	if len(sh.queue) >= queueCap {
		sh.Flush()
	}
}

// Flush realizes every queued protection change.
func (sh *Shield) Flush() error {
	for _, seg := range sh.queue {
		seg.queued = false
		if seg.exposeDepth != 0 {
			continue // re-exposed since queuing; desired will be recomputed on next Cover
		}
		if seg.effective == seg.desired {
			continue
		}
		if err := sh.provider.Protect(seg.Base(), seg.Size(), seg.desired); err != nil {
			return err
		}
		seg.effective = seg.desired
	}
	sh.queue = sh.queue[:0]
	return nil
}

// requestProtection recomputes and queues seg's desired protection without
// an explicit expose/cover pair, used whenever whiten/grey/blacken changes
// the state desiredProtection derives from.
func (sh *Shield) requestProtection(seg *Segment) {
	if seg.exposeDepth != 0 {
		return
	}
	seg.desired = seg.desiredProtection()
	if seg.desired == seg.effective || seg.queued {
		return
	}
	seg.queued = true
	sh.queue = append(sh.queue, seg)
}

// HandleFault resolves a mutator access fault at addr reported by the VM
// provider (a real SIGSEGV handler in a production build, or invoked
// directly by a test harness): it locates the containing segment and, if
// the segment is currently white for some trace, dispatches to that pool
// class's Access, the entry point for AWL's single-reference barrier
// emulation. A fault outside any segment, or on a segment not currently
// white, is a no-op.
func (a *Arena) HandleFault(addr Addr, mode AccessMode) Status {
	seg := a.locate(addr)
	if seg == nil || !seg.IsWhiteForAny() {
		return OK
	}
	return seg.pool.class.Access(seg, addr, mode)
}
