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

import "github.com/graingc/graingc/internal/debug"

// AP (allocation point) is a per-mutator fast-path bump allocator attached
// to a pool. Invariant: segBase <= base <= init <= alloc <= limit <=
// segLimit.
type AP struct {
	pool *Pool
	rank Rank

	seg   *Segment
	base  Addr
	init  Addr
	alloc Addr
	limit Addr

	rampDepth int // allocPatternBegin/End nesting
	flipSeen  bool
}

// APCreate attaches a new, empty allocation point to pool with the given
// rank.
func APCreate(pool *Pool, rank Rank) (*AP, Status) {
	if pool == nil {
		return nil, Param
	}
	return &AP{pool: pool, rank: rank}, OK
}

// APDestroy detaches ap, returning its unused region to the pool.
func APDestroy(ap *AP) Status {
	return ap.detach()
}

// Pool returns the pool ap is attached to.
func (ap *AP) Pool() *Pool { return ap.pool }

// Rank returns ap's rank.
func (ap *AP) Rank() Rank { return ap.rank }

// Reserve returns a base address for an object of size bytes, calling the
// pool's BufferFill for a fresh region if the current buffer has no room.
func (ap *AP) Reserve(size int) (Addr, Status) {
	if size < 0 {
		return NullAddr, Param
	}
	if want := ap.alloc.Add(size); want <= ap.limit {
		return ap.alloc, OK
	}
	if st := ap.refill(size); st != OK {
		return NullAddr, st
	}
	if want := ap.alloc.Add(size); want <= ap.limit {
		return ap.alloc, OK
	}
	return NullAddr, Memory
}

// refill retires ap's current buffer, if any, then asks the pool class for a
// fresh buffer window able to hold size bytes, attaching ap to whatever
// segment it names.
func (ap *AP) refill(size int) Status {
	if ap.seg != nil {
		unused := ap.seg.extent.WithStart(int(ap.alloc)).WithEnd(int(ap.limit))
		if st := ap.pool.class.BufferEmpty(ap, unused); st != OK {
			return st
		}
	}

	rng, st := ap.pool.class.BufferFill(ap, size)
	if st != OK {
		return st
	}
	seg := ap.seg
	if seg == nil {
		debug.Assert(false, "BufferFill did not attach a segment to AP")
	}
	ap.base = Addr(rng.Start())
	ap.init = ap.base
	ap.alloc = ap.base
	ap.limit = Addr(rng.End())
	_ = seg
	return OK
}

// Commit finalizes an allocation of size bytes starting at base, which must
// equal the buffer's alloc pointer, and returns (OK, true). If the AP's
// flipSeen flag is set, Commit clears it and returns (OK, false), and the
// caller must re-initialize the object and call Reserve again. Nothing in
// this package sets flipSeen, so a flip between Reserve and Commit is not
// detected.
func (ap *AP) Commit(base Addr, size int) (Status, bool) {
	if base != ap.alloc {
		return Param, false
	}
	if ap.flipSeen {
		ap.flipSeen = false
		return OK, false
	}
	ap.alloc = base.Add(size)
	ap.init = ap.alloc
	return OK, true
}

// detach pads the unused region via BufferEmpty and clears ap's segment
// binding.
func (ap *AP) detach() Status {
	if ap.seg == nil {
		return OK
	}
	unused := ap.seg.extent.WithStart(int(ap.alloc)).WithEnd(int(ap.limit))
	st := ap.pool.class.BufferEmpty(ap, unused)
	ap.seg = nil
	ap.base, ap.init, ap.alloc, ap.limit = NullAddr, NullAddr, NullAddr, NullAddr
	return st
}

// AllocPatternBegin marks the start of a ramp allocation pattern (bulk
// sequential allocation expected to be mostly dead). It only deepens the
// nesting InRamp reports; no pool class here treats ramp allocation
// differently.
func (ap *AP) AllocPatternBegin() { ap.rampDepth++ }

// AllocPatternEnd ends the innermost ramp pattern.
func (ap *AP) AllocPatternEnd() {
	if ap.rampDepth > 0 {
		ap.rampDepth--
	}
}

// InRamp reports whether ap is currently inside a ramp allocation pattern.
func (ap *AP) InRamp() bool { return ap.rampDepth > 0 }

// FramePush returns an opaque marker at ap's current init point, via the
// pool class (only SNC supports this; others return Unimpl).
func (ap *AP) FramePush() (Addr, Status) {
	return ap.pool.class.FramePush(ap)
}

// FramePop discards every object allocated above marker, returning their
// segments to the pool via the pool class.
func (ap *AP) FramePop(marker Addr) Status {
	return ap.pool.class.FramePop(ap, marker)
}
