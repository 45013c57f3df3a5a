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
	"github.com/graingc/graingc/internal/debug"
	"github.com/graingc/graingc/internal/zc"
)

// AccessMode describes the kind of mutator access that provoked a barrier
// hit, passed to PoolClass.Access.
type AccessMode int

const (
	// AccessRead is a protection-fault read.
	AccessRead AccessMode = iota
	// AccessWrite is a protection-fault write.
	AccessWrite
)

// WalkFunc is invoked once per live object during a pool or arena walk.
type WalkFunc func(obj Addr, format *Format, pool *Pool) Status

// PoolClass is the polymorphic vtable a pool class implements. Concrete
// classes (AMS, AWL, SNC) embed [BasePoolClass] and override only the
// operations they support; everything else dispatches to BasePoolClass's
// Unimpl/no-op defaults, matching "missing operations default to no-op or
// not supported."
type PoolClass interface {
	Name() string

	Init(p *Pool) Status
	Finish(p *Pool) Status

	BufferFill(ap *AP, size int) (zc.Range, Status)
	BufferEmpty(ap *AP, unused zc.Range) Status

	Whiten(seg *Segment, t *Trace) Status
	Grey(seg *Segment, t *Trace) Status
	Blacken(seg *Segment, t *Trace) Status
	Scan(ss *ScanState, seg *Segment) Status
	Fix(ss *ScanState, seg *Segment, slot *Ref) Status
	FixEmergency(ss *ScanState, seg *Segment, slot *Ref) Status

	// Reclaim frees the dead grains of a condemned segment and returns the
	// number of bytes actually freed (not necessarily the whole segment:
	// objects preserved in place by a late fix stay allocated).
	Reclaim(seg *Segment, t *Trace) (freed int, st Status)

	Walk(p *Pool, cb WalkFunc) Status
	Access(seg *Segment, addr Addr, mode AccessMode) Status

	FramePush(ap *AP) (Addr, Status)
	FramePop(ap *AP, marker Addr) Status

	TotalSize(p *Pool) int
	FreeSize(p *Pool) int
	Describe() string
}

// BasePoolClass implements every [PoolClass] method as either a safe no-op
// or Unimpl, so concrete classes only need to override what they actually
// support.
type BasePoolClass struct{ name string }

func (BasePoolClass) Init(*Pool) Status   { return OK }
func (BasePoolClass) Finish(*Pool) Status { return OK }

func (BasePoolClass) BufferFill(*AP, int) (zc.Range, Status) {
	debug.Log(nil, "pool", "%v", debug.Unsupported())
	return zc.Range(0), Unimpl
}
func (BasePoolClass) BufferEmpty(*AP, zc.Range) Status { return OK }

func (BasePoolClass) Whiten(*Segment, *Trace) Status            { return OK }
func (BasePoolClass) Grey(*Segment, *Trace) Status              { return OK }
func (BasePoolClass) Blacken(*Segment, *Trace) Status           { return OK }
func (BasePoolClass) Scan(*ScanState, *Segment) Status        { return OK }
func (BasePoolClass) Fix(*ScanState, *Segment, *Ref) Status   { return Unimpl }
func (b BasePoolClass) FixEmergency(ss *ScanState, s *Segment, r *Ref) Status {
	return b.Fix(ss, s, r)
}
func (BasePoolClass) Reclaim(*Segment, *Trace) (int, Status) { return 0, OK }

func (BasePoolClass) Walk(*Pool, WalkFunc) Status                  { return Unimpl }
func (BasePoolClass) Access(*Segment, Addr, AccessMode) Status     { return Unimpl }
func (BasePoolClass) FramePush(*AP) (Addr, Status)                 { return NullAddr, Unimpl }
func (BasePoolClass) FramePop(*AP, Addr) Status                    { return Unimpl }
func (BasePoolClass) TotalSize(*Pool) int                          { return 0 }
func (BasePoolClass) FreeSize(*Pool) int                            { return 0 }
func (b BasePoolClass) Name() string                                { return b.name }
func (b BasePoolClass) Describe() string                            { return b.name }

// Pool owns a ring of segments and a format; its behavior is entirely
// dispatched through its PoolClass.
type Pool struct {
	arena  *Arena
	class  PoolClass
	format *Format
	config Config

	head  *Segment // ring head; nil when the pool has no segments
	count int

	freeList []*Segment // pool-local free segments (SNC) awaiting reuse
}

// PoolCreate attaches a new pool of the given class to arena.
func PoolCreate(arena *Arena, class PoolClass, format *Format, opts ...Option) (*Pool, Status) {
	if arena == nil || class == nil {
		return nil, Param
	}
	cfg, st := NewConfig(opts...)
	if st != OK {
		return nil, st
	}

	p := &Pool{arena: arena, class: class, format: format, config: cfg}
	if st := class.Init(p); st != OK {
		return nil, st
	}

	arena.mu.Lock()
	arena.pools = append(arena.pools, p)
	arena.mu.Unlock()
	return p, OK
}

// PoolDestroy finishes p's class and detaches it from its arena. The arena
// must be parked.
func PoolDestroy(p *Pool) Status {
	if st := p.class.Finish(p); st != OK {
		return st
	}
	a := p.arena
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, q := range a.pools {
		if q == p {
			a.pools = append(a.pools[:i], a.pools[i+1:]...)
			break
		}
	}
	for seg := p.head; seg != nil; {
		next := seg.ring.next
		if next == p.head {
			next = nil
		}
		a.freeSegmentLocked(seg)
		seg = next
	}
	p.head = nil
	return OK
}

// Arena returns the owning arena.
func (p *Pool) Arena() *Arena { return p.arena }

// Class returns the pool's class.
func (p *Pool) Class() PoolClass { return p.class }

// Format returns the pool's format, or nil.
func (p *Pool) Format() *Format { return p.format }

// Config returns the pool's configuration.
func (p *Pool) Config() Config { return p.config }

// ringAppend inserts seg at the tail of p's segment ring.
func (p *Pool) ringAppend(seg *Segment) {
	seg.pool = p
	if p.head == nil {
		seg.ring.next, seg.ring.prev = seg, seg
		p.head = seg
	} else {
		tail := p.head.ring.prev
		tail.ring.next = seg
		seg.ring.prev = tail
		seg.ring.next = p.head
		p.head.ring.prev = seg
	}
	p.count++
}

// ringRemove unlinks seg from its pool's ring.
func (p *Pool) ringRemove(seg *Segment) {
	if seg.ring.next == seg {
		p.head = nil
	} else {
		seg.ring.next.ring.prev = seg.ring.prev
		seg.ring.prev.ring.next = seg.ring.next
		if p.head == seg {
			p.head = seg.ring.next
		}
	}
	seg.ring.next, seg.ring.prev = nil, nil
	p.count--
}

// Segments calls yield once per segment in ring order, stopping early if
// yield returns false.
func (p *Pool) Segments(yield func(*Segment) bool) {
	if p.head == nil {
		return
	}
	seg := p.head
	for {
		next := seg.ring.next
		if !yield(seg) {
			return
		}
		if next == p.head {
			return
		}
		seg = next
	}
}

// TotalSize reports the pool's total owned bytes via its class.
func (p *Pool) TotalSize() int { return p.class.TotalSize(p) }

// FreeSize reports the pool's free bytes via its class.
func (p *Pool) FreeSize() int { return p.class.FreeSize(p) }
