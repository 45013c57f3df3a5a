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

import "github.com/graingc/graingc/internal/zc"

// sncPayload links a segment into its buffer's stack-order chain. next
// points toward the bottom of the stack (older segments); it is nil at the
// oldest segment currently attached to a buffer.
type sncPayload struct {
	next *Segment
}

// SNCClass implements the stack-nursery pool class: segments form a
// per-buffer stack, allocation never scans or condemns, and lightweight
// frames (framePush/framePop) bound allocation scopes cheaply.
type SNCClass struct {
	BasePoolClass
	segSize int
}

// NewSNCClass returns an SNC pool class allocating segments of segSize
// bytes.
func NewSNCClass(segSize int) *SNCClass {
	return &SNCClass{BasePoolClass: BasePoolClass{name: "SNC"}, segSize: segSize}
}

// PoolClassSNC returns the public SNC pool-class constructor.
func PoolClassSNC(segSize int) PoolClass { return NewSNCClass(segSize) }

// BufferFill pops a free-list segment first-fit by size, or allocates a
// fresh one, chaining it above the buffer's current top segment.
func (c *SNCClass) BufferFill(ap *AP, size int) (zc.Range, Status) {
	want := size
	if want < c.segSize {
		want = c.segSize
	}

	seg := c.takeFree(ap.pool, want)
	var st Status
	if seg == nil {
		seg, st = ap.pool.arena.allocSegment(ap.pool, want)
		if st != OK {
			return zc.Range(0), st
		}
	}

	top := ap.seg
	seg.class = &sncPayload{next: top}
	// A non-empty rank set marks the segment live for walkers; SNC segments
	// are never condemned or greyed, so they are never scanned.
	seg.SetRankSet(NewRankSet(ap.rank))
	ap.seg = seg
	return seg.extent, OK
}

// takeFree removes and returns the first pool-local free segment at least
// size bytes, or nil.
func (c *SNCClass) takeFree(p *Pool, size int) *Segment {
	for i, seg := range p.freeList {
		if seg.Size() >= size {
			p.freeList = append(p.freeList[:i], p.freeList[i+1:]...)
			return seg
		}
	}
	return nil
}

// BufferEmpty pads the unused suffix of the buffer's current top segment.
func (c *SNCClass) BufferEmpty(ap *AP, unused zc.Range) Status {
	if unused.Len() > 0 && ap.pool.format != nil && ap.pool.format.Pad != nil {
		ap.pool.format.Pad(Addr(unused.Start()), unused.Len())
	}
	return OK
}

// FramePush returns ap's current init pointer, or NullAddr at the bottom of
// the stack.
func (c *SNCClass) FramePush(ap *AP) (Addr, Status) {
	if ap.seg == nil {
		return NullAddr, OK
	}
	return ap.init, OK
}

// FramePop frees every segment above the one containing marker, pads that
// segment's unused suffix, and resets the buffer's alloc pointer to marker.
// Popping to NullAddr discards the whole chain.
func (c *SNCClass) FramePop(ap *AP, marker Addr) Status {
	if marker.IsNull() {
		return c.popAll(ap)
	}

	seg := ap.seg
	for seg != nil && !seg.Contains(marker) {
		next := seg.class.(*sncPayload).next
		c.free(ap.pool, seg)
		seg = next
	}
	if seg == nil {
		return Param
	}

	ap.seg = seg
	ap.alloc = marker
	ap.init = marker
	ap.limit = seg.Limit()

	if ap.pool.format != nil && ap.pool.format.Pad != nil && marker < seg.Limit() {
		ap.pool.format.Pad(marker, seg.Limit().Sub(marker))
	}
	return OK
}

func (c *SNCClass) popAll(ap *AP) Status {
	seg := ap.seg
	for seg != nil {
		next := seg.class.(*sncPayload).next
		c.free(ap.pool, seg)
		seg = next
	}
	ap.seg = nil
	ap.base, ap.init, ap.alloc, ap.limit = NullAddr, NullAddr, NullAddr, NullAddr
	return OK
}

// free pads seg whole, clears its rank set so the collector and walkers
// skip it, and returns it to the pool-local free list.
func (c *SNCClass) free(p *Pool, seg *Segment) {
	if p.format != nil && p.format.Pad != nil {
		p.format.Pad(seg.Base(), seg.Size())
	}
	seg.SetRankSet(RankSet(0))
	p.freeList = append(p.freeList, seg)
}

func (c *SNCClass) TotalSize(p *Pool) int {
	total := 0
	p.Segments(func(seg *Segment) bool { total += seg.Size(); return true })
	return total
}

func (c *SNCClass) FreeSize(p *Pool) int {
	free := 0
	for _, seg := range p.freeList {
		free += seg.Size()
	}
	return free
}

func (c *SNCClass) Walk(p *Pool, cb WalkFunc) Status {
	if p.format == nil {
		return Unimpl
	}
	var st Status
	p.Segments(func(seg *Segment) bool {
		if seg.RankSet().IsEmpty() {
			return true // freed/padded segment, nothing live here
		}
		addr := seg.Base()
		for addr < seg.Limit() {
			next := p.format.Skip(addr)
			if next <= addr {
				break
			}
			if s := cb(addr, p.format, p); s != OK {
				st = s
				return false
			}
			addr = next
		}
		return true
	})
	return st
}
