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
	"github.com/graingc/graingc/internal/bt"
	"github.com/graingc/graingc/internal/zc"
)

// amsPayload is the per-segment state an AMS pool attaches to a Segment's
// polymorphic class field: three bit tables over grains (alloc, mark,
// scanned), as described in spec.md §4.9.
type amsPayload struct {
	alloc, mark, scanned *bt.Table
	grains               int
	grainSize            int
}

func (p *amsPayload) grainOf(seg *Segment, a Addr) int {
	return a.Sub(seg.Base()) / p.grainSize
}

// colorOf derives an AMS grain's tri-color state from its bits: White iff
// alloc && !mark; Grey iff alloc && mark && !scanned; Black iff alloc &&
// mark && scanned.
func (p *amsPayload) colorOf(i int) (white, grey, black bool) {
	if !p.alloc.Get(i) {
		return false, false, false
	}
	if !p.mark.Get(i) {
		return true, false, false
	}
	if !p.scanned.Get(i) {
		return false, true, false
	}
	return false, false, true
}

// AMSClass implements the AMS (automatic mark-and-sweep) pool class: fixed
// per-grain alloc/mark/scanned bit tables, no compaction.
type AMSClass struct {
	BasePoolClass
	segSize int
}

// NewAMSClass returns an AMS pool class allocating new segments of segSize
// bytes (rounded up to the arena's grain size at allocation time).
func NewAMSClass(segSize int) *AMSClass {
	return &AMSClass{BasePoolClass: BasePoolClass{name: "AMS"}, segSize: segSize}
}

// PoolClassAMS returns the public AMS pool-class constructor named in
// spec.md §6's poolClassXxx() registry.
func PoolClassAMS(segSize int) PoolClass { return NewAMSClass(segSize) }

// PoolClassAMSDebug is AMS with the debug pool-class name; behavior is
// identical, since POOL_DEBUG_OPTIONS (splat pattern, free-check) is a
// per-pool Config field rather than a distinct class in this design.
func PoolClassAMSDebug(segSize int) PoolClass {
	c := NewAMSClass(segSize)
	c.name = "AMS_DEBUG"
	return c
}

func (c *AMSClass) BufferFill(ap *AP, size int) (zc.Range, Status) {
	want := size
	if want < c.segSize {
		want = c.segSize
	}
	seg, st := ap.pool.arena.allocSegment(ap.pool, want)
	if st != OK {
		return zc.Range(0), st
	}

	grains := seg.Size() / ap.pool.arena.grainSize
	seg.class = &amsPayload{
		alloc:     bt.New(grains),
		mark:      bt.New(grains),
		scanned:   bt.New(grains),
		grains:    grains,
		grainSize: ap.pool.arena.grainSize,
	}
	seg.SetRankSet(NewRankSet(ap.rank))
	ap.seg = seg
	return seg.extent, OK
}

func (c *AMSClass) BufferEmpty(ap *AP, unused zc.Range) Status {
	seg := ap.seg
	pl := seg.class.(*amsPayload)

	usedGrains := (int(ap.alloc) - seg.extent.Start()) / pl.grainSize
	if usedGrains > 0 {
		pl.alloc.SetRange(0, usedGrains)
		pl.mark.SetRange(0, usedGrains)
		pl.scanned.SetRange(0, usedGrains)
	}

	if unused.Len() > 0 && seg.pool.format != nil && seg.pool.format.Pad != nil {
		seg.pool.format.Pad(Addr(unused.Start()), unused.Len())
	}
	return OK
}

func (c *AMSClass) Whiten(seg *Segment, t *Trace) Status {
	pl := seg.class.(*amsPayload)
	// Clearing mark/scanned over the allocated grains turns every
	// currently-black object white; scanning during this trace re-marks
	// whatever turns out to still be live.
	pl.mark.ResetRange(0, pl.grains)
	pl.scanned.ResetRange(0, pl.grains)
	return OK
}

func (c *AMSClass) Scan(ss *ScanState, seg *Segment) Status {
	pl := seg.class.(*amsPayload)
	format := seg.pool.format
	if format == nil {
		return Unimpl
	}

	addr := seg.Base()
	for addr < seg.Limit() {
		i := pl.grainOf(seg, addr)
		white, grey, _ := pl.colorOf(i)
		next := format.Skip(addr)
		if next <= addr {
			break
		}
		if grey {
			if st := format.Scan(ss, addr, next); st != OK {
				return st
			}
			pl.scanned.Set(i)
		} else if white {
			// Not yet reached by any reference this pass; left white.
		}
		addr = next
	}

	if ss.trace.AmbiguousFixesPending(seg) {
		// Stage 4: an ambiguous fix landed mid-pass, so findGrey-style
		// incremental tracking is no longer trustworthy for this segment;
		// force another whole-segment pass before declaring it scanned.
		ss.trace.ClearAmbiguousFixes(seg)
		ss.trace.enqueueGrey(seg)
	} else {
		seg.clearGrey(ss.trace)
	}
	return OK
}

func (c *AMSClass) Fix(ss *ScanState, seg *Segment, slot *Ref) Status {
	pl := seg.class.(*amsPayload)
	addr := Addr(*slot)
	i := pl.grainOf(seg, addr)
	if i < 0 || i >= pl.grains {
		return OK
	}
	if ss.rank == RankAmbiguous && !IsAligned(addr, pl.grainSize) {
		return OK
	}
	if !pl.alloc.Get(i) {
		return OK // dangling/ambiguous reference to a free grain
	}

	white, _, _ := pl.colorOf(i)
	if ss.rank == RankWeak {
		if white {
			*slot = 0
		}
		return OK
	}

	if white {
		pl.mark.Set(i)
		pl.scanned.Reset(i)
		if !seg.IsGrey(ss.trace) {
			seg.setGrey(ss.trace)
			ss.trace.enqueueGrey(seg)
		}
	}
	return OK
}

func (c *AMSClass) Reclaim(seg *Segment, t *Trace) (int, Status) {
	pl := seg.class.(*amsPayload)
	freedGrains := 0
	for i := 0; i < pl.grains; i++ {
		white, _, _ := pl.colorOf(i)
		if white {
			pl.alloc.Reset(i)
			pl.mark.Reset(i)
			pl.scanned.Reset(i)
			freedGrains++
		}
	}
	if pl.alloc.CountSetInRange(0, pl.grains) == 0 {
		seg.pool.ringRemove(seg)
		seg.pool.arena.freeSegment(seg)
	}
	return freedGrains * pl.grainSize, OK
}

func (c *AMSClass) Walk(p *Pool, cb WalkFunc) Status {
	var st Status
	p.Segments(func(seg *Segment) bool {
		pl, ok := seg.class.(*amsPayload)
		if !ok {
			return true
		}
		addr := seg.Base()
		for addr < seg.Limit() {
			i := pl.grainOf(seg, addr)
			next := p.format.Skip(addr)
			if next <= addr {
				break
			}
			if pl.alloc.Get(i) {
				if s := cb(addr, p.format, p); s != OK {
					st = s
					return false
				}
			}
			addr = next
		}
		return true
	})
	return st
}

func (c *AMSClass) TotalSize(p *Pool) int {
	total := 0
	p.Segments(func(seg *Segment) bool { total += seg.Size(); return true })
	return total
}

func (c *AMSClass) FreeSize(p *Pool) int {
	free := 0
	p.Segments(func(seg *Segment) bool {
		pl, ok := seg.class.(*amsPayload)
		if !ok {
			return true
		}
		setGrains := pl.alloc.CountSetInRange(0, pl.grains)
		free += (pl.grains - setGrains) * pl.grainSize
		return true
	})
	return free
}
