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
	"sync"

	"github.com/google/btree"
	"golang.org/x/sync/semaphore"

	"github.com/graingc/graingc/internal/sync2"
	"github.com/graingc/graingc/internal/telemetry"
	"github.com/graingc/graingc/internal/xsync"
)

// segIndexEntry is the btree key: ordered by base address so point queries
// are O(log n) and iteration runs in address order (spec.md §4.2).
type segIndexEntry struct {
	base  Addr
	limit Addr
	seg   *Segment
}

func segLess(a, b segIndexEntry) bool { return a.base < b.base }

// Arena owns a reserved address range split into grain-aligned segments,
// the pools living in it, its registered roots, and the traces currently
// running against it.
type Arena struct {
	mu sync.Mutex

	reservation int // total bytes reserved, ARENA_SIZE
	grainSize   int // ARENA_GRAIN_SIZE
	committed   int // bytes currently handed out as segments

	nextBase Addr // bump cursor for fresh segment allocation

	index *btree.BTreeG[segIndexEntry]
	pools []*Pool
	roots []*Root

	busy    map[int]*Trace // trace index -> trace, at most config.MaxBusyTraces
	flipped xsync.Set[*Trace]
	nextIdx int

	// mortality tracks each pool's most recently observed dead fraction
	// (reclaimed/condemned bytes from its last trace), feeding back into
	// selectCondemnSet's logging alongside each generation's configured
	// GenConfig.Mortality estimate.
	mortality xsync.Map[*Pool, *sync2.AtomicFloat64]

	sem *semaphore.Weighted

	parked bool

	provider  Provider
	telemetry *telemetry.T
	messages  *messageQueue

	config Config
}

// ArenaCreate reserves a new arena with the given configuration. class is
// accepted for API symmetry with PoolCreate's class-first shape but is
// currently unused: a single Arena implementation backs every pool class.
func ArenaCreate(class string, opts ...Option) (*Arena, Status) {
	cfg, st := NewConfig(opts...)
	if st != OK {
		return nil, st
	}

	a := &Arena{
		reservation: cfg.ArenaSize,
		grainSize:   cfg.GrainSize,
		// Grain 0 is never handed out: Addr(0) aliases NullAddr, and an
		// object legitimately allocated there would be indistinguishable
		// from a null reference to ScanState.Fix and from "no segment" to
		// ArenaHasAddr. Starting the bump cursor one grain in keeps every
		// real object's address nonzero.
		nextBase:  Addr(cfg.GrainSize),
		index:     btree.NewG(32, segLess),
		busy:      make(map[int]*Trace),
		sem:       semaphore.NewWeighted(int64(cfg.MaxBusyTraces)),
		telemetry: telemetry.New(),
		messages:  newMessageQueue(),
		config:    cfg,
	}
	return a, OK
}

// GrainSize returns the arena's grain size in bytes.
func (a *Arena) GrainSize() int { return a.grainSize }

// Config returns the arena's configuration.
func (a *Arena) Config() Config { return a.config }

// Telemetry exposes the arena's logger and Prometheus registry for clients
// that want to wire them into their own observability stack.
func (a *Arena) Telemetry() *telemetry.T { return a.telemetry }

// SetProvider installs the VM provider used by the arena's shield. It must
// be called before any segment is allocated.
func (a *Arena) SetProvider(p Provider) { a.provider = p }

// ArenaDestroy tears down the arena. All pools must already be destroyed.
func ArenaDestroy(a *Arena) Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pools) != 0 {
		return Param
	}
	return OK
}

// ArenaPark sets the arena's parked flag, which the walkers require. The
// collector itself runs on mutator time slices, so parking is a flag, not a
// suspension primitive: it does not wait for busy traces, and ArenaCollect
// and TraceStart do not check it.
func (a *Arena) ArenaPark() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parked = true
	return OK
}

// ArenaRelease undoes ArenaPark.
func (a *Arena) ArenaRelease() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parked = false
	return OK
}

// isParked reports whether the arena is currently parked, for operations
// that require it (walkers).
func (a *Arena) isParked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parked
}

// ArenaCommitted returns the number of bytes currently committed to
// segments.
func (a *Arena) ArenaCommitted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.committed
}

// ArenaHasAddr reports whether p falls within some segment owned by some
// pool of the arena. ArenaHasAddr(NullAddr) is always false.
func (a *Arena) ArenaHasAddr(p Addr) bool {
	if p.IsNull() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locateLocked(p) != nil
}

// locate finds the segment containing p, or nil.
func (a *Arena) locate(p Addr) *Segment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locateLocked(p)
}

func (a *Arena) locateLocked(p Addr) *Segment {
	var found *Segment
	a.index.DescendLessOrEqual(segIndexEntry{base: p}, func(e segIndexEntry) bool {
		if p < e.limit {
			found = e.seg
		}
		return false
	})
	return found
}

// allocSegment rounds size up to a grain multiple and carves out a fresh
// segment for pool, bump-allocating from the arena's reservation.
func (a *Arena) allocSegment(pool *Pool, size int) (*Segment, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	grains := (size + a.grainSize - 1) / a.grainSize
	if grains == 0 {
		grains = 1
	}
	bytes := grains * a.grainSize

	if int(a.nextBase)+bytes > a.reservation {
		return nil, Memory
	}

	seg := newSegment(pool, a.nextBase, grains, a.grainSize)
	a.index.ReplaceOrInsert(segIndexEntry{base: seg.Base(), limit: seg.Limit(), seg: seg})
	a.nextBase += Addr(bytes)
	a.committed += bytes

	pool.ringAppend(seg)
	return seg, OK
}

// freeSegment returns seg's address range to the arena's bookkeeping. It
// does not compact the reservation; segments are never reused by address,
// only by pool-local free lists (SNC) or full-segment reclaim (AMS).
func (a *Arena) freeSegment(seg *Segment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeSegmentLocked(seg)
}

func (a *Arena) freeSegmentLocked(seg *Segment) {
	a.index.Delete(segIndexEntry{base: seg.Base()})
	a.committed -= seg.Size()
}

// recordMortality stores p's most recently observed dead-fraction, replacing
// any prior value.
func (a *Arena) recordMortality(p *Pool, rate float64) {
	v, _ := a.mortality.LoadOrStore(p, func() *sync2.AtomicFloat64 { return new(sync2.AtomicFloat64) })
	v.Store(rate)
}

// ObservedMortality returns the dead-fraction observed at p's most recently
// finished trace, or (0, false) if p has never been condemned.
func (a *Arena) ObservedMortality(p *Pool) (float64, bool) {
	v, ok := a.mortality.Load(p)
	if !ok {
		return 0, false
	}
	return v.Load(), true
}

// iterateSegments visits every segment of every pool in address order.
func (a *Arena) iterateSegments(yield func(*Segment) bool) {
	a.mu.Lock()
	entries := make([]segIndexEntry, 0, a.index.Len())
	a.index.Ascend(func(e segIndexEntry) bool {
		entries = append(entries, e)
		return true
	})
	a.mu.Unlock()

	for _, e := range entries {
		if !yield(e.seg) {
			return
		}
	}
}
