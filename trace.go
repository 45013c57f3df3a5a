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
	"context"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/graingc/graingc/internal/topo"
)

// TraceState is a trace's position in the collection state machine.
type TraceState int

const (
	// TraceInit is a newly created trace not yet assigned a condemn set.
	TraceInit TraceState = iota
	// TraceUnflipped has chosen and whitened its condemn set and greyed its
	// roots, but has not yet flipped.
	TraceUnflipped
	// TraceFlipped has flipped; all white-space references must now be
	// reported by scanning.
	TraceFlipped
	// TraceFinished has reclaimed its white segments and is done.
	TraceFinished
)

// String implements [fmt.Stringer].
func (s TraceState) String() string {
	switch s {
	case TraceInit:
		return "INIT"
	case TraceUnflipped:
		return "UNFLIPPED"
	case TraceFlipped:
		return "FLIPPED"
	case TraceFinished:
		return "FINISHED"
	default:
		return "?"
	}
}

// CollectOptions configures one ArenaCollect call.
type CollectOptions struct {
	// Reason is a human-readable string carried in the gcStart message.
	Reason string
	// Gen, if non-zero, targets a specific generation instead of every
	// generation with a positive capacity.
	Gen int
	// Blocking, if true, waits for a busy-trace slot instead of returning
	// Limit immediately when the busy set is full.
	Blocking bool
	// Emergency forces fixEmergency dispatch for the whole trace, as if
	// allocation had already failed.
	Emergency bool
}

// Trace is one collection cycle.
type Trace struct {
	arena     *Arena
	id        uuid.UUID
	index     int
	state     TraceState
	reason    string
	emergency bool

	condemned []*Segment // this trace's white set
	pools     []*Pool     // pools contributing to the condemned set

	grey [maxRank + 1][]*Segment // per-rank grey workqueues

	condemnedSize        int
	reclaimSize           int
	preservedInPlaceCount int

	ambiguousFixes map[*Segment]bool

	shield *Shield
}

// generationNode is one (pool, generation-index) pair in the dependency
// graph handed to internal/topo for leaves-first ordering.
type generationNode struct {
	pool *Pool
	gen  int
}

// ArenaCollect runs one full, synchronous collection cycle: condemn-set
// selection, flip, scan to a fixed point, and reclaim. For incremental use,
// prefer driving the same state machine through repeated [Arena.ArenaStep]
// calls instead (ArenaCollect is provided because several of the testable
// end-to-end scenarios describe a single blocking call).
func (a *Arena) ArenaCollect(opts CollectOptions) Status {
	t, st := a.traceInit(opts)
	if st != OK {
		return st
	}
	defer a.traceRelease(t)

	if st := t.unflip(opts); st != OK {
		return st
	}
	if st := t.flip(); st != OK {
		return st
	}
	for t.hasGreyWork() {
		if st := t.scanOnce(); st != OK {
			return st
		}
	}
	return t.finish()
}

// TraceStart begins a collection cycle without running it to completion:
// it selects and whitens a condemn set, flips the trace, and returns it
// still registered in the arena's busy set. The caller drives the rest of
// the cycle incrementally via repeated [Arena.ArenaStep] calls; ArenaStep
// releases the trace itself once its grey work is exhausted. Unlike
// ArenaCollect, TraceStart never blocks scanning to a fixed point, so it is
// the entry point an incremental mutator actually uses between allocations.
func (a *Arena) TraceStart(opts CollectOptions) (*Trace, Status) {
	t, st := a.traceInit(opts)
	if st != OK {
		return nil, st
	}
	if st := t.unflip(opts); st != OK {
		a.traceRelease(t)
		return nil, st
	}
	if st := t.flip(); st != OK {
		a.traceRelease(t)
		return nil, st
	}
	return t, OK
}

// ArenaStep performs a budgeted unit of incremental work across all
// currently flipped traces: grey segments are scanned whole until the grains
// of the segments scanned reach maxRefs in total (the last segment may
// overshoot it), or until ctx is done, whichever comes first. It returns OK with
// no error if work remains; callers poll again to make further progress. A
// trace that reaches its fixed point here is finished and released in the
// same call, the same as ArenaCollect's own deferred release.
func (a *Arena) ArenaStep(ctx context.Context, maxRefs int) Status {
	a.mu.Lock()
	traces := make([]*Trace, 0, len(a.busy))
	for _, t := range a.busy {
		if t.state == TraceFlipped {
			traces = append(traces, t)
		}
	}
	a.mu.Unlock()

	budget := maxRefs
	for _, t := range traces {
		select {
		case <-ctx.Done():
			return OK
		default:
		}
		if budget <= 0 {
			return OK
		}
		spent, st := t.scanBudgeted(budget)
		if st != OK {
			return st
		}
		budget -= spent
		if !t.hasGreyWork() {
			if st := t.finish(); st != OK {
				return st
			}
			a.traceRelease(t)
		}
	}
	return OK
}

func (a *Arena) traceInit(opts CollectOptions) (*Trace, Status) {
	if opts.Blocking {
		if err := a.sem.Acquire(context.Background(), 1); err != nil {
			return nil, Resource
		}
	} else if !a.sem.TryAcquire(1) {
		return nil, Limit
	}

	a.mu.Lock()
	idx := a.nextIdx
	a.nextIdx++
	t := &Trace{
		arena:          a,
		id:             uuid.New(),
		index:          idx,
		state:          TraceInit,
		reason:         opts.Reason,
		emergency:      opts.Emergency,
		ambiguousFixes: make(map[*Segment]bool),
		shield:         newShield(a.provider),
	}
	a.busy[idx] = t
	a.mu.Unlock()

	a.telemetry.Metrics.TracesStarted.Inc()
	if opts.Emergency {
		a.telemetry.Metrics.EmergencyMode.Inc()
	}
	a.telemetry.Log.Info("trace started",
		zap.Stringer("trace", t.id), zap.String("reason", opts.Reason),
		zap.Bool("emergency", opts.Emergency), zap.Bool("blocking", opts.Blocking))
	a.messages.push(gcStartMessage{id: t.id, reason: opts.Reason})
	return t, OK
}

func (a *Arena) traceRelease(t *Trace) {
	a.mu.Lock()
	delete(a.busy, t.index)
	a.mu.Unlock()
	a.sem.Release(1)
}

// unflip chooses the condemn set and whitens it, greys roots and
// non-condemned segments, and moves the trace to UNFLIPPED.
func (t *Trace) unflip(opts CollectOptions) Status {
	t.condemned, t.pools = t.selectCondemnSet(opts)

	var size int
	for _, seg := range t.condemned {
		size += seg.Size()
	}
	t.condemnedSize = size
	t.state = TraceUnflipped

	for _, seg := range t.condemned {
		if st := seg.pool.class.Whiten(seg, t); st != OK {
			return st
		}
		seg.setWhite(t)
	}

	t.arena.iterateSegments(func(seg *Segment) bool {
		if seg.IsWhite(t) {
			return true
		}
		if st := seg.pool.class.Grey(seg, t); st == OK && seg.IsGreyForAny() {
			t.enqueueGrey(seg)
		}
		return true
	})
	t.arena.Roots(func(r *Root) bool {
		ss, drop := newScanState(t, r.rank)
		defer drop()
		r.scan(ss.Fix)
		return true
	})
	return OK
}

// flip realizes the shield protection changes implied by whiten/grey and
// moves the trace to FLIPPED.
func (t *Trace) flip() Status {
	for _, seg := range t.condemned {
		t.shield.requestProtection(seg)
	}
	if err := t.shield.Flush(); err != nil {
		return IO
	}
	t.state = TraceFlipped
	t.arena.flipped.Store(t)
	t.arena.telemetry.Log.Debug("trace flipped",
		zap.Stringer("trace", t.id), zap.Int("condemnedSegments", len(t.condemned)),
		zap.Int("condemnedSize", t.condemnedSize))
	return OK
}

// selectCondemnSet picks generations to condemn. Each pool's CHAIN entries
// are modeled as a dependency chain (older generations depend on younger
// ones); internal/topo orders multiple pools' generations leaves-first, per
// spec.md §4.7. Every generation with a positive Capacity is a candidate on
// every collection: the amount allocated since the last collection is not
// compared against Capacity, and Mortality is not consulted.
func (t *Trace) selectCondemnSet(opts CollectOptions) ([]*Segment, []*Pool) {
	a := t.arena
	a.mu.Lock()
	pools := append([]*Pool(nil), a.pools...)
	a.mu.Unlock()

	var candidates []generationNode
	for _, p := range pools {
		for gi, gen := range p.config.Chain {
			if opts.Gen != 0 && gi != opts.Gen {
				continue
			}
			if gen.Capacity <= 0 {
				continue
			}
			candidates = append(candidates, generationNode{pool: p, gen: gi})
		}
	}

	graph := func(n generationNode) iter.Seq[generationNode] {
		return func(yield func(generationNode) bool) {
			if n.gen+1 < len(n.pool.config.Chain) {
				yield(generationNode{pool: n.pool, gen: n.gen + 1})
			}
		}
	}

	var ordered []generationNode
	seen := map[generationNode]bool{}
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		dag := topo.Sort(c, graph)
		for comp := range dag.LeavesFirst() {
			for _, m := range comp.Members() {
				if !seen[m] {
					seen[m] = true
					ordered = append(ordered, m)
				}
			}
		}
	}

	var segs []*Segment
	var condemnedPools []*Pool
	poolSeen := map[*Pool]bool{}
	for _, n := range ordered {
		if !poolSeen[n.pool] {
			poolSeen[n.pool] = true
			condemnedPools = append(condemnedPools, n.pool)

			configured := n.pool.config.Chain[n.gen].Mortality
			fields := []zap.Field{
				zap.Stringer("trace", t.id), zap.String("pool", n.pool.class.Name()),
				zap.Int("gen", n.gen), zap.Float64("configuredMortality", configured),
			}
			if observed, ok := a.ObservedMortality(n.pool); ok {
				fields = append(fields, zap.Float64("lastObservedMortality", observed))
			}
			a.telemetry.Log.Debug("condemning generation", fields...)
		}
		n.pool.Segments(func(seg *Segment) bool {
			if !seg.IsWhiteForAny() {
				segs = append(segs, seg)
			}
			return true
		})
	}
	return segs, condemnedPools
}

func (t *Trace) enqueueGrey(seg *Segment) {
	r := RankExact
	if single, ok := seg.RankSet().Single(); ok {
		r = single
	}
	t.grey[r] = append(t.grey[r], seg)
}

func (t *Trace) hasGreyWork() bool {
	for _, q := range t.grey {
		if len(q) > 0 {
			return true
		}
	}
	return false
}

// scanOnce scans every currently queued grey segment once. Because scan may
// itself grey further segments, callers must loop until hasGreyWork is
// false to reach the fixed point spec.md §4.7 requires.
func (t *Trace) scanOnce() Status {
	for r := range t.grey {
		queue := t.grey[r]
		t.grey[r] = nil
		for _, seg := range queue {
			if !seg.IsGrey(t) {
				continue
			}
			if st := t.scanSegment(seg); st != OK {
				return st
			}
		}
	}
	return OK
}

// scanBudgeted scans whole grey segments while fewer than budget grains
// have been spent, returning the number of grains actually spent.
func (t *Trace) scanBudgeted(budget int) (int, Status) {
	spent := 0
	for r := range t.grey {
		for len(t.grey[r]) > 0 && spent < budget {
			seg := t.grey[r][0]
			t.grey[r] = t.grey[r][1:]
			if !seg.IsGrey(t) {
				continue
			}
			if st := t.scanSegment(seg); st != OK {
				return spent, st
			}
			spent += seg.Size() / t.arena.grainSize
		}
	}
	return spent, OK
}

func (t *Trace) scanSegment(seg *Segment) Status {
	if err := t.shield.Expose(seg); err != nil {
		return IO
	}
	defer t.shield.Cover(seg)

	rank := RankExact
	if single, ok := seg.RankSet().Single(); ok {
		rank = single
	}
	ss, drop := newScanState(t, rank)
	defer drop()
	// The pool class owns deciding whether a pass fully scanned seg: AMS
	// re-enqueues instead of clearing grey when an ambiguous fix landed
	// mid-pass (spec.md §4.7 stage 4).
	return seg.pool.class.Scan(ss, seg)
}

// finish reclaims every white segment of every condemned pool and
// transitions the trace to FINISHED.
func (t *Trace) finish() Status {
	var reclaimed int
	perPool := make(map[*Pool][2]int) // pool -> [condemned, reclaimed]
	for _, seg := range t.condemned {
		size := seg.Size()
		freed, st := seg.pool.class.Reclaim(seg, t)
		if st != OK {
			return st
		}
		seg.clearWhite(t)
		reclaimed += freed

		e := perPool[seg.pool]
		e[0] += size
		e[1] += freed
		perPool[seg.pool] = e
	}
	t.reclaimSize = reclaimed
	t.state = TraceFinished
	t.arena.flipped.Delete(t)

	for p, e := range perPool {
		if e[0] > 0 {
			t.arena.recordMortality(p, float64(e[1])/float64(e[0]))
		}
	}

	t.arena.telemetry.Metrics.TracesFinished.Inc()
	t.arena.telemetry.Metrics.CondemnedSize.Observe(float64(t.condemnedSize))
	t.arena.telemetry.Metrics.ReclaimSize.Observe(float64(t.reclaimSize))
	t.arena.telemetry.Metrics.LiveSize.Set(float64(t.condemnedSize - t.reclaimSize))

	t.arena.messages.push(gcMessage{
		id:           t.id,
		live:         t.condemnedSize - t.reclaimSize,
		condemned:    t.condemnedSize,
		notCondemned: t.arena.ArenaCommitted() - t.condemnedSize,
	})
	t.arena.telemetry.Log.Info("trace finished",
		zap.Stringer("trace", t.id), zap.Int("condemnedSize", t.condemnedSize),
		zap.Int("reclaimSize", t.reclaimSize), zap.Int("preservedInPlace", t.preservedInPlaceCount))
	return OK
}

// Stats returns the trace's running statistics.
func (t *Trace) Stats() (condemnedSize, reclaimSize, preservedInPlaceCount int) {
	return t.condemnedSize, t.reclaimSize, t.preservedInPlaceCount
}

// State returns the trace's current state.
func (t *Trace) State() TraceState { return t.state }
