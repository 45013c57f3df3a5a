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

// AWLClass is AMS extended with a weak rank and a per-segment/per-trace
// single-access barrier budget (spec.md §4.9): a barrier hit on a weak
// segment during a flipped trace is handled by scanning exactly the
// faulting reference, so long as the budget allows, instead of scanning the
// whole segment and losing the chance to splat other dead weak references.
type AWLClass struct {
	*AMSClass

	findDependent func(obj Addr) (Addr, bool)

	segSA   map[*Segment]map[*Trace]int
	totalSA map[*Trace]int
}

// NewAWLClass returns an AWL pool class. findDependent, if non-nil, is the
// AWL_FIND_DEPENDENT callback; the class stores it but never invokes it.
func NewAWLClass(segSize int, findDependent func(obj Addr) (Addr, bool)) *AWLClass {
	ams := NewAMSClass(segSize)
	ams.name = "AWL"
	return &AWLClass{
		AMSClass:      ams,
		findDependent: findDependent,
		segSA:         make(map[*Segment]map[*Trace]int),
		totalSA:       make(map[*Trace]int),
	}
}

// PoolClassAWL returns the public AWL pool-class constructor.
func PoolClassAWL(segSize int, findDependent func(obj Addr) (Addr, bool)) PoolClass {
	return NewAWLClass(segSize, findDependent)
}

func (c *AWLClass) Name() string { return "AWL" }

// Reclaim clears this segment's single-access bookkeeping before
// delegating to AMS's reclaim.
func (c *AWLClass) Reclaim(seg *Segment, t *Trace) (int, Status) {
	delete(c.segSA, seg)
	delete(c.totalSA, t)
	return c.AMSClass.Reclaim(seg, t)
}

// Access implements the barrier-hit entry point for a weak segment: single
// reference scans are attempted first, falling back to a whole-segment scan
// once either budget is exhausted.
func (c *AWLClass) Access(seg *Segment, addr Addr, mode AccessMode) Status {
	trace := c.flippedTraceFor(seg)
	if trace == nil || !seg.RankSet().Has(RankWeak) {
		return c.wholeSegmentScan(seg, trace)
	}

	segLimit := seg.pool.config.SegSALimit
	totalLimit := seg.pool.config.TotalSALimit

	segCount := c.segSA[seg][trace]
	totCount := c.totalSA[trace]
	if segCount >= segLimit || totCount >= totalLimit {
		return c.wholeSegmentScan(seg, trace)
	}

	if st := c.singleAccess(seg, trace, addr); st != OK {
		return st
	}

	if c.segSA[seg] == nil {
		c.segSA[seg] = make(map[*Trace]int)
	}
	c.segSA[seg][trace]++
	c.totalSA[trace]++
	seg.pool.arena.telemetry.Metrics.SingleAccess.WithLabelValues(c.Name()).Inc()
	return OK
}

// singleAccess exposes seg, fixes exactly the reference at the faulting
// address, and covers it, without touching the rest of the segment.
func (c *AWLClass) singleAccess(seg *Segment, trace *Trace, addr Addr) Status {
	if err := trace.shield.Expose(seg); err != nil {
		return IO
	}
	defer trace.shield.Cover(seg)

	ref := Ref(addr)
	ss, drop := newScanState(trace, RankWeak)
	defer drop()
	return c.Fix(ss, seg, &ref)
}

// wholeSegmentScan falls through to scanning the entire segment, losing any
// further single-access (weak-splat) opportunities on it this trace.
func (c *AWLClass) wholeSegmentScan(seg *Segment, trace *Trace) Status {
	if trace == nil {
		return OK
	}
	if !seg.IsGrey(trace) {
		seg.setGrey(trace)
	}
	ss, drop := newScanState(trace, RankWeak)
	defer drop()
	return c.AMSClass.Scan(ss, seg)
}

// flippedTraceFor returns the trace seg is currently white for, if that
// trace is flipped, else nil.
func (c *AWLClass) flippedTraceFor(seg *Segment) *Trace {
	for t := range seg.white {
		if t.state == TraceFlipped {
			return t
		}
	}
	return nil
}
