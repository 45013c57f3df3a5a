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

import "github.com/graingc/graingc/internal/sync2"

// ScanState is the ephemeral record for one scan pass: the trace it serves,
// the rank currently being scanned, a summary accumulator, and the Fix
// method every Format.Scan callback invokes on each candidate reference.
type ScanState struct {
	trace   *Trace
	rank    Rank
	summary RankSet
}

// scanStatePool recycles ScanState values across scan/fix passes: the
// collector's own bookkeeping allocations (one ScanState per segment scan,
// per root scan, per AWL single-access fault) come from this pool instead of
// the general allocator, the same role spec.md §5 assigns to a control pool.
var scanStatePool = sync2.Pool[ScanState]{
	Reset: func(ss *ScanState) { *ss = ScanState{} },
}

// newScanState checks out a pooled ScanState configured for trace/rank,
// returning it along with a function that returns it to the pool.
func newScanState(trace *Trace, rank Rank) (*ScanState, func()) {
	ss, drop := scanStatePool.Get()
	ss.trace = trace
	ss.rank = rank
	return ss, drop
}

// Rank returns the rank currently being scanned.
func (ss *ScanState) Rank() Rank { return ss.rank }

// Summary returns the conservative reference-destination summary
// accumulated so far by Fix calls on this scan state.
func (ss *ScanState) Summary() RankSet { return ss.summary }

// Fix runs the four-stage fix protocol (spec.md §4.7) on one candidate
// reference:
//
//  1. cheap null check; NullAddr can never be in a condemned segment, so
//     skip without a segment lookup.
//  2. locate the segment; if it is not white for any active trace, skip.
//  3. dispatch to the owning pool's Fix (or FixEmergency, if the trace has
//     entered emergency mode).
//  4. an ambiguous-rank fix marks the segment as having had an ambiguous
//     fix this scan, forcing the next scan pass to scan the whole segment
//     rather than relying on incremental grey tracking.
func (ss *ScanState) Fix(slot *Ref) Status {
	addr := Addr(*slot)
	if addr.IsNull() {
		return OK
	}

	t := ss.trace
	seg := t.arena.locate(addr)
	if seg == nil || !seg.IsWhiteForAny() {
		ss.summary = ss.summary.With(ss.rank)
		return OK
	}

	var st Status
	if t.emergency {
		st = seg.pool.class.FixEmergency(ss, seg, slot)
	} else {
		st = seg.pool.class.Fix(ss, seg, slot)
	}
	if st != OK && st != Fail {
		return st
	}

	if ss.rank == RankAmbiguous {
		t.ambiguousFixes[seg] = true
	}

	ss.summary = ss.summary.With(ss.rank)
	return OK
}

// AmbiguousFixesPending reports whether seg received an ambiguous fix
// during the current trace's most recent scan pass, which forces a
// whole-segment rescan rather than trusting incremental grey tracking
// (spec.md §4.7 stage 4).
func (t *Trace) AmbiguousFixesPending(seg *Segment) bool {
	return t.ambiguousFixes[seg]
}

// ClearAmbiguousFixes clears seg's ambiguous-fix flag after the forced
// whole-segment rescan has happened.
func (t *Trace) ClearAmbiguousFixes(seg *Segment) {
	delete(t.ambiguousFixes, seg)
}
