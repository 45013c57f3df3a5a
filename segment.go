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

// Segment is a contiguous range of arena grains owned by exactly one pool.
//
// The base/limit extent is packed into a single zc.Range rather than two
// separate Addr fields, so a Segment header costs one word instead of two
// (grounded on the teacher's packed zero-copy range representation).
type Segment struct {
	extent zc.Range // [base, limit) in bytes relative to the arena origin.
	pool   *Pool

	rankSet RankSet
	summary RankSet // conservative superset of reference ranks out of this segment

	white map[*Trace]struct{} // traces for which this segment is condemned
	grey  map[*Trace]struct{} // traces for which some objects here are grey

	exposeDepth int
	desired     ProtMode
	effective   ProtMode
	queued      bool // protection change queued in the shield's cache

	buffered zc.Range // range currently claimed by an attached AP, or empty

	// class is a polymorphic, per-pool-class payload (AMS bit tables, SNC
	// chain link, ...). Concrete pool classes type-assert this themselves.
	class any

	ring *ringLink
}

// ringLink threads a segment into its owning pool's doubly-linked ring.
type ringLink struct {
	next, prev *Segment
}

func newSegment(pool *Pool, base Addr, grains, grainSize int) *Segment {
	s := &Segment{
		extent: zc.New(int(base), grains*grainSize),
		pool:   pool,
		white:  make(map[*Trace]struct{}),
		grey:   make(map[*Trace]struct{}),
	}
	s.ring = &ringLink{}
	return s
}

// Base returns the segment's lowest address.
func (s *Segment) Base() Addr { return Addr(s.extent.Start()) }

// Limit returns the segment's address just past its end.
func (s *Segment) Limit() Addr { return Addr(s.extent.End()) }

// Size returns the segment's size in bytes.
func (s *Segment) Size() int { return s.extent.Len() }

// Pool returns the owning pool.
func (s *Segment) Pool() *Pool { return s.pool }

// Contains reports whether a is within [Base, Limit).
func (s *Segment) Contains(a Addr) bool { return s.extent.Contains(int(a)) }

// RankSet returns the segment's rank set.
func (s *Segment) RankSet() RankSet { return s.rankSet }

// SetRankSet sets the segment's rank set.
func (s *Segment) SetRankSet(r RankSet) { s.rankSet = r }

// Summary returns the segment's conservative reference-destination summary.
func (s *Segment) Summary() RankSet { return s.summary }

// SetSummary widens the segment's summary to include r.
func (s *Segment) SetSummary(r RankSet) { s.summary |= r }

// IsWhite reports whether s is condemned for trace t.
func (s *Segment) IsWhite(t *Trace) bool {
	_, ok := s.white[t]
	return ok
}

// IsWhiteForAny reports whether s is condemned for any active trace.
func (s *Segment) IsWhiteForAny() bool { return len(s.white) > 0 }

// IsGrey reports whether s has grey objects with respect to trace t.
func (s *Segment) IsGrey(t *Trace) bool {
	_, ok := s.grey[t]
	return ok
}

// IsGreyForAny reports whether s is grey for any trace.
func (s *Segment) IsGreyForAny() bool { return len(s.grey) > 0 }

// setWhite marks s condemned for t. The single-white invariant (a segment
// may be white for at most one trace at a time) is enforced by the trace
// engine at condemn-set selection time, not here.
func (s *Segment) setWhite(t *Trace) { s.white[t] = struct{}{} }

func (s *Segment) clearWhite(t *Trace) { delete(s.white, t) }

func (s *Segment) setGrey(t *Trace) { s.grey[t] = struct{}{} }

func (s *Segment) clearGrey(t *Trace) { delete(s.grey, t) }

// desiredProtection computes the shield's desired mode: a segment that is
// grey for any trace is read-protected (ProtNone) so mutator access traps
// and the barrier can greyen it; other states are unprotected.
func (s *Segment) desiredProtection() ProtMode {
	if s.rankSet.IsEmpty() {
		return ProtReadWrite
	}
	if s.IsGreyForAny() {
		return ProtNone
	}
	return ProtReadWrite
}
