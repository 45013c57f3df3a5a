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

// ArenaFormattedObjectsWalk iterates every live object of every formatted
// pool in the arena, exposing each segment and stepping through it with the
// pool's format, invoking cb once per object. The arena must be parked.
func (a *Arena) ArenaFormattedObjectsWalk(cb WalkFunc) Status {
	if !a.isParked() {
		return Param
	}

	shield := newShield(a.provider)
	var st Status
	a.iterateSegments(func(seg *Segment) bool {
		if seg.pool.format == nil {
			return true
		}
		if err := shield.Expose(seg); err != nil {
			st = IO
			return false
		}
		s := seg.pool.class.Walk(seg.pool, func(obj Addr, f *Format, p *Pool) Status {
			if !seg.Contains(obj) {
				return OK
			}
			return cb(obj, f, p)
		})
		shield.Cover(seg)
		if s != OK && s != Unimpl {
			st = s
			return false
		}
		return true
	})
	if err := shield.Flush(); err != nil && st == OK {
		st = IO
	}
	return st
}

// PoolWalk iterates one pool using its class's area-scan, never fixing
// (the walk's effective white zone is empty). The arena must be parked.
func PoolWalk(pool *Pool, cb WalkFunc) Status {
	if !pool.arena.isParked() {
		return Param
	}
	return pool.class.Walk(pool, cb)
}

// ArenaRootsWalk observes every root reference without mutating graph
// state: roots are scanned by rank in ascending order and cb is invoked on
// each candidate with the root's rank. No trace is created and no Fix runs;
// every segment's white/grey state is checked to be unchanged on return.
// The arena must be parked.
func (a *Arena) ArenaRootsWalk(cb func(ref Ref, rank Rank) Status) Status {
	if !a.isParked() {
		return Param
	}

	type saved struct {
		white bool
		grey  bool
	}
	before := make(map[*Segment]saved)
	a.iterateSegments(func(seg *Segment) bool {
		before[seg] = saved{white: seg.IsWhiteForAny(), grey: seg.IsGreyForAny()}
		return true
	})

	var byRank [maxRank + 1][]*Root
	a.Roots(func(r *Root) bool {
		byRank[r.rank] = append(byRank[r.rank], r)
		return true
	})

	var st Status
outer:
	for rank := Rank(0); rank <= maxRank; rank++ {
		for _, r := range byRank[rank] {
			ss, drop := newScanState(nil, rank)
			s := r.scan(func(slot *Ref) Status { return cb(*slot, ss.rank) })
			drop()
			if s != OK {
				st = s
				break outer
			}
		}
	}

	// Roots-walk never touches segment color/white/grey state in this
	// design (it never calls ScanState.Fix, only the client callback), so the
	// restoration pass is a verification, not a repair: any mismatch here
	// would indicate a bug in a future change, not expected drift.
	a.iterateSegments(func(seg *Segment) bool {
		s := before[seg]
		debugAssertUnchanged(seg, s.white, s.grey)
		return true
	})

	return st
}

func debugAssertUnchanged(seg *Segment, white, grey bool) {
	if seg.IsWhiteForAny() != white || seg.IsGreyForAny() != grey {
		panic("graingc: arenaRootsWalk mutated segment color state")
	}
}
