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

// RootKind identifies the shape of the location set a [Root] describes.
type RootKind int

const (
	// RootTable is a table of references, scanned at the root's rank.
	RootTable RootKind = iota
	// RootTableMasked is a table where words satisfying (word & mask) != 0
	// are ignored.
	RootTableMasked
	// RootRegsAndStack is a thread's registers and conservative stack
	// range, scanned at ambiguous rank.
	RootRegsAndStack
	// RootScanCallback invokes a client closure to enumerate references.
	RootScanCallback
)

// Root describes a location set the mutator treats as live: a table of
// words, a thread register set, a conservative stack range, or a callback.
type Root struct {
	arena *Arena
	kind  RootKind
	rank  Rank

	table []Ref
	mask  Word

	stackLo, stackHi Addr
	regs             []Ref

	callback func(fix func(*Ref) Status) Status

	protectable bool
	mutable     bool
}

// RootCreateTable registers a root of the given rank over table, a slice of
// client-owned reference slots. The caller keeps table alive and mutable;
// the collector takes addresses of its elements during scanning.
func RootCreateTable(arena *Arena, table []Ref, rank Rank) (*Root, Status) {
	r := &Root{arena: arena, kind: RootTable, table: table, rank: rank, mutable: true}
	return arena.addRoot(r), OK
}

// RootCreateTableMasked registers a table root where any slot value w with
// (w & mask) != 0 is treated as a non-reference and skipped.
func RootCreateTableMasked(arena *Arena, table []Ref, mask Word, rank Rank) (*Root, Status) {
	r := &Root{arena: arena, kind: RootTableMasked, table: table, mask: mask, rank: rank, mutable: true}
	return arena.addRoot(r), OK
}

// RootCreateStack registers an ambiguous conservative stack range
// [lo, hi), scanned word-by-word.
func RootCreateStack(arena *Arena, lo, hi Addr) (*Root, Status) {
	r := &Root{arena: arena, kind: RootRegsAndStack, stackLo: lo, stackHi: hi, rank: RankAmbiguous, mutable: true, protectable: false}
	return arena.addRoot(r), OK
}

// RootCreateReg registers an ambiguous register-file root over regs, a
// slice of client-owned register-shadow slots.
func RootCreateReg(arena *Arena, regs []Ref) (*Root, Status) {
	r := &Root{arena: arena, kind: RootRegsAndStack, regs: regs, rank: RankAmbiguous, mutable: true}
	return arena.addRoot(r), OK
}

// RootCreateCallback registers a callback root: cb is invoked with a fix
// function during scanning/walking and must call it once per reference it
// wants to report, passing the address of the slot so fixes that splat (AWL
// weak rank) can zero it.
func RootCreateCallback(arena *Arena, rank Rank, cb func(fix func(*Ref) Status) Status) (*Root, Status) {
	if cb == nil {
		return nil, Param
	}
	r := &Root{arena: arena, kind: RootScanCallback, callback: cb, rank: rank, mutable: true}
	return arena.addRoot(r), OK
}

// RootDestroy unregisters r.
func RootDestroy(r *Root) Status {
	a := r.arena
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, q := range a.roots {
		if q == r {
			a.roots = append(a.roots[:i], a.roots[i+1:]...)
			return OK
		}
	}
	return Param
}

func (a *Arena) addRoot(r *Root) *Root {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roots = append(a.roots, r)
	return r
}

// Roots calls yield once per registered root, stopping early if yield
// returns false.
func (a *Arena) Roots(yield func(*Root) bool) {
	a.mu.Lock()
	roots := append([]*Root(nil), a.roots...)
	a.mu.Unlock()
	for _, r := range roots {
		if !yield(r) {
			return
		}
	}
}

// scan walks r's references, invoking fix on the address of every candidate
// slot. This is the shared implementation used both by real trace scanning
// (trace.go) and by arenaRootsWalk (walk.go).
func (r *Root) scan(fix func(*Ref) Status) Status {
	switch r.kind {
	case RootTable:
		for i := range r.table {
			if st := fix(&r.table[i]); st != OK {
				return st
			}
		}
		return OK

	case RootTableMasked:
		for i := range r.table {
			if Word(r.table[i])&r.mask != 0 {
				continue
			}
			if st := fix(&r.table[i]); st != OK {
				return st
			}
		}
		return OK

	case RootRegsAndStack:
		for i := range r.regs {
			if st := fix(&r.regs[i]); st != OK {
				return st
			}
		}
		for a := r.stackLo; a < r.stackHi; a += 8 {
			candidate := Ref(a)
			if st := fix(&candidate); st != OK {
				return st
			}
		}
		return OK

	case RootScanCallback:
		return r.callback(fix)

	default:
		return Param
	}
}
