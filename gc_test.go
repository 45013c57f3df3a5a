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

package graingc_test

import (
	"sync"

	"github.com/graingc/graingc"
)

// cell is the storage behind one test object: a single outgoing reference.
// Since the arena models addresses rather than real memory (see DESIGN.md),
// the test fixture owns the actual bytes; graingc only ever sees Addr/Ref
// values.
type cell struct {
	next graingc.Ref
}

// cellModel is a minimal client-side object model: fixed-size cells, one
// outgoing reference each, registered with an arena via a single Format.
type cellModel struct {
	mu       sync.Mutex
	cells    map[graingc.Addr]*cell
	cellSize int
}

func newCellModel(cellSize int) *cellModel {
	return &cellModel{cells: make(map[graingc.Addr]*cell), cellSize: cellSize}
}

func (m *cellModel) put(addr graingc.Addr) *cell {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &cell{}
	m.cells[addr] = c
	return c
}

func (m *cellModel) get(addr graingc.Addr) (*cell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cells[addr]
	return c, ok
}

// addrs returns the set of addresses the model still considers live. Unlike
// an arena walk, this reflects exactly what Pad has deleted so far: SNC's
// Walk has no per-grain allocation table to filter by (see snc.go), so it
// reports every grain-aligned slot of a still-attached segment, padding
// included, leaving the model's own bookkeeping as the only accurate ground
// truth for SNC liveness.
func (m *cellModel) addrs() map[graingc.Addr]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[graingc.Addr]bool, len(m.cells))
	for addr := range m.cells {
		out[addr] = true
	}
	return out
}

func (m *cellModel) format() *graingc.Format {
	f, st := graingc.FormatCreate(graingc.Format{
		Scan: func(ss *graingc.ScanState, base, _ graingc.Addr) graingc.Status {
			c, ok := m.get(base)
			if !ok {
				return graingc.OK
			}
			return ss.Fix(&c.next)
		},
		Skip: func(addr graingc.Addr) graingc.Addr { return addr.Add(m.cellSize) },
		Pad: func(base graingc.Addr, size int) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for a := base; a < base.Add(size); a = a.Add(m.cellSize) {
				delete(m.cells, a)
			}
		},
		Alignment: m.cellSize,
	})
	if st != graingc.OK {
		panic(st)
	}
	return f
}

// testArena builds a small arena with a single AMS (or AWL, via class) pool
// whose cells are cellSize bytes, grainSize-aligned.
func testArena(t interface {
	Helper()
	Fatalf(string, ...any)
}, class graingc.PoolClass, grainSize, cellSize, arenaSize int, opts ...graingc.Option) (*graingc.Arena, *graingc.Pool, *cellModel) {
	t.Helper()
	allOpts := append([]graingc.Option{graingc.ArenaSize(arenaSize), graingc.GrainSize(grainSize)}, opts...)
	a, st := graingc.ArenaCreate("test", allOpts...)
	if st != graingc.OK {
		t.Fatalf("ArenaCreate: %v", st)
	}
	model := newCellModel(cellSize)
	p, st := graingc.PoolCreate(a, class, model.format())
	if st != graingc.OK {
		t.Fatalf("PoolCreate: %v", st)
	}
	return a, p, model
}

// walkLiveAddrs parks a, walks every formatted object the pool classes still
// consider allocated, and returns their addresses. This is the ground truth
// for "did this object survive the collection" — a pool class's Reclaim
// never tells the client Format which bytes it freed, so a test can't watch
// for that directly.
func walkLiveAddrs(t interface {
	Helper()
	Fatalf(string, ...any)
}, a *graingc.Arena) map[graingc.Addr]bool {
	t.Helper()
	require_ok := func(st graingc.Status, op string) {
		if st != graingc.OK {
			t.Fatalf("%s: %v", op, st)
		}
	}
	require_ok(a.ArenaPark(), "ArenaPark")
	defer a.ArenaRelease()

	seen := make(map[graingc.Addr]bool)
	st := a.ArenaFormattedObjectsWalk(func(obj graingc.Addr, _ *graingc.Format, _ *graingc.Pool) graingc.Status {
		seen[obj] = true
		return graingc.OK
	})
	require_ok(st, "ArenaFormattedObjectsWalk")
	return seen
}

// allocCell reserves and commits one cellSize-byte cell through ap, and
// registers it in model, returning its address.
func allocCell(t interface {
	Helper()
	Fatalf(string, ...any)
}, ap *graingc.AP, model *cellModel) graingc.Addr {
	t.Helper()
	addr, st := ap.Reserve(model.cellSize)
	if st != graingc.OK {
		t.Fatalf("Reserve: %v", st)
	}
	if ok, committed := ap.Commit(addr, model.cellSize); ok != graingc.OK || !committed {
		t.Fatalf("Commit: status=%v committed=%v", ok, committed)
	}
	model.put(addr)
	return addr
}
