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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graingc/graingc"
)

// TestAMSMarkSweepRetention builds root -> a -> b reachable, plus an
// unreachable c, runs one blocking collection, and checks that reachable
// cells survive while the unreachable one is reclaimed.
func TestAMSMarkSweepRetention(t *testing.T) {
	t.Parallel()

	a, pool, model := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16,
		graingc.Chain(graingc.GenConfig{Capacity: 1, Mortality: 0.5}))

	ap, st := graingc.APCreate(pool, graingc.RankExact)
	require.Equal(t, graingc.OK, st)

	root := make([]graingc.Ref, 1)
	_, st = graingc.RootCreateTable(a, root, graingc.RankExact)
	require.Equal(t, graingc.OK, st)

	addrA := allocCell(t, ap, model)
	addrB := allocCell(t, ap, model)
	addrC := allocCell(t, ap, model)

	cellA, _ := model.get(addrA)
	cellA.next = graingc.Ref(addrB)
	root[0] = graingc.Ref(addrA)

	// Retiring the buffer registers the cells' grains as allocated with the
	// pool before the collection runs; a live AP's still-open buffer region
	// is not this test's concern.
	require.Equal(t, graingc.OK, graingc.APDestroy(ap))

	require.Equal(t, graingc.OK, a.ArenaCollect(graingc.CollectOptions{Reason: "test"}))

	live := walkLiveAddrs(t, a)
	assert.True(t, live[addrA], "root-reachable cell A should survive")
	assert.True(t, live[addrB], "transitively reachable cell B should survive")
	assert.False(t, live[addrC], "unreachable cell C should be reclaimed")
}

// TestAMSCollectIdempotentWhenNothingCondemned runs a second collection
// immediately after the first finishes; it must not error or drop anything
// further, since nothing new was allocated in between.
func TestAMSCollectIdempotentWhenNothingCondemned(t *testing.T) {
	t.Parallel()

	a, pool, model := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16,
		graingc.Chain(graingc.GenConfig{Capacity: 1, Mortality: 0.5}))
	ap, _ := graingc.APCreate(pool, graingc.RankExact)
	root := make([]graingc.Ref, 1)
	_, _ = graingc.RootCreateTable(a, root, graingc.RankExact)

	addr := allocCell(t, ap, model)
	root[0] = graingc.Ref(addr)
	require.Equal(t, graingc.OK, graingc.APDestroy(ap))

	require.Equal(t, graingc.OK, a.ArenaCollect(graingc.CollectOptions{Reason: "first"}))
	require.Equal(t, graingc.OK, a.ArenaCollect(graingc.CollectOptions{Reason: "second"}))
	assert.True(t, walkLiveAddrs(t, a)[addr])
}

func TestArenaHasAddrMembership(t *testing.T) {
	t.Parallel()

	a, pool, model := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16)
	ap, _ := graingc.APCreate(pool, graingc.RankExact)

	assert.False(t, a.ArenaHasAddr(graingc.NullAddr))

	addr := allocCell(t, ap, model)
	assert.True(t, a.ArenaHasAddr(addr))
	assert.False(t, a.ArenaHasAddr(addr.Add(1<<20)))
}

func TestArenaCollectReportsGCMessage(t *testing.T) {
	t.Parallel()

	a, pool, model := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16,
		graingc.Chain(graingc.GenConfig{Capacity: 1, Mortality: 0.5}))
	ap, _ := graingc.APCreate(pool, graingc.RankExact)
	root := make([]graingc.Ref, 1)
	_, _ = graingc.RootCreateTable(a, root, graingc.RankExact)

	liveCell := allocCell(t, ap, model)
	_ = allocCell(t, ap, model) // left unreachable
	root[0] = graingc.Ref(liveCell)
	require.Equal(t, graingc.OK, graingc.APDestroy(ap))

	assert.False(t, a.MessageQueueType(graingc.MessageGC), "no gc message queued before a collection runs")
	require.Equal(t, graingc.OK, a.ArenaCollect(graingc.CollectOptions{Reason: "msg-test"}))

	var sawGC bool
	for {
		m, ok := a.MessageGet()
		if !ok {
			break
		}
		if m.Type == graingc.MessageGC {
			sawGC = true
			assert.True(t, m.Condemned >= m.Live)
		}
	}
	assert.True(t, sawGC, "expected a MessageGC to have been queued")
}
