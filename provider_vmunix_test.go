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

//go:build unix

package graingc_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/graingc/graingc"
)

// TestVMProviderProtectsRealMemory anchors a VMProvider on an actual
// anonymous mapping and drives a full collection through it, confirming
// every Expose/Cover pair the shield issues leaves the mapping readable and
// writable again once the trace finishes (mprotect calls that left pages
// restricted would fault the test's final write to mem).
func TestVMProviderProtectsRealMemory(t *testing.T) {
	t.Parallel()

	const arenaSize = 1 << 16
	mem, err := unix.Mmap(-1, 0, arenaSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	defer unix.Munmap(mem)

	base := uintptr(unsafe.Pointer(&mem[0]))

	a, pool, model := testArena(t, graingc.PoolClassAMS(1024), 64, 64, arenaSize,
		graingc.Chain(graingc.GenConfig{Capacity: 1, Mortality: 0.5}))
	a.SetProvider(graingc.NewVMProvider(base))

	ap, st := graingc.APCreate(pool, graingc.RankExact)
	require.Equal(t, graingc.OK, st)

	root := make([]graingc.Ref, 1)
	_, st = graingc.RootCreateTable(a, root, graingc.RankExact)
	require.Equal(t, graingc.OK, st)
	root[0] = graingc.Ref(allocCell(t, ap, model))

	require.Equal(t, graingc.OK, a.ArenaCollect(graingc.CollectOptions{Reason: "vmprovider-test"}))

	// Mapping must be left read/write: the shield's trace-end Cover should
	// have restored every segment it exposed mid-scan.
	mem[0] = 0xAA
	assert.Equal(t, byte(0xAA), mem[0])
}

// TestProtModeTranslationCoversEveryMode confirms VMProvider.Protect accepts
// every ProtMode against real memory without error, exercising the
// mode-translation branch directly rather than only through a collection.
func TestProtModeTranslationCoversEveryMode(t *testing.T) {
	t.Parallel()

	mem, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	defer unix.Munmap(mem)

	p := graingc.NewVMProvider(uintptr(unsafe.Pointer(&mem[0])))

	for _, mode := range []graingc.ProtMode{graingc.ProtNone, graingc.ProtRead, graingc.ProtReadWrite} {
		assert.NoError(t, p.Protect(graingc.Addr(0), unix.Getpagesize(), mode))
	}
	// Restore read/write before the deferred Munmap.
	require.NoError(t, p.Protect(graingc.Addr(0), unix.Getpagesize(), graingc.ProtReadWrite))
}
