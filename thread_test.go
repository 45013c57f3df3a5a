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

// TestThreadRegDeregRoundTrip registers the calling goroutine with a stack
// root and an AP, confirms CurrentMutator sees it, then deregisters and
// confirms both the context and its stack root are gone.
func TestThreadRegDeregRoundTrip(t *testing.T) {
	t.Parallel()

	a, pool, _ := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16)
	ap, st := graingc.APCreate(pool, graingc.RankExact)
	require.Equal(t, graingc.OK, st)

	mc, st := graingc.ThreadReg(a, ap, graingc.Addr(0x1000), graingc.Addr(0x2000))
	require.Equal(t, graingc.OK, st)
	require.NotNil(t, mc.Root)
	assert.Same(t, ap, mc.AP)

	got, ok := graingc.CurrentMutator()
	require.True(t, ok)
	assert.Same(t, mc, got)

	rootsBefore := 0
	a.Roots(func(*graingc.Root) bool { rootsBefore++; return true })

	require.Equal(t, graingc.OK, graingc.ThreadDereg())

	_, ok = graingc.CurrentMutator()
	assert.False(t, ok, "deregistering should drop the goroutine's mutator context")

	rootsAfter := 0
	a.Roots(func(*graingc.Root) bool { rootsAfter++; return true })
	assert.Equal(t, rootsBefore-1, rootsAfter, "ThreadDereg should destroy the stack root it created")
}

// TestThreadRegWithoutStackRangeLeavesRootNil checks the documented shortcut
// for passing an empty stack range: no root is created.
func TestThreadRegWithoutStackRangeLeavesRootNil(t *testing.T) {
	t.Parallel()

	a, pool, _ := testArena(t, graingc.PoolClassAMS(1024), 64, 64, 1<<16)
	ap, st := graingc.APCreate(pool, graingc.RankExact)
	require.Equal(t, graingc.OK, st)

	mc, st := graingc.ThreadReg(a, ap, graingc.Addr(0x1000), graingc.Addr(0x1000))
	require.Equal(t, graingc.OK, st)
	assert.Nil(t, mc.Root)

	require.Equal(t, graingc.OK, graingc.ThreadDereg())
}

// TestThreadDeregWithoutRegistrationReturnsParam confirms an unregistered
// goroutine can't deregister.
func TestThreadDeregWithoutRegistrationReturnsParam(t *testing.T) {
	t.Parallel()

	_, ok := graingc.CurrentMutator()
	require.False(t, ok, "a fresh goroutine should have no registered mutator context")
	assert.Equal(t, graingc.Param, graingc.ThreadDereg())
}
