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

// TestAMCPoolClassesConstructButDoNotAllocate confirms AMC/AMCZ can be named
// and a pool created from them (so a client enumerating pool classes by
// name never needs a build tag), but that actually allocating through one
// reports Unimpl rather than silently doing nothing.
func TestAMCPoolClassesConstructButDoNotAllocate(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		class graingc.PoolClass
	}{
		{"AMC", graingc.PoolClassAMC(1024)},
		{"AMCZ", graingc.PoolClassAMCZ(1024)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, st := graingc.ArenaCreate("amc-test", graingc.ArenaSize(1<<16), graingc.GrainSize(64))
			require.Equal(t, graingc.OK, st)

			model := newCellModel(64)
			pool, st := graingc.PoolCreate(a, tc.class, model.format())
			require.Equal(t, graingc.OK, st)
			assert.Equal(t, tc.name, pool.Class().Describe())

			ap, st := graingc.APCreate(pool, graingc.RankExact)
			require.Equal(t, graingc.OK, st)

			_, st = ap.Reserve(64)
			assert.Equal(t, graingc.Unimpl, st)
		})
	}
}
