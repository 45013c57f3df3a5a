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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graingc/graingc"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c, st := graingc.NewConfig()
	require.Equal(t, graingc.OK, st)
	assert.Equal(t, graingc.DefaultConfig().ArenaSize, c.ArenaSize)
	assert.Equal(t, graingc.DefaultConfig().GrainSize, c.GrainSize)
}

func TestNewConfigAppliesOptions(t *testing.T) {
	t.Parallel()

	c, st := graingc.NewConfig(
		graingc.ArenaSize(1<<20),
		graingc.GrainSize(256),
		graingc.Chain(graingc.GenConfig{Capacity: 4096, Mortality: 0.5}),
		graingc.SingleAccessLimits(2, 16),
	)
	require.Equal(t, graingc.OK, st)
	assert.Equal(t, 1<<20, c.ArenaSize)
	assert.Equal(t, 256, c.GrainSize)
	assert.Equal(t, 2, c.SegSALimit)
	assert.Equal(t, 16, c.TotalSALimit)
	require.Len(t, c.Chain, 1)
	assert.Equal(t, 0.5, c.Chain[0].Mortality)
}

func TestNewConfigRejectsInvalidGrainSize(t *testing.T) {
	t.Parallel()

	_, st := graingc.NewConfig(graingc.GrainSize(100)) // not a power of two
	assert.Equal(t, graingc.Param, st)
}

func TestNewConfigRejectsUnalignedArena(t *testing.T) {
	t.Parallel()

	_, st := graingc.NewConfig(graingc.ArenaSize(100), graingc.GrainSize(64))
	assert.Equal(t, graingc.Param, st)
}

func TestNewConfigRejectsBadMortality(t *testing.T) {
	t.Parallel()

	_, st := graingc.NewConfig(graingc.Chain(graingc.GenConfig{Capacity: 1, Mortality: 1.5}))
	assert.Equal(t, graingc.Param, st)
}

func TestLoadConfigYAML(t *testing.T) {
	t.Parallel()

	doc := `
arenaSize: 2097152
grainSize: 512
segSALimit: 3
totalSALimit: 48
chain:
  - capacity: 65536
    mortality: 0.45
  - capacity: 262144
    mortality: 0.2
`
	c, err := graingc.LoadConfigYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2097152, c.ArenaSize)
	assert.Equal(t, 512, c.GrainSize)
	assert.Equal(t, 3, c.SegSALimit)
	require.Len(t, c.Chain, 2)
	assert.Equal(t, 0.45, c.Chain[0].Mortality)
	assert.Equal(t, 262144, c.Chain[1].Capacity)
}

func TestLoadConfigYAMLRejectsInvalidResult(t *testing.T) {
	t.Parallel()

	doc := "arenaSize: 0\n"
	_, err := graingc.LoadConfigYAML(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadConfigYAMLPropagatesDecodeError(t *testing.T) {
	t.Parallel()

	_, err := graingc.LoadConfigYAML(strings.NewReader("not: [valid"))
	assert.Error(t, err)
}
