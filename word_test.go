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

	"github.com/graingc/graingc"
)

func TestAddrIsNull(t *testing.T) {
	t.Parallel()

	assert.True(t, graingc.NullAddr.IsNull())
	assert.False(t, graingc.Addr(1).IsNull())
}

func TestAddrAddSub(t *testing.T) {
	t.Parallel()

	a := graingc.Addr(100)
	b := a.Add(50)
	assert.Equal(t, graingc.Addr(150), b)
	assert.Equal(t, 50, b.Sub(a))
	assert.Equal(t, -50, a.Sub(b))
}

func TestAlignUpDown(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, grain   int
		up, down int
	}{
		{0, 16, 0, 0},
		{1, 16, 16, 0},
		{16, 16, 16, 16},
		{17, 16, 32, 16},
		{4095, 4096, 4096, 0},
	}
	for _, c := range cases {
		up := graingc.AlignUp(graingc.Addr(c.a), c.grain)
		down := graingc.AlignDown(graingc.Addr(c.a), c.grain)
		assert.Equal(t, graingc.Addr(c.up), up, "AlignUp(%d, %d)", c.a, c.grain)
		assert.Equal(t, graingc.Addr(c.down), down, "AlignDown(%d, %d)", c.a, c.grain)
	}
}

func TestIsAligned(t *testing.T) {
	t.Parallel()

	assert.True(t, graingc.IsAligned(graingc.Addr(0), 64))
	assert.True(t, graingc.IsAligned(graingc.Addr(128), 64))
	assert.False(t, graingc.IsAligned(graingc.Addr(65), 64))
}

func TestAddrString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x10", graingc.Addr(16).String())
}
