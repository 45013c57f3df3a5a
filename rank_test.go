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

func TestRankSetEmpty(t *testing.T) {
	t.Parallel()

	var s graingc.RankSet
	assert.True(t, s.IsEmpty())
	_, ok := s.Single()
	assert.False(t, ok)
}

func TestRankSetWithWithoutHas(t *testing.T) {
	t.Parallel()

	s := graingc.NewRankSet(graingc.RankExact)
	assert.True(t, s.Has(graingc.RankExact))
	assert.False(t, s.Has(graingc.RankWeak))

	s = s.With(graingc.RankWeak)
	assert.True(t, s.Has(graingc.RankWeak))

	s = s.Without(graingc.RankExact)
	assert.False(t, s.Has(graingc.RankExact))
	assert.True(t, s.Has(graingc.RankWeak))
}

func TestRankSetSingle(t *testing.T) {
	t.Parallel()

	s := graingc.NewRankSet(graingc.RankAmbiguous)
	r, ok := s.Single()
	require := assert.New(t)
	require.True(ok)
	require.Equal(graingc.RankAmbiguous, r)

	s = s.With(graingc.RankWeak)
	_, ok = s.Single()
	assert.False(t, ok)
}

func TestRankString(t *testing.T) {
	t.Parallel()

	cases := map[graingc.Rank]string{
		graingc.RankAmbiguous: "ambiguous",
		graingc.RankExact:     "exact",
		graingc.RankFinal:     "final",
		graingc.RankWeak:      "weak",
	}
	for r, want := range cases {
		assert.Equal(t, want, r.String())
	}
}
