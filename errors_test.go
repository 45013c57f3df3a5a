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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graingc/graingc"
)

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OK", graingc.OK.String())
	assert.Equal(t, "MEMORY", graingc.Memory.String())
	assert.Contains(t, graingc.Status(99).String(), "99")
}

func TestLoadConfigYAMLErrorIsStatusError(t *testing.T) {
	t.Parallel()

	_, err := graingc.LoadConfigYAML(strings.NewReader("arenaSize: 0\n"))
	require_ := assert.New(t)
	require_.Error(err)
	assert.True(t, strings.Contains(err.Error(), "PARAM"))

	var se *graingc.StatusError
	require_.True(errors.As(err, &se))
	assert.Equal(t, graingc.Param, se.Status)
}
