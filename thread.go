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

import (
	"github.com/timandy/routine"

	"github.com/graingc/graingc/internal/xsync"
)

// MutatorContext is the per-goroutine state threadReg/threadDereg attach:
// the default allocation point a registered thread allocates through, and
// the stack/register root contributed on its behalf.
type MutatorContext struct {
	AP   *AP
	Root *Root
}

// threadTable maps a registered goroutine's id to its MutatorContext,
// keyed by routine.Goid().
var threadTable xsync.Map[int64, *MutatorContext]

// ThreadReg registers the calling goroutine as a mutator thread: ap is the
// allocation point it will use, and [stackLo, stackHi) describes its
// conservative stack root, mirroring RootCreateStack. Passing an empty
// range (stackLo == stackHi) creates no root.
func ThreadReg(arena *Arena, ap *AP, stackLo, stackHi Addr) (*MutatorContext, Status) {
	var root *Root
	if stackLo != stackHi {
		r, st := RootCreateStack(arena, stackLo, stackHi)
		if st != OK {
			return nil, st
		}
		root = r
	}

	mc := &MutatorContext{AP: ap, Root: root}
	threadTable.Store(routine.Goid(), mc)
	return mc, OK
}

// ThreadDereg unregisters the calling goroutine, destroying its stack root
// and allocation point.
func ThreadDereg() Status {
	id := routine.Goid()
	mc, ok := threadTable.Load(id)
	if !ok {
		return Param
	}
	threadTable.Delete(id)

	if mc.Root != nil {
		RootDestroy(mc.Root)
	}
	if mc.AP != nil {
		APDestroy(mc.AP)
	}
	return OK
}

// CurrentMutator returns the calling goroutine's registered context, if
// any.
func CurrentMutator() (*MutatorContext, bool) {
	return threadTable.Load(routine.Goid())
}
