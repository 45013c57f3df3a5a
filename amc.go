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

// amcClass is a named placeholder for the moving-collector pool classes:
// client code that enumerates available pool classes by name can construct
// one without a build tag, but every operation beyond Name/Describe falls
// through to BasePoolClass's defaults: BufferFill, Fix, Walk, Access and the
// frame operations report Unimpl, and the rest are no-ops returning OK or
// zero. Actual moving/compacting
// behavior is out of scope (no compaction across pool classes).
type amcClass struct {
	BasePoolClass
}

// PoolClassAMC returns the named, non-functional AMC (automatic mostly-
// copying) pool class.
func PoolClassAMC(segSize int) PoolClass {
	return &amcClass{BasePoolClass: BasePoolClass{name: "AMC"}}
}

// PoolClassAMCZ returns the named, non-functional AMCZ (AMC for objects
// with no outgoing references) pool class.
func PoolClassAMCZ(segSize int) PoolClass {
	return &amcClass{BasePoolClass: BasePoolClass{name: "AMCZ"}}
}
