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

import "fmt"

// Word is a machine-word-sized value, the unit the scanner reads candidate
// references out of.
type Word = uint64

// Addr is an offset into the arena's reserved address range. The arena
// holds no backing bytes of its own (object storage belongs to the client;
// see DESIGN.md), so Addr is a logical offset, not a real pointer;
// NullAddr is the distinguished address no segment ever occupies.
type Addr uint64

// NullAddr is the distinguished "no address" value; arenaHasAddr(NullAddr)
// is always false, and frame markers use it as the bottom-of-stack
// sentinel.
const NullAddr Addr = 0

// Ref is an Addr typed distinctly from a generic offset so that client
// Format callbacks cannot accidentally pass a raw byte offset where a
// scanned object reference is expected.
type Ref Addr

// IsNull reports whether a is the null address.
func (a Addr) IsNull() bool { return a == NullAddr }

// Add returns a+n.
func (a Addr) Add(n int) Addr { return a + Addr(n) }

// Sub returns the byte distance a-b.
func (a Addr) Sub(b Addr) int { return int(a - b) }

// String implements [fmt.Stringer].
func (a Addr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// AlignUp rounds a up to the nearest multiple of grain (grain must be a
// power of two).
func AlignUp(a Addr, grain int) Addr {
	g := Addr(grain)
	return (a + g - 1) &^ (g - 1)
}

// AlignDown rounds a down to the nearest multiple of grain.
func AlignDown(a Addr, grain int) Addr {
	g := Addr(grain)
	return a &^ (g - 1)
}

// IsAligned reports whether a is a multiple of grain.
func IsAligned(a Addr, grain int) bool {
	return a&Addr(grain-1) == 0
}
