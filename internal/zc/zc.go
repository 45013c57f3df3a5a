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

// Package zc provides a packed representation of a [start, start+len) range
// within a single flat address space, used for segment extents and
// allocation-buffer windows so that a Segment header carries one word
// instead of two.
package zc

import (
	"fmt"
	"math"

	"github.com/graingc/graingc/internal/dbg"
)

// Range is a packed [start, start+len) range within some larger address
// space, such as the grains owned by one Segment or the bytes bracketed by
// one AP buffer.
//
// This is a packed representation of a value with the layout
//
//	struct {
//	  start, len uint32
//	}
//
// The zero value faithfully represents an empty range starting at 0.
type Range uint64

// New creates a new Range with the given start offset and length.
func New(start, length int) Range {
	if start < 0 || length < 0 || start > math.MaxUint32 || length > math.MaxUint32 {
		panic(fmt.Sprintf("zc: range out of bounds: [%d:+%d]", start, length))
	}
	return Range(uint32(start)) | Range(uint32(length))<<32
}

// Start returns the start offset of this range.
func (r Range) Start() int { return int(uint32(r)) }

// Len returns the length of this range.
func (r Range) Len() int { return int(r >> 32) }

// End returns the end offset (exclusive) of this range.
func (r Range) End() int { return r.Start() + r.Len() }

// Contains reports whether addr lies within [Start, End).
func (r Range) Contains(addr int) bool {
	return addr >= r.Start() && addr < r.End()
}

// WithStart returns a copy of this range with a new start, keeping the end
// fixed (so the length shrinks or grows to compensate).
func (r Range) WithStart(start int) Range {
	return New(start, r.End()-start)
}

// WithEnd returns a copy of this range with a new end, keeping the start
// fixed.
func (r Range) WithEnd(end int) Range {
	return New(r.Start(), end-r.Start())
}

// Format implements [fmt.Formatter].
func (r Range) Format(s fmt.State, verb rune) {
	dbg.Fprintf("[%d:%d)", r.Start(), r.End()).Format(s, verb)
}
