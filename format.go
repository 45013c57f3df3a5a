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

// Format is the client contract describing how objects in a pool are laid
// out. The collector never interprets object contents itself; every scan,
// skip, or pad of live data goes through a registered Format.
type Format struct {
	// Scan is called once per object area [base, limit); for each
	// candidate reference found in the area it must invoke ss.Fix.
	Scan func(ss *ScanState, base, limit Addr) Status

	// Skip returns the address of the object immediately following the
	// one based at addr. Skip must be monotone and total over live
	// objects in the pool.
	Skip func(addr Addr) Addr

	// Forward relocates an object from old to new. Only used by moving
	// pool classes; nil for AMS/AWL/SNC.
	Forward func(old, new Addr)

	// IsForwarded reports whether the object at addr has already been
	// forwarded, and if so, to where.
	IsForwarded func(addr Addr) (Addr, bool)

	// Pad writes a self-describing padding object of exactly size bytes
	// at base, so Skip can still step over it.
	Pad func(base Addr, size int)

	// HeaderSize is the number of bytes preceding the address Skip/Scan
	// treat as the object's start, for headered formats. Zero for
	// headerless formats.
	HeaderSize int

	// Alignment is the required object alignment, a power of two; it must
	// divide the pool's grain size.
	Alignment int
}

// FormatCreate validates and returns f, mirroring the other *Create entry
// points' (Param on invalid config) error convention.
func FormatCreate(f Format) (*Format, Status) {
	if f.Scan == nil || f.Skip == nil || f.Pad == nil {
		return nil, Param
	}
	if f.Alignment != 0 && (f.Alignment&(f.Alignment-1)) != 0 {
		return nil, Param
	}
	fc := f
	return &fc, OK
}
