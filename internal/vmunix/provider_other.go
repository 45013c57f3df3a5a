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

//go:build !unix

package vmunix

// Mode mirrors the access a protected segment should still permit.
type Mode int

const (
	ModeNone Mode = iota
	ModeRead
	ModeReadWrite
)

// Provider is a no-op stand-in used on platforms without mprotect. Protect
// always succeeds without changing access; the shield degrades to a pure
// bookkeeping role (it still tracks exposed ranges for Flush, it simply
// cannot fault on an unflushed access).
type Provider struct{}

// New returns a ready-to-use no-op Provider.
func New() *Provider { return &Provider{} }

// Protect is a no-op on this platform.
func (p *Provider) Protect(base uintptr, size int, mode Mode) error { return nil }

// PageSize reports a conservative default since there is no real paging
// granularity to query.
func (p *Provider) PageSize() int { return 4096 }
