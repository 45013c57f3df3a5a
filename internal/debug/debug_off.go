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

//go:build !debug

// Package debug includes debugging helpers used by the collector's hot
// paths. Outside of the "debug" build tag, every operation here is a no-op
// so that release builds never pay for tracing the fix/scan fast paths.
package debug

// Enabled is true if the compiler is being built with the debug tag, which
// enables various debugging features.
const Enabled = false

// Log is a no-op outside of debug builds.
func Log(context []any, operation string, format string, args ...any) {}

// Assert is a no-op outside of debug builds.
func Assert(cond bool, format string, args ...any) {}

// Value is a value of any type that only exists when the debug tag is
// enabled. Outside of debug builds it carries no storage.
type Value[T any] struct{}

// Get returns a pointer to this value. Outside of debug builds this always
// returns a pointer to a fresh zero value, since nothing is ever stored.
func (v *Value[T]) Get() *T {
	var x T
	return &x
}
