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

// Package graingc is an incremental, generational, precise, moving garbage
// collector core, meant to be linked into a host program whose object
// layout the collector learns only through a registered [Format].
//
// An [Arena] owns a reserved address range split into grain-aligned
// [Segment]s, each owned by exactly one [Pool]. Mutators allocate through an
// [AP] (allocation point) attached to a pool; the collector reclaims memory
// by running a [Trace] across one or more condemned generations, using the
// tri-color scanning/fixing protocol described on [Trace] and [ScanState].
// Two pool classes are provided: AMS/AWL (mark-sweep, with an AWL variant
// adding weak references and a single-access barrier budget) and SNC
// (a stack-discipline nursery with lightweight allocation frames).
//
// The collector does not know how to suspend mutator threads, protect
// memory pages, or lay out client objects; it learns all three through the
// [Provider], [Format], and thread-registration contracts, so that it can be
// embedded in hosts with very different runtime models.
package graingc
