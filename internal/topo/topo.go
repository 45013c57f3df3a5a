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

// Package topo sorts a directed graph of strongly-connected components into
// leaves-first topological order, using Tarjan's algorithm.
//
// The trace engine uses this to order a condemn set: pool classes declare
// their generations as a chain, and when a trace spans more than one pool,
// the generations contributing to the condemn set must be whitened and
// reclaimed leaves-first (spec: "Ordering within the condemn set is
// leaves-first").
package topo

import (
	"iter"
	"slices"
)

// Graph is a "local" representation of a directed graph, exposing the
// outgoing edges (dependencies) of some node.
type Graph[Node any] func(Node) iter.Seq[Node]

// DAG is the strongly-connected-component DAG of some directed graph.
type DAG[Node comparable] struct {
	keys       map[Node]int
	components []Component[Node] // Leaves-first order.
}

// Component is a strongly connected component: in a generation chain this is
// almost always a single node, since generation dependencies are acyclic.
type Component[Node comparable] struct {
	index   int
	members []Node
	deps    []int
	dag     *DAG[Node]
}

// Sort sorts the strongly connected components reachable from root into
// leaves-first order, using Tarjan's algorithm.
func Sort[Node comparable](root Node, graph Graph[Node]) *DAG[Node] {
	out := &DAG[Node]{keys: make(map[Node]int)}
	sorter := &tarjan[Node]{
		graph:    graph,
		dag:      out,
		metadata: make(map[Node]*metadata),
		depset:   make(map[int]struct{}),
	}
	sorter.rec(root)
	return out
}

// ForNode returns the component containing node, or nil if node is not part
// of the graph.
func (d *DAG[Node]) ForNode(node Node) *Component[Node] {
	idx, ok := d.keys[node]
	if !ok {
		return nil
	}
	return &d.components[idx]
}

// LeavesFirst iterates the components in leaves-first topological order:
// every component appears after all of its dependencies.
func (d *DAG[Node]) LeavesFirst() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for i := range d.components {
			if !yield(&d.components[i]) {
				return
			}
		}
	}
}

// Members returns the members of a component.
func (c *Component[Node]) Members() []Node {
	return c.members
}

// Deps ranges over the components this component directly depends on.
func (c *Component[Node]) Deps() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for _, i := range c.deps {
			if !yield(&c.dag.components[i]) {
				return
			}
		}
	}
}

// Index returns this component's position in leaves-first order.
func (c *Component[Node]) Index() int { return c.index }

// tarjan is the state needed to execute Tarjan's recursive SCC algorithm.
//
// See https://en.wikipedia.org/wiki/Tarjan%27s_strongly_connected_components_algorithm
type tarjan[Node comparable] struct {
	graph Graph[Node]
	dag   *DAG[Node]

	index    int
	stack    []Node
	metadata map[Node]*metadata

	depset map[int]struct{}
}

type metadata struct {
	index, low int
	onStack    bool
}

func (s *tarjan[Node]) rec(node Node) *metadata {
	meta := &metadata{index: s.index, low: s.index, onStack: true}

	s.metadata[node] = meta
	s.index++
	offset := len(s.stack)
	s.stack = append(s.stack, node)

	for dep := range s.graph(node) {
		m := s.metadata[dep]
		if m == nil {
			m = s.rec(dep)
			meta.low = min(meta.low, m.low)
			continue
		}

		if m.onStack {
			meta.low = min(meta.low, m.index)
		}
	}

	if meta.index == meta.low {
		c := Component[Node]{
			dag:     s.dag,
			index:   len(s.dag.components),
			members: slices.Clone(s.stack[offset:]),
		}
		s.stack = s.stack[:offset]

		for _, node := range c.members {
			s.metadata[node].onStack = false

			s.dag.keys[node] = c.index
			for dep := range s.graph(node) {
				n, ok := s.dag.keys[dep]
				if ok && n < len(s.dag.components) {
					s.depset[n] = struct{}{}
				}
			}
		}

		c.deps = make([]int, 0, len(s.depset))
		for i := range s.depset {
			c.deps = append(c.deps, i)
		}
		slices.Sort(c.deps)
		clear(s.depset)

		s.dag.components = append(s.dag.components, c)
	}

	return meta
}
