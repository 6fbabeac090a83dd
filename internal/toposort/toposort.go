// Copyright 2020-2025 Buf Technologies, Inc.
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

// Package toposort provides a generic topological sort implementation.
package toposort

import (
	"fmt"
	"strings"
)

const (
	unsorted byte = iota
	walking
	sorted
)

// CycleError is returned when the graph being sorted is not a DAG. Cycle
// starts and ends with the same key.
type CycleError[Key comparable] struct {
	Cycle []Key
}

func (e *CycleError[Key]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		parts[i] = fmt.Sprint(k)
	}
	return "cycle detected: " + strings.Join(parts, " -> ")
}

// Sort sorts a DAG topologically.
//
// Roots are the nodes whose dependencies we are querying. key returns a
// comparable key for each node. deps returns the children of a node, in
// the order they should be visited. Every node appears in the result after
// all of its children.
func Sort[Node any, Key comparable](
	roots []Node,
	key func(Node) Key,
	deps func(Node) []Node,
) ([]Node, error) {
	s := Sorter[Node, Key]{Key: key}
	return s.Sort(roots, deps)
}

// Sorter is reusable scratch space for a particular stencil of [Sort], which
// needs to allocate memory for book-keeping. A Sorter must not be used
// concurrently.
type Sorter[Node any, Key comparable] struct {
	// A function to extract a unique key from each node, for marking.
	Key func(Node) Key

	state map[Key]byte
	stack []frame[Node]
}

type frame[Node any] struct {
	node     Node
	children []Node
	next     int
}

// Sort is like [Sort], but re-uses allocated resources stored in s.
func (s *Sorter[Node, Key]) Sort(roots []Node, deps func(Node) []Node) ([]Node, error) {
	if s.state == nil {
		s.state = make(map[Key]byte)
	}
	defer func() {
		clear(s.state)
		clear(s.stack)
		s.stack = s.stack[:0]
	}()

	var out []Node
	for _, root := range roots {
		if s.state[s.Key(root)] == sorted {
			continue
		}
		s.push(root, deps)
		// DFS without recursion: each frame remembers which child to
		// visit next, and is popped once all children are sorted.
		for len(s.stack) > 0 {
			top := &s.stack[len(s.stack)-1]
			if top.next == len(top.children) {
				s.state[s.Key(top.node)] = sorted
				out = append(out, top.node)
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			child := top.children[top.next]
			top.next++
			switch s.state[s.Key(child)] {
			case unsorted:
				s.push(child, deps)
			case walking:
				return nil, s.cycle(s.Key(child))
			}
		}
	}
	return out, nil
}

func (s *Sorter[Node, Key]) push(n Node, deps func(Node) []Node) {
	s.state[s.Key(n)] = walking
	s.stack = append(s.stack, frame[Node]{node: n, children: deps(n)})
}

func (s *Sorter[Node, Key]) cycle(k Key) *CycleError[Key] {
	start := len(s.stack) - 1
	for start > 0 && s.Key(s.stack[start].node) != k {
		start--
	}
	cycle := make([]Key, 0, len(s.stack)-start+1)
	for _, f := range s.stack[start:] {
		cycle = append(cycle, s.Key(f.node))
	}
	return &CycleError[Key]{Cycle: append(cycle, k)}
}
