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

package toposort_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/protoschema/internal/toposort"
)

type dag map[int][]int

func (d dag) children(n int) []int {
	return d[n]
}

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		dag   dag
		roots []int
		want  []int
	}{
		{
			name: "empty",
		},
		{
			name:  "list",
			dag:   dag{1: {2}, 2: {3}, 3: {4}, 4: {}},
			roots: []int{1},
			want:  []int{4, 3, 2, 1},
		},
		{
			name:  "list",
			dag:   dag{1: {2}, 2: {3}, 3: {4}, 4: {}},
			roots: []int{2, 1},
			want:  []int{4, 3, 2, 1},
		},
		{
			name:  "diamond",
			dag:   dag{1: {2, 3}, 2: {4}, 3: {4}, 4: {}},
			roots: []int{1},
			want:  []int{4, 2, 3, 1},
		},
		{
			name:  "diamond",
			dag:   dag{1: {2, 3}, 2: {4}, 3: {4}, 4: {}},
			roots: []int{3, 1},
			want:  []int{4, 3, 2, 1},
		},
		{
			name:  "y",
			dag:   dag{1: {2}, 2: {4}, 3: {4}, 4: {}},
			roots: []int{1, 3},
			want:  []int{4, 2, 1, 3},
		},
	}

	s := toposort.Sorter[int, int]{Key: func(n int) int { return n }}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sort(tt.roots, tt.dag.children)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCycle(t *testing.T) {
	t.Parallel()
	_, err := toposort.Sort(
		[]int{1},
		func(n int) int { return n },
		dag{1: {2}, 2: {3}, 3: {2}}.children,
	)
	var cycleErr *toposort.CycleError[int]
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []int{2, 3, 2}, cycleErr.Cycle)
	assert.EqualError(t, err, "cycle detected: 2 -> 3 -> 2")
}

func TestSelfCycle(t *testing.T) {
	t.Parallel()
	_, err := toposort.Sort(
		[]string{"a.proto"},
		func(n string) string { return n },
		func(string) []string { return []string{"a.proto"} },
	)
	assert.EqualError(t, err, "cycle detected: a.proto -> a.proto")
}
