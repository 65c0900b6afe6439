package scheduler

import (
	"bytes"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmigrate/internal/model"
)

func isPermutation(t *testing.T, got, want []string) {
	t.Helper()
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	require.Equal(t, w, g)
}

func TestSort_AcyclicRespectsFKOrder(t *testing.T) {
	tables := []string{"c", "a", "b"}
	edges := model.FKEdgeSet{}
	edges.AddEdge("b", "a")
	edges.AddEdge("c", "b")

	result := Sort(tables, edges)

	isPermutation(t, result, tables)
	posA, posB, posC := indexOf(result, "a"), indexOf(result, "b"), indexOf(result, "c")
	assert.Less(t, posA, posB)
	assert.Less(t, posB, posC)
}

func TestSort_CyclicStillPermutesAndWarns(t *testing.T) {
	tables := []string{"x", "y"}
	edges := model.FKEdgeSet{}
	edges.AddEdge("x", "y")
	edges.AddEdge("y", "x")

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	result := Sort(tables, edges)
	isPermutation(t, result, tables)
	assert.Contains(t, buf.String(), "cyclic foreign-key reference detected")
}

func TestLevels_FKOrdering(t *testing.T) {
	// A, B, C with edges B->A, C->B: level0={A}, level1={B}, level2={C}.
	edges := model.FKEdgeSet{}
	edges.AddEdge("B", "A")
	edges.AddEdge("C", "B")

	levels := Levels([]string{"A", "B", "C"}, edges)

	require.Len(t, levels, 3)
	assert.Equal(t, []string{"A"}, levels[0])
	assert.Equal(t, []string{"B"}, levels[1])
	assert.Equal(t, []string{"C"}, levels[2])
}

func TestLevels_IndependentTablesShareALevel(t *testing.T) {
	levels := Levels([]string{"a", "b", "c"}, model.FKEdgeSet{})

	require.Len(t, levels, 1)
	assert.Equal(t, []string{"a", "b", "c"}, levels[0])
}

func TestLevels_CyclicStillPermutes(t *testing.T) {
	tables := []string{"x", "y", "z"}
	edges := model.FKEdgeSet{}
	edges.AddEdge("x", "y")
	edges.AddEdge("y", "x")
	edges.AddEdge("z", "x")

	levels := Levels(tables, edges)

	var flat []string
	for _, l := range levels {
		flat = append(flat, l...)
	}
	isPermutation(t, flat, tables)
}

func indexOf(xs []string, v string) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}
