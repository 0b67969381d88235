package graph

import (
	"testing"

	"github.com/specialistvlad/dagsched/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func noopNotify(string, bool, cty.Value, error) {}

func newTestVertex(id string) *vertex.Vertex {
	return vertex.New(id, noopNotify)
}

func TestAddVertex_Duplicate(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))

	err := g.AddVertex(newTestVertex("a"))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, DuplicateVertex, kind)
}

func TestAddEdge_UnknownEndpoints(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))

	err := g.AddEdge("a", "b")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, VertexNotFound, kind)

	err = g.AddEdge("b", "a")
	kind, ok = KindOf(err)
	require.True(t, ok)
	assert.Equal(t, VertexNotFound, kind)
}

func TestAddEdge_SelfLoop(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))

	err := g.AddEdge("a", "a")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, SelfLoop, kind)
}

func TestAddEdge_Duplicate(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))
	require.NoError(t, g.AddVertex(newTestVertex("b")))
	require.NoError(t, g.AddEdge("a", "b"))

	err := g.AddEdge("a", "b")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, DuplicateEdge, kind)
}

func TestChildrenAndParents(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddVertex(newTestVertex(id)))
	}
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "c"))

	assert.ElementsMatch(t, []string{"c"}, g.Children("a"))
	assert.ElementsMatch(t, []string{"c"}, g.Children("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, g.Parents("c"))
	assert.Equal(t, 2, g.Indegree("c"))
	assert.Equal(t, 1, g.Outdegree("a"))
}

func TestRoots(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddVertex(newTestVertex(id)))
	}
	require.NoError(t, g.AddEdge("a", "c"))

	assert.ElementsMatch(t, []string{"a", "b"}, g.Roots())
}

func TestRemoveVertex_ClearsEdges(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddVertex(newTestVertex(id)))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	g.RemoveVertex("b")

	_, ok := g.Vertex("b")
	assert.False(t, ok)
	assert.Empty(t, g.Children("a"))
	assert.Empty(t, g.Parents("c"))

	// b is gone entirely, so re-adding it starts with no edges.
	require.NoError(t, g.AddVertex(newTestVertex("b")))
	assert.Empty(t, g.Children("b"))
	assert.Empty(t, g.Parents("b"))
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))
	require.NoError(t, g.AddVertex(newTestVertex("b")))
	require.NoError(t, g.AddEdge("a", "b"))

	require.NoError(t, g.RemoveEdge("a", "b"))
	assert.Empty(t, g.Children("a"))
	assert.Empty(t, g.Parents("b"))

	err := g.RemoveEdge("a", "b")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, EdgeNotFound, kind)
}

func TestTopologicalSort_Diamond(t *testing.T) {
	g := New()
	for _, id := range []string{"top", "left", "right", "bottom"} {
		require.NoError(t, g.AddVertex(newTestVertex(id)))
	}
	require.NoError(t, g.AddEdge("top", "left"))
	require.NoError(t, g.AddEdge("top", "right"))
	require.NoError(t, g.AddEdge("left", "bottom"))
	require.NoError(t, g.AddEdge("right", "bottom"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["top"], pos["left"])
	assert.Less(t, pos["top"], pos["right"])
	assert.Less(t, pos["left"], pos["bottom"])
	assert.Less(t, pos["right"], pos["bottom"])
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddVertex(newTestVertex(id)))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "a"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.NotEqual(t, len(order), g.VertexCount())
}

func TestTopologicalSort_DoesNotMutate(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))
	require.NoError(t, g.AddVertex(newTestVertex("b")))
	require.NoError(t, g.AddEdge("a", "b"))

	_, err := g.TopologicalSort()
	require.NoError(t, err)

	// The graph's own adjacency survives a sort call unchanged.
	assert.Equal(t, 1, g.Outdegree("a"))
	assert.Equal(t, 1, g.Indegree("b"))
}

func TestGraph_Accessors(t *testing.T) {
	g := New()
	require.NoError(t, g.AddVertex(newTestVertex("a")))
	require.NoError(t, g.AddVertex(newTestVertex("b")))
	require.NoError(t, g.AddVertex(newTestVertex("c")))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))

	assert.True(t, g.HasVertex("a"))
	assert.False(t, g.HasVertex("z"))
	assert.Equal(t, []string{"a", "b", "c"}, g.VertexIDs())
	assert.Equal(t, 3, g.VertexCount())
	assert.Equal(t, 2, g.EdgeCount())

	require.NoError(t, g.RemoveEdge("a", "b"))
	assert.Equal(t, 1, g.EdgeCount())

	g.RemoveVertex("c")
	assert.Equal(t, 2, g.VertexCount())
	assert.Equal(t, []string{"a", "b"}, g.VertexIDs())
}
