// Package graph implements the mutable DAG owned by a scheduler campaign:
// vertices keyed by id, directed edges, adjacency and degree queries, and
// a non-destructive topological sort.
//
// Unlike a split topology/state-store architecture, Graph owns its
// vertices directly — structure and per-vertex execution state live
// together, because the scheduler's propagation algorithm needs both in
// the same pass and a vertex's state is cheap enough to store inline. See
// internal/vertex for the state machine each vertex runs.
package graph
