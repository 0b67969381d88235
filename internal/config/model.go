package config

import "github.com/zclconf/go-cty/cty"

// Campaign is the format-agnostic description of one schedulable graph.
type Campaign struct {
	Name          string
	QuitOnFailure bool
	MaxConcurrent int
	Vertices      []*VertexSpec
	Resources     []*ResourceSpec
}

// VertexSpec is one `vertex` block: a task kind, its already-evaluated
// arguments, and its dependencies. DependsOn holds the explicit
// depends_on entries plus any implicit dependencies (references to
// another vertex inside Arguments), which the loader merges in before it
// produces VertexSpec.
type VertexSpec struct {
	ID        string
	Task      string
	Arguments cty.Value
	DependsOn []string
}

// ResourceSpec is one `resource` block: a long-lived object (an http
// client, a socket.io connection) built once and shared by every vertex
// that names it.
type ResourceSpec struct {
	Name      string
	Kind      string
	Arguments cty.Value
}
