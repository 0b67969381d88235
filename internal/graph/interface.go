package graph

// Graph is deliberately a concrete type, not an interface: every consumer
// in this module (scheduler, hclconfig) needs the same structural queries,
// and a single mutable implementation keeps AddVertex/AddEdge atomic with
// respect to RemoveVertex/RemoveEdge. Callers that only need read access
// can still take *Graph by pointer; Go does not require an interface for
// that.
