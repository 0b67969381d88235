package vertex

import (
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// ResultSet is the mutable map of campaign results shared, read-write,
// between every task and the terminal callback. The scheduler writes a
// task's own successful output under its own vertex id; a task may also
// write further entries of its own through the same ResultReader. Reads
// (from other tasks, the terminal callback, a pretty-printer) can happen
// concurrently with any of these writes, so access is mutex-guarded.
type ResultSet struct {
	mu     sync.Mutex
	values map[string]cty.Value
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{values: make(map[string]cty.Value)}
}

// Set records or overwrites the value stored under key.
func (r *ResultSet) Set(key string, v cty.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = v
}

// Get retrieves the value stored under key, if any.
func (r *ResultSet) Get(key string) (cty.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

// Snapshot returns a shallow copy of the current contents, safe for a
// caller to range over without racing further writes.
func (r *ResultSet) Snapshot() map[string]cty.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]cty.Value, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
