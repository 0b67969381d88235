// Package config defines the format-agnostic campaign model. A
// declarative front-end (see internal/hclconfig) translates its own
// concrete syntax into this model; the scheduler never needs to know
// which syntax produced it.
package config
