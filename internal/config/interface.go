package config

import "context"

// Loader is the interface for a format-specific campaign loader.
type Loader interface {
	// Load reads campaign configuration from the given paths and translates
	// it into the format-agnostic Campaign model.
	Load(ctx context.Context, paths ...string) (*Campaign, error)
}
