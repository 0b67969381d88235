package hclconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ExplicitAndImplicitDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "campaign.hcl", `
campaign {
  name            = "demo"
  quit_on_failure = true
  max_concurrent  = 2
}

vertex "a" {
  task      = "func"
  arguments = { value = 1 }
}

vertex "b" {
  task       = "func"
  depends_on = ["a"]
  arguments  = { value = 2 }
}

vertex "c" {
  task      = "func"
  arguments = { from = vertex.a }
}
`)

	campaign, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "demo", campaign.Name)
	assert.True(t, campaign.QuitOnFailure)
	assert.Equal(t, 2, campaign.MaxConcurrent)
	require.Len(t, campaign.Vertices, 3)

	byID := map[string][]string{}
	for _, v := range campaign.Vertices {
		byID[v.ID] = v.DependsOn
	}
	assert.ElementsMatch(t, []string{"a"}, byID["b"])
	assert.ElementsMatch(t, []string{"a"}, byID["c"])
}

func TestLoad_DuplicateVertexID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "campaign.hcl", `
vertex "a" {
  task      = "func"
  arguments = {}
}

vertex "a" {
  task      = "func"
  arguments = {}
}
`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate vertex id")
}

func TestLoad_MergesMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `
vertex "a" {
  task      = "func"
  arguments = {}
}
`)
	writeFile(t, dir, "b.hcl", `
vertex "b" {
  task      = "func"
  arguments = {}
}
`)

	campaign, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, campaign.Vertices, 2)
}

func TestFindHCLFiles_IgnoresMissingPath(t *testing.T) {
	files, err := findHCLFiles([]string{"/does/not/exist"})
	require.NoError(t, err)
	assert.Empty(t, files)
}
