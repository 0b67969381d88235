// Package hclconfig is the HCL front-end for a declarative campaign: it
// discovers .hcl files, decodes vertex/resource/campaign blocks, and
// evaluates each vertex's arguments expression into a cty.Value,
// auto-detecting implicit dependencies from any vertex.<id> reference it
// finds along the way.
package hclconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/config"
	"github.com/specialistvlad/dagsched/internal/orchlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates an HCL campaign loader.
func NewLoader() *Loader {
	return &Loader{}
}

type campaignBlock struct {
	Name          string `hcl:"name,optional"`
	QuitOnFailure bool   `hcl:"quit_on_failure,optional"`
	MaxConcurrent int    `hcl:"max_concurrent,optional"`
}

type vertexBlock struct {
	ID        string         `hcl:"id,label"`
	Task      string         `hcl:"task"`
	DependsOn []string       `hcl:"depends_on,optional"`
	Arguments hcl.Expression `hcl:"arguments,optional"`
}

type resourceBlock struct {
	Name      string         `hcl:"name,label"`
	Kind      string         `hcl:"kind"`
	Arguments hcl.Expression `hcl:"arguments,optional"`
}

type fileRoot struct {
	Campaign  *campaignBlock   `hcl:"campaign,block"`
	Vertices  []*vertexBlock   `hcl:"vertex,block"`
	Resources []*resourceBlock `hcl:"resource,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// Load discovers every .hcl file under paths, decodes it, and merges the
// results into a single Campaign. Each vertex's and resource's arguments
// expression is evaluated immediately, against an EvalContext exposing
// every vertex id under vertex.<id> as an unknown placeholder value — any
// such reference found in a vertex's arguments is recorded as an implicit
// dependency, in addition to whatever depends_on lists explicitly.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Campaign, error) {
	logger := orchlog.FromContext(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("hclconfig: discovered files", "count", len(files))

	campaign := &config.Campaign{MaxConcurrent: 0}
	parser := hclparse.NewParser()

	var vertexBlocks []*vertexBlock
	var resourceBlocks []*resourceBlock

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("hclconfig: parsing %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("hclconfig: decoding %s: %w", file, diags)
		}

		if root.Campaign != nil {
			campaign.Name = root.Campaign.Name
			campaign.QuitOnFailure = root.Campaign.QuitOnFailure
			campaign.MaxConcurrent = root.Campaign.MaxConcurrent
		}
		vertexBlocks = append(vertexBlocks, root.Vertices...)
		resourceBlocks = append(resourceBlocks, root.Resources...)
	}

	seen := make(map[string]struct{}, len(vertexBlocks))
	for _, vb := range vertexBlocks {
		if _, dup := seen[vb.ID]; dup {
			return nil, fmt.Errorf("hclconfig: duplicate vertex id %q", vb.ID)
		}
		seen[vb.ID] = struct{}{}
	}

	// Every known vertex id is exposed as vertex.<id>, bound to an unknown
	// value. A task reads the shared result set directly at run time, so
	// arguments never resolve live data through this placeholder; a
	// vertex.<id> reference still evaluates cleanly and still registers
	// as an implicit dependency below.
	vertexPlaceholders := make(map[string]cty.Value, len(seen))
	for id := range seen {
		vertexPlaceholders[id] = cty.DynamicVal
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vertex": cty.ObjectVal(vertexPlaceholders),
		},
	}

	for _, rb := range resourceBlocks {
		args := cty.EmptyObjectVal
		if rb.Arguments != nil {
			v, diags := rb.Arguments.Value(evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("hclconfig: evaluating resource %q arguments: %w", rb.Name, diags)
			}
			args = v
		}
		campaign.Resources = append(campaign.Resources, &config.ResourceSpec{
			Name:      rb.Name,
			Kind:      rb.Kind,
			Arguments: args,
		})
	}

	for _, vb := range vertexBlocks {
		args := cty.EmptyObjectVal
		implicit := map[string]struct{}{}
		if vb.Arguments != nil {
			for _, traversal := range vb.Arguments.Variables() {
				if dep, ok := implicitDependency(traversal); ok {
					implicit[dep] = struct{}{}
				}
			}
			v, diags := vb.Arguments.Value(evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("hclconfig: evaluating vertex %q arguments: %w", vb.ID, diags)
			}
			args = v
		}

		deps := append([]string(nil), vb.DependsOn...)
		for dep := range implicit {
			if !contains(deps, dep) {
				deps = append(deps, dep)
			}
		}

		campaign.Vertices = append(campaign.Vertices, &config.VertexSpec{
			ID:        vb.ID,
			Task:      vb.Task,
			Arguments: args,
			DependsOn: deps,
		})
	}

	logger.Debug("hclconfig: loaded campaign", "vertices", len(campaign.Vertices), "resources", len(campaign.Resources))
	return campaign, nil
}

// implicitDependency extracts a vertex id from a vertex.<id> traversal,
// the only shape of reference this loader treats as a dependency.
func implicitDependency(t hcl.Traversal) (string, bool) {
	if len(t) < 2 {
		return "", false
	}
	root, ok := t[0].(hcl.TraverseRoot)
	if !ok || root.Name != "vertex" {
		return "", false
	}
	attr, ok := t[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// findHCLFiles walks every path and returns a flat, deduplicated list of
// every .hcl file found, whether the path names a file or a directory.
func findHCLFiles(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("hclconfig: accessing %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, dup := seen[p]; !dup {
						out = append(out, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		if filepath.Ext(path) == ".hcl" {
			if _, dup := seen[path]; !dup {
				out = append(out, path)
				seen[path] = struct{}{}
			}
		}
	}
	return out, nil
}
