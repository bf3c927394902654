// Package manifest loads declarative stage-contract manifests.
//
// A manifest file declares one or more stage contracts in HCL:
//
//	stage "place" {
//	  phases = 2
//	  input  "eblif"     {}
//	  input  "io_place"  { qualifier = "optional" }
//	  output "place"     { description = "VPR placement file" }
//	  output "place_log" { qualifier = "on_demand" }
//	  value  "device"    {}
//	}
//
// Qualifiers default to "required". The decoded result is an immutable
// stage.Contract; the suffix convention used in Go code never appears in
// manifests, qualifiers are spelled out as keywords.
package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/fsutil"
	"github.com/vk/flowgrid/internal/stage"
)

// Load parses a single manifest file into stage contracts.
func Load(ctx context.Context, path string) ([]*stage.Contract, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse manifest %s: %w", path, diags)
	}
	return decodeFile(ctx, hclFile, path)
}

// LoadDir parses every .hcl file under dir, in lexical order, and returns
// the combined contracts. Duplicate stage names across files are rejected.
func LoadDir(ctx context.Context, dir string) ([]*stage.Contract, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("discover manifests in %s: %w", dir, err)
	}
	logger.Debug("Discovered manifest files.", "dir", dir, "count", len(files))

	var contracts []*stage.Contract
	seen := make(map[string]string)
	for _, file := range files {
		fileContracts, err := Load(ctx, file)
		if err != nil {
			return nil, err
		}
		for _, c := range fileContracts {
			if prev, dup := seen[c.Name]; dup {
				return nil, fmt.Errorf("stage %q declared in both %s and %s", c.Name, prev, file)
			}
			seen[c.Name] = file
			contracts = append(contracts, c)
		}
	}
	return contracts, nil
}

// rootSchema describes the top level of a manifest file: one or more
// 'stage' blocks.
type rootSchema struct {
	Stages []*hclStage `hcl:"stage,block"`
}

// hclStage is a single 'stage' block prior to body decoding.
type hclStage struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

func decodeFile(ctx context.Context, hclFile *hcl.File, path string) ([]*stage.Contract, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding stage contracts from manifest.", "file_path", path)

	root := &rootSchema{}
	if diags := gohcl.DecodeBody(hclFile.Body, nil, root); diags.HasErrors() {
		return nil, fmt.Errorf("decode manifest %s: %w", path, diags)
	}

	contracts := make([]*stage.Contract, 0, len(root.Stages))
	var allDiags hcl.Diagnostics
	for _, parsed := range root.Stages {
		contract, diags := decodeStage(parsed)
		allDiags = append(allDiags, diags...)
		if diags.HasErrors() {
			continue
		}
		if err := contract.Validate(); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		contracts = append(contracts, contract)
	}
	if allDiags.HasErrors() {
		return nil, fmt.Errorf("decode manifest %s: %w", path, allDiags)
	}

	logger.Debug("Decoded stage contracts.", "file_path", path, "count", len(contracts))
	return contracts, nil
}
