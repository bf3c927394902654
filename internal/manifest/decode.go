package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/flowgrid/internal/qualifier"
	"github.com/vk/flowgrid/internal/stage"
	"github.com/zclconf/go-cty/cty/gocty"
)

// stageBodySchema describes the body of a 'stage' block.
var stageBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "phases"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
		{Type: "value", LabelNames: []string{"name"}},
	},
}

// depBodySchema describes the body of an input/output/value block.
var depBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "qualifier"},
		{Name: "description"},
	},
}

func decodeStage(parsed *hclStage) (*stage.Contract, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	content, contentDiags := parsed.Body.Content(stageBodySchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, diags
	}

	contract := &stage.Contract{
		Name:         parsed.Name,
		Descriptions: make(map[string]string),
	}

	if attr, exists := content.Attributes["phases"]; exists {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			if err := gocty.FromCtyValue(val, &contract.Phases); err != nil || contract.Phases < 0 {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid phase count",
					Detail:   "The 'phases' attribute must be a non-negative whole number.",
					Subject:  attr.Expr.Range().Ptr(),
				})
			}
		}
	}

	var blockDiags hcl.Diagnostics
	contract.Takes, blockDiags = decodeDeps(content.Blocks.OfType("input"), nil)
	diags = append(diags, blockDiags...)

	contract.Produces, blockDiags = decodeDeps(content.Blocks.OfType("output"), contract.Descriptions)
	diags = append(diags, blockDiags...)

	contract.Values, blockDiags = decodeDeps(content.Blocks.OfType("value"), nil)
	diags = append(diags, blockDiags...)

	if diags.HasErrors() {
		return nil, diags
	}
	return contract, diags
}

// decodeDeps decodes one class of dependency blocks, in declaration order.
// When descriptions is non-nil, 'description' attributes are collected into
// it (only outputs carry descriptions).
func decodeDeps(blocks hcl.Blocks, descriptions map[string]string) ([]stage.IO, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	deps := make([]stage.IO, 0, len(blocks))
	seen := make(map[string]bool)

	for _, block := range blocks {
		name := block.Labels[0]
		if seen[name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Duplicate %s definition", block.Type),
				Detail:   fmt.Sprintf("A %s named '%s' has already been declared for this stage.", block.Type, name),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[name] = true

		content, contentDiags := block.Body.Content(depBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		q := qualifier.Required
		if attr, exists := content.Attributes["qualifier"]; exists {
			var keyword string
			evalDiags := gohcl.DecodeExpression(attr.Expr, nil, &keyword)
			diags = append(diags, evalDiags...)
			if evalDiags.HasErrors() {
				continue
			}
			parsed, err := qualifier.Parse(keyword)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid qualifier",
					Detail:   err.Error(),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			q = parsed
		}

		if attr, exists := content.Attributes["description"]; exists {
			if descriptions == nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unexpected description",
					Detail:   fmt.Sprintf("Only output blocks carry descriptions; %s '%s' must not.", block.Type, name),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			var description string
			evalDiags := gohcl.DecodeExpression(attr.Expr, nil, &description)
			diags = append(diags, evalDiags...)
			if !evalDiags.HasErrors() && description != "" {
				descriptions[name] = description
			}
		}

		deps = append(deps, stage.IO{Name: name, Qualifier: q})
	}

	return deps, diags
}
