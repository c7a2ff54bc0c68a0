// Package compiler projects mutable design-object state into the canonical
// Geometry IR. Compilation is a pure, synchronous, total transform: unknown
// input degrades to defaults rather than failing, so the interactive
// foreground is never blocked by a rejected workspace.
package compiler

import (
	"sort"
	"time"

	"github.com/qutlas/designcore/pkg/intent"
)

// Baseline constraints attached to every compiled IR. The kernel's
// manufacturability analysis always has a process and a wall-thickness
// floor to evaluate against, even when the workspace declares none.
const (
	DefaultProcess          = "cnc_milling"
	DefaultMinWallThickness = 1.0
)

// ObjectState is the compiler's view of one design object: a declared kind,
// a dimension mapping of which only numeric entries become IR parameters,
// and optional transform, constraints, and non-numeric metadata. Metadata
// never reaches the IR and never participates in hashing.
type ObjectState struct {
	Kind        string                             `json:"kind" yaml:"kind" validate:"required"`
	Dims        map[string]any                     `json:"dims,omitempty" yaml:"dims,omitempty"`
	Transform   *intent.Transform                  `json:"transform,omitempty" yaml:"transform,omitempty"`
	Constraints []intent.ManufacturingConstraint   `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Meta        map[string]string                  `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// CompileWorkspace builds a canonical IR from the current object states.
// Object ids are sorted lexicographically before emission so the operation
// sequence (and therefore the hash) is independent of mapping iteration
// order. The result always carries the two baseline constraints plus any
// object-declared ones. CompileWorkspace never fails.
func CompileWorkspace(part string, objects map[string]ObjectState) *intent.GeometryIR {
	ids := make([]string, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := float64(time.Now().UnixMilli())

	ir := &intent.GeometryIR{
		Part:       part,
		Operations: make([]intent.Intent, 0, len(ids)),
		Constraints: []intent.ManufacturingConstraint{
			{Kind: intent.ConstraintProcess, Value: DefaultProcess},
			{Kind: intent.ConstraintMinWallThickness, Value: DefaultMinWallThickness},
		},
	}

	for _, id := range ids {
		state := objects[id]
		ir.Operations = append(ir.Operations, intent.NewPrimitive(intent.PrimitiveIntent{
			ID:         id,
			Kind:       mapKind(state.Kind),
			Parameters: numericParameters(state.Dims),
			Transform:  state.Transform,
			Timestamp:  now,
		}))
		ir.Constraints = append(ir.Constraints, state.Constraints...)
	}

	ir.Hash = intent.HashIR(ir)
	return ir
}

// CompileBooleanOp builds a single boolean-operation intent for a one-off
// edit outside full recompilation. Pure and total.
func CompileBooleanOp(kind intent.OperationKind, id, target, operand string) intent.Intent {
	return intent.NewOperation(intent.OperationIntent{
		ID:         id,
		Kind:       kind,
		Target:     target,
		Operand:    operand,
		Parameters: map[string]any{},
		Timestamp:  float64(time.Now().UnixMilli()),
	})
}

// CompileFeatureOp builds a single feature-operation intent (fillet, hole,
// chamfer) against an existing target. Pure and total.
func CompileFeatureOp(kind intent.OperationKind, id, target string, params map[string]any) intent.Intent {
	if params == nil {
		params = map[string]any{}
	}
	return intent.NewOperation(intent.OperationIntent{
		ID:         id,
		Kind:       kind,
		Target:     target,
		Parameters: params,
		Timestamp:  float64(time.Now().UnixMilli()),
	})
}

// mapKind resolves a declared object kind to a primitive kind. Unrecognized
// and compound kinds compile as a box so interactive edits keep producing
// geometry instead of errors.
func mapKind(kind string) intent.PrimitiveKind {
	k := intent.PrimitiveKind(kind)
	if err := k.Validate(); err == nil {
		return k
	}
	return intent.PrimitiveBox
}

// numericParameters keeps only numeric-valued dimension entries. Strings,
// booleans, and nested structures are dropped; this is the compiler's
// explicit degradation rule, not an error.
func numericParameters(dims map[string]any) map[string]float64 {
	params := make(map[string]float64, len(dims))
	for name, value := range dims {
		if n, ok := asFloat(value); ok {
			params[name] = n
		}
	}
	return params
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
