// Package intent defines the design-intent vocabulary and the canonical,
// content-addressed intermediate representation (IR) shared by the compiler,
// the history stack, and the kernel boundary.
package intent

import "fmt"

// PrimitiveKind identifies a solid primitive the kernel can create.
type PrimitiveKind string

const (
	PrimitiveBox       PrimitiveKind = "box"
	PrimitiveCylinder  PrimitiveKind = "cylinder"
	PrimitiveSphere    PrimitiveKind = "sphere"
	PrimitiveExtrusion PrimitiveKind = "extrusion"
	PrimitiveCone      PrimitiveKind = "cone"
	PrimitiveTorus     PrimitiveKind = "torus"
)

// OperationKind identifies a boolean or feature operation applied to
// previously created geometry.
type OperationKind string

const (
	OperationUnion     OperationKind = "union"
	OperationSubtract  OperationKind = "subtract"
	OperationIntersect OperationKind = "intersect"
	OperationFillet    OperationKind = "fillet"
	OperationHole      OperationKind = "hole"
	OperationChamfer   OperationKind = "chamfer"
)

// ConstraintKind identifies a manufacturing constraint attached to an IR.
type ConstraintKind string

const (
	ConstraintMinWallThickness ConstraintKind = "min_wall_thickness"
	ConstraintToolDiameter     ConstraintKind = "tool_diameter"
	ConstraintMaxOverhang      ConstraintKind = "max_overhang"
	ConstraintProcess          ConstraintKind = "process"
	ConstraintMaterial         ConstraintKind = "material"
)

// Validate checks if the primitive kind is valid.
func (k PrimitiveKind) Validate() error {
	switch k {
	case PrimitiveBox, PrimitiveCylinder, PrimitiveSphere,
		PrimitiveExtrusion, PrimitiveCone, PrimitiveTorus:
		return nil
	default:
		return fmt.Errorf("invalid primitive kind: %s", k)
	}
}

// Validate checks if the operation kind is valid.
func (k OperationKind) Validate() error {
	switch k {
	case OperationUnion, OperationSubtract, OperationIntersect,
		OperationFillet, OperationHole, OperationChamfer:
		return nil
	default:
		return fmt.Errorf("invalid operation kind: %s", k)
	}
}

// Validate checks if the constraint kind is valid.
func (k ConstraintKind) Validate() error {
	switch k {
	case ConstraintMinWallThickness, ConstraintToolDiameter,
		ConstraintMaxOverhang, ConstraintProcess, ConstraintMaterial:
		return nil
	default:
		return fmt.Errorf("invalid constraint kind: %s", k)
	}
}

// Transform positions a primitive in part space. Nil components fall back
// to the identity values.
type Transform struct {
	Position *[3]float64 `json:"position,omitempty"`
	Rotation *[3]float64 `json:"rotation,omitempty"`
	Scale    *[3]float64 `json:"scale,omitempty"`
}

// GetPosition returns the position, defaulting to the origin.
func (t *Transform) GetPosition() [3]float64 {
	if t == nil || t.Position == nil {
		return [3]float64{0, 0, 0}
	}
	return *t.Position
}

// GetRotation returns the rotation, defaulting to no rotation.
func (t *Transform) GetRotation() [3]float64 {
	if t == nil || t.Rotation == nil {
		return [3]float64{0, 0, 0}
	}
	return *t.Rotation
}

// GetScale returns the scale, defaulting to unit scale.
func (t *Transform) GetScale() [3]float64 {
	if t == nil || t.Scale == nil {
		return [3]float64{1, 1, 1}
	}
	return *t.Scale
}

func (t *Transform) clone() *Transform {
	if t == nil {
		return nil
	}
	out := &Transform{}
	if t.Position != nil {
		p := *t.Position
		out.Position = &p
	}
	if t.Rotation != nil {
		r := *t.Rotation
		out.Rotation = &r
	}
	if t.Scale != nil {
		s := *t.Scale
		out.Scale = &s
	}
	return out
}

// PrimitiveIntent declares the creation of a solid primitive.
type PrimitiveIntent struct {
	ID         string             `json:"id"`
	Kind       PrimitiveKind      `json:"type"`
	Parameters map[string]float64 `json:"parameters"`
	Transform  *Transform         `json:"transform,omitempty"`
	Timestamp  float64            `json:"timestamp"`
}

// OperationIntent declares a boolean or feature operation against earlier
// geometry. Target (and Operand where present) must resolve to an earlier
// intent id or an already-compiled handle.
type OperationIntent struct {
	ID         string         `json:"id"`
	Kind       OperationKind  `json:"type"`
	Target     string         `json:"target"`
	Operand    string         `json:"operand,omitempty"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  float64        `json:"timestamp"`
}

// ManufacturingConstraint is a named limit evaluated by the kernel's
// manufacturability analysis.
type ManufacturingConstraint struct {
	Kind  ConstraintKind `json:"type"`
	Value any            `json:"value"`
}

// GeometryIR is the canonical intermediate representation of one part:
// an ordered intent sequence plus manufacturing constraints, with the
// content hash attached after construction. An IR is immutable once built;
// any change produces a new IR.
type GeometryIR struct {
	Part        string                    `json:"part"`
	Operations  []Intent                  `json:"operations"`
	Constraints []ManufacturingConstraint `json:"constraints"`
	Hash        string                    `json:"hash,omitempty"`
}

// Clone returns a deep copy of the IR. History entries are cloned so no
// other component retains references into the stack.
func (ir *GeometryIR) Clone() *GeometryIR {
	if ir == nil {
		return nil
	}
	out := &GeometryIR{
		Part: ir.Part,
		Hash: ir.Hash,
	}
	out.Operations = make([]Intent, len(ir.Operations))
	for i, op := range ir.Operations {
		out.Operations[i] = op.clone()
	}
	out.Constraints = make([]ManufacturingConstraint, len(ir.Constraints))
	copy(out.Constraints, ir.Constraints)
	return out
}
