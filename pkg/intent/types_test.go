package intent

import (
	"encoding/json"
	"testing"
)

func TestIntent_JSONRoundTrip(t *testing.T) {
	prim := NewPrimitive(PrimitiveIntent{
		ID:         "cyl1",
		Kind:       PrimitiveCylinder,
		Parameters: map[string]float64{"radius": 5, "height": 20},
		Timestamp:  1,
	})

	data, err := json.Marshal(prim)
	if err != nil {
		t.Fatalf("marshal primitive: %v", err)
	}

	var decoded Intent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal primitive: %v", err)
	}
	if !decoded.IsPrimitive() {
		t.Fatalf("expected primitive variant after round trip")
	}
	if decoded.Primitive.Kind != PrimitiveCylinder {
		t.Errorf("expected cylinder kind, got %s", decoded.Primitive.Kind)
	}

	op := NewOperation(OperationIntent{
		ID:         "sub1",
		Kind:       OperationSubtract,
		Target:     "cyl1",
		Operand:    "box1",
		Parameters: map[string]any{},
		Timestamp:  2,
	})

	data, err = json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal operation: %v", err)
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal operation: %v", err)
	}
	if decoded.IsPrimitive() {
		t.Fatalf("expected operation variant after round trip")
	}
	if decoded.Operation.Operand != "box1" {
		t.Errorf("expected operand box1, got %s", decoded.Operation.Operand)
	}
}

func TestIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Intent
		wantErr bool
	}{
		{"valid primitive", NewPrimitive(PrimitiveIntent{ID: "p1", Kind: PrimitiveBox}), false},
		{"valid operation", NewOperation(OperationIntent{ID: "o1", Kind: OperationHole, Target: "p1"}), false},
		{"empty intent", Intent{}, true},
		{"unknown primitive kind", NewPrimitive(PrimitiveIntent{ID: "p1", Kind: "pyramid"}), true},
		{"operation missing target", NewOperation(OperationIntent{ID: "o1", Kind: OperationUnion}), true},
		{"primitive missing id", NewPrimitive(PrimitiveIntent{Kind: PrimitiveBox}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeometryIR_CloneIsDeep(t *testing.T) {
	ir := &GeometryIR{
		Part: "bracket",
		Operations: []Intent{NewPrimitive(PrimitiveIntent{
			ID:         "box1",
			Kind:       PrimitiveBox,
			Parameters: map[string]float64{"width": 100},
		})},
		Constraints: []ManufacturingConstraint{{Kind: ConstraintProcess, Value: "cnc_milling"}},
	}

	clone := ir.Clone()
	clone.Operations[0].Primitive.Parameters["width"] = 200
	clone.Constraints[0] = ManufacturingConstraint{Kind: ConstraintMaterial, Value: "aluminum"}

	if ir.Operations[0].Primitive.Parameters["width"] != 100 {
		t.Errorf("clone must not share parameter maps with the source")
	}
	if ir.Constraints[0].Kind != ConstraintProcess {
		t.Errorf("clone must not share the constraint slice with the source")
	}
}

func TestMesh_Validate(t *testing.T) {
	valid := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid mesh, got %v", err)
	}
	if valid.VertexCount() != 3 || valid.TriangleCount() != 1 {
		t.Errorf("unexpected counts: %d vertices, %d triangles",
			valid.VertexCount(), valid.TriangleCount())
	}

	badIndex := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 9},
	}
	if err := badIndex.Validate(); err == nil {
		t.Errorf("expected out-of-range index to fail validation")
	}

	badNormals := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
		Normals:  []float32{0, 0, 1},
	}
	if err := badNormals.Validate(); err == nil {
		t.Errorf("expected mismatched normal buffer to fail validation")
	}
}
