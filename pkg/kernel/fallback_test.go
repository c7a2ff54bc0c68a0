package kernel

import (
	"math"
	"testing"
)

func TestCanFallback(t *testing.T) {
	for _, op := range []string{"CREATE_BOX", "CREATE_CYLINDER", "CREATE_SPHERE", "CREATE_CONE", "CREATE_TORUS"} {
		if !CanFallback(op) {
			t.Errorf("%s should have a local fallback", op)
		}
	}
	for _, op := range []string{"ADD_HOLE", "ADD_FILLET", "ADD_CHAMFER", "BOOLEAN_UNION", "EXPORT_STEP", "ANALYZE_MANUFACTURABILITY"} {
		if CanFallback(op) {
			t.Errorf("%s must not have a local fallback", op)
		}
	}
}

func TestClampSubdivisions(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, MinSubdivisions},
		{3, MinSubdivisions},
		{4, 4},
		{16, 16},
		{64, 64},
		{65, MaxSubdivisions},
		{1000, MaxSubdivisions},
	}
	for _, tc := range cases {
		if got := ClampSubdivisions(tc.in); got != tc.want {
			t.Errorf("ClampSubdivisions(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFallbackBoxMesh(t *testing.T) {
	mesh, err := FallbackMesh("CREATE_BOX", map[string]any{
		"width": 2.0, "height": 4.0, "depth": 6.0,
	}, DefaultSubdivisions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("invalid mesh: %v", err)
	}
	if mesh.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles for a box, got %d", mesh.TriangleCount())
	}

	// Vertices span the parameter extents centered on the origin.
	var maxX, maxY, maxZ float32
	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		maxX = max32(maxX, abs32(mesh.Vertices[i]))
		maxY = max32(maxY, abs32(mesh.Vertices[i+1]))
		maxZ = max32(maxZ, abs32(mesh.Vertices[i+2]))
	}
	if maxX != 1 || maxY != 2 || maxZ != 3 {
		t.Errorf("unexpected box extents: %v %v %v", maxX, maxY, maxZ)
	}
}

func TestFallbackBoxDefaultsDimensions(t *testing.T) {
	mesh, err := FallbackMesh("CREATE_BOX", nil, DefaultSubdivisions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range mesh.Vertices {
		if abs32(mesh.Vertices[i]) > 0.5+1e-6 {
			t.Fatalf("default box should be a unit cube, found coordinate %v", mesh.Vertices[i])
		}
	}
}

func TestFallbackRadiusFromDiameter(t *testing.T) {
	fromRadius, err := FallbackMesh("CREATE_SPHERE", map[string]any{"radius": 3.0}, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromDiameter, err := FallbackMesh("CREATE_SPHERE", map[string]any{"diameter": 6.0}, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fromRadius.Vertices) != len(fromDiameter.Vertices) {
		t.Fatal("radius and diameter forms should tessellate identically")
	}
	for i := range fromRadius.Vertices {
		if abs32(fromRadius.Vertices[i]-fromDiameter.Vertices[i]) > 1e-5 {
			t.Fatalf("vertex %d differs: %v vs %v", i, fromRadius.Vertices[i], fromDiameter.Vertices[i])
		}
	}
}

func TestFallbackPositionOffset(t *testing.T) {
	mesh, err := FallbackMesh("CREATE_SPHERE", map[string]any{
		"radius":   1.0,
		"position": []any{10.0, 0.0, 0.0},
	}, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sumX float64
	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		sumX += float64(mesh.Vertices[i])
	}
	center := sumX / float64(mesh.VertexCount())
	if math.Abs(center-10) > 0.5 {
		t.Errorf("expected sphere centered near x=10, got %v", center)
	}
}

func TestFallbackCylinderAndConeAndTorus(t *testing.T) {
	for _, op := range []string{"CREATE_CYLINDER", "CREATE_CONE", "CREATE_TORUS"} {
		mesh, err := FallbackMesh(op, map[string]any{"radius": 2.0, "height": 5.0}, 16)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", op, err)
		}
		if err := mesh.Validate(); err != nil {
			t.Fatalf("%s: invalid mesh: %v", op, err)
		}
		if mesh.TriangleCount() == 0 {
			t.Errorf("%s: empty mesh", op)
		}
		if len(mesh.Normals) != len(mesh.Vertices) {
			t.Errorf("%s: normals do not match vertices", op)
		}
	}
}

func TestFallbackNoLocalApproximation(t *testing.T) {
	_, err := FallbackMesh("ADD_HOLE", map[string]any{"diameter": 4.0}, 16)
	if err == nil {
		t.Fatal("expected an error for an operation with no fallback")
	}
	if !IsDegraded(err) {
		t.Errorf("expected a degraded error, got %v", err)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
