package kernel

import (
	"fmt"
	"math"

	"github.com/qutlas/designcore/pkg/intent"
)

// Subdivision bounds for curved primitives, matching the evaluator's
// clamping so fallback meshes look consistent with boundary meshes.
const (
	DefaultSubdivisions = 16
	MinSubdivisions     = 4
	MaxSubdivisions     = 64
)

// fallbackOps maps the operation names servable without the evaluator to
// their primitive kinds. Everything else has no local approximation.
var fallbackOps = map[string]intent.PrimitiveKind{
	"CREATE_BOX":      intent.PrimitiveBox,
	"CREATE_CYLINDER": intent.PrimitiveCylinder,
	"CREATE_SPHERE":   intent.PrimitiveSphere,
	"CREATE_CONE":     intent.PrimitiveCone,
	"CREATE_TORUS":    intent.PrimitiveTorus,
}

// CanFallback reports whether the operation can be approximated locally.
func CanFallback(opName string) bool {
	_, ok := fallbackOps[opName]
	return ok
}

// ClampSubdivisions bounds a subdivision level to the supported range.
func ClampSubdivisions(n int) int {
	if n < MinSubdivisions {
		return MinSubdivisions
	}
	if n > MaxSubdivisions {
		return MaxSubdivisions
	}
	return n
}

// FallbackMesh builds a local approximation of a create operation. The
// parameter-defaulting rules must match the boundary path: a radius is
// derivable from a diameter, and segment counts default from the
// subdivision level.
func FallbackMesh(opName string, params map[string]any, subdivisions int) (*intent.Mesh, error) {
	kind, ok := fallbackOps[opName]
	if !ok {
		return nil, NewDegradedError(
			fmt.Sprintf("no local fallback for %s; evaluator unavailable", opName),
		).WithCode(ErrCodeNoFallback).WithOperation(opName)
	}

	segments := ClampSubdivisions(subdivisions)
	if segments < 8 {
		segments = 8
	}
	offset := positionOf(params)

	switch kind {
	case intent.PrimitiveBox:
		return boxMesh(
			numParam(params, 1, "width"),
			numParam(params, 1, "height"),
			numParam(params, 1, "depth"),
			offset,
		), nil
	case intent.PrimitiveCylinder:
		return cylinderMesh(radiusParam(params, 1), numParam(params, 1, "height"), segments, offset), nil
	case intent.PrimitiveSphere:
		return sphereMesh(radiusParam(params, 1), segments, offset), nil
	case intent.PrimitiveCone:
		return coneMesh(radiusParam(params, 1), numParam(params, 1, "height"), segments, offset), nil
	case intent.PrimitiveTorus:
		major := numParam(params, 1, "majorRadius", "radius")
		minor := numParam(params, 0.25, "minorRadius", "tube")
		return torusMesh(major, minor, segments, offset), nil
	default:
		return nil, NewInternalError(fmt.Sprintf("unhandled fallback kind %s", kind), nil)
	}
}

// numParam returns the first numeric value among the named parameters,
// or the default when none is present.
func numParam(params map[string]any, def float64, names ...string) float64 {
	for _, name := range names {
		if v, ok := params[name]; ok {
			if n, ok := toFloat(v); ok && n > 0 {
				return n
			}
		}
	}
	return def
}

// radiusParam resolves a radius, deriving it from a diameter when only
// that is given.
func radiusParam(params map[string]any, def float64) float64 {
	if v, ok := params["radius"]; ok {
		if n, ok := toFloat(v); ok && n > 0 {
			return n
		}
	}
	if v, ok := params["diameter"]; ok {
		if n, ok := toFloat(v); ok && n > 0 {
			return n / 2
		}
	}
	return def
}

func positionOf(params map[string]any) [3]float64 {
	v, ok := params["position"]
	if !ok {
		return [3]float64{}
	}
	switch p := v.(type) {
	case [3]float64:
		return p
	case []float64:
		if len(p) == 3 {
			return [3]float64{p[0], p[1], p[2]}
		}
	case []any:
		if len(p) == 3 {
			var out [3]float64
			for i, c := range p {
				if n, ok := toFloat(c); ok {
					out[i] = n
				}
			}
			return out
		}
	}
	return [3]float64{}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// meshBuilder accumulates an unindexed triangle soup with per-vertex
// normals, the same layout the evaluator emits.
type meshBuilder struct {
	mesh   *intent.Mesh
	offset [3]float64
}

func newMeshBuilder(offset [3]float64) *meshBuilder {
	return &meshBuilder{mesh: &intent.Mesh{}, offset: offset}
}

func (b *meshBuilder) triangle(v0, v1, v2, n0, n1, n2 [3]float64) {
	base := uint32(len(b.mesh.Vertices) / 3)
	for _, v := range [][3]float64{v0, v1, v2} {
		b.mesh.Vertices = append(b.mesh.Vertices,
			float32(v[0]+b.offset[0]), float32(v[1]+b.offset[1]), float32(v[2]+b.offset[2]))
	}
	for _, n := range [][3]float64{n0, n1, n2} {
		b.mesh.Normals = append(b.mesh.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	}
	b.mesh.Indices = append(b.mesh.Indices, base, base+1, base+2)
}

func (b *meshBuilder) flatTriangle(v0, v1, v2, normal [3]float64) {
	b.triangle(v0, v1, v2, normal, normal, normal)
}

func boxMesh(width, height, depth float64, offset [3]float64) *intent.Mesh {
	w, h, d := width/2, height/2, depth/2

	corners := [8][3]float64{
		{-w, -h, -d}, {w, -h, -d}, {w, h, -d}, {-w, h, -d},
		{-w, -h, d}, {w, -h, d}, {w, h, d}, {-w, h, d},
	}

	faces := []struct {
		idx    [4]int
		normal [3]float64
	}{
		{[4]int{0, 4, 7, 3}, [3]float64{-1, 0, 0}}, // left
		{[4]int{1, 2, 6, 5}, [3]float64{1, 0, 0}},  // right
		{[4]int{0, 1, 5, 4}, [3]float64{0, -1, 0}}, // bottom
		{[4]int{3, 7, 6, 2}, [3]float64{0, 1, 0}},  // top
		{[4]int{0, 3, 2, 1}, [3]float64{0, 0, -1}}, // back
		{[4]int{4, 5, 6, 7}, [3]float64{0, 0, 1}},  // front
	}

	b := newMeshBuilder(offset)
	for _, f := range faces {
		b.flatTriangle(corners[f.idx[0]], corners[f.idx[1]], corners[f.idx[2]], f.normal)
		b.flatTriangle(corners[f.idx[0]], corners[f.idx[2]], corners[f.idx[3]], f.normal)
	}
	return b.mesh
}

func cylinderMesh(radius, height float64, segments int, offset [3]float64) *intent.Mesh {
	b := newMeshBuilder(offset)
	h := height / 2

	ring := make([][2]float64, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		ring[i] = [2]float64{radius * math.Cos(angle), radius * math.Sin(angle)}
	}

	up := [3]float64{0, 1, 0}
	down := [3]float64{0, -1, 0}
	for i := 0; i < segments; i++ {
		next := (i + 1) % segments
		top0 := [3]float64{ring[i][0], h, ring[i][1]}
		top1 := [3]float64{ring[next][0], h, ring[next][1]}
		bot0 := [3]float64{ring[i][0], -h, ring[i][1]}
		bot1 := [3]float64{ring[next][0], -h, ring[next][1]}

		// Caps
		b.flatTriangle([3]float64{0, h, 0}, top0, top1, up)
		b.flatTriangle([3]float64{0, -h, 0}, bot1, bot0, down)

		// Side quad with smooth outward normals
		n0 := [3]float64{ring[i][0] / radius, 0, ring[i][1] / radius}
		n1 := [3]float64{ring[next][0] / radius, 0, ring[next][1] / radius}
		b.triangle(bot0, top0, top1, n0, n0, n1)
		b.triangle(bot0, top1, bot1, n0, n1, n1)
	}
	return b.mesh
}

func sphereMesh(radius float64, segments int, offset [3]float64) *intent.Mesh {
	b := newMeshBuilder(offset)
	rings := segments / 2
	if rings < 4 {
		rings = 4
	}

	point := func(ring, seg int) ([3]float64, [3]float64) {
		theta := math.Pi * float64(ring) / float64(rings)
		phi := 2 * math.Pi * float64(seg) / float64(segments)
		n := [3]float64{
			math.Sin(theta) * math.Cos(phi),
			math.Cos(theta),
			math.Sin(theta) * math.Sin(phi),
		}
		return [3]float64{n[0] * radius, n[1] * radius, n[2] * radius}, n
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			v00, n00 := point(ring, seg)
			v01, n01 := point(ring, seg+1)
			v10, n10 := point(ring+1, seg)
			v11, n11 := point(ring+1, seg+1)

			if ring > 0 {
				b.triangle(v00, v10, v01, n00, n10, n01)
			}
			if ring < rings-1 {
				b.triangle(v01, v10, v11, n01, n10, n11)
			}
		}
	}
	return b.mesh
}

func coneMesh(radius, height float64, segments int, offset [3]float64) *intent.Mesh {
	b := newMeshBuilder(offset)
	h := height / 2
	apex := [3]float64{0, h, 0}
	down := [3]float64{0, -1, 0}

	// Side normals tilt by the slope angle.
	slope := math.Atan2(radius, height)
	ny := math.Sin(slope)
	nr := math.Cos(slope)

	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		b0 := [3]float64{radius * math.Cos(a0), -h, radius * math.Sin(a0)}
		b1 := [3]float64{radius * math.Cos(a1), -h, radius * math.Sin(a1)}

		n0 := [3]float64{nr * math.Cos(a0), ny, nr * math.Sin(a0)}
		n1 := [3]float64{nr * math.Cos(a1), ny, nr * math.Sin(a1)}
		nm := [3]float64{nr * math.Cos((a0 + a1) / 2), ny, nr * math.Sin((a0 + a1) / 2)}

		b.triangle(b0, apex, b1, n0, nm, n1)
		b.flatTriangle([3]float64{0, -h, 0}, b1, b0, down)
	}
	return b.mesh
}

func torusMesh(major, minor float64, segments int, offset [3]float64) *intent.Mesh {
	b := newMeshBuilder(offset)
	tube := segments / 2
	if tube < 8 {
		tube = 8
	}

	point := func(i, j int) ([3]float64, [3]float64) {
		u := 2 * math.Pi * float64(i) / float64(segments)
		v := 2 * math.Pi * float64(j) / float64(tube)
		cx, cz := major*math.Cos(u), major*math.Sin(u)
		n := [3]float64{
			math.Cos(v) * math.Cos(u),
			math.Sin(v),
			math.Cos(v) * math.Sin(u),
		}
		return [3]float64{cx + minor*n[0], minor * n[1], cz + minor*n[2]}, n
	}

	for i := 0; i < segments; i++ {
		for j := 0; j < tube; j++ {
			v00, n00 := point(i, j)
			v01, n01 := point(i, j+1)
			v10, n10 := point(i+1, j)
			v11, n11 := point(i+1, j+1)

			b.triangle(v00, v10, v01, n00, n10, n01)
			b.triangle(v01, v10, v11, n01, n10, n11)
		}
	}
	return b.mesh
}
