package intent

import "fmt"

// Mesh is the triangle-mesh representation crossing every boundary: a flat
// vertex-position buffer (3 floats per vertex), a flat triangle-index buffer
// (3 indices per triangle), and a flat normal buffer (3 floats per vertex,
// empty when the consumer must derive normals).
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Indices  []uint32  `json:"indices"`
	Normals  []float32 `json:"normals"`
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Validate checks the structural invariants of the buffer layout.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("vertex buffer length must be a multiple of 3, got %d", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index buffer length must be a multiple of 3, got %d", len(m.Indices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("normal buffer length %d does not match vertex buffer length %d",
			len(m.Normals), len(m.Vertices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= m.VertexCount() {
			return fmt.Errorf("index %d at position %d exceeds vertex count %d",
				idx, i, m.VertexCount())
		}
	}
	return nil
}
