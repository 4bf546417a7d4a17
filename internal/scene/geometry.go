// Package scene implements the 3D pipeline: base geometry, morph field
// baking, per-frame deformation, camera kinematics, the star backdrop and
// the software renderer that draws it all into an image.
package scene

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

// Mesh is an indexed triangle mesh with per-vertex normals.
type Mesh struct {
	Vertices []domain.Vec3
	Normals  []domain.Vec3
	Faces    [][3]int
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: make([]domain.Vec3, len(m.Vertices)),
		Normals:  make([]domain.Vec3, len(m.Normals)),
		Faces:    make([][3]int, len(m.Faces)),
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Normals, m.Normals)
	copy(c.Faces, m.Faces)
	return c
}

// RecomputeNormals fills m.Normals with area-weighted vertex normals.
// Degenerate faces contribute nothing.
func (m *Mesh) RecomputeNormals() {
	if len(m.Normals) != len(m.Vertices) {
		m.Normals = make([]domain.Vec3, len(m.Vertices))
	} else {
		for i := range m.Normals {
			m.Normals[i] = domain.Vec3{}
		}
	}

	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		// Unnormalized cross product weights by face area
		n := b.Sub(a).Cross(c.Sub(a))
		m.Normals[f[0]] = m.Normals[f[0]].Add(n)
		m.Normals[f[1]] = m.Normals[f[1]].Add(n)
		m.Normals[f[2]] = m.Normals[f[2]].Add(n)
	}

	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
}

// goldenRatio shapes both the icosahedron and the stellation axes.
var goldenRatio = (1 + math.Sqrt(5)) / 2

// icosahedronVertices returns the 12 unit vertices of a regular icosahedron.
func icosahedronVertices() []domain.Vec3 {
	t := goldenRatio
	raw := []domain.Vec3{
		{X: -1, Y: t, Z: 0}, {X: 1, Y: t, Z: 0}, {X: -1, Y: -t, Z: 0}, {X: 1, Y: -t, Z: 0},
		{X: 0, Y: -1, Z: t}, {X: 0, Y: 1, Z: t}, {X: 0, Y: -1, Z: -t}, {X: 0, Y: 1, Z: -t},
		{X: t, Y: 0, Z: -1}, {X: t, Y: 0, Z: 1}, {X: -t, Y: 0, Z: -1}, {X: -t, Y: 0, Z: 1},
	}
	for i := range raw {
		raw[i] = raw[i].Normalize()
	}
	return raw
}

// icosahedronFaces is the standard 20-face index table matching
// icosahedronVertices, wound counterclockwise viewed from outside.
var icosahedronFaces = [][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// Icosphere builds a unit icosphere at the given subdivision level.
// Level 0 is the raw icosahedron (12 vertices); each level quadruples the
// face count. Levels outside the supported range are clamped.
func Icosphere(level int) *Mesh {
	level = domain.ClampResolution(level)

	m := &Mesh{
		Vertices: icosahedronVertices(),
		Faces:    append([][3]int(nil), icosahedronFaces...),
	}

	for i := 0; i < level; i++ {
		subdivide(m)
	}

	// On a unit sphere the normal is the position
	m.Normals = make([]domain.Vec3, len(m.Vertices))
	copy(m.Normals, m.Vertices)

	return m
}

// subdivide splits every face into four, reusing edge midpoints, and
// projects new vertices back onto the unit sphere.
func subdivide(m *Mesh) {
	type edge struct{ a, b int }
	midpoints := make(map[edge]int)

	midpoint := func(a, b int) int {
		if a > b {
			a, b = b, a
		}
		key := edge{a, b}
		if idx, ok := midpoints[key]; ok {
			return idx
		}
		mid := m.Vertices[a].Add(m.Vertices[b]).Scale(0.5).Normalize()
		m.Vertices = append(m.Vertices, mid)
		idx := len(m.Vertices) - 1
		midpoints[key] = idx
		return idx
	}

	next := make([][3]int, 0, len(m.Faces)*4)
	for _, f := range m.Faces {
		ab := midpoint(f[0], f[1])
		bc := midpoint(f[1], f[2])
		ca := midpoint(f[2], f[0])
		next = append(next,
			[3]int{f[0], ab, ca},
			[3]int{f[1], bc, ab},
			[3]int{f[2], ca, bc},
			[3]int{ab, bc, ca},
		)
	}
	m.Faces = next
}

// StellationAxes returns the 12 icosahedral vertex directions used to place
// spikes. The axes are unit length and symmetric about the origin.
func StellationAxes() [12]domain.Vec3 {
	var axes [12]domain.Vec3
	copy(axes[:], icosahedronVertices())
	return axes
}
