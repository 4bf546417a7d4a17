// Package scene: incremental radial morph field baking.
package scene

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// missDistance places vertices whose rays miss the target on the unit
// sphere, so misses blend smoothly with their neighbours.
const missDistance = 1.0

// Baker computes a radial morph field against a target shape: for every
// base mesh vertex it casts a ray from the origin along the vertex
// direction and records the first intersection with the target surface.
//
// The work is chunked. Step processes a bounded number of vertices per
// call, so a driver goroutine can interleave baking with rendered frames
// instead of stalling the loop. A Baker is owned by one goroutine.
type Baker struct {
	assetID string
	dirs    []domain.Vec3
	tris    []domain.Triangle
	points  []float64
	cursor  int
}

// NewBaker prepares a bake of the base mesh against the target shape.
// The target is normalized in place (recentered on its bounding box,
// rescaled to a unit bounding sphere) before any rays are cast.
func NewBaker(assetID string, base *Mesh, target *domain.Shape) (*Baker, error) {
	if base == nil || base.VertexCount() == 0 {
		return nil, domain.NewBakeError(assetID, "prepare", "base mesh is empty", nil)
	}
	if err := NormalizeShape(target); err != nil {
		return nil, domain.NewBakeError(assetID, "normalize", "target has no usable geometry", err)
	}

	dirs := make([]domain.Vec3, base.VertexCount())
	for i, v := range base.Vertices {
		dirs[i] = v.Normalize()
	}

	return &Baker{
		assetID: assetID,
		dirs:    dirs,
		tris:    target.Triangles,
		points:  make([]float64, 0, base.VertexCount()*3),
	}, nil
}

// Step advances the bake by up to n vertices and reports whether the bake
// is complete. Each vertex costs one ray cast against every target
// triangle, so n bounds the work done per call.
func (b *Baker) Step(n int) bool {
	for n > 0 && b.cursor < len(b.dirs) {
		dir := b.dirs[b.cursor]
		dist, ok := NearestHit(domain.Vec3{}, dir, b.tris)
		if !ok {
			dist = missDistance
		}
		p := dir.Scale(dist)
		b.points = append(b.points, p.X, p.Y, p.Z)
		b.cursor++
		n--
	}
	return b.cursor >= len(b.dirs)
}

// Progress returns the processed and total vertex counts.
func (b *Baker) Progress() (done, total int) {
	return b.cursor, len(b.dirs)
}

// AssetID returns the target asset this baker works against.
func (b *Baker) AssetID() string {
	return b.assetID
}

// Field returns the finished morph field. It must only be called after
// Step has reported completion.
func (b *Baker) Field() domain.MorphField {
	return domain.MorphField{
		AssetID:     b.assetID,
		VertexCount: len(b.dirs),
		Points:      b.points,
	}
}

// IdentityField returns a field that morphs every vertex to itself. It is
// the safe fallback when a target cannot be loaded or a bake fails: the
// mesh simply stays undeformed at full morph blend.
func IdentityField(assetID string, base *Mesh) domain.MorphField {
	points := make([]float64, 0, base.VertexCount()*3)
	for _, v := range base.Vertices {
		points = append(points, v.X, v.Y, v.Z)
	}
	return domain.MorphField{
		AssetID:     assetID,
		VertexCount: base.VertexCount(),
		Points:      points,
	}
}
