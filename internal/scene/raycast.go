// Package scene: ray casting against triangle soups.
package scene

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

const rayEpsilon = 1e-9

// rayTriangle returns the distance along dir from orig to the triangle
// using the Moller-Trumbore intersection test, or false when the ray
// misses. Hits behind the origin are ignored. Both faces count as hits,
// so winding order in loaded assets does not matter.
func rayTriangle(orig, dir domain.Vec3, tri domain.Triangle) (float64, bool) {
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)

	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -rayEpsilon && det < rayEpsilon {
		return 0, false
	}
	inv := 1 / det

	tv := orig.Sub(tri.A)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := tv.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * inv
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}

// NearestHit casts a ray against every triangle and returns the distance to
// the closest intersection. The second return value is false when nothing
// is hit.
func NearestHit(orig, dir domain.Vec3, tris []domain.Triangle) (float64, bool) {
	nearest := math.Inf(1)
	hit := false
	for _, tri := range tris {
		if t, ok := rayTriangle(orig, dir, tri); ok && t < nearest {
			nearest = t
			hit = true
		}
	}
	if !hit {
		return 0, false
	}
	return nearest, true
}

// NormalizeShape prepares a raw shape for baking: it recenters the triangle
// soup on its bounding-box centroid and rescales uniformly so the bounding
// sphere has unit radius. The shape is modified in place.
//
// Returns domain.ErrEmptyShape if the shape has no triangles or no extent.
func NormalizeShape(s *domain.Shape) error {
	if s == nil || len(s.Triangles) == 0 {
		return domain.ErrEmptyShape
	}

	minV := domain.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	maxV := domain.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	visit := func(v domain.Vec3) {
		minV.X = math.Min(minV.X, v.X)
		minV.Y = math.Min(minV.Y, v.Y)
		minV.Z = math.Min(minV.Z, v.Z)
		maxV.X = math.Max(maxV.X, v.X)
		maxV.Y = math.Max(maxV.Y, v.Y)
		maxV.Z = math.Max(maxV.Z, v.Z)
	}
	for _, tri := range s.Triangles {
		visit(tri.A)
		visit(tri.B)
		visit(tri.C)
	}

	center := minV.Add(maxV).Scale(0.5)

	// Bounding sphere radius around the recentered soup
	radius := 0.0
	for _, tri := range s.Triangles {
		for _, v := range []domain.Vec3{tri.A, tri.B, tri.C} {
			if r := v.Sub(center).Length(); r > radius {
				radius = r
			}
		}
	}
	if radius <= 0 {
		return domain.ErrEmptyShape
	}

	inv := 1 / radius
	for i := range s.Triangles {
		s.Triangles[i].A = s.Triangles[i].A.Sub(center).Scale(inv)
		s.Triangles[i].B = s.Triangles[i].B.Sub(center).Scale(inv)
		s.Triangles[i].C = s.Triangles[i].C.Sub(center).Scale(inv)
	}
	return nil
}
