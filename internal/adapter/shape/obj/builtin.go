package obj

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

// builtinOrder fixes the display order of generated shapes.
var builtinOrder = []string{"cube", "pyramid", "diamond", "torus"}

// builtins maps asset ids to builders. Builders return fresh slices because
// callers normalize shapes in place.
var builtins = map[string]func() []domain.Triangle{
	"cube":    cubeShape,
	"pyramid": pyramidShape,
	"diamond": diamondShape,
	"torus":   torusShape,
}

func quad(a, b, c, d domain.Vec3) []domain.Triangle {
	return []domain.Triangle{
		{A: a, B: b, C: c},
		{A: a, B: c, C: d},
	}
}

func cubeShape() []domain.Triangle {
	var (
		nnn = domain.Vec3{X: -1, Y: -1, Z: -1}
		pnn = domain.Vec3{X: 1, Y: -1, Z: -1}
		ppn = domain.Vec3{X: 1, Y: 1, Z: -1}
		npn = domain.Vec3{X: -1, Y: 1, Z: -1}
		nnp = domain.Vec3{X: -1, Y: -1, Z: 1}
		pnp = domain.Vec3{X: 1, Y: -1, Z: 1}
		ppp = domain.Vec3{X: 1, Y: 1, Z: 1}
		npp = domain.Vec3{X: -1, Y: 1, Z: 1}
	)

	tris := make([]domain.Triangle, 0, 12)
	tris = append(tris, quad(nnp, pnp, ppp, npp)...) // front
	tris = append(tris, quad(pnn, nnn, npn, ppn)...) // back
	tris = append(tris, quad(nnn, nnp, npp, npn)...) // left
	tris = append(tris, quad(pnp, pnn, ppn, ppp)...) // right
	tris = append(tris, quad(npp, ppp, ppn, npn)...) // top
	tris = append(tris, quad(nnn, pnn, pnp, nnp)...) // bottom
	return tris
}

func pyramidShape() []domain.Triangle {
	apex := domain.Vec3{Y: 1}
	var (
		a = domain.Vec3{X: 1, Y: -1, Z: 1}
		b = domain.Vec3{X: 1, Y: -1, Z: -1}
		c = domain.Vec3{X: -1, Y: -1, Z: -1}
		d = domain.Vec3{X: -1, Y: -1, Z: 1}
	)

	return []domain.Triangle{
		{A: apex, B: a, C: b},
		{A: apex, B: b, C: c},
		{A: apex, B: c, C: d},
		{A: apex, B: d, C: a},
		{A: c, B: b, C: a},
		{A: c, B: a, C: d},
	}
}

func diamondShape() []domain.Triangle {
	var (
		px = domain.Vec3{X: 1}
		nx = domain.Vec3{X: -1}
		py = domain.Vec3{Y: 1}
		ny = domain.Vec3{Y: -1}
		pz = domain.Vec3{Z: 1}
		nz = domain.Vec3{Z: -1}
	)

	return []domain.Triangle{
		{A: py, B: px, C: pz},
		{A: py, B: pz, C: nx},
		{A: py, B: nx, C: nz},
		{A: py, B: nz, C: px},
		{A: ny, B: pz, C: px},
		{A: ny, B: nx, C: pz},
		{A: ny, B: nz, C: nx},
		{A: ny, B: px, C: nz},
	}
}

// torusShape sweeps a ring of minor radius 0.4 around a unit major circle.
func torusShape() []domain.Triangle {
	const (
		major = 1.0
		minor = 0.4
		segU  = 24
		segV  = 12
	)

	point := func(iu, iv int) domain.Vec3 {
		u := 2 * math.Pi * float64(iu) / segU
		v := 2 * math.Pi * float64(iv) / segV
		ring := major + minor*math.Cos(v)
		return domain.Vec3{
			X: ring * math.Cos(u),
			Y: minor * math.Sin(v),
			Z: ring * math.Sin(u),
		}
	}

	tris := make([]domain.Triangle, 0, segU*segV*2)
	for iu := 0; iu < segU; iu++ {
		for iv := 0; iv < segV; iv++ {
			tris = append(tris, quad(
				point(iu, iv),
				point(iu+1, iv),
				point(iu+1, iv+1),
				point(iu, iv+1),
			)...)
		}
	}
	return tris
}
