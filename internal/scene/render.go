package scene

import (
	"image"
	"math"
	"sort"

	"github.com/auroraviz/aurora/internal/domain"
)

const (
	renderNearPlane = 0.1
	renderFocal     = 0.95
	renderAmbient   = 0.18
	starSizeScale   = 0.05
	bloomThreshold  = 0.55
	bloomCell       = 4
	bloomGain       = 0.85
)

// Renderer rasterizes one frame of the scene into an RGBA image. It keeps
// its buffers between frames and reallocates only when the canvas size
// changes, so a single renderer must not be shared across goroutines.
type Renderer struct {
	w, h int
	img  *image.RGBA

	// per-vertex projection scratch
	px, py, pz []float64
	pok        []bool

	order []faceRef

	lowW, lowH int
	lowBuf     []float64
	blurBuf    []float64
}

type faceRef struct {
	index int
	depth float64
}

// NewRenderer returns an empty renderer; buffers are sized on first use.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws the starfield and the deformed mesh as seen from eye, then
// applies the bloom pass. Every visual knob comes from params, so the
// solid fill, the wireframe and the glow all answer to the same frame.
// The returned image is reused on the next call.
func (r *Renderer) Render(w, h int, mesh *Mesh, params domain.ShaderParams, eye domain.Vec3, stars []Star) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	r.ensure(w, h)
	r.clear(params.Background)

	// View basis looking from the eye at the origin
	forward := eye.Scale(-1).Normalize()
	if forward.Length() == 0 {
		forward = domain.Vec3{Z: -1}
	}
	right := forward.Cross(domain.Vec3{Y: 1}).Normalize()
	if right.Length() == 0 {
		right = domain.Vec3{X: 1}
	}
	up := right.Cross(forward)

	focal := renderFocal * float64(h)
	cx, cy := float64(w)/2, float64(h)/2

	project := func(p domain.Vec3) (float64, float64, float64, bool) {
		rel := p.Sub(eye)
		z := rel.Dot(forward)
		if z < renderNearPlane {
			return 0, 0, 0, false
		}
		s := focal / z
		return cx + rel.Dot(right)*s, cy - rel.Dot(up)*s, z, true
	}

	r.drawStars(stars, params, project)
	if mesh != nil {
		r.drawMesh(mesh, params, forward, project)
	}
	if params.BloomStrength > 0.01 {
		r.applyBloom(params.BloomStrength)
	}
	return r.img
}

func (r *Renderer) ensure(w, h int) {
	if r.img != nil && r.w == w && r.h == h {
		return
	}
	r.w, r.h = w, h
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.lowW = (w + bloomCell - 1) / bloomCell
	r.lowH = (h + bloomCell - 1) / bloomCell
	r.lowBuf = make([]float64, r.lowW*r.lowH*3)
	r.blurBuf = make([]float64, r.lowW*r.lowH*3)
}

func (r *Renderer) clear(bg domain.Color) {
	cr, cg, cb := bg.RGBA8()
	pix := r.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = cr
		pix[i+1] = cg
		pix[i+2] = cb
		pix[i+3] = 255
	}
}

type projectFunc func(domain.Vec3) (float64, float64, float64, bool)

func (r *Renderer) drawStars(stars []Star, params domain.ShaderParams, project projectFunc) {
	haloBoost := 0.5 + 0.5*clamp(params.BloomStrength, 0, 2)
	for i := range stars {
		s := &stars[i]
		x, y, z, ok := project(s.Dir.Scale(s.Radius))
		if !ok {
			continue
		}
		size := clamp(s.Size*renderFocal*float64(r.h)/z*starSizeScale, 0.8, 4)
		bright := s.Brightness * params.LightLevel
		r.drawDisc(x, y, size*2.2, s.Color, bright*0.16*haloBoost)
		r.drawDisc(x, y, size, s.Color, bright)
	}
}

// drawDisc paints a filled circle with quadratic falloff toward the rim.
func (r *Renderer) drawDisc(cx, cy, rad float64, c domain.Color, alpha float64) {
	if alpha <= 0 {
		return
	}
	ir := int(math.Ceil(rad))
	x0, y0 := int(cx), int(cy)
	for dy := -ir; dy <= ir; dy++ {
		for dx := -ir; dx <= ir; dx++ {
			d2 := float64(dx*dx + dy*dy)
			if d2 > rad*rad {
				continue
			}
			fall := 1 - d2/(rad*rad)
			r.blend(x0+dx, y0+dy, c, alpha*fall*fall)
		}
	}
}

func (r *Renderer) drawMesh(mesh *Mesh, params domain.ShaderParams, forward domain.Vec3, project projectFunc) {
	vc := len(mesh.Vertices)
	if cap(r.px) < vc {
		r.px = make([]float64, vc)
		r.py = make([]float64, vc)
		r.pz = make([]float64, vc)
		r.pok = make([]bool, vc)
	}
	r.px, r.py, r.pz, r.pok = r.px[:vc], r.py[:vc], r.pz[:vc], r.pok[:vc]

	for i, v := range mesh.Vertices {
		r.px[i], r.py[i], r.pz[i], r.pok[i] = project(v)
	}

	r.order = r.order[:0]
	for fi, f := range mesh.Faces {
		if !r.pok[f[0]] || !r.pok[f[1]] || !r.pok[f[2]] {
			continue
		}
		depth := (r.pz[f[0]] + r.pz[f[1]] + r.pz[f[2]]) / 3
		r.order = append(r.order, faceRef{index: fi, depth: depth})
	}
	// Painter order: farthest first
	sort.Slice(r.order, func(a, b int) bool {
		return r.order[a].depth > r.order[b].depth
	})

	toEye := forward.Scale(-1)
	wire := clamp(params.WireOpacity, 0, 1)

	for _, ref := range r.order {
		f := mesh.Faces[ref.index]
		a, b, c := f[0], f[1], f[2]

		n := faceNormal(mesh.Vertices[a], mesh.Vertices[b], mesh.Vertices[c])
		diff := math.Abs(n.Dot(toEye))
		shade := clamp(renderAmbient+(1-renderAmbient)*diff, 0, 1) * params.LightLevel

		fill := params.BaseColor.Scale(shade)
		r.fillTriangle(r.px[a], r.py[a], r.px[b], r.py[b], r.px[c], r.py[c], fill)

		if wire > 0 {
			r.drawLine(r.px[a], r.py[a], r.px[b], r.py[b], params.GlowColor, wire)
			r.drawLine(r.px[b], r.py[b], r.px[c], r.py[c], params.GlowColor, wire)
			r.drawLine(r.px[c], r.py[c], r.px[a], r.py[a], params.GlowColor, wire)
		}
	}
}

func faceNormal(a, b, c domain.Vec3) domain.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

func (r *Renderer) fillTriangle(x0, y0, x1, y1, x2, y2 float64, c domain.Color) {
	minX := int(math.Floor(min3(x0, x1, x2)))
	maxX := int(math.Ceil(max3(x0, x1, x2)))
	minY := int(math.Floor(min3(y0, y1, y2)))
	maxY := int(math.Ceil(max3(y0, y1, y2)))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= r.w {
		maxX = r.w - 1
	}
	if maxY >= r.h {
		maxY = r.h - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	area := (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
	if area == 0 {
		return
	}

	cr, cg, cb := c.RGBA8()
	pix := r.img.Pix
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		row := y * r.img.Stride
		for x := minX; x <= maxX; x++ {
			fx := float64(x) + 0.5
			w0 := (x1-x0)*(fy-y0) - (y1-y0)*(fx-x0)
			w1 := (x2-x1)*(fy-y1) - (y2-y1)*(fx-x1)
			w2 := (x0-x2)*(fy-y2) - (y0-y2)*(fx-x2)
			inside := (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0)
			if !inside {
				continue
			}
			i := row + x*4
			pix[i] = cr
			pix[i+1] = cg
			pix[i+2] = cb
			pix[i+3] = 255
		}
	}
}

func (r *Renderer) drawLine(x0, y0, x1, y1 float64, c domain.Color, alpha float64) {
	dx, dy := x1-x0, y1-y0
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps > 2*(r.w+r.h) {
		return
	}
	if steps == 0 {
		r.blend(int(x0), int(y0), c, alpha)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.blend(int(x0+dx*t), int(y0+dy*t), c, alpha)
	}
}

func (r *Renderer) blend(x, y int, c domain.Color, alpha float64) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h || alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	i := y*r.img.Stride + x*4
	pix := r.img.Pix
	pix[i] = mix8(pix[i], c.R, alpha)
	pix[i+1] = mix8(pix[i+1], c.G, alpha)
	pix[i+2] = mix8(pix[i+2], c.B, alpha)
	pix[i+3] = 255
}

func mix8(old uint8, target, alpha float64) uint8 {
	t := clamp(target, 0, 1) * 255
	v := float64(old) + (t-float64(old))*alpha
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// applyBloom runs a cheap bright-pass blur at quarter resolution and adds
// it back on top of the frame.
func (r *Renderer) applyBloom(strength float64) {
	lw, lh := r.lowW, r.lowH
	pix := r.img.Pix

	// Bright pass, sampling one pixel per cell
	for ly := 0; ly < lh; ly++ {
		sy := ly*bloomCell + bloomCell/2
		if sy >= r.h {
			sy = r.h - 1
		}
		for lx := 0; lx < lw; lx++ {
			sx := lx*bloomCell + bloomCell/2
			if sx >= r.w {
				sx = r.w - 1
			}
			i := sy*r.img.Stride + sx*4
			fr := float64(pix[i]) / 255
			fg := float64(pix[i+1]) / 255
			fb := float64(pix[i+2]) / 255
			lum := 0.2126*fr + 0.7152*fg + 0.0722*fb
			o := (ly*lw + lx) * 3
			if lum <= bloomThreshold {
				r.lowBuf[o], r.lowBuf[o+1], r.lowBuf[o+2] = 0, 0, 0
				continue
			}
			k := (lum - bloomThreshold) / (1 - bloomThreshold)
			r.lowBuf[o] = fr * k
			r.lowBuf[o+1] = fg * k
			r.lowBuf[o+2] = fb * k
		}
	}

	r.boxBlurH(lw, lh)
	r.boxBlurV(lw, lh)

	// Additive upsample
	gain := strength * bloomGain * 255
	for y := 0; y < r.h; y++ {
		ly := y / bloomCell
		row := y * r.img.Stride
		for x := 0; x < r.w; x++ {
			o := (ly*lw + x/bloomCell) * 3
			if r.lowBuf[o] == 0 && r.lowBuf[o+1] == 0 && r.lowBuf[o+2] == 0 {
				continue
			}
			i := row + x*4
			pix[i] = add8(pix[i], r.lowBuf[o]*gain)
			pix[i+1] = add8(pix[i+1], r.lowBuf[o+1]*gain)
			pix[i+2] = add8(pix[i+2], r.lowBuf[o+2]*gain)
		}
	}
}

func (r *Renderer) boxBlurH(lw, lh int) {
	for y := 0; y < lh; y++ {
		for x := 0; x < lw; x++ {
			for ch := 0; ch < 3; ch++ {
				sum, cnt := 0.0, 0
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= lw {
						continue
					}
					sum += r.lowBuf[(y*lw+nx)*3+ch]
					cnt++
				}
				r.blurBuf[(y*lw+x)*3+ch] = sum / float64(cnt)
			}
		}
	}
}

func (r *Renderer) boxBlurV(lw, lh int) {
	for y := 0; y < lh; y++ {
		for x := 0; x < lw; x++ {
			for ch := 0; ch < 3; ch++ {
				sum, cnt := 0.0, 0
				for dy := -1; dy <= 1; dy++ {
					ny := y + dy
					if ny < 0 || ny >= lh {
						continue
					}
					sum += r.blurBuf[(ny*lw+x)*3+ch]
					cnt++
				}
				r.lowBuf[(y*lw+x)*3+ch] = sum / float64(cnt)
			}
		}
	}
}

func add8(old uint8, amount float64) uint8 {
	v := float64(old) + amount
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
