package analysis

import "sync"

// Ring is a fixed-size buffer of mono samples shared between a producer
// goroutine (decoder tap, capture callback) and the render loop. Writes
// overwrite the oldest data; reads copy out the newest.
type Ring struct {
	mu  sync.Mutex
	buf []float32
	idx int
}

// NewRing creates a ring holding size samples.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{buf: make([]float32, size)}
}

// Write appends samples, overwriting the oldest data on wrap.
func (r *Ring) Write(in []float32) {
	if len(in) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(in) >= len(r.buf) {
		copy(r.buf, in[len(in)-len(r.buf):])
		r.idx = 0
		return
	}

	n := copy(r.buf[r.idx:], in)
	if n < len(in) {
		copy(r.buf, in[n:])
	}
	r.idx = (r.idx + len(in)) % len(r.buf)
}

// WriteStereoPCM16 converts interleaved 16-bit little-endian stereo PCM to
// mono samples in the -1..1 range and appends them.
func (r *Ring) WriteStereoPCM16(p []byte) {
	frames := len(p) / 4
	if frames == 0 {
		return
	}
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		l := int16(p[i*4]) | int16(p[i*4+1])<<8
		rr := int16(p[i*4+2]) | int16(p[i*4+3])<<8
		mono[i] = (float32(l) + float32(rr)) / 2 / 32768
	}
	r.Write(mono)
}

// Read fills dst with the most recent len(dst) samples in chronological
// order, zero-padding the front when the ring holds fewer.
func (r *Ring) Read(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.buf)
	pad := 0
	if len(dst) < n {
		n = len(dst)
	} else {
		pad = len(dst) - n
	}
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}

	start := r.idx - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		dst[pad+i] = r.buf[(start+i)%len(r.buf)]
	}
}

// Size returns the ring capacity in samples.
func (r *Ring) Size() int {
	return len(r.buf)
}
