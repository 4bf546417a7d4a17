// Package scene: camera kinematics.
package scene

import (
	"math"

	"github.com/auroraviz/aurora/internal/domain"
)

// CameraConfig holds the camera tuning constants.
type CameraConfig struct {
	BaseSpeed    float64 // orbit speed floor, radians per second
	TrebleBoost  float64 // speed added per unit of treble energy
	OverallBoost float64 // speed added per unit of overall energy
	BaseZoom     float64 // orbit distance at silence
	BassZoomPull float64 // distance removed per unit of bass energy
	MinZoom      float64 // hard floor for the orbit distance
	WanderX      float64 // lateral wander amplitude
	WanderY      float64 // vertical wander amplitude
	Blend        float64 // fixed easing blend applied per frame
	DragDamp     float64 // per-frame decay of drag velocity
	MaxDragVel   float64 // clamp on combined manual angular velocity
	GyroScale    float64 // scale applied to orientation input
}

// DefaultCameraConfig returns the tuning used by the application.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		BaseSpeed:    0.22,
		TrebleBoost:  0.9,
		OverallBoost: 0.45,
		BaseZoom:     3.4,
		BassZoomPull: 0.9,
		MinZoom:      1.8,
		WanderX:      0.5,
		WanderY:      0.35,
		Blend:        0.08,
		DragDamp:     0.92,
		MaxDragVel:   2.5,
		GyroScale:    0.6,
	}
}

// Rig orbits the camera around the origin. The orbit angle advances with
// audio-driven speed; the lateral offsets wander on two sine waves of
// different frequency and phase, so the path never closes into a circle.
type Rig struct {
	cfg CameraConfig

	phase    float64
	offX     float64
	offY     float64
	zoom     float64
	dragVel  float64
	gyroRate float64
	gyroOn   bool
}

// NewRig creates a camera rig starting at the configured base zoom.
func NewRig(cfg CameraConfig) *Rig {
	return &Rig{cfg: cfg, zoom: cfg.BaseZoom}
}

// Update advances the orbit by dt seconds using the current band energies.
func (r *Rig) Update(dt float64, energy domain.SmoothedEnergy) {
	speed := r.cfg.BaseSpeed +
		r.cfg.TrebleBoost*energy.Slow.Treble +
		r.cfg.OverallBoost*energy.Slow.Overall

	manual := r.dragVel
	if r.gyroOn {
		manual += r.gyroRate * r.cfg.GyroScale
	}
	manual = clamp(manual, -r.cfg.MaxDragVel, r.cfg.MaxDragVel)

	r.phase += dt * (speed + manual)
	r.dragVel *= r.cfg.DragDamp

	targetX := math.Sin(r.phase*1.31) * r.cfg.WanderX
	targetY := math.Sin(r.phase*0.83+1.7) * r.cfg.WanderY
	r.offX += (targetX - r.offX) * r.cfg.Blend
	r.offY += (targetY - r.offY) * r.cfg.Blend

	targetZoom := r.cfg.BaseZoom - r.cfg.BassZoomPull*energy.Slow.Bass
	if targetZoom < r.cfg.MinZoom {
		targetZoom = r.cfg.MinZoom
	}
	r.zoom += (targetZoom - r.zoom) * r.cfg.Blend
}

// AddDrag feeds manual drag input (radians per second) into the orbit.
// The velocity decays every frame and is clamped to the configured limit.
func (r *Rig) AddDrag(vel float64) {
	r.dragVel = clamp(r.dragVel+vel, -r.cfg.MaxDragVel, r.cfg.MaxDragVel)
}

// SetBaseSpeed changes the orbit speed floor without disturbing the
// current phase or offsets.
func (r *Rig) SetBaseSpeed(speed float64) {
	r.cfg.BaseSpeed = speed
}

// SetOrientationRate sets the device-orientation angular rate. The rate is
// scaled by the configured gyro factor and contributes to the manual
// velocity only while orientation input is enabled; the combined velocity
// never exceeds the drag clamp.
func (r *Rig) SetOrientationRate(rate float64) {
	r.gyroRate = rate
}

// SetGyroEnabled toggles orientation input.
func (r *Rig) SetGyroEnabled(on bool) {
	r.gyroOn = on
	if !on {
		r.gyroRate = 0
	}
}

// Eye returns the camera position for the current frame.
func (r *Rig) Eye() domain.Vec3 {
	return domain.Vec3{
		X: math.Sin(r.phase)*r.zoom + r.offX,
		Y: r.offY,
		Z: math.Cos(r.phase) * r.zoom,
	}
}

// Phase returns the accumulated orbit angle, used for starfield parallax.
func (r *Rig) Phase() float64 {
	return r.phase
}

// Zoom returns the current orbit distance.
func (r *Rig) Zoom() float64 {
	return r.zoom
}

// DragVelocity returns the current manual angular velocity.
func (r *Rig) DragVelocity() float64 {
	return r.dragVel
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
