package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

func silence() domain.SmoothedEnergy {
	return domain.SmoothedEnergy{}
}

func loudMix() domain.SmoothedEnergy {
	return domain.SmoothedEnergy{
		Slow: domain.BandEnergy{Bass: 1, Mid: 1, Treble: 1, Overall: 1},
	}
}

func TestRig_Update_SilenceOrbitsAtBaseSpeed(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	rig.Update(0.5, silence())

	assert.InDelta(t, cfg.BaseSpeed*0.5, rig.Phase(), 1e-12)
}

func TestRig_Update_EnergySpeedsUpOrbit(t *testing.T) {
	cfg := DefaultCameraConfig()
	quiet := NewRig(cfg)
	loud := NewRig(cfg)

	for i := 0; i < 60; i++ {
		quiet.Update(1.0/60, silence())
		loud.Update(1.0/60, loudMix())
	}

	assert.Greater(t, loud.Phase(), quiet.Phase())
}

func TestRig_Update_BassPullsZoomIn(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)
	require.InDelta(t, cfg.BaseZoom, rig.Zoom(), 1e-12)

	bass := domain.SmoothedEnergy{Slow: domain.BandEnergy{Bass: 1}}
	for i := 0; i < 500; i++ {
		rig.Update(1.0/60, bass)
	}

	assert.InDelta(t, cfg.BaseZoom-cfg.BassZoomPull, rig.Zoom(), 1e-3)
	assert.GreaterOrEqual(t, rig.Zoom(), cfg.MinZoom)
}

func TestRig_Update_ZoomNeverBelowFloor(t *testing.T) {
	cfg := DefaultCameraConfig()
	cfg.BassZoomPull = 100 // absurd pull must still respect the floor
	rig := NewRig(cfg)

	bass := domain.SmoothedEnergy{Slow: domain.BandEnergy{Bass: 1}}
	for i := 0; i < 500; i++ {
		rig.Update(1.0/60, bass)
	}

	assert.InDelta(t, cfg.MinZoom, rig.Zoom(), 1e-3)
}

func TestRig_Update_ZoomRecoversAfterDrop(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	bass := domain.SmoothedEnergy{Slow: domain.BandEnergy{Bass: 1}}
	for i := 0; i < 200; i++ {
		rig.Update(1.0/60, bass)
	}
	pulled := rig.Zoom()

	for i := 0; i < 500; i++ {
		rig.Update(1.0/60, silence())
	}

	assert.Greater(t, rig.Zoom(), pulled)
	assert.InDelta(t, cfg.BaseZoom, rig.Zoom(), 1e-3)
}

func TestRig_AddDrag_DecaysOverTime(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	rig.AddDrag(1.0)
	require.InDelta(t, 1.0, rig.DragVelocity(), 1e-12)

	rig.Update(1.0/60, silence())
	assert.InDelta(t, cfg.DragDamp, rig.DragVelocity(), 1e-12)

	for i := 0; i < 600; i++ {
		rig.Update(1.0/60, silence())
	}
	assert.InDelta(t, 0.0, rig.DragVelocity(), 1e-3)
}

func TestRig_AddDrag_Clamped(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	rig.AddDrag(100)
	assert.InDelta(t, cfg.MaxDragVel, rig.DragVelocity(), 1e-12)

	rig.AddDrag(-1000)
	assert.InDelta(t, -cfg.MaxDragVel, rig.DragVelocity(), 1e-12)
}

func TestRig_DragAdvancesPhase(t *testing.T) {
	cfg := DefaultCameraConfig()
	still := NewRig(cfg)
	dragged := NewRig(cfg)

	dragged.AddDrag(1.5)
	still.Update(1.0/60, silence())
	dragged.Update(1.0/60, silence())

	assert.Greater(t, dragged.Phase(), still.Phase())
}

func TestRig_Gyro_OnlyWhenEnabled(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	rig.SetOrientationRate(2.0)
	rig.Update(0.1, silence())
	disabled := rig.Phase()
	assert.InDelta(t, cfg.BaseSpeed*0.1, disabled, 1e-12, "orientation input should be inert while disabled")

	rig.SetGyroEnabled(true)
	rig.SetOrientationRate(2.0)
	rig.Update(0.1, silence())

	wantStep := 0.1 * (cfg.BaseSpeed + 2.0*cfg.GyroScale)
	assert.InDelta(t, disabled+wantStep, rig.Phase(), 1e-12)
}

func TestRig_Gyro_DisableClearsRate(t *testing.T) {
	rig := NewRig(DefaultCameraConfig())

	rig.SetGyroEnabled(true)
	rig.SetOrientationRate(2.0)
	rig.SetGyroEnabled(false)
	rig.SetGyroEnabled(true)

	before := rig.Phase()
	rig.Update(0.1, silence())

	// The stale rate was cleared on disable
	assert.InDelta(t, before+0.1*DefaultCameraConfig().BaseSpeed, rig.Phase(), 1e-12)
}

func TestRig_CombinedManualVelocityClamped(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	rig.SetGyroEnabled(true)
	rig.SetOrientationRate(1000)
	rig.AddDrag(cfg.MaxDragVel)
	rig.Update(0.1, silence())

	// Drag at the clamp plus huge gyro input still advances at most
	// base speed plus the clamp
	maxStep := 0.1 * (cfg.BaseSpeed + cfg.MaxDragVel)
	assert.LessOrEqual(t, rig.Phase(), maxStep+1e-12)
}

func TestRig_Eye_StartsOnZAxisAtBaseZoom(t *testing.T) {
	cfg := DefaultCameraConfig()
	rig := NewRig(cfg)

	eye := rig.Eye()

	assert.InDelta(t, 0.0, eye.X, 1e-12)
	assert.InDelta(t, 0.0, eye.Y, 1e-12)
	assert.InDelta(t, cfg.BaseZoom, eye.Z, 1e-12)
}

func TestRig_Eye_TracksOrbitDistance(t *testing.T) {
	rig := NewRig(DefaultCameraConfig())

	for i := 0; i < 240; i++ {
		rig.Update(1.0/60, loudMix())
	}

	eye := rig.Eye()
	planar := math.Hypot(eye.X-0, eye.Z) // offX shifts X, so only roughly radial
	assert.Greater(t, planar, 1.0)
}
