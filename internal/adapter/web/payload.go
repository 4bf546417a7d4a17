package web

import "github.com/auroraviz/aurora/internal/domain"

// StatusResponse is one telemetry frame on the wire, served by /api/status
// and streamed over the websocket.
type StatusResponse struct {
	FPS        float64        `json:"fps"`
	Palette    string         `json:"palette"`
	Variant    string         `json:"variant"`
	Bands      BandLevels     `json:"bands"`
	FastBass   float64        `json:"fastBass"`
	MorphBlend float64        `json:"morphBlend"`
	Params     ParamsStatus   `json:"params"`
	Settings   SettingsStatus `json:"settings"`
	Track      *TrackStatus   `json:"track,omitempty"`
}

// BandLevels carries the smoothed band energies.
type BandLevels struct {
	Bass    float64 `json:"bass"`
	Mid     float64 `json:"mid"`
	Treble  float64 `json:"treble"`
	Overall float64 `json:"overall"`
}

// ParamsStatus mirrors the frame's shader uniforms, colors flattened to
// rgb triples and the spectrum strip included so a remote client can plot
// exactly what the renderer saw.
type ParamsStatus struct {
	Time           float64    `json:"time"`
	Reactivity     float64    `json:"reactivity"`
	MorphBlend     float64    `json:"morphBlend"`
	SpikeAmount    float64    `json:"spikeAmount"`
	SpikeSharpness float64    `json:"spikeSharpness"`
	LightLevel     float64    `json:"lightLevel"`
	BloomStrength  float64    `json:"bloomStrength"`
	WireOpacity    float64    `json:"wireOpacity"`
	BaseColor      [3]float64 `json:"baseColor"`
	GlowColor      [3]float64 `json:"glowColor"`
	Background     [3]float64 `json:"background"`
	Spectrum       []float64  `json:"spectrum"`
}

// SettingsStatus reports the live knob values. Volume comes from the
// playback service and stays zero in capture-only runs.
type SettingsStatus struct {
	RotationSpeed  float64 `json:"rotationSpeed"`
	Reactivity     float64 `json:"reactivity"`
	BloomStrength  float64 `json:"bloomStrength"`
	StarCount      int     `json:"starCount"`
	MeshResolution int     `json:"meshResolution"`
	GyroEnabled    bool    `json:"gyroEnabled"`
	Volume         float64 `json:"volume"`
}

// TrackStatus describes the loaded track. Position and duration are in
// seconds.
type TrackStatus struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	Status   string  `json:"status"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// ControlRequest is a partial update: only the fields present are applied.
// Accepted both as the /api/control POST body and as a websocket text
// message.
type ControlRequest struct {
	Palette         *string  `json:"palette,omitempty"`
	Variant         *string  `json:"variant,omitempty"`
	Resolution      *int     `json:"resolution,omitempty"`
	RotationSpeed   *float64 `json:"rotationSpeed,omitempty"`
	Reactivity      *float64 `json:"reactivity,omitempty"`
	BloomStrength   *float64 `json:"bloomStrength,omitempty"`
	StarCount       *int     `json:"starCount,omitempty"`
	GyroEnabled     *bool    `json:"gyroEnabled,omitempty"`
	OrientationRate *float64 `json:"orientationRate,omitempty"`
	Drag            *float64 `json:"drag,omitempty"`
}

func paramsStatus(p domain.ShaderParams) ParamsStatus {
	spectrum := make([]float64, len(p.Spectrum))
	copy(spectrum, p.Spectrum[:])

	return ParamsStatus{
		Time:           p.Time,
		Reactivity:     p.Reactivity,
		MorphBlend:     p.MorphBlend,
		SpikeAmount:    p.SpikeAmount,
		SpikeSharpness: p.SpikeSharpness,
		LightLevel:     p.LightLevel,
		BloomStrength:  p.BloomStrength,
		WireOpacity:    p.WireOpacity,
		BaseColor:      rgb(p.BaseColor),
		GlowColor:      rgb(p.GlowColor),
		Background:     rgb(p.Background),
		Spectrum:       spectrum,
	}
}

func rgb(c domain.Color) [3]float64 {
	return [3]float64{c.R, c.G, c.B}
}
