package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/logger"
	"github.com/auroraviz/aurora/internal/testutil"
)

// mockVisualizer records every knob the server touches.
type mockVisualizer struct {
	mu         sync.Mutex
	palette    string
	variant    string
	resolution int
	speed      float64
	reactivity float64
	bloom      float64
	stars      int
	gyro       bool
	rate       float64
	drag       float64
}

func newMockVisualizer() *mockVisualizer {
	return &mockVisualizer{
		palette:    "aurora",
		variant:    "classic",
		resolution: 3,
		speed:      0.22,
		reactivity: 1.0,
		bloom:      0.6,
		stars:      900,
	}
}

func (m *mockVisualizer) Telemetry() domain.TelemetryFrame {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.TelemetryFrame{
		Bands:      domain.BandEnergy{Bass: 0.5, Mid: 0.25, Treble: 0.125, Overall: 0.4},
		FastBass:   0.7,
		MorphBlend: 0.2,
		FPS:        30,
		Palette:    m.palette,
		Variant:    m.variant,
		Params:     domain.ShaderParams{Time: 1.5, Reactivity: 1.9},
	}
}

func (m *mockVisualizer) Settings() domain.VisualSettings {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.VisualSettings{
		PaletteName:    m.palette,
		VariantName:    m.variant,
		RotationSpeed:  m.speed,
		Reactivity:     m.reactivity,
		BloomStrength:  m.bloom,
		StarCount:      m.stars,
		MeshResolution: m.resolution,
		GyroEnabled:    m.gyro,
	}
}

func (m *mockVisualizer) SetPalette(name string) error {
	if _, ok := domain.PaletteByName(name); !ok {
		return domain.ErrUnknownPalette
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.palette = name
	return nil
}

func (m *mockVisualizer) SetVariant(name string) error {
	if _, ok := domain.VariantByName(name); !ok {
		return domain.ErrUnknownVariant
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.variant = name
	return nil
}

func (m *mockVisualizer) SetResolution(level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolution = level
	return nil
}

func (m *mockVisualizer) SetRotationSpeed(speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = speed
	return nil
}

func (m *mockVisualizer) SetReactivity(factor float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactivity = factor
	return nil
}

func (m *mockVisualizer) SetBloomStrength(strength float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bloom = strength
	return nil
}

func (m *mockVisualizer) SetStarCount(count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stars = count
	return nil
}

func (m *mockVisualizer) SetGyroEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gyro = on
}

func (m *mockVisualizer) SetOrientationRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *mockVisualizer) AddDrag(velocity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drag += velocity
}

func (m *mockVisualizer) paletteName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.palette
}

func (m *mockVisualizer) variantName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variant
}

func (m *mockVisualizer) rotationSpeed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *mockVisualizer) starCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stars
}

func (m *mockVisualizer) dragTotal() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drag
}

type mockPlayback struct{}

func (m *mockPlayback) CurrentTrack() *domain.MusicTrack {
	return &domain.MusicTrack{ID: "t1", Title: "Night Drive", Artist: "Vega", Album: "Afterglow"}
}

func (m *mockPlayback) Status() domain.PlaybackStatus { return domain.StatusPlaying }
func (m *mockPlayback) Position() time.Duration       { return 12 * time.Second }
func (m *mockPlayback) Duration() time.Duration       { return 3 * time.Minute }
func (m *mockPlayback) Volume() float64               { return 0.8 }

func newTestServer(t *testing.T, playback Playback) (*Server, *mockVisualizer) {
	t.Helper()

	vis := newMockVisualizer()
	srv := NewServer(logger.NewTestLogger(), vis, playback, Config{
		Addr:              "127.0.0.1:0",
		TelemetryInterval: 20 * time.Millisecond,
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close() })

	return srv, vis
}

// newHTTPClient returns a client whose idle connections are torn down at
// test cleanup, keeping the leak checker quiet.
func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()

	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	return &http.Client{Transport: transport, Timeout: 5 * time.Second}
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()

	resp, err := newHTTPClient(t).Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func postControl(t *testing.T, addr, body string) int {
	t.Helper()

	resp, err := newHTTPClient(t).Post("http://"+addr+"/api/control", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestServer_StatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &mockPlayback{})

	var status StatusResponse
	getJSON(t, "http://"+srv.Addr()+"/api/status", &status)

	assert.Equal(t, 30.0, status.FPS)
	assert.Equal(t, "aurora", status.Palette)
	assert.Equal(t, "classic", status.Variant)
	assert.InDelta(t, 0.5, status.Bands.Bass, 1e-9)
	assert.InDelta(t, 0.7, status.FastBass, 1e-9)
	assert.InDelta(t, 0.2, status.MorphBlend, 1e-9)
	assert.Len(t, status.Params.Spectrum, domain.SpectrumTexSize)
	assert.InDelta(t, 1.5, status.Params.Time, 1e-9)
	assert.InDelta(t, 0.8, status.Settings.Volume, 1e-9)
	assert.Equal(t, 900, status.Settings.StarCount)

	require.NotNil(t, status.Track)
	assert.Equal(t, "Night Drive", status.Track.Title)
	assert.Equal(t, "Vega", status.Track.Artist)
	assert.Equal(t, "playing", status.Track.Status)
	assert.InDelta(t, 12.0, status.Track.Position, 1e-9)
	assert.InDelta(t, 180.0, status.Track.Duration, 1e-9)
}

func TestServer_StatusEndpoint_NoPlayback(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var status StatusResponse
	getJSON(t, "http://"+srv.Addr()+"/api/status", &status)

	assert.Nil(t, status.Track)
	assert.Zero(t, status.Settings.Volume)
}

func TestServer_NameLists(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var palettes []string
	getJSON(t, "http://"+srv.Addr()+"/api/palettes", &palettes)
	assert.Equal(t, []string{"aurora", "ember", "violet", "mono"}, palettes)

	var variants []string
	getJSON(t, "http://"+srv.Addr()+"/api/variants", &variants)
	assert.Equal(t, []string{"classic", "pulse", "stellar"}, variants)
}

func TestServer_ControlEndpoint(t *testing.T) {
	srv, vis := newTestServer(t, nil)

	code := postControl(t, srv.Addr(), `{"palette":"ember","rotationSpeed":0.5,"starCount":300,"drag":0.4}`)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "ember", vis.paletteName())
	assert.InDelta(t, 0.5, vis.rotationSpeed(), 1e-9)
	assert.Equal(t, 300, vis.starCount())
	assert.InDelta(t, 0.4, vis.dragTotal(), 1e-9)
}

func TestServer_ControlEndpoint_RejectsUnknownPalette(t *testing.T) {
	srv, vis := newTestServer(t, nil)

	code := postControl(t, srv.Addr(), `{"palette":"plasma","rotationSpeed":0.9}`)
	require.Equal(t, http.StatusBadRequest, code)

	// the bad field is reported, the good one still lands
	assert.Equal(t, "aurora", vis.paletteName())
	assert.InDelta(t, 0.9, vis.rotationSpeed(), 1e-9)
}

func TestServer_ControlEndpoint_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := newHTTPClient(t).Get("http://" + srv.Addr() + "/api/control")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_WebSocketStreamsTelemetry(t *testing.T) {
	srv, _ := newTestServer(t, &mockPlayback{})
	conn := dialWS(t, srv.Addr())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	// frames may arrive newline-batched; the first line is a full snapshot
	first := bytes.SplitN(message, []byte{'\n'}, 2)[0]
	var status StatusResponse
	require.NoError(t, json.Unmarshal(first, &status))

	assert.Equal(t, "aurora", status.Palette)
	assert.Equal(t, 30.0, status.FPS)
	require.NotNil(t, status.Track)
	assert.Equal(t, "Night Drive", status.Track.Title)
}

func TestServer_WebSocketControl(t *testing.T) {
	srv, vis := newTestServer(t, nil)
	conn := dialWS(t, srv.Addr())

	variant := "pulse"
	require.NoError(t, conn.WriteJSON(ControlRequest{Variant: &variant}))

	require.Eventually(t, func() bool {
		return vis.variantName() == "pulse"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_WebSocketControl_BadMessageKeepsConnection(t *testing.T) {
	srv, vis := newTestServer(t, nil)
	conn := dialWS(t, srv.Addr())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	speed := 1.3
	require.NoError(t, conn.WriteJSON(ControlRequest{RotationSpeed: &speed}))

	require.Eventually(t, func() bool {
		return vis.rotationSpeed() == 1.3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	vis := newMockVisualizer()
	srv := NewServer(logger.NewTestLogger(), vis, nil, Config{
		Addr:              "127.0.0.1:0",
		TelemetryInterval: 20 * time.Millisecond,
	})
	require.NoError(t, srv.Start())

	conn := dialWS(t, srv.Addr())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, srv.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < 20; i++ {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Error(t, err)

	assert.NoError(t, srv.Close())
}

func TestServer_Start_SecondBindFails(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	require.NoError(t, srv.Start())

	other := NewServer(logger.NewTestLogger(), newMockVisualizer(), nil, Config{
		Addr:              srv.Addr(),
		TelemetryInterval: time.Second,
	})
	err := other.Start()

	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.NoError(t, other.Close())
}

func TestServer_Start_AfterCloseFails(t *testing.T) {
	srv := NewServer(logger.NewTestLogger(), newMockVisualizer(), nil, Config{})
	require.NoError(t, srv.Close())

	err := srv.Start()

	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
}
