// Package web exposes the running visualizer over HTTP: a JSON status
// endpoint, a control endpoint for the visual knobs, and a websocket that
// streams telemetry at a fixed rate. The server is optional equipment; a
// bind failure or a dead client costs a log line, never a frame.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/auroraviz/aurora/internal/domain"
)

const (
	// writeWait is the deadline for a single outbound websocket frame.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before the read side
	// gives up on it.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait so pings keep refreshing
	// the read deadline.
	pingPeriod = 54 * time.Second

	// maxMessageSize bounds inbound control messages.
	maxMessageSize = 1024

	// sendBufferSize is the per-client outbound queue. A client that lets
	// it fill is evicted rather than allowed to stall the broadcast.
	sendBufferSize = 256
)

// Visualizer is the slice of the visualizer service the web layer reads and
// drives. Defined here so the server depends on what it uses, not on the
// service package.
type Visualizer interface {
	Telemetry() domain.TelemetryFrame
	Settings() domain.VisualSettings
	SetPalette(name string) error
	SetVariant(name string) error
	SetResolution(level int) error
	SetRotationSpeed(speed float64) error
	SetReactivity(factor float64) error
	SetBloomStrength(strength float64) error
	SetStarCount(count int) error
	SetGyroEnabled(on bool)
	SetOrientationRate(rate float64)
	AddDrag(velocity float64)
}

// Playback reports the loaded track for the status payload. Capture-only
// runs have no player; pass nil and the payload omits the track.
type Playback interface {
	CurrentTrack() *domain.MusicTrack
	Status() domain.PlaybackStatus
	Position() time.Duration
	Duration() time.Duration
	Volume() float64
}

// Config controls the listen address and telemetry cadence.
type Config struct {
	// Addr is the TCP listen address, e.g. ":8080" or "127.0.0.1:0".
	Addr string

	// TelemetryInterval is the pace of websocket status frames.
	TelemetryInterval time.Duration
}

// DefaultConfig returns the web server configuration defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		TelemetryInterval: 500 * time.Millisecond,
	}
}

// Server streams telemetry to websocket clients and applies their control
// messages to the visualizer.
//
// Thread-safety: the clients map and lifecycle flags are guarded by mu; the
// visualizer and playback services do their own locking.
type Server struct {
	logger   *slog.Logger
	vis      Visualizer
	playback Playback
	cfg      Config

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener

	mu        sync.Mutex
	clients   map[*client]bool
	broadcast chan []byte
	closed    bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewServer creates a web server bound to the given services. Zero config
// fields fall back to DefaultConfig values. Call Start to begin listening.
func NewServer(log *slog.Logger, vis Visualizer, playback Playback, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = def.TelemetryInterval
	}

	s := &Server{
		logger:   log,
		vis:      vis,
		playback: playback,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*client]bool),
		broadcast: make(chan []byte, sendBufferSize),
		stop:      make(chan struct{}),
	}

	log.Debug("web server initialized", slog.String("addr", cfg.Addr))
	return s
}

// Handler returns the HTTP routes. Exposed separately from Start so callers
// can mount the API under their own server if they have one.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("/api/palettes", s.handlePalettes)
	mux.HandleFunc("/api/variants", s.handleVariants)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start binds the listen address and begins serving. The bind happens
// synchronously so the caller learns about a taken port immediately; the
// accept loop and broadcast loops run in the background.
//
// Returns:
//   - *domain.ServiceError if the server is shut down or the bind fails
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.NewServiceError("web", "start", "server is shut down", nil)
	}
	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return domain.NewServiceError("web", "start", "failed to bind "+s.cfg.Addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}

	s.wg.Add(3)
	go s.serve()
	go s.broadcastLoop()
	go s.telemetryLoop()

	s.logger.Info("web server listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, useful when the config asked for port 0.
// Empty until Start succeeds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects every client, stops the listener and waits for all
// server goroutines to finish. Safe to call more than once, and safe on a
// server that never started.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.listener != nil
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	close(s.stop)
	var err error
	if started {
		err = s.httpServer.Close()
	}
	s.wg.Wait()

	s.logger.Debug("web server closed")
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("web server stopped", slog.Any("error", err))
	}
}

// broadcastLoop fans queued telemetry out to every client. A client whose
// send buffer is full gets dropped on the spot; writePump notices the
// closed channel and says goodbye on the wire.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- message:
				default:
					delete(s.clients, c)
					close(c.send)
					s.logger.Debug("web client evicted", slog.String("client_id", c.id))
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) telemetryLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			data, err := json.Marshal(s.snapshot())
			if err != nil {
				continue
			}
			select {
			case s.broadcast <- data:
			default:
				// drop the frame if the fan-out is behind
			}
		}
	}
}

// removeClient takes a client out of the map and closes its send channel.
// Map membership is the guard: whichever path gets here first (read error,
// eviction, Close) does the close, later calls are no-ops.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		s.logger.Debug("web client disconnected", slog.String("client_id", c.id))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		server: s,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = true
	s.wg.Add(2)
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.logger.Debug("web client connected",
		slog.String("client_id", c.id),
		slog.Int("clients", clientCount))

	go c.writePump()
	go c.readPump()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.applyControl(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	palettes := domain.Palettes()
	names := make([]string, 0, len(palettes))
	for _, p := range palettes {
		names = append(names, p.Name)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	variants := domain.Variants()
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.Name)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

// applyControl applies every field present in the request and reports the
// first rejection. Later fields still get applied; a bad palette name
// should not eat the speed change sent alongside it.
func (s *Server) applyControl(req ControlRequest) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if req.Palette != nil {
		record(s.vis.SetPalette(*req.Palette))
	}
	if req.Variant != nil {
		record(s.vis.SetVariant(*req.Variant))
	}
	if req.Resolution != nil {
		record(s.vis.SetResolution(*req.Resolution))
	}
	if req.RotationSpeed != nil {
		record(s.vis.SetRotationSpeed(*req.RotationSpeed))
	}
	if req.Reactivity != nil {
		record(s.vis.SetReactivity(*req.Reactivity))
	}
	if req.BloomStrength != nil {
		record(s.vis.SetBloomStrength(*req.BloomStrength))
	}
	if req.StarCount != nil {
		record(s.vis.SetStarCount(*req.StarCount))
	}
	if req.GyroEnabled != nil {
		s.vis.SetGyroEnabled(*req.GyroEnabled)
	}
	if req.OrientationRate != nil {
		s.vis.SetOrientationRate(*req.OrientationRate)
	}
	if req.Drag != nil {
		s.vis.AddDrag(*req.Drag)
	}

	return firstErr
}

func (s *Server) snapshot() StatusResponse {
	frame := s.vis.Telemetry()
	settings := s.vis.Settings()

	resp := StatusResponse{
		FPS:     frame.FPS,
		Palette: frame.Palette,
		Variant: frame.Variant,
		Bands: BandLevels{
			Bass:    frame.Bands.Bass,
			Mid:     frame.Bands.Mid,
			Treble:  frame.Bands.Treble,
			Overall: frame.Bands.Overall,
		},
		FastBass:   frame.FastBass,
		MorphBlend: frame.MorphBlend,
		Params:     paramsStatus(frame.Params),
		Settings: SettingsStatus{
			RotationSpeed:  settings.RotationSpeed,
			Reactivity:     settings.Reactivity,
			BloomStrength:  settings.BloomStrength,
			StarCount:      settings.StarCount,
			MeshResolution: settings.MeshResolution,
			GyroEnabled:    settings.GyroEnabled,
		},
	}

	if s.playback != nil {
		resp.Settings.Volume = s.playback.Volume()
		if track := s.playback.CurrentTrack(); track != nil {
			resp.Track = &TrackStatus{
				Title:    track.Title,
				Artist:   track.Artist,
				Album:    track.Album,
				Status:   s.playback.Status().String(),
				Position: s.playback.Position().Seconds(),
				Duration: s.playback.Duration().Seconds(),
			}
		}
	}

	return resp
}
