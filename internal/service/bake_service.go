package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
	"github.com/auroraviz/aurora/internal/scene"
)

// BakeConfig holds the bake driver tuning.
type BakeConfig struct {
	// ChunkSize is the number of vertices processed per driver tick. Each
	// vertex costs one ray cast per target triangle, so the chunk bounds
	// the work done between yields.
	ChunkSize int

	// StepDelay is the pause between chunks, yielding the CPU to the
	// render loop.
	StepDelay time.Duration
}

// DefaultBakeConfig returns the configuration used by the application.
func DefaultBakeConfig() BakeConfig {
	return BakeConfig{
		ChunkSize: 256,
		StepDelay: 2 * time.Millisecond,
	}
}

// BakeService computes radial morph fields in the background. A bake runs
// as an incremental job: a driver goroutine advances the baker one chunk
// at a time and reports through the event bus, so rendered frames keep
// flowing while thousands of rays are cast.
//
// Finished fields are cached in the repository under (asset, vertex
// count); a later request for the same key completes immediately. There
// is no user-facing cancel; Close abandons a running job.
//
// All operations are thread-safe via sync.Mutex.
type BakeService struct {
	// Dependencies (injected)
	logger *slog.Logger
	shapes ports.ShapeSource
	fields ports.MorphFieldRepository
	bus    ports.EventBus
	cfg    BakeConfig

	// Concurrency control
	mu      sync.Mutex
	running bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewBakeService creates a new bake service.
func NewBakeService(
	logger *slog.Logger,
	shapes ports.ShapeSource,
	fields ports.MorphFieldRepository,
	bus ports.EventBus,
	cfg BakeConfig,
) *BakeService {
	defaults := DefaultBakeConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = defaults.StepDelay
	}

	service := &BakeService{
		logger: logger,
		shapes: shapes,
		fields: fields,
		bus:    bus,
		cfg:    cfg,
		stop:   make(chan struct{}),
	}

	logger.Debug("bake service initialized",
		slog.Int("chunk_size", cfg.ChunkSize))

	return service
}

// Bake produces the morph field for the given asset against the base
// mesh and returns the job id for event correlation.
//
// A cached field completes immediately with a BakeCompletedEvent marked
// Cached. Otherwise a BakeStartedEvent opens the job and the driver
// goroutine publishes progress until completion.
//
// When the shape cannot be loaded or holds no usable geometry, the job
// completes with an identity field (the mesh stays undeformed at full
// blend) and the error is returned alongside a BakeFailedEvent.
func (s *BakeService) Bake(assetID string, base *scene.Mesh) (string, error) {
	if base == nil || base.VertexCount() == 0 {
		return "", domain.NewBakeError(assetID, "bake", "base mesh is empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", domain.NewServiceError("bake", "bake", "service is shut down", nil)
	}
	if s.running {
		return "", domain.NewBakeError(assetID, "bake", "another bake is active", domain.ErrBakeInProgress)
	}

	jobID := uuid.NewString()
	vertexCount := base.VertexCount()

	// Cache first. The repositories discard wrong-length entries on read,
	// so a mismatch here just means the bake proceeds.
	cached, err := s.fields.Load(assetID, vertexCount)
	switch {
	case err == nil:
		s.logger.Debug("morph field served from cache",
			slog.String("job_id", jobID),
			slog.String("asset_id", assetID),
			slog.Int("vertex_count", vertexCount))
		s.bus.Publish(domain.NewBakeCompletedEvent(jobID, assetID, cached, true))
		return jobID, nil
	case errors.Is(err, domain.ErrFieldNotFound):
		// Cold start, bake below
	case errors.Is(err, domain.ErrFieldLengthMismatch):
		s.logger.Warn("cached morph field discarded, rebaking",
			slog.String("asset_id", assetID),
			slog.Int("vertex_count", vertexCount))
	default:
		s.logger.Warn("morph field cache unavailable",
			slog.String("asset_id", assetID),
			slog.Any("error", err))
	}

	baker, err := s.prepareBaker(assetID, base)
	if err != nil {
		s.logger.Warn("bake failed, substituting identity field",
			slog.String("job_id", jobID),
			slog.String("asset_id", assetID),
			slog.Any("error", err))
		s.bus.Publish(domain.NewBakeFailedEvent(jobID, assetID, err))
		s.bus.Publish(domain.NewBakeCompletedEvent(jobID, assetID, scene.IdentityField(assetID, base), false))
		return jobID, err
	}

	s.running = true
	s.bus.Publish(domain.NewBakeStartedEvent(jobID, assetID, vertexCount))

	s.wg.Add(1)
	go s.run(jobID, baker)

	return jobID, nil
}

// prepareBaker loads the target shape and sets up the baker.
func (s *BakeService) prepareBaker(assetID string, base *scene.Mesh) (*scene.Baker, error) {
	shape, err := s.shapes.Load(assetID)
	if err != nil {
		return nil, err
	}
	return scene.NewBaker(assetID, base, shape)
}

// run drives one bake job to completion, one chunk per tick.
func (s *BakeService) run(jobID string, baker *scene.Baker) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.cfg.StepDelay)
	defer ticker.Stop()

	assetID := baker.AssetID()
	for {
		select {
		case <-s.stop:
			s.logger.Debug("bake abandoned",
				slog.String("job_id", jobID),
				slog.String("asset_id", assetID))
			return
		case <-ticker.C:
		}

		finished := baker.Step(s.cfg.ChunkSize)
		done, total := baker.Progress()
		s.bus.Publish(domain.NewBakeProgressEvent(domain.BakeProgress{
			JobID:        jobID,
			AssetID:      assetID,
			VerticesDone: done,
			VertexCount:  total,
		}))

		if finished {
			break
		}
	}

	field := baker.Field()
	if err := s.fields.Save(field); err != nil {
		s.logger.Warn("failed to cache morph field",
			slog.String("asset_id", assetID),
			slog.Any("error", err))
	}

	s.logger.Debug("bake completed",
		slog.String("job_id", jobID),
		slog.String("asset_id", assetID),
		slog.Int("vertex_count", field.VertexCount))

	s.bus.Publish(domain.NewBakeCompletedEvent(jobID, assetID, field, false))
}

// IsBaking reports whether a job is currently running.
func (s *BakeService) IsBaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Invalidate drops the cached field for the given key, typically after a
// resolution change made it unusable.
func (s *BakeService) Invalidate(assetID string, vertexCount int) error {
	if err := s.fields.Delete(assetID, vertexCount); err != nil {
		return err
	}

	s.logger.Debug("morph field invalidated",
		slog.String("asset_id", assetID),
		slog.Int("vertex_count", vertexCount))

	return nil
}

// Shapes lists the available morph target assets.
func (s *BakeService) Shapes() ([]string, error) {
	return s.shapes.List()
}

// Close abandons any running job and waits for the driver to exit.
func (s *BakeService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Verify that BakeService implements the expected interface patterns
var _ interface {
	Bake(string, *scene.Mesh) (string, error)
	IsBaking() bool
	Invalidate(string, int) error
	Shapes() ([]string, error)
	Close() error
} = (*BakeService)(nil)
