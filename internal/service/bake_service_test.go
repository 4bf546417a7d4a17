package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/adapter/eventbus"
	"github.com/auroraviz/aurora/internal/adapter/shape/obj"
	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/logger"
	"github.com/auroraviz/aurora/internal/scene"
	"github.com/auroraviz/aurora/internal/testutil"
)

// Mock morph field repository for testing
type mockFieldRepository struct {
	mu      sync.Mutex
	fields  map[string]domain.MorphField
	loadErr error
	saveErr error
}

func newMockFieldRepository() *mockFieldRepository {
	return &mockFieldRepository{fields: make(map[string]domain.MorphField)}
}

func fieldKey(assetID string, vertexCount int) string {
	return fmt.Sprintf("%s/%d", assetID, vertexCount)
}

func (m *mockFieldRepository) Save(field domain.MorphField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.fields[fieldKey(field.AssetID, field.VertexCount)] = field
	return nil
}

func (m *mockFieldRepository) Load(assetID string, vertexCount int) (domain.MorphField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.MorphField{}, m.loadErr
	}
	field, ok := m.fields[fieldKey(assetID, vertexCount)]
	if !ok {
		return domain.MorphField{}, domain.ErrFieldNotFound
	}
	return field, nil
}

func (m *mockFieldRepository) Delete(assetID string, vertexCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fields, fieldKey(assetID, vertexCount))
	return nil
}

func (m *mockFieldRepository) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = make(map[string]domain.MorphField)
	return nil
}

func (m *mockFieldRepository) stored(assetID string, vertexCount int) (domain.MorphField, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	field, ok := m.fields[fieldKey(assetID, vertexCount)]
	return field, ok
}

// Helper to create a test bake service with a fast driver clock
func newTestBakeService(t *testing.T, cfg BakeConfig) (*BakeService, *mockFieldRepository, *eventbus.SyncEventBus) {
	t.Helper()

	repo := newMockFieldRepository()
	bus := eventbus.NewSyncEventBus()
	shapes := obj.New(t.TempDir())
	service := NewBakeService(logger.NewTestLogger(), shapes, repo, bus, cfg)

	return service, repo, bus
}

func TestBakeService_Bake(t *testing.T) {
	service, repo, bus := newTestBakeService(t, BakeConfig{ChunkSize: 16, StepDelay: time.Millisecond})
	defer func() { require.NoError(t, service.Close()) }()

	started := &eventRecorder{}
	progress := &eventRecorder{}
	completed := &eventRecorder{}
	bus.Subscribe(domain.EventBakeStarted, started.record)
	bus.Subscribe(domain.EventBakeProgress, progress.record)
	bus.Subscribe(domain.EventBakeCompleted, completed.record)

	base := scene.Icosphere(1)
	jobID, err := service.Bake("cube", base)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool { return completed.count() == 1 },
		2*time.Second, time.Millisecond)

	require.Equal(t, 1, started.count())
	startEvent := started.last().(domain.BakeStartedEvent)
	assert.Equal(t, jobID, startEvent.JobID)
	assert.Equal(t, "cube", startEvent.AssetID)
	assert.Equal(t, base.VertexCount(), startEvent.VertexCount)

	// 42 vertices at chunk 16 means three progress reports
	require.GreaterOrEqual(t, progress.count(), 3)
	lastProgress := progress.last().(domain.BakeProgressEvent)
	assert.Equal(t, base.VertexCount(), lastProgress.Progress.VerticesDone)
	assert.Equal(t, base.VertexCount(), lastProgress.Progress.VertexCount)
	assert.InDelta(t, 100.0, lastProgress.Progress.Percentage(), 1e-9)

	event := completed.last().(domain.BakeCompletedEvent)
	assert.Equal(t, jobID, event.JobID)
	assert.False(t, event.Cached)
	assert.True(t, event.Field.Valid())
	assert.Equal(t, base.VertexCount(), event.Field.VertexCount)

	// The finished field landed in the cache
	cached, ok := repo.stored("cube", base.VertexCount())
	require.True(t, ok)
	assert.Equal(t, event.Field, cached)

	assert.False(t, service.IsBaking())
}

func TestBakeService_Bake_CacheHit(t *testing.T) {
	service, repo, bus := newTestBakeService(t, BakeConfig{})
	defer func() { require.NoError(t, service.Close()) }()

	base := scene.Icosphere(1)
	require.NoError(t, repo.Save(scene.IdentityField("cube", base)))

	started := &eventRecorder{}
	completed := &eventRecorder{}
	bus.Subscribe(domain.EventBakeStarted, started.record)
	bus.Subscribe(domain.EventBakeCompleted, completed.record)

	jobID, err := service.Bake("cube", base)
	require.NoError(t, err)

	// The cached path completes synchronously, no job is started
	require.Equal(t, 1, completed.count())
	event := completed.last().(domain.BakeCompletedEvent)
	assert.Equal(t, jobID, event.JobID)
	assert.True(t, event.Cached)
	assert.True(t, event.Field.Valid())

	assert.Equal(t, 0, started.count())
	assert.False(t, service.IsBaking())
}

func TestBakeService_Bake_UnknownAssetSubstitutesIdentity(t *testing.T) {
	service, _, bus := newTestBakeService(t, BakeConfig{})
	defer func() { require.NoError(t, service.Close()) }()

	failed := &eventRecorder{}
	completed := &eventRecorder{}
	bus.Subscribe(domain.EventBakeFailed, failed.record)
	bus.Subscribe(domain.EventBakeCompleted, completed.record)

	base := scene.Icosphere(1)
	jobID, err := service.Bake("no-such-shape", base)
	require.ErrorIs(t, err, domain.ErrFileNotFound)
	require.NotEmpty(t, jobID)

	require.Equal(t, 1, failed.count())
	assert.Error(t, failed.last().(domain.BakeFailedEvent).Error)

	// The substituted field morphs every vertex to itself
	require.Equal(t, 1, completed.count())
	event := completed.last().(domain.BakeCompletedEvent)
	require.True(t, event.Field.Valid())
	require.Equal(t, base.VertexCount(), event.Field.VertexCount)
	v := base.Vertices[0]
	assert.InDelta(t, v.X, event.Field.Points[0], 1e-12)
	assert.InDelta(t, v.Y, event.Field.Points[1], 1e-12)
	assert.InDelta(t, v.Z, event.Field.Points[2], 1e-12)
}

func TestBakeService_Bake_RejectsConcurrentJob(t *testing.T) {
	service, _, bus := newTestBakeService(t, BakeConfig{ChunkSize: 1, StepDelay: 5 * time.Millisecond})
	defer func() { require.NoError(t, service.Close()) }()

	completed := &eventRecorder{}
	bus.Subscribe(domain.EventBakeCompleted, completed.record)

	base := scene.Icosphere(1)
	_, err := service.Bake("cube", base)
	require.NoError(t, err)
	assert.True(t, service.IsBaking())

	_, err = service.Bake("pyramid", base)
	require.ErrorIs(t, err, domain.ErrBakeInProgress)

	var bakeErr *domain.BakeError
	require.ErrorAs(t, err, &bakeErr)
	assert.Equal(t, "pyramid", bakeErr.AssetID)

	require.Eventually(t, func() bool { return completed.count() == 1 },
		5*time.Second, 5*time.Millisecond)
	assert.False(t, service.IsBaking())
}

func TestBakeService_Bake_EmptyBaseMesh(t *testing.T) {
	service, _, _ := newTestBakeService(t, BakeConfig{})
	defer func() { require.NoError(t, service.Close()) }()

	var bakeErr *domain.BakeError
	_, err := service.Bake("cube", nil)
	require.ErrorAs(t, err, &bakeErr)
}

func TestBakeService_Close_AbandonsRunningJob(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	service, _, bus := newTestBakeService(t, BakeConfig{ChunkSize: 1, StepDelay: 5 * time.Millisecond})

	progress := &eventRecorder{}
	completed := &eventRecorder{}
	bus.Subscribe(domain.EventBakeProgress, progress.record)
	bus.Subscribe(domain.EventBakeCompleted, completed.record)

	// 162 vertices, one per tick: the job cannot finish before Close
	_, err := service.Bake("cube", scene.Icosphere(2))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return progress.count() >= 1 },
		2*time.Second, time.Millisecond)

	require.NoError(t, service.Close())

	assert.Equal(t, 0, completed.count(), "abandoned job must not complete")
	assert.False(t, service.IsBaking())

	// A shut-down service refuses new jobs
	var serviceErr *domain.ServiceError
	_, err = service.Bake("cube", scene.Icosphere(1))
	require.ErrorAs(t, err, &serviceErr)
}

func TestBakeService_Invalidate(t *testing.T) {
	service, repo, _ := newTestBakeService(t, BakeConfig{})
	defer func() { require.NoError(t, service.Close()) }()

	base := scene.Icosphere(1)
	require.NoError(t, repo.Save(scene.IdentityField("cube", base)))

	require.NoError(t, service.Invalidate("cube", base.VertexCount()))

	_, err := repo.Load("cube", base.VertexCount())
	assert.ErrorIs(t, err, domain.ErrFieldNotFound)
}

func TestBakeService_Shapes(t *testing.T) {
	service, _, _ := newTestBakeService(t, BakeConfig{})
	defer func() { require.NoError(t, service.Close()) }()

	shapes, err := service.Shapes()
	require.NoError(t, err)
	assert.Contains(t, shapes, "cube")
	assert.Contains(t, shapes, "torus")
}
