package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// morphKeyIndex tracks every stored field key so Clear can enumerate them;
// Fyne preferences cannot list keys.
const morphKeyIndex = "morphfield._keys"

// MorphFieldRepository implements ports.MorphFieldRepository using Fyne
// preferences. Fields are stored as JSON flat float arrays with keys like
// "morphfield.<asset>.<vertexCount>". Safe for concurrent use.
type MorphFieldRepository struct {
	prefs  fyne.Preferences
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewMorphFieldRepository creates a new morph field repository on top of
// the app's fyne.Preferences.
func NewMorphFieldRepository(prefs fyne.Preferences, logger *slog.Logger) *MorphFieldRepository {
	return &MorphFieldRepository{
		prefs:  prefs,
		logger: logger,
	}
}

func morphKey(assetID string, vertexCount int) string {
	return fmt.Sprintf("morphfield.%s.%d", assetID, vertexCount)
}

// Save persists a baked field, replacing any entry with the same key.
func (r *MorphFieldRepository) Save(field domain.MorphField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !field.Valid() {
		return domain.NewRepositoryError("save", "morphfield", "field length does not match vertex count", domain.ErrFieldLengthMismatch)
	}

	data, err := json.Marshal(field.Points)
	if err != nil {
		return domain.NewRepositoryError("save", "morphfield", "failed to marshal points", err)
	}

	key := morphKey(field.AssetID, field.VertexCount)
	r.prefs.SetString(key, string(data))

	keys := r.loadKeys()
	if !slices.Contains(keys, key) {
		keys = append(keys, key)
		r.saveKeys(keys)
	}

	return nil
}

// Load retrieves the field for the given key. A stored entry whose length
// does not match the vertex count is removed so the caller can rebake.
func (r *MorphFieldRepository) Load(assetID string, vertexCount int) (domain.MorphField, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := morphKey(assetID, vertexCount)
	data := r.prefs.String(key)
	if data == "" {
		return domain.MorphField{}, domain.ErrFieldNotFound
	}

	var points []float64
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		r.logger.Warn("morph field corrupted, discarding",
			slog.String("asset", assetID),
			slog.Int("vertex_count", vertexCount),
			slog.Any("error", err))
		r.removeLocked(key)
		return domain.MorphField{}, domain.ErrFieldLengthMismatch
	}

	field := domain.MorphField{
		AssetID:     assetID,
		VertexCount: vertexCount,
		Points:      points,
	}
	if !field.Valid() {
		r.logger.Warn("morph field length mismatch, discarding",
			slog.String("asset", assetID),
			slog.Int("vertex_count", vertexCount),
			slog.Int("points", len(points)))
		r.removeLocked(key)
		return domain.MorphField{}, domain.ErrFieldLengthMismatch
	}

	return field, nil
}

// Delete removes a cached field. Missing entries are a no-op.
func (r *MorphFieldRepository) Delete(assetID string, vertexCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(morphKey(assetID, vertexCount))
	return nil
}

// Clear removes all cached fields.
func (r *MorphFieldRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.loadKeys() {
		r.prefs.RemoveValue(key)
	}
	r.prefs.RemoveValue(morphKeyIndex)

	return nil
}

// removeLocked drops one entry and its index record. Must be called with
// lock held.
func (r *MorphFieldRepository) removeLocked(key string) {
	r.prefs.RemoveValue(key)
	keys := slices.DeleteFunc(r.loadKeys(), func(k string) bool { return k == key })
	r.saveKeys(keys)
}

// loadKeys loads the index of stored field keys. Must be called with lock
// held.
func (r *MorphFieldRepository) loadKeys() []string {
	data := r.prefs.String(morphKeyIndex)
	if data == "" {
		return []string{}
	}

	var keys []string
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return []string{}
	}

	return keys
}

// saveKeys saves the index of stored field keys. Must be called with lock
// held.
func (r *MorphFieldRepository) saveKeys(keys []string) {
	data, err := json.Marshal(keys)
	if err != nil {
		return
	}
	r.prefs.SetString(morphKeyIndex, string(data))
}

// Verify interface implementation
var _ ports.MorphFieldRepository = (*MorphFieldRepository)(nil)
