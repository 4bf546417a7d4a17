// Package sqlite provides a SQLite-backed morph field repository for
// headless runs, where no Fyne preferences store exists.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// MorphFieldRepository implements ports.MorphFieldRepository on a SQLite
// database. Fields are stored as JSON flat float arrays keyed by
// (asset_id, vertex_count).
//
// Thread-safety: database/sql serializes access; no extra locking needed.
type MorphFieldRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMorphFieldRepository opens the database (":memory:" works for tests)
// and runs the schema migration.
func NewMorphFieldRepository(storagePath string, logger *slog.Logger) (*MorphFieldRepository, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, domain.NewRepositoryError("open", "morphfield", "failed to open sqlite db", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.NewRepositoryError("open", "morphfield", "failed to ping sqlite db", err)
	}

	repo := &MorphFieldRepository{db: db, logger: logger}
	if err := repo.migrate(); err != nil {
		_ = db.Close()
		return nil, domain.NewRepositoryError("open", "morphfield", "migration failed", err)
	}

	return repo, nil
}

// Close ensures the DB connection is closed gracefully.
func (r *MorphFieldRepository) Close() error {
	return r.db.Close()
}

func (r *MorphFieldRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS morph_fields (
		asset_id TEXT NOT NULL,
		vertex_count INTEGER NOT NULL,
		points TEXT NOT NULL,
		baked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (asset_id, vertex_count)
	);
	`
	_, err := r.db.Exec(query)
	return err
}

// Save persists a baked field, replacing any entry with the same key.
func (r *MorphFieldRepository) Save(field domain.MorphField) error {
	if !field.Valid() {
		return domain.NewRepositoryError("save", "morphfield", "field length does not match vertex count", domain.ErrFieldLengthMismatch)
	}

	data, err := json.Marshal(field.Points)
	if err != nil {
		return domain.NewRepositoryError("save", "morphfield", "failed to marshal points", err)
	}

	query := `
		INSERT INTO morph_fields (asset_id, vertex_count, points) VALUES (?, ?, ?)
		ON CONFLICT(asset_id, vertex_count) DO UPDATE SET
			points=excluded.points,
			baked_at=CURRENT_TIMESTAMP;
	`
	if _, err := r.db.Exec(query, field.AssetID, field.VertexCount, string(data)); err != nil {
		return domain.NewRepositoryError("save", "morphfield", "failed to save field", err)
	}

	return nil
}

// Load retrieves the field for the given key. A stored entry whose length
// does not match the vertex count is removed so the caller can rebake.
func (r *MorphFieldRepository) Load(assetID string, vertexCount int) (domain.MorphField, error) {
	row := r.db.QueryRow(
		"SELECT points FROM morph_fields WHERE asset_id = ? AND vertex_count = ?",
		assetID, vertexCount,
	)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MorphField{}, domain.ErrFieldNotFound
		}
		return domain.MorphField{}, domain.NewRepositoryError("load", "morphfield", "failed to load field", err)
	}

	var points []float64
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		r.logger.Warn("morph field corrupted, discarding",
			slog.String("asset", assetID),
			slog.Int("vertex_count", vertexCount),
			slog.Any("error", err))
		_ = r.Delete(assetID, vertexCount)
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
		_ = r.Delete(assetID, vertexCount)
		return domain.MorphField{}, domain.ErrFieldLengthMismatch
	}

	return field, nil
}

// Delete removes a cached field. Missing entries are a no-op.
func (r *MorphFieldRepository) Delete(assetID string, vertexCount int) error {
	_, err := r.db.Exec(
		"DELETE FROM morph_fields WHERE asset_id = ? AND vertex_count = ?",
		assetID, vertexCount,
	)
	if err != nil {
		return domain.NewRepositoryError("delete", "morphfield", "failed to delete field", err)
	}
	return nil
}

// Clear removes all cached fields.
func (r *MorphFieldRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM morph_fields"); err != nil {
		return domain.NewRepositoryError("clear", "morphfield", "failed to clear fields", err)
	}
	return nil
}

// Verify interface implementation
var _ ports.MorphFieldRepository = (*MorphFieldRepository)(nil)
