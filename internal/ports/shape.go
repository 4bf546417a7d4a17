// Package ports define the shape source interface for morph target loading.
package ports

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// ShapeSource loads morph target shapes by asset identifier.
// Implementations read mesh files from disk or serve built-in shapes.
//
// Thread-safety: Implementations must be thread-safe; the bake service
// loads shapes from a background goroutine.
type ShapeSource interface {
	// Load returns the named shape as a raw triangle soup.
	// The caller owns the returned shape and may normalize it in place.
	//
	// Returns domain.ErrEmptyShape if the asset contains no triangles,
	// or a SourceError if the asset cannot be read.
	Load(assetID string) (*domain.Shape, error)

	// List returns the asset identifiers this source can load, in display
	// order. An empty slice means no morph targets are available.
	List() ([]string, error)
}
