// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"

	"github.com/auroraviz/aurora/internal/domain"
)

// SpectrumSource produces frequency-domain audio data, one snapshot per
// rendered frame. Implementations wrap file playback, live capture or a
// synthetic generator, and all share the same sampling contract.
//
// Implementations must be thread-safe: Sample is called from the render
// loop while control methods may be called from UI or network goroutines.
type SpectrumSource interface {
	// Start begins producing spectrum data.
	// For playback-backed sources this starts the decode pipeline; for
	// capture-backed sources it opens the input stream.
	//
	// Returns an error if the source cannot start.
	Start() error

	// Sample returns the current spectrum snapshot.
	//
	// The returned snapshot's bin buffer is owned by the source and is
	// rewritten in place on the next call. It is valid only until then;
	// callers must copy anything they keep past the current frame.
	//
	// Returns domain.ErrSourceNotStarted if called before Start.
	Sample() (*domain.SpectrumSnapshot, error)

	// Kind returns a short identifier for the source ("file", "live", "synth").
	Kind() string

	// Close stops the source and releases its resources.
	// After Close the source cannot be restarted.
	Close() error
}

// TrackPlayer is a SpectrumSource backed by an audio file. In addition to
// producing spectrum data it plays the file audibly and exposes transport
// control.
type TrackPlayer interface {
	SpectrumSource

	// Load opens an audio file, reads its metadata and prepares it for
	// playback. Loading a new file while one is playing stops the old one.
	//
	// Returns the track with populated metadata, or an error if the file
	// cannot be opened or decoded.
	Load(filePath string) (*domain.MusicTrack, error)

	// Play starts or resumes playback of the loaded track.
	//
	// Returns domain.ErrNoTrackLoaded if no track is loaded.
	Play() error

	// Pause pauses playback, preserving the position.
	Pause() error

	// Stop stops playback and rewinds to the beginning.
	Stop() error

	// Status returns the current playback status.
	Status() domain.PlaybackStatus

	// Position returns the current playback position within the track.
	Position() time.Duration

	// Duration returns the total duration of the loaded track
	// (zero if no track is loaded).
	Duration() time.Duration

	// SetVolume sets the playback volume.
	// volume: Volume level from 0.0 (silent) to 1.0 (full volume)
	//
	// Returns domain.ErrInvalidVolume if the volume is out of range.
	SetVolume(volume float64) error

	// Volume returns the current volume level (0.0-1.0).
	Volume() float64
}
