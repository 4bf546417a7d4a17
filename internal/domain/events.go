// Package domain defines events for the event-driven architecture.
// Events replace the callback system and enable loose coupling between components.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackLoaded    EventType = "track.loaded"
	EventTrackStarted   EventType = "track.started"
	EventTrackPaused    EventType = "track.paused"
	EventTrackStopped   EventType = "track.stopped"
	EventTrackCompleted EventType = "track.completed"
	EventTrackProgress  EventType = "track.progress"
	EventTrackError     EventType = "track.error"
	EventVolumeChanged  EventType = "volume.changed"

	// Spectrum source events
	EventSourceChanged EventType = "source.changed"

	// Scene events
	EventPaletteChanged    EventType = "palette.changed"
	EventVariantChanged    EventType = "variant.changed"
	EventSettingsChanged   EventType = "settings.changed"
	EventResolutionChanged EventType = "resolution.changed"

	// Morph bake events
	EventBakeStarted   EventType = "bake.started"
	EventBakeProgress  EventType = "bake.progress"
	EventBakeCompleted EventType = "bake.completed"
	EventBakeFailed    EventType = "bake.failed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackLoadedEvent is published when a track is successfully loaded.
type TrackLoadedEvent struct {
	baseEvent
	Track    MusicTrack
	Duration time.Duration
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType {
	return EventTrackLoaded
}

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(track MusicTrack, duration time.Duration) TrackLoadedEvent {
	return TrackLoadedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Duration:  duration,
	}
}

// TrackStartedEvent is published when playback starts.
type TrackStartedEvent struct {
	baseEvent
	Track MusicTrack
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track MusicTrack) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    MusicTrack
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track MusicTrack, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// TrackStoppedEvent is published when playback is stopped.
type TrackStoppedEvent struct {
	baseEvent
	Track MusicTrack
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(track MusicTrack) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackCompletedEvent is published when a track finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track MusicTrack
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track MusicTrack) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackProgressEvent is published periodically during playback.
type TrackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(position, duration time.Duration) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent: newBaseEvent(),
		Position:  position,
		Duration:  duration,
	}
}

// TrackErrorEvent is published when an error occurs with a track.
type TrackErrorEvent struct {
	baseEvent
	Track MusicTrack
	Error error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(track MusicTrack, err error) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Error:     err,
	}
}

// VolumeChangedEvent is published when the playback volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// SourceChangedEvent is published when the active spectrum source switches
// (file playback, live capture, synthetic).
type SourceChangedEvent struct {
	baseEvent
	Kind string
}

// Type returns the event type.
func (e SourceChangedEvent) Type() EventType {
	return EventSourceChanged
}

// NewSourceChangedEvent creates a new SourceChangedEvent.
func NewSourceChangedEvent(kind string) SourceChangedEvent {
	return SourceChangedEvent{
		baseEvent: newBaseEvent(),
		Kind:      kind,
	}
}

// PaletteChangedEvent is published after a palette swap has been applied to
// every dependent layer. Subscribers may assume colors are consistent.
type PaletteChangedEvent struct {
	baseEvent
	Palette Palette
}

// Type returns the event type.
func (e PaletteChangedEvent) Type() EventType {
	return EventPaletteChanged
}

// NewPaletteChangedEvent creates a new PaletteChangedEvent.
func NewPaletteChangedEvent(palette Palette) PaletteChangedEvent {
	return PaletteChangedEvent{
		baseEvent: newBaseEvent(),
		Palette:   palette,
	}
}

// VariantChangedEvent is published when the visual variant switches.
type VariantChangedEvent struct {
	baseEvent
	Variant VariantConfig
}

// Type returns the event type.
func (e VariantChangedEvent) Type() EventType {
	return EventVariantChanged
}

// NewVariantChangedEvent creates a new VariantChangedEvent.
func NewVariantChangedEvent(variant VariantConfig) VariantChangedEvent {
	return VariantChangedEvent{
		baseEvent: newBaseEvent(),
		Variant:   variant,
	}
}

// SettingsChangedEvent is published when persisted visual settings change.
type SettingsChangedEvent struct {
	baseEvent
	Settings VisualSettings
}

// Type returns the event type.
func (e SettingsChangedEvent) Type() EventType {
	return EventSettingsChanged
}

// NewSettingsChangedEvent creates a new SettingsChangedEvent.
func NewSettingsChangedEvent(settings VisualSettings) SettingsChangedEvent {
	return SettingsChangedEvent{
		baseEvent: newBaseEvent(),
		Settings:  settings,
	}
}

// ResolutionChangedEvent is published when the mesh is rebuilt at a new
// subdivision level. The old morph field is invalid from this point on.
type ResolutionChangedEvent struct {
	baseEvent
	Level       int
	VertexCount int
}

// Type returns the event type.
func (e ResolutionChangedEvent) Type() EventType {
	return EventResolutionChanged
}

// NewResolutionChangedEvent creates a new ResolutionChangedEvent.
func NewResolutionChangedEvent(level, vertexCount int) ResolutionChangedEvent {
	return ResolutionChangedEvent{
		baseEvent:   newBaseEvent(),
		Level:       level,
		VertexCount: vertexCount,
	}
}

// BakeStartedEvent is published when a morph bake job begins.
type BakeStartedEvent struct {
	baseEvent
	JobID       string
	AssetID     string
	VertexCount int
}

// Type returns the event type.
func (e BakeStartedEvent) Type() EventType {
	return EventBakeStarted
}

// NewBakeStartedEvent creates a new BakeStartedEvent.
func NewBakeStartedEvent(jobID, assetID string, vertexCount int) BakeStartedEvent {
	return BakeStartedEvent{
		baseEvent:   newBaseEvent(),
		JobID:       jobID,
		AssetID:     assetID,
		VertexCount: vertexCount,
	}
}

// BakeProgressEvent is published periodically while a bake job advances.
type BakeProgressEvent struct {
	baseEvent
	Progress BakeProgress
}

// Type returns the event type.
func (e BakeProgressEvent) Type() EventType {
	return EventBakeProgress
}

// NewBakeProgressEvent creates a new BakeProgressEvent.
func NewBakeProgressEvent(progress BakeProgress) BakeProgressEvent {
	return BakeProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// BakeCompletedEvent is published when a bake job finishes and its field has
// been stored.
type BakeCompletedEvent struct {
	baseEvent
	JobID   string
	AssetID string
	Field   MorphField
	Cached  bool // true when the field came from the cache, not a fresh bake
}

// Type returns the event type.
func (e BakeCompletedEvent) Type() EventType {
	return EventBakeCompleted
}

// NewBakeCompletedEvent creates a new BakeCompletedEvent.
func NewBakeCompletedEvent(jobID, assetID string, field MorphField, cached bool) BakeCompletedEvent {
	return BakeCompletedEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
		AssetID:   assetID,
		Field:     field,
		Cached:    cached,
	}
}

// BakeFailedEvent is published when a bake job fails. The scene substitutes
// an identity field, so failure is visible but never fatal.
type BakeFailedEvent struct {
	baseEvent
	JobID   string
	AssetID string
	Error   error
}

// Type returns the event type.
func (e BakeFailedEvent) Type() EventType {
	return EventBakeFailed
}

// NewBakeFailedEvent creates a new BakeFailedEvent.
func NewBakeFailedEvent(jobID, assetID string, err error) BakeFailedEvent {
	return BakeFailedEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
		AssetID:   assetID,
		Error:     err,
	}
}
