package rtc

import "sync"

// MemoryTrack is an in-process AudioTrack with no transport behind it.
// It backs the simulate CLI command and test fixtures.
type MemoryTrack struct {
	id string

	mu      sync.Mutex
	state   TrackState
	enabled bool
}

// NewMemoryTrack creates a live, enabled track with the given id.
func NewMemoryTrack(id string) *MemoryTrack {
	return &MemoryTrack{
		id:      id,
		state:   TrackStateLive,
		enabled: true,
	}
}

func (t *MemoryTrack) ID() string { return t.id }

func (t *MemoryTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState simulates the transport ending or reviving the track.
func (t *MemoryTrack) SetState(state TrackState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

func (t *MemoryTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *MemoryTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}
