// Package rtc holds the media-plane primitives shared by the call session
// and the mute controller: audio frames, track handles, and the adapters
// that bind them to real transports.
package rtc

import (
	"fmt"
	"time"
)

// AudioFrame represents exactly 10 ms of 16-bit little-endian PCM.
// len(Data) == SamplesPerChannel * NumChannels * 2.
type AudioFrame struct {
	Data              []byte
	SampleRate        int // 48000 or 16000
	SamplesPerChannel int // SampleRate / 100
	NumChannels       int // 1 or 2
	Timestamp         time.Duration
}

// NewAudioFrame validates the data length against the format and returns
// the frame. A mismatched length is a caller bug surfaced as an error.
func NewAudioFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*AudioFrame, error) {
	samplesPerChannel := sampleRate / 100
	want := samplesPerChannel * numChannels * 2
	if len(data) != want {
		return nil, fmt.Errorf("audio frame length mismatch: got %d bytes, want %d for %dHz %dch 10ms",
			len(data), want, sampleRate, numChannels)
	}

	return &AudioFrame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: samplesPerChannel,
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// Clone deep-copies the frame.
func (f *AudioFrame) Clone() *AudioFrame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)

	return &AudioFrame{
		Data:              data,
		SampleRate:        f.SampleRate,
		SamplesPerChannel: f.SamplesPerChannel,
		NumChannels:       f.NumChannels,
		Timestamp:         f.Timestamp,
	}
}

// Duration returns the time the frame covers, always 10ms.
func (f *AudioFrame) Duration() time.Duration {
	return 10 * time.Millisecond
}
