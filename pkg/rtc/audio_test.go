package rtc

import (
	"testing"
	"time"
)

func TestNewAudioFrame(t *testing.T) {
	tests := []struct {
		name        string
		sampleRate  int
		numChannels int
		dataLen     int
		wantErr     bool
	}{
		{
			name:        "valid 48kHz mono",
			sampleRate:  48000,
			numChannels: 1,
			dataLen:     960, // 48000/100 * 1 * 2
		},
		{
			name:        "valid 16kHz mono",
			sampleRate:  16000,
			numChannels: 1,
			dataLen:     320, // 16000/100 * 1 * 2
		},
		{
			name:        "valid 48kHz stereo",
			sampleRate:  48000,
			numChannels: 2,
			dataLen:     1920, // 48000/100 * 2 * 2
		},
		{
			name:        "invalid data length",
			sampleRate:  48000,
			numChannels: 1,
			dataLen:     500,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.dataLen)
			timestamp := 100 * time.Millisecond

			frame, err := NewAudioFrame(data, tt.sampleRate, tt.numChannels, timestamp)

			if tt.wantErr {
				if err == nil {
					t.Error("NewAudioFrame() should have returned an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAudioFrame() unexpected error: %v", err)
			}

			if frame.SampleRate != tt.sampleRate {
				t.Errorf("SampleRate = %d, want %d", frame.SampleRate, tt.sampleRate)
			}
			if frame.NumChannels != tt.numChannels {
				t.Errorf("NumChannels = %d, want %d", frame.NumChannels, tt.numChannels)
			}
			if frame.SamplesPerChannel != tt.sampleRate/100 {
				t.Errorf("SamplesPerChannel = %d, want %d", frame.SamplesPerChannel, tt.sampleRate/100)
			}
			if frame.Timestamp != timestamp {
				t.Errorf("Timestamp = %v, want %v", frame.Timestamp, timestamp)
			}
		})
	}
}

func TestAudioFrameClone(t *testing.T) {
	data := make([]byte, 320)
	for i := range data {
		data[i] = byte(i % 256)
	}

	original, err := NewAudioFrame(data, 16000, 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewAudioFrame() error = %v", err)
	}
	clone := original.Clone()

	if clone.SampleRate != original.SampleRate ||
		clone.NumChannels != original.NumChannels ||
		clone.SamplesPerChannel != original.SamplesPerChannel ||
		clone.Timestamp != original.Timestamp {
		t.Error("clone should carry the original's format fields")
	}

	if &clone.Data[0] == &original.Data[0] {
		t.Error("clone data points to the same memory as original")
	}

	clone.Data[0] = 255
	if original.Data[0] == 255 {
		t.Error("modifying clone data affected original")
	}
}

func TestAudioFrameDuration(t *testing.T) {
	frame := &AudioFrame{}
	if got := frame.Duration(); got != 10*time.Millisecond {
		t.Errorf("Duration() = %v, want 10ms", got)
	}
}
