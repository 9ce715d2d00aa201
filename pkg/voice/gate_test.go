package voice

import (
	"sync"
	"testing"
)

func TestNewAudioGate(t *testing.T) {
	gate := NewAudioGate()

	if gate.ShouldDiscard() {
		t.Error("NewAudioGate() should start open")
	}

	gate.SetMuted(true)
	if !gate.ShouldDiscard() {
		t.Error("frames should be discarded while the gate is closed")
	}

	gate.SetMuted(false)
	if gate.ShouldDiscard() {
		t.Error("frames should pass once the gate re-opens")
	}
}

func TestAudioGateConcurrency(t *testing.T) {
	gate := NewAudioGate()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(muted bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				gate.SetMuted(muted)
			}
		}(i%2 == 0)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = gate.ShouldDiscard()
			}
		}()
	}
	wg.Wait()
}
