package audio

import (
	"context"
	"testing"
	"time"
)

func TestWaveformFromString(t *testing.T) {
	for w := WaveSine; w < NumWaveforms; w++ {
		parsed, err := WaveformFromString(w.String())
		expectNoError(t, err)
		expectEqual(t, parsed, w)
	}
	parsed, err := WaveformFromString("Square")
	expectNoError(t, err)
	expectEqual(t, parsed, WaveSquare)
	if _, err := WaveformFromString("noise"); err == nil {
		t.Errorf("expected an error")
	}
}

func TestLfoWritesSlot(t *testing.T) {
	bus := &SharedModBus{}
	lfo := NewLfo(bus, LfoParams{Slot: 4, Waveform: WaveSquare, Freq: 1, Amount: 0.5})
	expectNearlyEqual(t, lfo.Step(100*time.Millisecond), 0.5)
	v, ok := bus.ReadSlot(4)
	expectEqual(t, ok, true)
	expectNearlyEqual(t, v, 0.5)
	// past half a period
	lfo.Step(450 * time.Millisecond)
	expectNearlyEqual(t, lfo.Step(0), -0.5)
}

func TestLfoUnipolar(t *testing.T) {
	bus := &SharedModBus{}
	lfo := NewLfo(bus, LfoParams{Slot: 0, Waveform: WaveTriangle, Freq: 1, Amount: 2, Unipolar: true})
	// triangle starts at its bottom
	expectNearlyEqual(t, lfo.Step(500*time.Millisecond), 0)
	expectNearlyEqual(t, lfo.Step(0), 1)
}

func TestLfoRunReleasesSlot(t *testing.T) {
	bus := &SharedModBus{}
	lfo := NewLfo(bus, LfoParams{Slot: 7, Waveform: WaveSine, Freq: 5, Amount: 1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- lfo.Run(ctx, time.Millisecond)
	}()
	deadline := time.After(5 * time.Second)
	for {
		if _, ok := bus.ReadSlot(7); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("slot was never written")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	expectNoError(t, <-done)
	_, ok := bus.ReadSlot(7)
	expectEqual(t, ok, false)

	// unconnected slot: nothing to do
	expectNoError(t, NewLfo(bus, LfoParams{Slot: SlotNone}).Run(context.Background(), 0))
}
