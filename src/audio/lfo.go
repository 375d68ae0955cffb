package audio

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const DefaultLfoInterval = time.Millisecond

// ----- LFO Params ----- //

// LfoParams configures a local producer on the modulation bus. It stands in
// for a neighbouring module when the oscillator runs on its own.
type LfoParams struct {
	Slot     Slot
	Waveform Waveform
	Freq     float64 // Hz
	Amount   float64 // 0 ~ 1
	Unipolar bool    // 0 ~ amount instead of -amount ~ amount
}

// WaveformFromString parses a shape name as printed by Waveform.String.
func WaveformFromString(s string) (Waveform, error) {
	for i, name := range waveformNames {
		if strings.EqualFold(s, name) {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}

// ----- LFO ----- //

// Lfo writes a slow waveform to one bus slot.
type Lfo struct {
	bus    *SharedModBus
	params LfoParams
	phase  float64
}

// NewLfo ...
func NewLfo(bus *SharedModBus, p LfoParams) *Lfo {
	if p.Amount < 0 {
		p.Amount = 0
	}
	if p.Amount > 1 {
		p.Amount = 1
	}
	return &Lfo{bus: bus, params: p}
}

// Step advances the LFO by dt and publishes the new value.
func (l *Lfo) Step(dt time.Duration) float64 {
	v := shapeAtPhase(l.params.Waveform, l.phase, 0.5) / fullScale
	if l.params.Unipolar {
		v = (v + 1) / 2
	}
	v *= l.params.Amount
	l.bus.Write(l.params.Slot, v)
	l.phase = wrapPhase(l.phase + twoPi*l.params.Freq*dt.Seconds())
	return v
}

// Run steps the LFO every interval until ctx is cancelled, then releases
// the slot.
func (l *Lfo) Run(ctx context.Context, interval time.Duration) error {
	if !l.params.Slot.Connected() {
		return nil
	}
	if interval <= 0 {
		interval = DefaultLfoInterval
	}
	defer l.bus.Release(l.params.Slot)
	t := time.NewTicker(interval)
	defer t.Stop()
	last := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Lfo interrupted")
			break loop
		case now := <-t.C:
			l.Step(now.Sub(last))
			last = now
		}
	}
	log.Println("Lfo.Run() ended.")
	return nil
}
