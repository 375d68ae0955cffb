package audio

import (
	"math"

	"github.com/viterin/vek"
)

const fullScale = 32767.0

const twoPi = 2.0 * math.Pi

// ----- Pitch ----- //

// Frequency returns the oscillator frequency in Hz for a note number and a
// fine detune in cents, relative to ReferenceNote = ReferenceFreq. Inputs are
// clamped to their ranges first.
func Frequency(pitch int, fine int) float64 {
	pitch = clamp(pitch, MinPitch, MaxPitch)
	fine = clamp(fine, MinFine, MaxFine)
	semitones := float64(pitch-ReferenceNote) + float64(fine)/100.0
	return ReferenceFreq * math.Pow(2, semitones/12)
}

// ----- OSC ----- //

// Engine is the phase accumulator oscillator. The phase is owned by the
// engine and advances across calls to Generate.
type Engine struct {
	sampleRate float64
	mods       ModSource
	phase      float64   // [0, 2π)
	values     []float64 // scratch, one entry per sample of the block
	gains      []float64
}

// NewEngine returns an engine at phase 0. A nil mods behaves like NullModBus.
func NewEngine(sampleRate int, mods ModSource) *Engine {
	if mods == nil {
		mods = NullModBus{}
	}
	return &Engine{
		sampleRate: float64(sampleRate),
		mods:       mods,
	}
}

// Phase returns the current phase in radians.
func (e *Engine) Phase() float64 {
	return e.phase
}

// SetPhase moves the accumulator, wrapping into [0, 2π).
func (e *Engine) SetPhase(phase float64) {
	e.phase = wrapPhase(phase)
}

// Generate fills out with the next len(out) samples for p.
func (e *Engine) Generate(p Params, out []int16) {
	n := len(out)
	if n == 0 {
		return
	}
	if cap(e.values) < n {
		e.values = make([]float64, n)
		e.gains = make([]float64, n)
	}
	values := e.values[:n]
	gains := e.gains[:n]

	inc := twoPi * Frequency(int(p.Pitch), int(p.Fine)) / e.sampleRate
	duty := float64(p.PulseWidth) / MaxLevel
	ampMod := p.AmpModSlot.Connected()
	freqMod := p.FreqModSlot.Connected()

	for i := range values {
		values[i] = shapeAtPhase(p.Waveform, e.phase, duty)
		if ampMod {
			gains[i] = e.ampGain(p.AmpModSlot)
		}
		step := inc
		if freqMod {
			if m, ok := e.readMod(p.FreqModSlot); ok {
				// full scale modulation swings the increment by ±100%
				step += m * inc
			}
		}
		e.phase = wrapPhase(e.phase + step)
	}

	vek.MulNumber_Inplace(values, float64(p.Level)/MaxLevel)
	if ampMod {
		vek.Mul_Inplace(values, gains)
	}
	for i, v := range values {
		out[i] = toSample(v)
	}
}

// readMod treats a non-finite bus value like an unbacked slot.
func (e *Engine) readMod(slot Slot) (float64, bool) {
	m, ok := e.mods.ReadSlot(slot)
	if !ok || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}
	return m, true
}

func (e *Engine) ampGain(slot Slot) float64 {
	m, ok := e.readMod(slot)
	if !ok {
		return 1.0
	}
	if m < 0 {
		return 0
	}
	if m > 1 {
		return 1
	}
	return m
}

func shapeAtPhase(kind Waveform, phase float64, duty float64) float64 {
	switch kind {
	case WaveSine:
		return sineAtPhase(phase)
	case WaveTriangle:
		// -full scale at 0, +full scale at π
		return fullScale * (1.0 - 2.0*math.Abs(phase/math.Pi-1.0))
	case WaveSaw:
		return fullScale * (1.0 - phase/math.Pi)
	case WaveSquare:
		if phase < math.Pi {
			return fullScale
		}
		return -fullScale
	case WavePulse:
		if phase < twoPi*duty {
			return fullScale
		}
		return -fullScale
	}
	return 0
}

// a non-finite phase restarts the cycle at 0
func wrapPhase(phase float64) float64 {
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		return 0
	}
	phase = math.Mod(phase, twoPi)
	if phase < 0 {
		phase += twoPi
	}
	return phase
}

// truncates toward zero like the DAC path, after clamping to int16
func toSample(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
