package audio

import (
	"encoding/binary"
	"fmt"
)

// ----- Wave Kind ----- //

// Waveform is the oscillator shape.
type Waveform uint8

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
	WaveSquare
	WavePulse
	NumWaveforms = 5
)

var waveformNames = [NumWaveforms]string{"sine", "triangle", "saw", "square", "pulse"}

func (w Waveform) String() string {
	if int(w) >= NumWaveforms {
		return fmt.Sprintf("waveform(%d)", w)
	}
	return waveformNames[w]
}

// Next cycles forward through the shapes.
func (w Waveform) Next() Waveform {
	return waveformFromInt(int(w) + 1)
}

// Prev cycles backward through the shapes.
func (w Waveform) Prev() Waveform {
	return waveformFromInt(int(w) - 1)
}

// waveform selection wraps instead of clamping
func waveformFromInt(v int) Waveform {
	v %= NumWaveforms
	if v < 0 {
		v += NumWaveforms
	}
	return Waveform(v)
}

// ----- OSC Params ----- //

const (
	// ReferenceNote is the MIDI note tuned to ReferenceFreq.
	ReferenceNote = 69
	ReferenceFreq = 440.0

	MinPitch = 0
	MaxPitch = 127
	MinFine  = -100 // cent
	MaxFine  = 100  // cent
	MaxLevel = 65535

	DefaultPitch      = 69
	DefaultFine       = 0
	DefaultWaveform   = WaveSine
	DefaultLevel      = MaxLevel
	DefaultPulseWidth = 32768 // 50%

	// one hundredth of full scale, as the front panel steps
	levelStep = MaxLevel / 100
)

// Params is the complete voice configuration. Values are always inside
// their documented range; use sanitized before publishing one.
type Params struct {
	Pitch          uint8  // 0 ~ 127
	Fine           int16  // -100 ~ 100 cent
	Waveform       Waveform
	Level          uint16 // 0 ~ 65535
	PulseWidth     uint16 // 0 ~ 65535 = 0 ~ 100%
	AmpModSlot     Slot
	FreqModSlot    Slot
	SyncSourceSlot Slot // reserved, no effect yet
}

// DefaultParams returns the factory configuration.
func DefaultParams() Params {
	return Params{
		Pitch:          DefaultPitch,
		Fine:           DefaultFine,
		Waveform:       DefaultWaveform,
		Level:          DefaultLevel,
		PulseWidth:     DefaultPulseWidth,
		AmpModSlot:     SlotNone,
		FreqModSlot:    SlotNone,
		SyncSourceSlot: SlotNone,
	}
}

func (p Params) sanitized() Params {
	p.Pitch = uint8(clamp(int(p.Pitch), MinPitch, MaxPitch))
	p.Fine = int16(clamp(int(p.Fine), MinFine, MaxFine))
	p.Waveform = waveformFromInt(int(p.Waveform))
	p.AmpModSlot = slotFromInt(int(p.AmpModSlot))
	p.FreqModSlot = slotFromInt(int(p.FreqModSlot))
	p.SyncSourceSlot = slotFromInt(int(p.SyncSourceSlot))
	return p
}

func (p Params) String() string {
	return fmt.Sprintf("pitch=%d fine=%d waveform=%v level=%d pulse_width=%d amp_mod_slot=%v freq_mod_slot=%v sync_source_slot=%v",
		p.Pitch, p.Fine, p.Waveform, p.Level, p.PulseWidth, p.AmpModSlot, p.FreqModSlot, p.SyncSourceSlot)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IO
//   blob = { pitch u8, fine s16, waveform u8, level u16, pulse_width u16,
//            amp_mod_slot u8, freq_mod_slot u8, sync_source_slot u8 }
//   little endian, paramsBlobSize bytes

const paramsBlobSize = 11

// MarshalBinary encodes p as a fixed size favorite blob.
func (p Params) MarshalBinary() ([]byte, error) {
	b := make([]byte, paramsBlobSize)
	b[0] = p.Pitch
	binary.LittleEndian.PutUint16(b[1:], uint16(p.Fine))
	b[3] = byte(p.Waveform)
	binary.LittleEndian.PutUint16(b[4:], p.Level)
	binary.LittleEndian.PutUint16(b[6:], p.PulseWidth)
	b[8] = byte(p.AmpModSlot)
	b[9] = byte(p.FreqModSlot)
	b[10] = byte(p.SyncSourceSlot)
	return b, nil
}

// UnmarshalBinary decodes a favorite blob. Out of range fields are clamped.
func (p *Params) UnmarshalBinary(b []byte) error {
	if len(b) != paramsBlobSize {
		return fmt.Errorf("params blob has %d bytes, want %d", len(b), paramsBlobSize)
	}
	decoded := Params{
		Pitch:          b[0],
		Fine:           int16(binary.LittleEndian.Uint16(b[1:])),
		Waveform:       Waveform(b[3]),
		Level:          binary.LittleEndian.Uint16(b[4:]),
		PulseWidth:     binary.LittleEndian.Uint16(b[6:]),
		AmpModSlot:     Slot(b[8]),
		FreqModSlot:    Slot(b[9]),
		SyncSourceSlot: Slot(b[10]),
	}
	*p = decoded.sanitized()
	return nil
}
