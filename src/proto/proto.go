// Package proto decodes control frames received from the rack bus.
//
// A frame is an opcode byte followed by at most seven payload bytes. Decoding
// never touches shared state: Decode turns bytes into a Command value and the
// caller decides what to do with it.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ----- Opcodes ----- //

// Opcode is the first byte of every frame. 0x00-0x7F are registers,
// 0x80-0xFF are commands.
type Opcode byte

const (
	RegSetParam     Opcode = 0x10
	RegIOConfig     Opcode = 0x11
	CmdReset        Opcode = 0x80
	CmdSaveSettings Opcode = 0x81
)

// MaxFrameSize is the largest frame the transport delivers.
const MaxFrameSize = 8

const ioConfigSize = 4

func (op Opcode) String() string {
	switch op {
	case RegSetParam:
		return "set-param"
	case RegIOConfig:
		return "io-config"
	case CmdReset:
		return "reset"
	case CmdSaveSettings:
		return "save-settings"
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(op))
}

// ----- Parameter IDs ----- //

// ParamID identifies a settable parameter. The oscillator owns the
// contiguous range starting at ParamRangeOsc.
type ParamID uint16

const ParamRangeOsc ParamID = 0x0100

const (
	ParamWaveform ParamID = ParamRangeOsc + iota
	ParamPitch
	ParamFine
	ParamLevel
	ParamAmpModSlot
	ParamFreqModSlot
	ParamPulseWidth
	ParamSyncSourceSlot
	paramRangeOscEnd
)

// NumOscParams is the size of the oscillator's identifier range.
const NumOscParams = int(paramRangeOscEnd - ParamRangeOsc)

// ValueKind is the wire type of a parameter value.
type ValueKind int

const (
	KindU8 ValueKind = iota
	KindU16
	KindS16
)

// Width returns the number of payload bytes a value of this kind occupies.
func (k ValueKind) Width() int {
	if k == KindU8 {
		return 1
	}
	return 2
}

var paramKinds = [NumOscParams]ValueKind{
	ParamWaveform - ParamRangeOsc:       KindU8,
	ParamPitch - ParamRangeOsc:          KindU8,
	ParamFine - ParamRangeOsc:           KindS16,
	ParamLevel - ParamRangeOsc:          KindU16,
	ParamAmpModSlot - ParamRangeOsc:     KindU8,
	ParamFreqModSlot - ParamRangeOsc:    KindU8,
	ParamPulseWidth - ParamRangeOsc:     KindU16,
	ParamSyncSourceSlot - ParamRangeOsc: KindU8,
}

var paramNames = [NumOscParams]string{
	"waveform", "pitch", "fine", "level", "amp_mod_slot", "freq_mod_slot", "pulse_width", "sync_source_slot",
}

// InRange reports whether id belongs to the oscillator.
func (id ParamID) InRange() bool {
	return id >= ParamRangeOsc && id < paramRangeOscEnd
}

// Kind returns the wire type of id. ok is false outside the oscillator range.
func (id ParamID) Kind() (kind ValueKind, ok bool) {
	if !id.InRange() {
		return 0, false
	}
	return paramKinds[id-ParamRangeOsc], true
}

func (id ParamID) String() string {
	if !id.InRange() {
		return fmt.Sprintf("param(0x%04x)", uint16(id))
	}
	return paramNames[id-ParamRangeOsc]
}

// ----- Commands ----- //

// Command is the result of decoding one frame. It is one of SetParam,
// Reset, SaveSettings or IOConfig.
type Command interface {
	Opcode() Opcode
}

// SetParam writes one oscillator parameter. Value holds the decoded wire
// value: 0..255 for KindU8, 0..65535 for KindU16, -32768..32767 for KindS16.
type SetParam struct {
	ID    ParamID
	Kind  ValueKind
	Value int
}

// Reset restores factory defaults.
type Reset struct{}

// SaveSettings asks for the current parameters to be persisted now.
type SaveSettings struct{}

// IOConfig carries the audio I/O configuration payload untouched.
type IOConfig struct {
	Payload [ioConfigSize]byte
}

func (SetParam) Opcode() Opcode     { return RegSetParam }
func (Reset) Opcode() Opcode        { return CmdReset }
func (SaveSettings) Opcode() Opcode { return CmdSaveSettings }
func (IOConfig) Opcode() Opcode     { return RegIOConfig }

// Slot returns the I2S slot index of the reference I/O layout.
func (c IOConfig) Slot() uint16 {
	return binary.LittleEndian.Uint16(c.Payload[0:2])
}

// ChannelMask returns the channel mask of the reference I/O layout.
func (c IOConfig) ChannelMask() uint16 {
	return binary.LittleEndian.Uint16(c.Payload[2:4])
}

// ----- Decoding ----- //

var (
	ErrMalformed     = errors.New("proto: malformed frame")
	ErrUnknownOpcode = errors.New("proto: unknown opcode")
	ErrOutOfRange    = errors.New("proto: parameter out of range")
)

// Decode parses a single frame. Any error means the frame must be dropped.
func Decode(frame []byte) (Command, error) {
	if len(frame) == 0 || len(frame) > MaxFrameSize {
		return nil, fmt.Errorf("%w: length %d", ErrMalformed, len(frame))
	}
	op, payload := Opcode(frame[0]), frame[1:]
	switch op {
	case RegSetParam:
		return decodeSetParam(payload)
	case RegIOConfig:
		if len(payload) < ioConfigSize {
			return nil, fmt.Errorf("%w: %v needs %d bytes, got %d", ErrMalformed, op, ioConfigSize, len(payload))
		}
		var c IOConfig
		copy(c.Payload[:], payload)
		return c, nil
	case CmdReset:
		return Reset{}, nil
	case CmdSaveSettings:
		return SaveSettings{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownOpcode, op)
}

func decodeSetParam(payload []byte) (Command, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: missing parameter id", ErrMalformed)
	}
	id := ParamID(binary.LittleEndian.Uint16(payload))
	kind, ok := id.Kind()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, id)
	}
	value := payload[2:]
	if len(value) < kind.Width() {
		return nil, fmt.Errorf("%w: %v needs %d value bytes, got %d", ErrMalformed, id, kind.Width(), len(value))
	}
	c := SetParam{ID: id, Kind: kind}
	switch kind {
	case KindU8:
		c.Value = int(value[0])
	case KindU16:
		c.Value = int(binary.LittleEndian.Uint16(value))
	case KindS16:
		c.Value = int(int16(binary.LittleEndian.Uint16(value)))
	}
	return c, nil
}

// ----- Encoding ----- //

// Encode builds the frame for c. It is the controller side of Decode and is
// used by tools and tests. SetParam values are truncated to their wire width.
func Encode(c Command) ([]byte, error) {
	switch c := c.(type) {
	case SetParam:
		kind, ok := c.ID.Kind()
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrOutOfRange, c.ID)
		}
		frame := make([]byte, 3, 3+kind.Width())
		frame[0] = byte(RegSetParam)
		binary.LittleEndian.PutUint16(frame[1:], uint16(c.ID))
		if kind == KindU8 {
			return append(frame, byte(c.Value)), nil
		}
		return binary.LittleEndian.AppendUint16(frame, uint16(c.Value)), nil
	case IOConfig:
		return append([]byte{byte(RegIOConfig)}, c.Payload[:]...), nil
	case Reset, SaveSettings:
		return []byte{byte(c.Opcode())}, nil
	}
	return nil, fmt.Errorf("proto: cannot encode %T", c)
}
