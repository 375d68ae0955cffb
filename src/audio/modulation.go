package audio

import (
	"math"
	"sync/atomic"
)

// ----- Modulation ----- //

// ModSource reads the current value of a modulation bus channel. ok is false
// when nothing backs the channel; the engine then uses the neutral value for
// the destination (gain 1.0 for amplitude, no offset for frequency).
type ModSource interface {
	ReadSlot(slot Slot) (value float64, ok bool)
}

// NullModBus is the source used when the rack provides no modulation bus.
type NullModBus struct{}

func (NullModBus) ReadSlot(Slot) (float64, bool) {
	return 0, false
}

// SharedModBus is a lock-free set of channels written by another producer
// (a bus receiver, another voice) and read from the audio task.
type SharedModBus struct {
	values  [NumSlots]atomic.Uint64
	written [NumSlots]atomic.Bool
}

var _ ModSource = (*SharedModBus)(nil)

// Write publishes v on slot. Writes to SlotNone are ignored.
func (b *SharedModBus) Write(slot Slot, v float64) {
	if !slot.Connected() {
		return
	}
	b.values[slot].Store(math.Float64bits(v))
	b.written[slot].Store(true)
}

// Release marks slot as having no producer again.
func (b *SharedModBus) Release(slot Slot) {
	if !slot.Connected() {
		return
	}
	b.written[slot].Store(false)
}

func (b *SharedModBus) ReadSlot(slot Slot) (float64, bool) {
	if !slot.Connected() || !b.written[slot].Load() {
		return 0, false
	}
	return math.Float64frombits(b.values[slot].Load()), true
}
