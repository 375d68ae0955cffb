package audio

import "strconv"

// ----- Modulation Slot ----- //

// Slot addresses a channel of the rack's audio-rate modulation bus.
// SlotNone means the input is not connected.
type Slot uint8

const (
	NumSlots = 16

	SlotNone Slot = 0xFF
)

// any value outside 0..15 disconnects the input
func slotFromInt(v int) Slot {
	if v < 0 || v >= NumSlots {
		return SlotNone
	}
	return Slot(v)
}

// Connected reports whether s names a bus channel.
func (s Slot) Connected() bool {
	return int(s) < NumSlots
}

// Next walks none -> 0 -> 1 ... -> 15 -> none.
func (s Slot) Next() Slot {
	switch {
	case !s.Connected():
		return 0
	case s == NumSlots-1:
		return SlotNone
	}
	return s + 1
}

// Prev walks the same cycle backwards, so it is the inverse of Next.
func (s Slot) Prev() Slot {
	switch {
	case !s.Connected():
		return NumSlots - 1
	case s == 0:
		return SlotNone
	}
	return s - 1
}

func (s Slot) String() string {
	if !s.Connected() {
		return "none"
	}
	return strconv.Itoa(int(s))
}
