package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// ----- Field ----- //

// Field names one writable member of Params.
type Field int

const (
	FieldPitch Field = iota
	FieldFine
	FieldWaveform
	FieldLevel
	FieldPulseWidth
	FieldAmpModSlot
	FieldFreqModSlot
	FieldSyncSourceSlot
)

// ----- Store ----- //

// Store is the single owner of the live Params.
//
// Readers call Load and get an immutable snapshot through one atomic pointer
// load, so the audio task never waits for a writer and never sees a half
// applied update. Writers are serialized by mu, build the next snapshot on a
// copy and publish it with one atomic store. mu is only held for that copy,
// never across storage I/O.
type Store struct {
	current atomic.Pointer[Params]

	mu        sync.Mutex
	version   uint64
	dirty     bool
	changedAt time.Time
	now       func() time.Time

	// serializes every write of this store's state to durable storage, so
	// the scalar group is never committed half written
	persistMu sync.Mutex
}

// NewStore publishes initial (clamped) as the first snapshot. The store
// starts clean.
func NewStore(initial Params) *Store {
	s := &Store{now: time.Now}
	p := initial.sanitized()
	s.current.Store(&p)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() Params {
	return *s.current.Load()
}

func (s *Store) update(f func(p *Params)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	f(&next)
	next = next.sanitized()
	s.current.Store(&next)
	s.version++
	s.dirty = true
	s.changedAt = s.now()
}

// Set writes one field. Numeric fields clamp to their range, the waveform
// wraps modulo the number of shapes and slots outside 0..15 disconnect.
func (s *Store) Set(field Field, value int) {
	s.update(func(p *Params) {
		switch field {
		case FieldPitch:
			p.Pitch = uint8(clamp(value, MinPitch, MaxPitch))
		case FieldFine:
			p.Fine = int16(clamp(value, MinFine, MaxFine))
		case FieldWaveform:
			p.Waveform = waveformFromInt(value)
		case FieldLevel:
			p.Level = uint16(clamp(value, 0, MaxLevel))
		case FieldPulseWidth:
			p.PulseWidth = uint16(clamp(value, 0, MaxLevel))
		case FieldAmpModSlot:
			p.AmpModSlot = slotFromInt(value)
		case FieldFreqModSlot:
			p.FreqModSlot = slotFromInt(value)
		case FieldSyncSourceSlot:
			p.SyncSourceSlot = slotFromInt(value)
		}
	})
}

// Reset restores the factory defaults.
func (s *Store) Reset() {
	s.Replace(DefaultParams())
}

// Replace publishes a whole configuration at once.
func (s *Store) Replace(p Params) {
	s.update(func(current *Params) {
		*current = p
	})
}

// Pending returns the snapshot together with the bookkeeping the persistence
// task needs: the write counter, the time of the last write, and whether any
// write happened since the last MarkClean.
func (s *Store) Pending() (p Params, version uint64, changedAt time.Time, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.current.Load(), s.version, s.changedAt, s.dirty
}

// MarkClean clears the dirty flag if no write happened after version was
// observed. A later write keeps the store dirty for the next commit.
func (s *Store) MarkClean(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	s.dirty = false
	return true
}

// Version returns the number of writes so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// ----- Front panel ----- //

func (s *Store) PitchUp() {
	s.update(func(p *Params) { p.Pitch = uint8(clamp(int(p.Pitch)+1, MinPitch, MaxPitch)) })
}

func (s *Store) PitchDown() {
	s.update(func(p *Params) { p.Pitch = uint8(clamp(int(p.Pitch)-1, MinPitch, MaxPitch)) })
}

func (s *Store) FineUp() {
	s.update(func(p *Params) { p.Fine = int16(clamp(int(p.Fine)+1, MinFine, MaxFine)) })
}

func (s *Store) FineDown() {
	s.update(func(p *Params) { p.Fine = int16(clamp(int(p.Fine)-1, MinFine, MaxFine)) })
}

func (s *Store) WaveformNext() {
	s.update(func(p *Params) { p.Waveform = p.Waveform.Next() })
}

func (s *Store) WaveformPrev() {
	s.update(func(p *Params) { p.Waveform = p.Waveform.Prev() })
}

func (s *Store) LevelUp() {
	s.update(func(p *Params) { p.Level = uint16(clamp(int(p.Level)+levelStep, 0, MaxLevel)) })
}

func (s *Store) LevelDown() {
	s.update(func(p *Params) { p.Level = uint16(clamp(int(p.Level)-levelStep, 0, MaxLevel)) })
}

func (s *Store) PulseWidthUp() {
	s.update(func(p *Params) { p.PulseWidth = uint16(clamp(int(p.PulseWidth)+levelStep, 0, MaxLevel)) })
}

func (s *Store) PulseWidthDown() {
	s.update(func(p *Params) { p.PulseWidth = uint16(clamp(int(p.PulseWidth)-levelStep, 0, MaxLevel)) })
}

func (s *Store) AmpModSlotNext() {
	s.update(func(p *Params) { p.AmpModSlot = p.AmpModSlot.Next() })
}

func (s *Store) AmpModSlotPrev() {
	s.update(func(p *Params) { p.AmpModSlot = p.AmpModSlot.Prev() })
}
