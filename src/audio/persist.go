package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jinjor/osc-module/src/nvs"
)

const (
	// Namespace is the nvs namespace the oscillator owns.
	Namespace = "oscillator"

	DefaultDebounce = 1000 * time.Millisecond
	DefaultTick     = 100 * time.Millisecond
)

// ----- Durable Layout ----- //

const (
	keyPitch          = "freq_pitch"
	keyFine           = "freq_fine"
	keyWaveform       = "waveform"
	keyLevel          = "level"
	keyPulseWidth     = "pulse_width"
	keyAmpModSlot     = "amp_mod_slot"
	keyFreqModSlot    = "freq_mod_slot"
	keySyncSourceSlot = "sync_slot"
)

func saveParams(s nvs.Store, p Params) error {
	scalars := []struct {
		key   string
		value int64
	}{
		{keyPitch, int64(p.Pitch)},
		{keyFine, int64(p.Fine)},
		{keyWaveform, int64(p.Waveform)},
		{keyLevel, int64(p.Level)},
		{keyPulseWidth, int64(p.PulseWidth)},
		{keyAmpModSlot, int64(p.AmpModSlot)},
		{keyFreqModSlot, int64(p.FreqModSlot)},
		{keySyncSourceSlot, int64(p.SyncSourceSlot)},
	}
	for _, sc := range scalars {
		if err := s.SetInt(sc.key, sc.value); err != nil {
			return fmt.Errorf("cannot set %s: %w", sc.key, err)
		}
	}
	if err := s.Commit(); err != nil {
		return fmt.Errorf("cannot commit params: %w", err)
	}
	return nil
}

// LoadParams restores the scalar group over the defaults. Keys that are
// missing or unreadable keep their default, everything is clamped.
func LoadParams(s nvs.Store) Params {
	p := DefaultParams()
	restore := func(key string, apply func(v int64)) {
		v, err := s.GetInt(key)
		if errors.Is(err, nvs.ErrNotFound) {
			return
		}
		if err != nil {
			log.Printf("failed to load %s: %v\n", key, err)
			return
		}
		apply(v)
	}
	restore(keyPitch, func(v int64) { p.Pitch = uint8(clamp(int(v), MinPitch, MaxPitch)) })
	restore(keyFine, func(v int64) { p.Fine = int16(clamp(int(v), MinFine, MaxFine)) })
	restore(keyWaveform, func(v int64) { p.Waveform = waveformFromInt(int(v)) })
	restore(keyLevel, func(v int64) { p.Level = uint16(clamp(int(v), 0, MaxLevel)) })
	restore(keyPulseWidth, func(v int64) { p.PulseWidth = uint16(clamp(int(v), 0, MaxLevel)) })
	restore(keyAmpModSlot, func(v int64) { p.AmpModSlot = slotFromInt(int(v)) })
	restore(keyFreqModSlot, func(v int64) { p.FreqModSlot = slotFromInt(int(v)) })
	restore(keySyncSourceSlot, func(v int64) { p.SyncSourceSlot = slotFromInt(int(v)) })
	return p
}

// ----- Scheduler ----- //

// Scheduler is the persistence task. It commits the live parameters once
// they have been left alone for the debounce interval (trailing debounce),
// and commits immediately when asked to with RequestCommit.
type Scheduler struct {
	store    *Store
	nvs      nvs.Store
	debounce time.Duration
	tick     time.Duration
	now      func() time.Time
	requests chan struct{}
}

// NewScheduler ...
func NewScheduler(store *Store, s nvs.Store, debounce time.Duration, tick time.Duration) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{
		store:    store,
		nvs:      s,
		debounce: debounce,
		tick:     tick,
		now:      time.Now,
		requests: make(chan struct{}, 1),
	}
}

// RequestCommit asks the persistence task to commit as soon as possible. It
// never blocks; requests made while one is pending are merged.
func (s *Scheduler) RequestCommit() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// Run polls the store until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.tick)
	defer t.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler interrupted")
			break loop
		case <-s.requests:
			s.CommitNow()
		case <-t.C:
			s.Tick(s.now())
		}
	}
	log.Println("Scheduler.Run() ended.")
	return nil
}

// Tick commits when the store is dirty and the last write is at least one
// debounce interval older than now. It reports whether a commit succeeded.
func (s *Scheduler) Tick(now time.Time) bool {
	_, _, changedAt, dirty := s.store.Pending()
	if !dirty || now.Sub(changedAt) < s.debounce {
		return false
	}
	return s.CommitNow()
}

// CommitNow writes the current snapshot regardless of the debounce. A
// failed commit is abandoned: it is logged and not retried.
func (s *Scheduler) CommitNow() bool {
	return commitSnapshot(s.store, s.nvs)
}

func commitSnapshot(store *Store, s nvs.Store) bool {
	store.persistMu.Lock()
	defer store.persistMu.Unlock()
	p, version, _, _ := store.Pending()
	err := saveParams(s, p)
	store.MarkClean(version)
	if err != nil {
		log.Printf("failed to persist params: %v\n", err)
		return false
	}
	return true
}
