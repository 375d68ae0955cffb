package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jinjor/osc-module/src/nvs"
)

// NumFavoriteSlots is the size of the favorites bank.
const NumFavoriteSlots = 4

// ErrInvalidSlot is returned for a favorite slot outside 0..NumFavoriteSlots-1.
var ErrInvalidSlot = errors.New("favorite slot out of range")

func favoriteKey(slot int) string {
	return fmt.Sprintf("fav_slot_%d", slot)
}

// ----- Favorites ----- //

// Favorites is the bank of saved full configurations plus the cursor the
// front panel moves over it. Every operation commits to storage before it
// returns; none of them go through the debounce.
type Favorites struct {
	mu      sync.Mutex
	store   *Store
	nvs     nvs.Store
	current int
}

// NewFavorites ...
func NewFavorites(store *Store, s nvs.Store) *Favorites {
	return &Favorites{store: store, nvs: s}
}

// Current returns the slot the cursor points at.
func (f *Favorites) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// SelectNext moves the cursor forward, wrapping after the last slot.
func (f *Favorites) SelectNext() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = (f.current + 1) % NumFavoriteSlots
	return f.current
}

// SelectPrev moves the cursor backward, wrapping before the first slot.
func (f *Favorites) SelectPrev() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = (f.current + NumFavoriteSlots - 1) % NumFavoriteSlots
	return f.current
}

// IsSaved reports whether slot holds a configuration.
func (f *Favorites) IsSaved(slot int) bool {
	if slot < 0 || slot >= NumFavoriteSlots {
		return false
	}
	_, err := f.nvs.GetBlob(favoriteKey(slot))
	return err == nil
}

// Save stores the live configuration in slot, overwriting what was there.
func (f *Favorites) Save(slot int) error {
	if slot < 0 || slot >= NumFavoriteSlots {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	blob, err := f.store.Load().MarshalBinary()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.persistMu.Lock()
	defer f.store.persistMu.Unlock()
	if err := f.nvs.SetBlob(favoriteKey(slot), blob); err != nil {
		return fmt.Errorf("cannot save favorite %d: %w", slot, err)
	}
	if err := f.nvs.Commit(); err != nil {
		return fmt.Errorf("cannot commit favorite %d: %w", slot, err)
	}
	return nil
}

// Load makes slot the live configuration and commits it as such. Loading an
// empty slot does nothing and reports loaded == false.
func (f *Favorites) Load(slot int) (loaded bool, err error) {
	if slot < 0 || slot >= NumFavoriteSlots {
		return false, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, err := f.nvs.GetBlob(favoriteKey(slot))
	if errors.Is(err, nvs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cannot read favorite %d: %w", slot, err)
	}
	var p Params
	if err := p.UnmarshalBinary(blob); err != nil {
		return false, fmt.Errorf("favorite %d is corrupt: %w", slot, err)
	}
	f.store.Replace(p)
	if !commitSnapshot(f.store, f.nvs) {
		return true, fmt.Errorf("favorite %d loaded but not committed", slot)
	}
	return true, nil
}

// Clear empties slot. Clearing an empty slot is not an error.
func (f *Favorites) Clear(slot int) error {
	if slot < 0 || slot >= NumFavoriteSlots {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.persistMu.Lock()
	defer f.store.persistMu.Unlock()
	err := f.nvs.Erase(favoriteKey(slot))
	if errors.Is(err, nvs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot clear favorite %d: %w", slot, err)
	}
	if err := f.nvs.Commit(); err != nil {
		return fmt.Errorf("cannot commit clearing favorite %d: %w", slot, err)
	}
	return nil
}

// SaveCurrent, LoadCurrent and ClearCurrent act on the cursor's slot.

func (f *Favorites) SaveCurrent() error {
	return f.Save(f.Current())
}

func (f *Favorites) LoadCurrent() (bool, error) {
	return f.Load(f.Current())
}

func (f *Favorites) ClearCurrent() error {
	return f.Clear(f.Current())
}
