package audio

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jinjor/osc-module/src/nvs"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func newTestScheduler() (*Store, *nvs.Memory, *Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewStore(DefaultParams())
	store.now = clock.Now
	mem := nvs.NewMemory()
	scheduler := NewScheduler(store, mem, DefaultDebounce, DefaultTick)
	scheduler.now = clock.Now
	return store, mem, scheduler, clock
}

func TestDebounceCommitsOnceAfterBurst(t *testing.T) {
	store, mem, scheduler, clock := newTestScheduler()

	for i := 0; i < 20; i++ {
		store.Set(FieldPitch, 40+i)
		if scheduler.Tick(clock.Advance(50 * time.Millisecond)) {
			t.Fatalf("committed during the burst")
		}
	}
	expectEqual(t, mem.Commits(), 0)

	// the last write happened 50ms ago
	expectEqual(t, scheduler.Tick(clock.Advance(949*time.Millisecond)), false)
	expectEqual(t, scheduler.Tick(clock.Advance(time.Millisecond)), true)
	expectEqual(t, mem.Commits(), 1)
	expectEqual(t, LoadParams(mem).Pitch, uint8(59))

	// nothing changed since
	for i := 0; i < 30; i++ {
		expectEqual(t, scheduler.Tick(clock.Advance(DefaultTick)), false)
	}
	expectEqual(t, mem.Commits(), 1)
}

func TestCommitNowIgnoresDebounce(t *testing.T) {
	store, mem, scheduler, clock := newTestScheduler()
	store.Set(FieldLevel, 1000)
	expectEqual(t, scheduler.CommitNow(), true)
	expectEqual(t, mem.Commits(), 1)
	expectEqual(t, LoadParams(mem).Level, uint16(1000))
	expectEqual(t, scheduler.Tick(clock.Advance(2*time.Second)), false)
}

func TestWriteDuringCommitStaysDirty(t *testing.T) {
	store, _, scheduler, clock := newTestScheduler()
	store.Set(FieldPitch, 10)
	_, version, _, _ := store.Pending()
	store.Set(FieldPitch, 11)
	store.MarkClean(version)
	expectEqual(t, scheduler.Tick(clock.Advance(time.Second)), true)
	_, _, _, dirty := store.Pending()
	expectEqual(t, dirty, false)
}

func TestFailedCommitIsAbandoned(t *testing.T) {
	store, mem, scheduler, clock := newTestScheduler()
	mem.FailCommit = errors.New("flash worn out")
	store.Set(FieldPitch, 30)
	expectEqual(t, scheduler.Tick(clock.Advance(time.Second)), false)
	expectEqual(t, mem.Commits(), 0)

	// not retried on later ticks
	mem.FailCommit = nil
	expectEqual(t, scheduler.Tick(clock.Advance(time.Second)), false)
	expectEqual(t, mem.Commits(), 0)

	// the next write is persisted again
	store.Set(FieldPitch, 31)
	expectEqual(t, scheduler.Tick(clock.Advance(time.Second)), true)
	expectEqual(t, LoadParams(mem).Pitch, uint8(31))
}

func TestLoadParams(t *testing.T) {
	mem := nvs.NewMemory()
	expectEqual(t, LoadParams(mem), DefaultParams())

	p := Params{
		Pitch:          48,
		Fine:           -20,
		Waveform:       WaveSquare,
		Level:          30000,
		PulseWidth:     10000,
		AmpModSlot:     1,
		FreqModSlot:    2,
		SyncSourceSlot: SlotNone,
	}
	expectNoError(t, saveParams(mem, p))
	expectEqual(t, LoadParams(mem), p)

	// stored values are clamped on the way in
	expectNoError(t, mem.SetInt(keyPitch, 1000))
	expectNoError(t, mem.SetInt(keyFine, -1000))
	expectNoError(t, mem.SetInt(keyAmpModSlot, 99))
	loaded := LoadParams(mem)
	expectEqual(t, loaded.Pitch, uint8(MaxPitch))
	expectEqual(t, loaded.Fine, int16(MinFine))
	expectEqual(t, loaded.AmpModSlot, SlotNone)
}

func TestRequestCommitRunsOnSchedulerTask(t *testing.T) {
	store, mem, scheduler, _ := newTestScheduler()
	scheduler.tick = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	store.Set(FieldWaveform, int(WaveSaw))
	scheduler.RequestCommit()
	scheduler.RequestCommit()
	deadline := time.After(5 * time.Second)
	for mem.Commits() == 0 {
		select {
		case <-deadline:
			t.Fatal("commit was not performed")
		case <-time.After(time.Millisecond):
		}
	}
	expectEqual(t, LoadParams(mem).Waveform, WaveSaw)
	cancel()
	expectNoError(t, <-done)
}

// journal records the order of writes reaching durable storage.
type journal struct {
	nvs.Store
	mu  sync.Mutex
	ops []string
}

func (j *journal) record(op string) {
	j.mu.Lock()
	j.ops = append(j.ops, op)
	j.mu.Unlock()
	// widen the window for another writer
	runtime.Gosched()
}

func (j *journal) SetInt(key string, value int64) error {
	j.record(key)
	return j.Store.SetInt(key, value)
}

func (j *journal) SetBlob(key string, value []byte) error {
	j.record(key)
	return j.Store.SetBlob(key, value)
}

func (j *journal) Commit() error {
	j.record("commit")
	return j.Store.Commit()
}

func TestCommitsDoNotInterleave(t *testing.T) {
	store := NewStore(DefaultParams())
	durable := &journal{Store: nvs.NewMemory()}
	scheduler := NewScheduler(store, durable, DefaultDebounce, DefaultTick)
	favs := NewFavorites(store, durable)
	expectNoError(t, favs.Save(0))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			store.Set(FieldPitch, i%128)
			scheduler.CommitNow()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := favs.Load(0); err != nil {
				t.Errorf("load: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			expectNoError(t, favs.Save(1+i%3))
		}
	}()
	wg.Wait()

	// every commit closes either one whole scalar group or one blob
	seen := map[string]bool{}
	for _, op := range durable.ops {
		if op != "commit" {
			if seen[op] {
				t.Fatalf("%s written twice before a commit", op)
			}
			seen[op] = true
			continue
		}
		if len(seen) != 1 && len(seen) != 8 {
			t.Fatalf("commit of %d writes", len(seen))
		}
		seen = map[string]bool{}
	}
	expectEqual(t, len(seen), 0)
}
