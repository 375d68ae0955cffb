package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func TestBenchmark(t *testing.T) {
	times := 1000

	bus := &SharedModBus{}
	bus.Write(0, 0.5)
	bus.Write(1, 0.1)
	store := NewStore(DefaultParams())
	store.Set(FieldWaveform, int(WavePulse))
	store.Set(FieldAmpModSlot, 0)
	store.Set(FieldFreqModSlot, 1)
	voice := NewVoice(store, NewEngine(DefaultSampleRate, bus), DefaultBlockSize)
	out := make([]byte, DefaultBufferSize)
	start := time.Now()
	for n := 0; n < times; n++ {
		_, err := voice.Read(out)
		expectNoError(t, err)
	}
	averageProcessTime := float64(time.Since(start).Microseconds()) / float64(times) / 1000
	fmt.Printf("average process time: %.3fms\n", averageProcessTime)
}

func TestVoiceReadMatchesEngine(t *testing.T) {
	store := NewStore(DefaultParams())
	voice := NewVoice(store, NewEngine(DefaultSampleRate, nil), 16)
	expectEqual(t, voice.BlockSize(), 16)

	// 40 samples: two full blocks and a partial one
	buf := make([]byte, 40*bytesPerSample)
	n, err := voice.Read(buf)
	expectNoError(t, err)
	expectEqual(t, n, len(buf))

	expected := make([]int16, 40)
	NewEngine(DefaultSampleRate, nil).Generate(DefaultParams(), expected)
	for i, e := range expected {
		actual := int16(binary.LittleEndian.Uint16(buf[i*bytesPerSample:]))
		if actual != e {
			t.Fatalf("sample %d: expected %v, but got: %v", i, e, actual)
		}
	}
}

func TestVoiceSnapshotsPerBlock(t *testing.T) {
	store := NewStore(DefaultParams())
	store.Set(FieldWaveform, int(WaveSquare))
	voice := NewVoice(store, NewEngine(DefaultSampleRate, nil), 8)
	buf := make([]byte, 8*bytesPerSample)
	_, err := voice.Read(buf)
	expectNoError(t, err)
	store.Set(FieldLevel, 0)
	_, err = voice.Read(buf)
	expectNoError(t, err)
	expectEqual(t, bytes.Count(buf, []byte{0}), len(buf))
}

func TestVoiceReadAfterCancel(t *testing.T) {
	voice := NewVoice(NewStore(DefaultParams()), NewEngine(DefaultSampleRate, nil), 0)
	expectEqual(t, voice.BlockSize(), DefaultBlockSize)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	voice.ctx = ctx
	_, err := voice.Read(make([]byte, 16))
	expectEqual(t, err, io.EOF)
}

type countingSink struct {
	written int
	cancel  func()
	limit   int
}

func (s *countingSink) Write(p []byte) (int, error) {
	s.written += len(p)
	if s.written >= s.limit {
		s.cancel()
	}
	return len(p), nil
}

func TestVoiceStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	voice := NewVoice(NewStore(DefaultParams()), NewEngine(DefaultSampleRate, nil), 32)
	sink := &countingSink{cancel: cancel, limit: 32 * bytesPerSample * 10}
	expectNoError(t, voice.Start(ctx, sink))
	expectEqual(t, sink.written, sink.limit)
}

type failingSink struct{}

func (failingSink) Write(p []byte) (int, error) {
	return 0, errors.New("device lost")
}

func TestVoiceStartReportsSinkError(t *testing.T) {
	voice := NewVoice(NewStore(DefaultParams()), NewEngine(DefaultSampleRate, nil), 32)
	if err := voice.Start(context.Background(), failingSink{}); err == nil {
		t.Errorf("expected an error")
	}
}
