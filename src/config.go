package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jinjor/osc-module/src/audio"
)

const defaultSockFileName = "/tmp/osc-module.sock"

type config struct {
	SampleRate int           `yaml:"sampleRate"`
	BlockSize  int           `yaml:"blockSize"`  // samples per parameter snapshot
	BufferSize int           `yaml:"bufferSize"` // oto buffer in bytes
	StorePath  string        `yaml:"storePath"`
	Socket     string        `yaml:"socket"`
	MIDI       bool          `yaml:"midi"`
	Debounce   time.Duration `yaml:"debounce"`
	Tick       time.Duration `yaml:"tick"`
	Panel      bool          `yaml:"panel"`
	Lfo        lfoConfig     `yaml:"lfo"`
}

// lfoConfig drives a local modulation source on the bus. A negative slot
// disables it.
type lfoConfig struct {
	Slot     int     `yaml:"slot"`
	Wave     string  `yaml:"wave"`
	Freq     float64 `yaml:"freq"`
	Amount   float64 `yaml:"amount"`
	Unipolar bool    `yaml:"unipolar"`
}

func (c lfoConfig) params() (audio.LfoParams, error) {
	wave, err := audio.WaveformFromString(c.Wave)
	if err != nil {
		return audio.LfoParams{}, err
	}
	slot := audio.SlotNone
	if c.Slot >= 0 && c.Slot < audio.NumSlots {
		slot = audio.Slot(c.Slot)
	}
	return audio.LfoParams{
		Slot:     slot,
		Waveform: wave,
		Freq:     c.Freq,
		Amount:   c.Amount,
		Unipolar: c.Unipolar,
	}, nil
}

func defaultConfig() config {
	return config{
		SampleRate: audio.DefaultSampleRate,
		BlockSize:  audio.DefaultBlockSize,
		BufferSize: audio.DefaultBufferSize,
		StorePath:  "osc-module.nvs.yaml",
		Socket:     defaultSockFileName,
		MIDI:       false,
		Debounce:   audio.DefaultDebounce,
		Tick:       audio.DefaultTick,
		Panel:      false,
		Lfo: lfoConfig{
			Slot:   -1,
			Wave:   "sine",
			Freq:   1,
			Amount: 1,
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func (c config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sampleRate must be positive, got %d", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("blockSize must be positive, got %d", c.BlockSize)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("bufferSize must be positive, got %d", c.BufferSize)
	}
	if c.Debounce <= 0 || c.Tick <= 0 {
		return errors.New("debounce and tick must be positive")
	}
	if c.Lfo.Slot >= audio.NumSlots {
		return fmt.Errorf("lfo slot must be below %d, got %d", audio.NumSlots, c.Lfo.Slot)
	}
	if _, err := c.Lfo.params(); err != nil {
		return fmt.Errorf("lfo: %w", err)
	}
	return nil
}

// ----- Flags ----- //

type flags struct {
	fs     *flag.FlagSet
	config string
	values config
}

func newFlags(name string) *flags {
	f := &flags{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	d := defaultConfig()
	f.fs.StringVar(&f.config, "config", "config.yaml", "config file")
	f.fs.IntVar(&f.values.SampleRate, "sample-rate", d.SampleRate, "output sample rate")
	f.fs.IntVar(&f.values.BlockSize, "block-size", d.BlockSize, "samples rendered per parameter snapshot")
	f.fs.IntVar(&f.values.BufferSize, "buffer-size", d.BufferSize, "audio device buffer in bytes")
	f.fs.StringVar(&f.values.StorePath, "store", d.StorePath, "durable parameter store file")
	f.fs.StringVar(&f.values.Socket, "socket", d.Socket, "control socket path")
	f.fs.BoolVar(&f.values.MIDI, "midi", d.MIDI, "accept control frames as MIDI SysEx")
	f.fs.DurationVar(&f.values.Debounce, "debounce", d.Debounce, "quiet time before parameters are persisted")
	f.fs.DurationVar(&f.values.Tick, "tick", d.Tick, "persistence poll interval")
	f.fs.BoolVar(&f.values.Panel, "panel", d.Panel, "control the oscillator from this terminal")
	f.fs.IntVar(&f.values.Lfo.Slot, "lfo-slot", d.Lfo.Slot, "modulation slot written by the local LFO, negative to disable")
	f.fs.Float64Var(&f.values.Lfo.Freq, "lfo-freq", d.Lfo.Freq, "local LFO frequency in Hz")
	return f
}

func (f *flags) parse(args []string) error {
	return f.fs.Parse(args)
}

// apply overrides c with the flags that were given explicitly.
func (f *flags) apply(c config) config {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "sample-rate":
			c.SampleRate = f.values.SampleRate
		case "block-size":
			c.BlockSize = f.values.BlockSize
		case "buffer-size":
			c.BufferSize = f.values.BufferSize
		case "store":
			c.StorePath = f.values.StorePath
		case "socket":
			c.Socket = f.values.Socket
		case "midi":
			c.MIDI = f.values.MIDI
		case "debounce":
			c.Debounce = f.values.Debounce
		case "tick":
			c.Tick = f.values.Tick
		case "panel":
			c.Panel = f.values.Panel
		case "lfo-slot":
			c.Lfo.Slot = f.values.Lfo.Slot
		case "lfo-freq":
			c.Lfo.Freq = f.values.Lfo.Freq
		}
	})
	return c
}
