package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jinjor/osc-module/src/audio"
	"github.com/jinjor/osc-module/src/nvs"
)

// frames waiting for the dispatcher, from every transport
const frameQueueSize = 32

func main() {
	f := newFlags(os.Args[0])
	if err := f.parse(os.Args[1:]); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	c, err := loadConfig(f.config)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	c = f.apply(c)
	if err := c.validate(); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	durable, err := nvs.OpenFile(c.StorePath, audio.Namespace)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	initial := audio.LoadParams(durable)
	log.Printf("restored %v from %s\n", initial, durable.Path())

	lfoParams, err := c.Lfo.params()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	var mods audio.ModSource = audio.NullModBus{}
	var lfo *audio.Lfo
	if lfoParams.Slot.Connected() {
		bus := &audio.SharedModBus{}
		lfo = audio.NewLfo(bus, lfoParams)
		mods = bus
		log.Printf("local LFO on slot %v: %v %.2fHz\n", lfoParams.Slot, lfoParams.Waveform, lfoParams.Freq)
	}

	store := audio.NewStore(initial)
	engine := audio.NewEngine(c.SampleRate, mods)
	voice := audio.NewVoice(store, engine, c.BlockSize)
	scheduler := audio.NewScheduler(store, durable, c.Debounce, c.Tick)
	dispatcher := audio.NewDispatcher(store, scheduler)
	favs := audio.NewFavorites(store, durable)

	output, err := audio.NewOutput(c.SampleRate, c.BufferSize)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer output.Close()
	player := output.NewPlayer()
	defer player.Close()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()

	frames := make(chan []byte, frameQueueSize)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return voice.Start(ctx, player)
	})
	g.Go(func() error {
		return dispatcher.Run(ctx, frames)
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		return serveIPC(ctx, c.Socket, frames, store)
	})
	if lfo != nil {
		g.Go(func() error {
			return lfo.Run(ctx, audio.DefaultLfoInterval)
		})
	}
	if c.MIDI {
		g.Go(func() error {
			return audio.ListenToMidiIn(ctx, frames)
		})
	}
	if c.Panel {
		g.Go(func() error {
			return runPanel(ctx, newPanel(store, favs, os.Stdout), cancel)
		})
	}
	err = g.Wait()
	// whatever is still pending goes to storage before exit
	if _, _, _, dirty := store.Pending(); dirty {
		scheduler.CommitNow()
	}
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}
