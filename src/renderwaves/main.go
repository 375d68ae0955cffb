package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jinjor/osc-module/src/audio"
)

func main() {
	sampleRate := flag.Int("sample-rate", audio.DefaultSampleRate, "sample rate")
	pitch := flag.Int("pitch", audio.DefaultPitch, "note number")
	fine := flag.Int("fine", audio.DefaultFine, "detune in cents")
	level := flag.Int("level", audio.DefaultLevel, "output level 0-65535")
	pulseWidth := flag.Int("pulse-width", audio.DefaultPulseWidth, "pulse width 0-65535")
	duration := flag.Duration("duration", time.Second, "length of each file")
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		panic("dir is not passed")
	}
	log.SetFlags(log.Lshortfile)

	store := audio.NewStore(audio.DefaultParams())
	store.Set(audio.FieldPitch, *pitch)
	store.Set(audio.FieldFine, *fine)
	store.Set(audio.FieldLevel, *level)
	store.Set(audio.FieldPulseWidth, *pulseWidth)
	base := store.Load()
	numSamples := int(duration.Seconds() * float64(*sampleRate))
	log.Printf("rendering %v, %.2fHz expected\n", base, audio.Frequency(int(base.Pitch), int(base.Fine)))

	g, _ := errgroup.WithContext(context.Background())
	for w := audio.WaveSine; w < audio.NumWaveforms; w++ {
		p := base
		p.Waveform = w
		g.Go(func() error {
			samples := make([]int16, numSamples)
			audio.NewEngine(*sampleRate, nil).Generate(p, samples)
			log.Printf("generated %v wave: peak %d, dominant %.2fHz\n", w, audio.Peak(samples), audio.DominantFrequency(samples, *sampleRate))
			path := filepath.Join(dir, w.String()+".raw")
			err := save(path, samples)
			log.Printf("saved %v wave\n", w)
			return err
		})
	}
	err := g.Wait()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered waveforms.")
}

// save writes samples as signed 16-bit little endian mono PCM.
func save(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}
