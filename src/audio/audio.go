package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/hajimehoshi/oto"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 64 // samples
	DefaultBufferSize = 4096

	channelNum      = 1
	bitDepthInBytes = 2
	bytesPerSample  = bitDepthInBytes * channelNum
)

// ----- Voice ----- //

// Voice is the audio-rate task. It is an io.Reader of 16-bit little endian
// mono PCM: every block it takes one snapshot from the Store and lets the
// Engine render it.
type Voice struct {
	ctx    context.Context
	store  *Store
	engine *Engine
	block  []int16
}

var _ io.Reader = (*Voice)(nil)

// NewVoice ...
func NewVoice(store *Store, engine *Engine, blockSize int) *Voice {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Voice{
		ctx:    context.Background(),
		store:  store,
		engine: engine,
		block:  make([]int16, blockSize),
	}
}

// BlockSize returns the number of samples rendered per parameter snapshot.
func (v *Voice) BlockSize() int {
	return len(v.block)
}

func (v *Voice) Read(buf []byte) (int, error) {
	select {
	case <-v.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	samples := len(buf) / bytesPerSample
	for offset := 0; offset < samples; offset += len(v.block) {
		block := v.block
		if rest := samples - offset; rest < len(block) {
			block = block[:rest]
		}
		v.engine.Generate(v.store.Load(), block)
		writeBuffer(block, buf[offset*bytesPerSample:])
	}
	return samples * bytesPerSample, nil
}

func writeBuffer(block []int16, buf []byte) {
	for i, s := range block {
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample:], uint16(s))
	}
}

// Start pumps blocks into sink until ctx is cancelled. Writes to sink are
// the only place the task blocks.
func (v *Voice) Start(ctx context.Context, sink io.Writer) error {
	v.ctx = ctx
	// block until cancel() called
	if _, err := io.CopyBuffer(sink, v, make([]byte, len(v.block)*bytesPerSample)); err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	log.Println("Start() ended.")
	return nil
}

// ----- Output ----- //

// Output is the audio sink device.
type Output struct {
	otoContext *oto.Context
}

// NewOutput opens the default audio device for mono 16-bit playback.
func NewOutput(sampleRate int, bufferSizeInBytes int) (*Output, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	return &Output{otoContext: otoContext}, nil
}

// NewPlayer returns a sink whose Write blocks while the device buffer is
// full.
func (o *Output) NewPlayer() io.WriteCloser {
	return o.otoContext.NewPlayer()
}

// Close ...
func (o *Output) Close() error {
	log.Println("Closing Output...")
	if err := o.otoContext.Close(); err != nil {
		return fmt.Errorf("cannot close oto context: %w", err)
	}
	return nil
}
