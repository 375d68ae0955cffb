package audio

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/jinjor/osc-module/src/proto"
)

var paramFields = map[proto.ParamID]Field{
	proto.ParamWaveform:       FieldWaveform,
	proto.ParamPitch:          FieldPitch,
	proto.ParamFine:           FieldFine,
	proto.ParamLevel:          FieldLevel,
	proto.ParamAmpModSlot:     FieldAmpModSlot,
	proto.ParamFreqModSlot:    FieldFreqModSlot,
	proto.ParamPulseWidth:     FieldPulseWidth,
	proto.ParamSyncSourceSlot: FieldSyncSourceSlot,
}

// CommitRequester is the part of the persistence task the dispatcher needs.
type CommitRequester interface {
	RequestCommit()
}

// ----- Dispatcher ----- //

// Dispatcher is the control-rate task: it decodes frames and applies them to
// the Store. It never touches storage itself; commits are requested from the
// persistence task.
type Dispatcher struct {
	store    *Store
	persist  CommitRequester
	ioConfig atomic.Pointer[proto.IOConfig]
}

// NewDispatcher ...
func NewDispatcher(store *Store, persist CommitRequester) *Dispatcher {
	return &Dispatcher{store: store, persist: persist}
}

// Run handles frames until ctx is cancelled or frames is closed.
func (d *Dispatcher) Run(ctx context.Context, frames <-chan []byte) error {
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Dispatcher interrupted")
			break loop
		case frame, ok := <-frames:
			if !ok {
				break loop
			}
			d.HandleFrame(frame)
		}
	}
	log.Println("Dispatcher.Run() ended.")
	return nil
}

// HandleFrame decodes and applies one frame. Frames that do not decode are
// dropped; the result reports whether the frame was applied.
func (d *Dispatcher) HandleFrame(frame []byte) bool {
	c, err := proto.Decode(frame)
	if err != nil {
		log.Printf("dropped frame % x: %v\n", frame, err)
		return false
	}
	d.Apply(c)
	return true
}

// Apply executes a decoded command.
func (d *Dispatcher) Apply(c proto.Command) {
	switch c := c.(type) {
	case proto.SetParam:
		field, ok := paramFields[c.ID]
		if !ok {
			log.Printf("ignored write to %v\n", c.ID)
			return
		}
		d.store.Set(field, c.Value)
	case proto.Reset:
		d.store.Reset()
		d.persist.RequestCommit()
	case proto.SaveSettings:
		d.persist.RequestCommit()
	case proto.IOConfig:
		d.ioConfig.Store(&c)
		log.Printf("io config: slot=%d channel_mask=0x%04x\n", c.Slot(), c.ChannelMask())
	}
}

// IOConfig returns the last I/O configuration received, if any.
func (d *Dispatcher) IOConfig() (proto.IOConfig, bool) {
	c := d.ioConfig.Load()
	if c == nil {
		return proto.IOConfig{}, false
	}
	return *c, true
}
