package audio

import (
	"context"
	"log"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"

	"github.com/jinjor/osc-module/src/proto"
)

// Control frames can also reach the module as MIDI system exclusive messages
// using the non-commercial manufacturer id:
//
//   F0 7D <hi nibble> <lo nibble> ... F7
//
// Every frame byte travels as two data bytes so none of them has the high
// bit set.
const (
	sysExStart        = 0xF0
	sysExEnd          = 0xF7
	sysExManufacturer = 0x7D
)

// EncodeSysExFrame wraps a control frame into a SysEx message.
func EncodeSysExFrame(frame []byte) []byte {
	msg := make([]byte, 0, 3+2*len(frame))
	msg = append(msg, sysExStart, sysExManufacturer)
	for _, b := range frame {
		msg = append(msg, b>>4, b&0x0F)
	}
	return append(msg, sysExEnd)
}

func decodeSysExFrame(data []byte) ([]byte, bool) {
	if len(data) < 3 || data[0] != sysExStart || data[1] != sysExManufacturer || data[len(data)-1] != sysExEnd {
		return nil, false
	}
	body := data[2 : len(data)-1]
	if len(body)%2 != 0 || len(body)/2 > proto.MaxFrameSize {
		return nil, false
	}
	frame := make([]byte, len(body)/2)
	for i := range frame {
		hi, lo := body[2*i], body[2*i+1]
		if hi > 0x0F || lo > 0x0F {
			return nil, false
		}
		frame[i] = hi<<4 | lo
	}
	return frame, true
}

// ListenToMidiIn forwards control frames received as SysEx on the first MIDI
// input to frames until ctx is cancelled. A missing driver or device is
// logged and is not an error: the socket transport keeps working.
func ListenToMidiIn(ctx context.Context, frames chan<- []byte) error {
	drv, err := rtmididrv.New()
	if err != nil {
		log.Printf("failed to initialize MIDI driver: %v\n", err)
		return nil
	}
	defer func() {
		err := drv.Close()
		if err != nil {
			log.Printf("failed to close MIDI driver: %v\n", err)
		}
	}()
	ins, err := drv.Ins()
	if err != nil {
		log.Printf("failed to get MIDI IN: %v\n", err)
		return nil
	}
	log.Printf("MIDI IN: %v\n", ins)
	in, ok := firstIn(ins)
	if !ok {
		log.Println("WARN: MIDI IN not found")
		return nil
	}
	if err := in.Open(); err != nil {
		log.Printf("failed to open MIDI IN: %v\n", err)
		return nil
	}
	log.Println("opened " + in.String())
	defer func() {
		err := in.Close()
		if err != nil {
			log.Printf("failed to close MIDI IN: %v\n", err)
		}
	}()
	log.Println("start listening MIDI IN...")
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		frame, ok := decodeSysExFrame(data)
		if !ok {
			return
		}
		select {
		case frames <- frame:
		default:
			log.Println("[WARN] control frame queue full, dropping MIDI frame")
		}
	}); err != nil {
		log.Println("failed to set listener: " + err.Error())
		return nil
	}
	defer func() {
		log.Println("stop listening MIDI IN...")
		err := in.StopListening()
		if err != nil {
			log.Printf("failed to stop listening: %v\n", err)
		}
	}()
	<-ctx.Done()
	return nil
}

func firstIn(ins []midi.In) (midi.In, bool) {
	if len(ins) == 0 {
		return nil, false
	}
	return ins[0], true
}
