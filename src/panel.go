package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jinjor/osc-module/src/audio"
)

const panelHelp = "w/s pitch  e/d fine  r/f wave  t/g level  y/h pulse  u/j amp slot  [/] favorite  z save  x load  c clear  q quit"

// panel is the front panel: one key per increment/decrement button plus the
// favorites buttons.
type panel struct {
	store *audio.Store
	favs  *audio.Favorites
	out   io.Writer
	title cases.Caser
}

func newPanel(store *audio.Store, favs *audio.Favorites, out io.Writer) *panel {
	return &panel{
		store: store,
		favs:  favs,
		out:   out,
		title: cases.Title(language.English),
	}
}

// handleKey applies one key press. It returns false when the panel should
// close.
func (p *panel) handleKey(key byte) bool {
	switch key {
	case 'w':
		p.store.PitchUp()
	case 's':
		p.store.PitchDown()
	case 'e':
		p.store.FineUp()
	case 'd':
		p.store.FineDown()
	case 'r':
		p.store.WaveformNext()
	case 'f':
		p.store.WaveformPrev()
	case 't':
		p.store.LevelUp()
	case 'g':
		p.store.LevelDown()
	case 'y':
		p.store.PulseWidthUp()
	case 'h':
		p.store.PulseWidthDown()
	case 'u':
		p.store.AmpModSlotNext()
	case 'j':
		p.store.AmpModSlotPrev()
	case ']':
		p.favs.SelectNext()
	case '[':
		p.favs.SelectPrev()
	case 'z':
		if err := p.favs.SaveCurrent(); err != nil {
			log.Printf("failed to save favorite: %v\r\n", err)
		}
	case 'x':
		loaded, err := p.favs.LoadCurrent()
		if err != nil {
			log.Printf("failed to load favorite: %v\r\n", err)
		} else if !loaded {
			log.Printf("favorite %d is empty\r\n", p.favs.Current()+1)
		}
	case 'c':
		if err := p.favs.ClearCurrent(); err != nil {
			log.Printf("failed to clear favorite: %v\r\n", err)
		}
	case 'q', 0x03: // Ctrl-C arrives as a byte in raw mode
		return false
	}
	return true
}

func (p *panel) status() string {
	params := p.store.Load()
	saved := " "
	if p.favs.IsSaved(p.favs.Current()) {
		saved = "*"
	}
	return fmt.Sprintf("%s  %3d %+4dc  level %3d%%  pw %3d%%  am %-4v fm %-4v  fav %d%s",
		p.title.String(params.Waveform.String()),
		params.Pitch,
		params.Fine,
		int(params.Level)*100/audio.MaxLevel,
		int(params.PulseWidth)*100/audio.MaxLevel,
		params.AmpModSlot,
		params.FreqModSlot,
		p.favs.Current()+1,
		saved,
	)
}

func (p *panel) render() {
	fmt.Fprintf(p.out, "\r\x1b[2K%s", p.status())
}

// runPanel reads keys from stdin in raw mode until ctx is cancelled or the
// quit key is pressed, which cancels the whole process through quit.
func runPanel(ctx context.Context, p *panel, quit func()) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Println("WARN: stdin is not a terminal, panel disabled")
		return nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(p.out, "\r\n")
	}()

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(p.out, panelHelp+"\r\n")
	p.render()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case key, ok := <-keys:
			if !ok {
				break loop
			}
			if !p.handleKey(key) {
				quit()
				break loop
			}
			p.render()
		}
	}
	log.Println("runPanel() ended.")
	return nil
}
