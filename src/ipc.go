package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jinjor/osc-module/src/audio"
	"github.com/jinjor/osc-module/src/proto"
)

const reportInterval = time.Second / 10

// serveIPC accepts controller connections on the unix socket until ctx is
// cancelled. Each connection sends one hex encoded frame per line and
// receives a status line whenever the parameters change.
func serveIPC(ctx context.Context, sockFileName string, frames chan<- []byte, store *audio.Store) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", sockFileName, err)
	}
	defer func() {
		log.Println("Closing IPC...")
		os.Remove(sockFileName)
	}()
	go func() {
		<-ctx.Done()
		err := listener.Close()
		if err != nil {
			log.Printf("error while closing listener: %v", err)
		}
	}()
	log.Printf("start listening on %s...\n", sockFileName)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			err := withIPCConnection(ctx, conn, func(ctx context.Context, conn net.Conn) error {
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return receiveFrames(ctx, conn, frames)
				})
				g.Go(func() error {
					return sendReports(ctx, conn, store)
				})
				return g.Wait()
			})
			if err != nil {
				log.Printf("connection closed with error: %v\n", err)
			}
		}()
	}
	log.Println("serveIPC() ended.")
	return nil
}

// withIPCConnection runs f and closes conn when f returns or ctx is done.
func withIPCConnection(ctx context.Context, conn net.Conn, f func(context.Context, net.Conn) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	log.Println("controller connected")
	err := f(ctx, conn)
	log.Println("controller disconnected")
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func receiveFrames(ctx context.Context, conn io.Reader, frames chan<- []byte) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		frame, err := parseFrame(string(line))
		line = []byte{}
		if err != nil {
			log.Printf("dropped line: %v\n", err)
			continue
		}
		if frame == nil {
			continue
		}
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		case frames <- frame:
		}
	}
	log.Println("receiveFrames() ended.")
	// ends the report loop of this connection too
	return io.EOF
}

// parseFrame reads one frame written as hex bytes, with or without spaces
// between them ("10 01 01 45" or "10010145"). Blank lines give nil.
func parseFrame(line string) ([]byte, error) {
	s := strings.Join(strings.Fields(line), "")
	if s == "" {
		return nil, nil
	}
	frame, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid frame %q: %w", line, err)
	}
	if len(frame) > proto.MaxFrameSize {
		return nil, fmt.Errorf("frame %q has %d bytes, at most %d allowed", line, len(frame), proto.MaxFrameSize)
	}
	return frame, nil
}

func formatReport(p audio.Params) string {
	return "params " + p.String() + "\n"
}

func sendReports(ctx context.Context, conn io.Writer, store *audio.Store) error {
	t := time.NewTicker(reportInterval)
	defer t.Stop()
	reported := false
	var version uint64
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			v := store.Version()
			if reported && v == version {
				continue
			}
			if _, err := io.WriteString(conn, formatReport(store.Load())); err != nil {
				return err
			}
			reported = true
			version = v
		}
	}
	log.Println("sendReports() ended.")
	return nil
}
