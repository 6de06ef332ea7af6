// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"io"
	"sync"
	"time"
)

// Transport is the byte-level link to the sensor.
//
// Available is polled before a frame is started; ReadByte is used for the
// bytes of a frame already in flight and must give up after a short,
// transport-defined wait, returning an error wrapping ErrTimeout.
type Transport interface {
	io.ByteReader
	io.Writer
	Available() int
}

// StreamTransport adapts a blocking io.ReadWriter (serial port, WebSocket
// bridge) to Transport by pumping received bytes into a bounded buffer from a
// single background goroutine.
type StreamTransport struct {
	rw          io.ReadWriter
	buf         chan byte
	byteTimeout time.Duration

	done      chan struct{}
	failed    chan struct{}
	closeOnce sync.Once
	err       error // set before failed is closed
}

// streamBufferSize holds a few seconds of tracking reports at 256000 baud.
const streamBufferSize = 4096

// NewStreamTransport starts pumping bytes from rw.
// A byteTimeout of zero selects DefaultByteTimeout.
func NewStreamTransport(rw io.ReadWriter, byteTimeout time.Duration) *StreamTransport {
	if byteTimeout <= 0 {
		byteTimeout = DefaultByteTimeout
	}
	t := &StreamTransport{
		rw:          rw,
		buf:         make(chan byte, streamBufferSize),
		byteTimeout: byteTimeout,
		done:        make(chan struct{}),
		failed:      make(chan struct{}),
	}
	go t.pump()
	return t
}

func (t *StreamTransport) pump() {
	chunk := make([]byte, 256)
	for {
		n, err := t.rw.Read(chunk)
		for i := 0; i < n; i++ {
			select {
			case t.buf <- chunk[i]:
			case <-t.done:
				return
			}
		}
		if err != nil {
			t.err = err
			close(t.failed)
			return
		}
	}
}

// Available returns the number of buffered bytes.
func (t *StreamTransport) Available() int {
	return len(t.buf)
}

// ReadByte returns the next buffered byte, waiting at most the byte timeout.
func (t *StreamTransport) ReadByte() (byte, error) {
	select {
	case b := <-t.buf:
		return b, nil
	default:
	}

	timer := time.NewTimer(t.byteTimeout)
	defer timer.Stop()

	select {
	case b := <-t.buf:
		return b, nil
	case <-t.failed:
		// The pump may have queued bytes right before failing.
		select {
		case b := <-t.buf:
			return b, nil
		default:
		}
		return 0, t.err
	case <-t.done:
		return 0, ErrTransportClosed
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// Drain discards the buffered bytes and returns how many were dropped.
// Reports queued while nobody was reading would otherwise be consumed as
// unrelated frames by the next command.
func (t *StreamTransport) Drain() int {
	n := 0
	for {
		select {
		case <-t.buf:
			n++
		default:
			return n
		}
	}
}

// Write sends p to the underlying writer.
func (t *StreamTransport) Write(p []byte) (int, error) {
	select {
	case <-t.done:
		return 0, ErrTransportClosed
	default:
	}
	return t.rw.Write(p)
}

// Err returns the error that stopped the pump, if any.
func (t *StreamTransport) Err() error {
	select {
	case <-t.failed:
		return t.err
	default:
		return nil
	}
}

// Close stops the pump and closes the underlying stream when it is an
// io.Closer.
func (t *StreamTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if c, ok := t.rw.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
