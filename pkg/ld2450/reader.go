// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"errors"
	"fmt"
	"time"
)

// failer is implemented by transports that can report a permanent failure,
// such as StreamTransport.
type failer interface {
	Err() error
}

// Reader pulls whole frames from a Transport.
//
// Waiting for the first byte of a frame is measured in polling iterations of
// PollInterval, so a timeout is an approximation of wall-clock time.
type Reader struct {
	transport    Transport
	decoder      *Decoder
	observer     Observer
	pollInterval time.Duration
	sleep        func(time.Duration)
}

// NewReader creates a Reader. A nil observer is replaced by NopObserver and a
// zero pollInterval by DefaultPollInterval.
func NewReader(t Transport, observer Observer, pollInterval time.Duration) *Reader {
	if observer == nil {
		observer = NopObserver{}
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	r := &Reader{
		transport:    t,
		decoder:      NewDecoder(),
		observer:     observer,
		pollInterval: pollInterval,
		sleep:        time.Sleep,
	}
	r.decoder.OnPivot = observer.Pivot
	return r
}

// Pivots returns the number of resynchronization pivots seen so far.
func (r *Reader) Pivots() int {
	return r.decoder.Pivots()
}

// ReadFrame reads the next frame, waiting at most timeout for it to start.
//
// Timeouts and framing errors are reported through the returned frame
// (TimedOut, KindMalformed) and never as an error. The error is non-nil only
// when the transport failed permanently; the frame then holds whatever was
// decoded so far and may be nil.
func (r *Reader) ReadFrame(timeout time.Duration) (*Frame, error) {
	if err := r.waitAvailable(timeout); err != nil {
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		r.observer.Timeout(timeout)
		f := timedOutFrame()
		r.observer.FrameReceived(f)
		return f, nil
	}

	r.decoder.Reset()
	for {
		b, err := r.transport.ReadByte()
		if err != nil {
			f, _ := r.decoder.fail(fmt.Errorf("%w: %w", ErrTruncated, err))
			r.observer.FrameReceived(f)
			if errors.Is(err, ErrTimeout) {
				return f, nil
			}
			return f, err
		}

		f, _ := r.decoder.DecodeByte(b)
		if f != nil {
			r.observer.FrameReceived(f)
			return f, nil
		}
	}
}

// waitAvailable polls the transport until a byte is buffered.
func (r *Reader) waitAvailable(timeout time.Duration) error {
	iterations := int(timeout / r.pollInterval)
	for count := 0; r.transport.Available() == 0; count++ {
		if f, ok := r.transport.(failer); ok {
			if err := f.Err(); err != nil {
				return err
			}
		}
		if count >= iterations {
			return ErrTimeout
		}
		r.sleep(r.pollInterval)
	}
	return nil
}
