// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureVersion is written in every capture header.
const CaptureVersion = 2

// A capture is a stream of CBOR arrays: one CaptureHeader followed by one
// CaptureRecord per frame.
//
//	[version, session, started-us, decoding]
//	[kind, time-us, payload, raw, attempted, reason, error]

// CaptureHeader identifies a capture session.
type CaptureHeader struct {
	_        struct{} `cbor:",toarray"`
	Version  uint
	Session  string
	Started  int64 // Unix microseconds
	Decoding string
}

// CaptureRecord is one captured frame.
type CaptureRecord struct {
	_       struct{} `cbor:",toarray"`
	Kind    FrameKind
	Time    int64 // Unix microseconds
	Payload []byte
	Raw     []byte

	// Malformed frames only.
	Attempted FrameKind
	Reason    uint8  // one of the reason* codes
	Error     string // decode error text
}

// Decode failure codes stored in CaptureRecord.Reason.
const (
	reasonNone uint8 = iota
	reasonUnexpectedStart
	reasonBadPreamble
	reasonBadLength
	reasonBadPostamble
	reasonTruncated
	reasonMalformed
)

var reasonErrors = map[uint8]error{
	reasonUnexpectedStart: ErrUnexpectedStart,
	reasonBadPreamble:     ErrBadPreamble,
	reasonBadLength:       ErrBadLength,
	reasonBadPostamble:    ErrBadPostamble,
	reasonTruncated:       ErrTruncated,
	reasonMalformed:       ErrMalformed,
}

func captureReason(err error) uint8 {
	switch {
	case err == nil:
		return reasonNone
	case errors.Is(err, ErrUnexpectedStart):
		return reasonUnexpectedStart
	case errors.Is(err, ErrBadPreamble):
		return reasonBadPreamble
	case errors.Is(err, ErrBadLength):
		return reasonBadLength
	case errors.Is(err, ErrBadPostamble):
		return reasonBadPostamble
	case errors.Is(err, ErrTruncated):
		return reasonTruncated
	default:
		return reasonMalformed
	}
}

// capturedError is a decode error read back from a capture. It keeps the
// recorded text and unwraps to the matching sentinel.
type capturedError struct {
	msg   string
	cause error
}

func (e *capturedError) Error() string { return e.msg }
func (e *capturedError) Unwrap() error { return e.cause }

// Frame rebuilds the frame the record was captured from.
func (r *CaptureRecord) Frame() *Frame {
	f := &Frame{
		Kind:      r.Kind,
		Attempted: r.Kind,
		Payload:   r.Payload,
		Raw:       r.Raw,
		Timestamp: time.UnixMicro(r.Time),
	}
	if r.Kind == KindMalformed {
		f.Attempted = r.Attempted
		if cause, ok := reasonErrors[r.Reason]; ok {
			msg := r.Error
			if msg == "" {
				msg = cause.Error()
			}
			f.Err = &capturedError{msg: msg, cause: cause}
		}
	}
	return f
}

// CaptureWriter appends frames to a capture stream.
type CaptureWriter struct {
	enc    *cbor.Encoder
	frames int
}

// NewCaptureWriter writes the header for session and returns a writer for
// the frames that follow.
func NewCaptureWriter(w io.Writer, session string, decoding CoordinateDecoding) (*CaptureWriter, error) {
	enc := cbor.NewEncoder(w)
	header := CaptureHeader{
		Version:  CaptureVersion,
		Session:  session,
		Started:  time.Now().UnixMicro(),
		Decoding: decoding.String(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &CaptureWriter{enc: enc}, nil
}

// WriteFrame records f. Timed out frames carry no data and are skipped.
func (cw *CaptureWriter) WriteFrame(f *Frame) error {
	if f.TimedOut {
		return nil
	}
	rec := CaptureRecord{
		Kind:    f.Kind,
		Time:    f.Timestamp.UnixMicro(),
		Payload: f.Payload,
		Raw:     f.Raw,
	}
	if f.Kind == KindMalformed {
		rec.Attempted = f.Attempted
		rec.Reason = captureReason(f.Err)
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
	}
	if err := cw.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	cw.frames++
	return nil
}

// Frames returns the number of frames written.
func (cw *CaptureWriter) Frames() int {
	return cw.frames
}

// CaptureReader reads a capture stream.
type CaptureReader struct {
	dec    *cbor.Decoder
	Header CaptureHeader
}

// NewCaptureReader reads and checks the capture header.
func NewCaptureReader(r io.Reader) (*CaptureReader, error) {
	dec := cbor.NewDecoder(r)
	cr := &CaptureReader{dec: dec}
	if err := dec.Decode(&cr.Header); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if cr.Header.Version != CaptureVersion {
		return nil, fmt.Errorf("unsupported capture version %d", cr.Header.Version)
	}
	return cr, nil
}

// Next returns the next record, or io.EOF at the end of the capture.
func (cr *CaptureReader) Next() (*CaptureRecord, error) {
	var rec CaptureRecord
	if err := cr.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read capture record: %w", err)
	}
	return &rec, nil
}
