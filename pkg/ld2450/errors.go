// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"errors"
	"fmt"
)

// Decode failures. All of them wrap ErrMalformed.
var (
	ErrMalformed       = errors.New("ld2450: malformed frame")
	ErrUnexpectedStart = fmt.Errorf("%w: unexpected start byte", ErrMalformed)
	ErrBadPreamble     = fmt.Errorf("%w: bad preamble", ErrMalformed)
	ErrBadLength       = fmt.Errorf("%w: bad length", ErrMalformed)
	ErrBadPostamble    = fmt.Errorf("%w: bad postamble", ErrMalformed)
	ErrTruncated       = fmt.Errorf("%w: truncated", ErrMalformed)
)

var (
	// ErrTimeout indicates no frame arrived within the wait budget.
	ErrTimeout = errors.New("ld2450: timeout")
	// ErrWrongFrameKind indicates a well-formed frame that is not the
	// expected response.
	ErrWrongFrameKind = errors.New("ld2450: wrong frame kind")
	// ErrRetriesExhausted is returned when a bounded retry loop gives up.
	// The last cause is wrapped alongside it.
	ErrRetriesExhausted = errors.New("ld2450: retries exhausted")
	// ErrPayloadTooLarge is returned by the encoder when the command does
	// not fit in a frame.
	ErrPayloadTooLarge = errors.New("ld2450: payload too large")
	// ErrTransportClosed is returned by transports after Close.
	ErrTransportClosed = errors.New("ld2450: transport closed")
	// ErrShortResponse indicates an acknowledgement without the data the
	// command should return.
	ErrShortResponse = errors.New("ld2450: short response")
)

// CommandError reports an acknowledgement carrying a nonzero status.
type CommandError struct {
	Opcode Opcode
	Status uint16
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("ld2450: command %s failed with status 0x%04X", FormatOpcode(e.Opcode), e.Status)
}

// exhausted wraps the last failure of a retry loop.
func exhausted(attempts int, cause error) error {
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, cause)
}
