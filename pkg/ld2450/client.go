// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// RetryPolicy bounds the correlator's loops. A zero field means unbounded:
// a silent module then blocks the caller until ctx is done.
type RetryPolicy struct {
	// MaxAttempts bounds how many times SendCommand sends a command whose
	// acknowledgement keeps failing validation.
	MaxAttempts int
	// MaxWaits bounds the unproductive reads of one attempt: expired waits
	// and frames discarded while the acknowledgement is outstanding.
	MaxWaits int
}

// DefaultRetryPolicy returns the bounded policy used by NewClient.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, MaxWaits: DefaultMaxWaits}
}

// Options configures a Client.
type Options struct {
	Observer     Observer
	PollInterval time.Duration
	Retry        RetryPolicy
	Decoding     CoordinateDecoding
	// LiveZones sends get_zone_filter to the module instead of returning
	// the default configuration.
	LiveZones bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Observer:     NopObserver{},
		PollInterval: DefaultPollInterval,
		Retry:        DefaultRetryPolicy(),
		Decoding:     DecodingDocumented,
	}
}

// Client correlates commands with acknowledgements on one Transport.
//
// The protocol allows a single outstanding command. Client serializes
// callers with a mutex so bytes are never interleaved, but it is meant to be
// driven from one goroutine.
type Client struct {
	mu        sync.Mutex
	transport Transport
	reader    *Reader
	observer  Observer
	opts      Options
}

// NewClient creates a Client on t.
func NewClient(t Transport, opts Options) *Client {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Client{
		transport: t,
		reader:    NewReader(t, opts.Observer, opts.PollInterval),
		observer:  opts.Observer,
		opts:      opts,
	}
}

// Options returns the options the client was created with.
func (c *Client) Options() Options {
	return c.opts
}

// Reader returns the frame reader bound to the client's transport.
func (c *Client) Reader() *Reader {
	return c.reader
}

// Execute sends d once and waits for its acknowledgement, returning a copy
// of the acknowledgement payload. It does not apply d.Validate.
func (c *Client) Execute(ctx context.Context, d *CommandDescriptor) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.execute(ctx, d)
}

// SendCommand executes d and validates the acknowledgement, re-sending the
// command when validation fails or the module stays silent.
func (c *Client) SendCommand(ctx context.Context, d *CommandDescriptor) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCommand(ctx, d)
}

func (c *Client) sendCommand(ctx context.Context, d *CommandDescriptor) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		ack, err := c.execute(ctx, d)
		if err == nil {
			if err = d.validate(ack); err == nil {
				return ack, nil
			}
		}
		if !retryable(err) {
			return nil, err
		}
		if limit := c.opts.Retry.MaxAttempts; limit > 0 && attempt >= limit {
			return nil, exhausted(attempt, err)
		}
		c.observer.Retry(d.Name, attempt+1, err)
	}
}

// retryable reports whether re-sending a command may succeed.
func retryable(err error) bool {
	var cmdErr *CommandError
	return errors.Is(err, ErrRetriesExhausted) ||
		errors.Is(err, ErrShortResponse) ||
		errors.As(err, &cmdErr)
}

func (c *Client) execute(ctx context.Context, d *CommandDescriptor) ([]byte, error) {
	raw, err := EncodeCommand(d.Opcode, d.Payload)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := c.transport.Write(raw); err != nil {
		return nil, fmt.Errorf("write %s: %w", d.Name, err)
	}
	c.observer.FrameSent(d.Opcode, raw)

	timeout := d.timeout()
	waits := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := c.reader.ReadFrame(timeout)
		if err != nil {
			return nil, fmt.Errorf("await %s: %w", d.Name, err)
		}

		var reason error
		switch {
		case f.IsReport() && d.RadarResumeIsSuccess:
			return synthesizedAck(d.Opcode), nil

		case f.TimedOut:
			if d.TimeoutIsSuccess {
				return synthesizedAck(d.Opcode), nil
			}
			reason = fmt.Errorf("%w waiting for %s", ErrTimeout, d.Name)

		case f.Kind == KindMalformed && !d.AllowMalformed:
			reason = f.Err
			c.observer.Discarded(f, reason)

		case !f.IsAck() && !acceptableMalformed(f):
			reason = fmt.Errorf("%w: %s while waiting for %s", ErrWrongFrameKind, frameLabel(f), d.Name)
			c.observer.Discarded(f, reason)

		default:
			if op, ok := f.Opcode(); !ok || op != d.Opcode.Ack() {
				reason = fmt.Errorf("%w: acknowledgement %s while waiting for %s", ErrWrongFrameKind, FormatOpcode(op), d.Name)
				c.observer.Discarded(f, reason)
				break
			}
			return append([]byte(nil), f.Payload...), nil
		}

		waits++
		if limit := c.opts.Retry.MaxWaits; limit > 0 && waits >= limit {
			return nil, exhausted(waits, reason)
		}
	}
}

// acceptableMalformed reports whether f is an acknowledgement whose payload
// was read in full and only the postamble was damaged.
func acceptableMalformed(f *Frame) bool {
	if f.Kind != KindMalformed || f.Attempted != KindConfigAck {
		return false
	}
	if !errors.Is(f.Err, ErrBadPostamble) {
		return false
	}
	_, ok := f.Opcode()
	return ok
}

func frameLabel(f *Frame) string {
	if f.Kind == KindMalformed {
		return fmt.Sprintf("malformed %s", f.Attempted)
	}
	return f.Kind.String()
}

// ReadTrackingGroup reads the next tracking report, skipping other frames,
// and decodes it. It returns an error wrapping ErrTimeout when no report
// arrives within timeout.
func (c *Client) ReadTrackingGroup(timeout time.Duration) (*TrackedObjectGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		f, err := c.reader.ReadFrame(remaining)
		if err != nil {
			return nil, err
		}
		if f.TimedOut {
			return nil, fmt.Errorf("%w waiting for tracking report", ErrTimeout)
		}
		if f.IsReport() {
			return DecodeFrame(f, c.opts.Decoding)
		}
		if remaining == 0 {
			return nil, fmt.Errorf("%w waiting for tracking report", ErrTimeout)
		}
	}
}

// EnterConfigMode switches the module into configuration mode, which stops
// tracking reports.
func (c *Client) EnterConfigMode(ctx context.Context) error {
	_, err := c.SendCommand(ctx, CmdEnableConfig)
	return err
}

// ExitConfigMode leaves configuration mode. The first tracking report counts
// as success.
func (c *Client) ExitConfigMode(ctx context.Context) error {
	_, err := c.SendCommand(ctx, CmdDisableConfig)
	return err
}

// WithConfigMode runs fn between EnterConfigMode and ExitConfigMode. The
// module is taken out of configuration mode even when fn fails.
func (c *Client) WithConfigMode(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.EnterConfigMode(ctx); err != nil {
		return fmt.Errorf("enter config mode: %w", err)
	}
	fnErr := fn(ctx)
	if err := c.ExitConfigMode(ctx); err != nil {
		return errors.Join(fnErr, fmt.Errorf("exit config mode: %w", err))
	}
	return fnErr
}
