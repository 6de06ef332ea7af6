// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package instrument provides ld2450.Observer implementations for logging
// and metrics.
package instrument

import (
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
)

// ZapObserver logs protocol events. Routine traffic is logged at debug
// level; pivots, retries and timeouts at warn.
type ZapObserver struct {
	log *zap.Logger
}

// NewZapObserver creates a ZapObserver writing to log.
func NewZapObserver(log *zap.Logger) *ZapObserver {
	return &ZapObserver{log: log.Named("ld2450")}
}

// FrameSent implements ld2450.Observer.
func (z *ZapObserver) FrameSent(op ld2450.Opcode, raw []byte) {
	z.log.Debug("frame sent",
		zap.String("command", ld2450.FormatCommandName(op)),
		zap.String("opcode", ld2450.FormatOpcode(op)),
		zap.Binary("raw", raw))
}

// FrameReceived implements ld2450.Observer.
func (z *ZapObserver) FrameReceived(f *ld2450.Frame) {
	if f.TimedOut {
		return
	}
	fields := []zap.Field{
		zap.Stringer("kind", f.Kind),
		zap.Int("len", len(f.Payload)),
	}
	if f.Kind == ld2450.KindMalformed {
		fields = append(fields, zap.Stringer("attempted", f.Attempted), zap.Error(f.Err), zap.Binary("raw", f.Raw))
	}
	z.log.Debug("frame received", fields...)
}

// Pivot implements ld2450.Observer.
func (z *ZapObserver) Pivot(from, to ld2450.FrameKind, b byte) {
	z.log.Warn("resynchronized",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint8("byte", b))
}

// Discarded implements ld2450.Observer.
func (z *ZapObserver) Discarded(f *ld2450.Frame, reason error) {
	z.log.Debug("frame discarded", zap.Stringer("kind", f.Kind), zap.Error(reason))
}

// Retry implements ld2450.Observer.
func (z *ZapObserver) Retry(command string, attempt int, cause error) {
	z.log.Warn("retrying command",
		zap.String("command", command),
		zap.Int("attempt", attempt),
		zap.Error(cause))
}

// Timeout implements ld2450.Observer.
func (z *ZapObserver) Timeout(waited time.Duration) {
	z.log.Warn("no frame", zap.Duration("waited", waited))
}
