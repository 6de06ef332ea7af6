// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTracker_SkipsMalformedUntilFirstGoodFrame(t *testing.T) {
	var tr syncTracker

	show, synced := tr.accept(&ld2450.Frame{Kind: ld2450.KindMalformed})
	assert.False(t, show)
	assert.False(t, synced)

	show, synced = tr.accept(&ld2450.Frame{Kind: ld2450.KindMalformed})
	assert.False(t, show)
	assert.False(t, synced)

	show, synced = tr.accept(&ld2450.Frame{Kind: ld2450.KindTrackingReport})
	assert.True(t, show)
	assert.True(t, synced)
	assert.Equal(t, 2, tr.skipped)

	// Once synchronized, framing errors are shown.
	show, synced = tr.accept(&ld2450.Frame{Kind: ld2450.KindMalformed})
	assert.True(t, show)
	assert.False(t, synced)
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{time.Minute + 5*time.Second, "1 minute and 5 seconds"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2 hours, 3 minutes, and 4 seconds"},
		{25 * time.Hour, "1 day and 1 hour"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatElapsed(tt.in))
		})
	}
}

func TestTargetRows(t *testing.T) {
	rows := targetRows(nil)
	require.Len(t, rows, ld2450.TargetSlots)
	for _, r := range rows {
		assert.Equal(t, "empty", r[5])
	}

	g := &ld2450.TrackedObjectGroup{}
	g.Targets[0] = ld2450.TrackedObject{X: -120, Y: 1500, Speed: 16, DistanceResolution: 360, Present: true, Valid: true}
	g.Targets[2] = ld2450.TrackedObject{Present: true}

	rows = targetRows(g)
	require.Len(t, rows, ld2450.TargetSlots)
	assert.Equal(t, []string{"1", "-120", "1500", "16", "360", "ok"}, []string(rows[0]))
	assert.Equal(t, "empty", rows[1][5])
	assert.Equal(t, "invalid", rows[2][5])
}

func TestParseTrackingMode(t *testing.T) {
	mode, err := parseTrackingMode("single")
	require.NoError(t, err)
	assert.Equal(t, ld2450.TrackingSingle, mode)

	mode, err = parseTrackingMode("MULTI")
	require.NoError(t, err)
	assert.Equal(t, ld2450.TrackingMulti, mode)

	_, err = parseTrackingMode("dual")
	assert.Error(t, err)
}

func TestControlActions_BaudRateInput(t *testing.T) {
	var baud controlAction
	for _, a := range controlActions() {
		if a.needsInput {
			baud = a
		}
	}
	require.Equal(t, "Set baud rate", baud.title)

	// Input is rejected before anything is sent, so a nil client is never touched.
	_, err := baud.run(context.Background(), nil, "fast")
	assert.Error(t, err)

	_, err = baud.run(context.Background(), nil, "12345")
	assert.Error(t, err)
}

func TestNewMonitorEvent_IgnoresAcks(t *testing.T) {
	ev := newMonitorEvent(&ld2450.Frame{Kind: ld2450.KindConfigAck}, ld2450.DecodingDocumented)
	assert.Nil(t, ev.group)
	assert.Empty(t, ev.anomalies)
}

func TestNewMonitorEvent_UsesDecoding(t *testing.T) {
	var payload [ld2450.ReportPayloadSize]byte
	copy(payload[:], []byte{0x0E, 0x03, 0xB1, 0x86, 0xF0, 0xFF, 0x40, 0x01})
	var f *ld2450.Frame
	d := ld2450.NewDecoder()
	for _, b := range ld2450.EncodeReport(payload) {
		if got, _ := d.DecodeByte(b); got != nil {
			f = got
		}
	}
	require.NotNil(t, f)

	ev := newMonitorEvent(f, ld2450.DecodingLegacySum)
	assert.Equal(t, ld2450.DecodingLegacySum, ev.decoding)
	require.NotNil(t, ev.group)
	assert.Equal(t, (0x0E+0x03)*256, ev.group.Targets[0].X)
}

func TestPause(t *testing.T) {
	assert.True(t, pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, pause(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestEventLog_KeepsNewest(t *testing.T) {
	var entries []eventLogEntry
	for i := 0; i < 5; i++ {
		entries = appendLog(entries, 3, fmt.Sprintf("event %d", i), i == 4)
	}
	require.Len(t, entries, 3)
	assert.Equal(t, "event 2", entries[0].message)
	assert.True(t, entries[2].isError)

	out := renderLog(entries, 2, "15:04:05")
	assert.NotContains(t, out, "event 2")
	assert.Contains(t, out, "event 3")
	assert.Contains(t, out, "event 4")
	assert.Contains(t, renderLog(nil, 2, "15:04:05"), "no events yet")
}
