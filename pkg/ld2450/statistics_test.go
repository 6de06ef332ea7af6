// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics_CountsReaderEvents(t *testing.T) {
	stats := NewStatistics()
	report := EncodeReport(reportWith(sampleRecord, sampleRecord))
	empty := EncodeReport(reportWith())
	badPost := mustEncodeAck(OpEnableConfig, 0, nil)
	badPost[len(badPost)-1] = 0x00

	tr := newScriptTransport(report, empty, []byte{0xFD, 0xFC}, report, badPost, []byte{0x00})
	r, _ := newTestReader(tr, stats)
	for i := 0; i < 5; i++ {
		_, err := r.ReadFrame(time.Millisecond)
		require.NoError(t, err)
	}

	snap := stats.Snapshot()
	assert.Equal(t, uint64(5), snap.TotalFrames)
	assert.Equal(t, uint64(3), snap.ReportFrames)
	assert.Equal(t, uint64(1), snap.EmptyReports)
	assert.Equal(t, uint64(4), snap.TargetsSeen)
	assert.Equal(t, uint64(2), snap.MalformedFrames)
	assert.Equal(t, uint64(1), snap.BadPostambles)
	assert.Equal(t, uint64(1), snap.BadPreambles)
	assert.Equal(t, uint64(1), snap.Pivots)
	assert.Equal(t, uint64(2), snap.AnomalousValues)
	assert.Contains(t, stats.String(), "Total Frames:           5")
}

func TestStatistics_CountsClientEvents(t *testing.T) {
	stats := NewStatistics()
	c := newTestClient(newScriptTransport(), Options{Observer: stats, Retry: RetryPolicy{MaxAttempts: 2, MaxWaits: 2}})

	_, err := c.SendCommand(context.Background(), strict(CmdRestart))
	require.ErrorIs(t, err, ErrRetriesExhausted)

	snap := stats.Snapshot()
	assert.Equal(t, uint64(2), snap.CommandsSent)
	assert.Equal(t, uint64(1), snap.Retries)
	assert.Equal(t, uint64(4), snap.Timeouts)
	assert.Zero(t, snap.TotalFrames)

	stats.Reset()
	assert.Zero(t, stats.Snapshot().CommandsSent)
}
