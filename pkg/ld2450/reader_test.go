// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(tr Transport, obs Observer) (*Reader, *int) {
	r := NewReader(tr, obs, time.Millisecond)
	sleeps := 0
	r.sleep = func(time.Duration) { sleeps++ }
	return r, &sleeps
}

func TestReader_TimeoutOnSilentLine(t *testing.T) {
	obs := &recordingObserver{}
	r, sleeps := newTestReader(newScriptTransport(), obs)

	f, err := r.ReadFrame(10 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, f.TimedOut)
	assert.Empty(t, f.Payload)
	assert.Equal(t, 10, *sleeps)
	assert.Equal(t, 1, obs.timeouts)
	require.Len(t, obs.received, 1)
}

func TestReader_ZeroTimeoutDoesNotSleep(t *testing.T) {
	r, sleeps := newTestReader(newScriptTransport(), nil)

	f, err := r.ReadFrame(0)
	require.NoError(t, err)
	assert.True(t, f.TimedOut)
	assert.Zero(t, *sleeps)
}

func TestReader_ReadsFramesInOrder(t *testing.T) {
	ack := mustEncodeAck(OpEnableConfig, 0, []byte{0x01, 0x00})
	report := EncodeReport(reportWith(sampleRecord))
	tr := newScriptTransport(ack, report)
	r, _ := newTestReader(tr, nil)

	f, err := r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.True(t, f.IsAck())
	assert.Equal(t, len(ack), tr.consumed)

	f, err = r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.True(t, f.IsReport())
	assert.Equal(t, len(ack)+len(report), tr.consumed)
}

func TestReader_TruncatedFrame(t *testing.T) {
	tr := newScriptTransport([]byte{0xFD, 0xFC, 0xFB})
	r, _ := newTestReader(tr, nil)

	f, err := r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, KindMalformed, f.Kind)
	assert.False(t, f.TimedOut)
	assert.ErrorIs(t, f.Err, ErrTruncated)
	assert.ErrorIs(t, f.Err, ErrTimeout)
	assert.Equal(t, KindConfigAck, f.Attempted)
}

func TestReader_MalformedDoesNotSkipAhead(t *testing.T) {
	report := EncodeReport(reportWith())
	tr := newScriptTransport([]byte{0x00}, report)
	r, _ := newTestReader(tr, nil)

	f, err := r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, KindMalformed, f.Kind)
	assert.Equal(t, 1, tr.consumed)

	f, err = r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.True(t, f.IsReport())
}

func TestReader_PivotObserved(t *testing.T) {
	obs := &recordingObserver{}
	report := EncodeReport(reportWith(sampleRecord))
	r, _ := newTestReader(newScriptTransport([]byte{0xFD, 0xFC}, report), obs)

	f, err := r.ReadFrame(time.Millisecond)
	require.NoError(t, err)
	assert.True(t, f.IsReport())
	assert.Equal(t, 1, obs.pivots)
	assert.Equal(t, 1, r.Pivots())
}
