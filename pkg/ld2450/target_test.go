// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTrackedObject_Documented(t *testing.T) {
	obj := DecodeTrackedObject(sampleRecord, DecodingDocumented)
	assert.Equal(t, TrackedObject{
		X:                  782,
		Y:                  1713,
		Speed:              -16,
		DistanceResolution: 320,
		Present:            true,
		Valid:              true,
	}, obj)
}

func TestDecodeTrackedObject_LegacySum(t *testing.T) {
	obj := DecodeTrackedObject(sampleRecord, DecodingLegacySum)
	assert.Equal(t, (0x0E+0x03)*256, obj.X)
	assert.Equal(t, (0xB1+0x86)*256, obj.Y)
	assert.Equal(t, (0xF0+0xFF)*256, obj.Speed)
	assert.Equal(t, (0x40+0x01)*256, obj.DistanceResolution)
	assert.True(t, obj.Present)
}

func TestDecodeTrackedObject_Absent(t *testing.T) {
	for _, decoding := range []CoordinateDecoding{DecodingDocumented, DecodingLegacySum} {
		obj := DecodeTrackedObject(make([]byte, TargetRecordSize), decoding)
		assert.Equal(t, TrackedObject{}, obj, decoding.String())
	}
}

func TestDecodeTrackedObject_InvalidPattern(t *testing.T) {
	tests := []struct {
		name   string
		record []byte
	}{
		{"x", []byte{0xFF, 0xFF, 0xB1, 0x86, 0x00, 0x00, 0x40, 0x01}},
		{"y", []byte{0x0E, 0x03, 0xFF, 0xFF, 0x00, 0x00, 0x40, 0x01}},
		{"speed", []byte{0x0E, 0x03, 0xB1, 0x86, 0xFF, 0xFF, 0x40, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := DecodeTrackedObject(tt.record, DecodingDocumented)
			assert.True(t, obj.Present)
			assert.False(t, obj.Valid)
		})
	}
}

func TestDecodeReport_Empty(t *testing.T) {
	g, err := DecodeReport(make([]byte, ReportPayloadSize), DecodingDocumented)
	require.NoError(t, err)
	assert.True(t, g.IsEmpty())
	assert.Zero(t, g.Count())
	assert.Equal(t, "", FormatGroup(g))
	assert.True(t, IsEmptyPayload(make([]byte, ReportPayloadSize)))
}

func TestDecodeReport_SingleNonZeroByte(t *testing.T) {
	for i := 0; i < ReportPayloadSize; i++ {
		payload := make([]byte, ReportPayloadSize)
		payload[i] = 0x01

		g, err := DecodeReport(payload, DecodingDocumented)
		require.NoError(t, err)
		assert.False(t, g.IsEmpty(), "byte %d", i)
		assert.Equal(t, 1, g.Count())
		assert.True(t, g.Targets[i/TargetRecordSize].Present)
		assert.False(t, IsEmptyPayload(payload))
	}
}

func TestDecodeReport_Slots(t *testing.T) {
	payload := reportWith(sampleRecord, nil, sampleRecord)
	g, err := DecodeReport(payload[:], DecodingDocumented)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Count())
	assert.True(t, g.Targets[0].Present)
	assert.False(t, g.Targets[1].Present)
	assert.True(t, g.Targets[2].Present)
}

func TestDecodeReport_WrongLength(t *testing.T) {
	_, err := DecodeReport(make([]byte, 23), DecodingDocumented)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestDecodeFrame(t *testing.T) {
	frames := decodeAll(NewDecoder(), EncodeReport(reportWith(sampleRecord)))
	require.Len(t, frames, 1)

	g, err := DecodeFrame(frames[0], DecodingDocumented)
	require.NoError(t, err)
	assert.Equal(t, frames[0].Timestamp, g.Timestamp)
	assert.Equal(t, 782, g.Targets[0].X)

	_, err = DecodeFrame(&Frame{Kind: KindConfigAck}, DecodingDocumented)
	assert.ErrorIs(t, err, ErrWrongFrameKind)
}

func TestParseCoordinateDecoding(t *testing.T) {
	tests := []struct {
		in      string
		want    CoordinateDecoding
		wantErr bool
	}{
		{"", DecodingDocumented, false},
		{"documented", DecodingDocumented, false},
		{"Legacy-Sum", DecodingLegacySum, false},
		{"legacy", DecodingLegacySum, false},
		{"bogus", DecodingDocumented, true},
	}

	for _, tt := range tests {
		got, err := ParseCoordinateDecoding(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
