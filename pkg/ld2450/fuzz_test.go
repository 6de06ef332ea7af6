// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame returns an encoded frame and the payload it should decode to.
func randomFrame(rng *rand.Rand) (FrameKind, []byte, []byte) {
	if rng.Intn(2) == 0 {
		var payload [ReportPayloadSize]byte
		rng.Read(payload[:])
		return KindTrackingReport, EncodeReport(payload), payload[:]
	}

	data := make([]byte, rng.Intn(MaxCommandData+1))
	rng.Read(data)
	op := Opcode(rng.Intn(0x10000))
	frame, err := EncodeCommand(op, data)
	if err != nil {
		panic(err)
	}
	b := op.Bytes()
	return KindConfigAck, frame, append(b[:], data...)
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

func TestFuzz_FrameStreamRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		count := 1 + rng.Intn(5)
		kinds := make([]FrameKind, count)
		payloads := make([][]byte, count)
		var stream []byte
		for i := 0; i < count; i++ {
			var frame []byte
			kinds[i], frame, payloads[i] = randomFrame(rng)
			stream = append(stream, frame...)
		}

		frames := decodeAll(NewDecoder(), stream)
		require.Len(t, frames, count, "round %d", round)
		for i, f := range frames {
			require.Equal(t, kinds[i], f.Kind, "round %d frame %d", round, i)
			require.Equal(t, payloads[i], f.Payload, "round %d frame %d", round, i)
		}
	}
}

func TestFuzz_RandomBytesNeverPanic(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for round := 0; round < rounds; round++ {
		data := make([]byte, 1+rng.Intn(128))
		rng.Read(data)
		// Bias towards framing bytes so deep states are reached.
		for i := range data {
			if rng.Intn(4) == 0 {
				data[i] = []byte{0xFD, 0xFC, 0xFB, 0xFA, 0xAA, 0xFF, 0x03, 0x00, 0x04, 0x55}[rng.Intn(10)]
			}
		}

		for _, b := range data {
			f, err := d.DecodeByte(b)
			if f == nil {
				continue
			}
			assert.LessOrEqual(t, len(f.Payload), MaxPayloadSize)
			if f.Kind == KindMalformed {
				assert.ErrorIs(t, err, ErrMalformed)
			} else {
				assert.NoError(t, err)
			}
		}
	}
}

func TestFuzz_ClientSurvivesNoise(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 10
	if rounds == 0 {
		rounds = 1
	}

	for round := 0; round < rounds; round++ {
		noise := make([]byte, rng.Intn(64))
		rng.Read(noise)
		// Keep noise from accidentally forming an acknowledgement.
		for i, b := range noise {
			if b == ConfigStartByte {
				noise[i] = 0x00
			}
		}
		ack := mustEncodeAck(OpEnableConfig, 0, nil)

		c := newTestClient(newScriptTransport(noise, ack), Options{Retry: RetryPolicy{MaxAttempts: 1, MaxWaits: 128}})
		got, err := c.Execute(testContext(t), strict(CmdEnableConfig))
		require.NoError(t, err, "round %d noise % X", round, noise)
		require.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00}, got)
	}
}
