// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// strict returns a copy of d that treats timeouts as failures.
func strict(d *CommandDescriptor) *CommandDescriptor {
	c := *d
	c.TimeoutIsSuccess = false
	return &c
}

// ============================================================
// Correlator Tests
// ============================================================

func TestClient_EnableConfigAck(t *testing.T) {
	tr := newScriptTransport([]byte{
		0xFD, 0xFC, 0xFB, 0xFA, 0x06, 0x00, 0xFF, 0x01, 0x00, 0x00, 0x00, 0x00, 0x04, 0x03, 0x02, 0x01,
	})
	c := newTestClient(tr, DefaultOptions())

	ack, err := c.SendCommand(context.Background(), CmdEnableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00, 0x00, 0x00}, ack)
	assert.Equal(t, []byte{
		0xFD, 0xFC, 0xFB, 0xFA, 0x04, 0x00, 0xFF, 0x00, 0x01, 0x00, 0x04, 0x03, 0x02, 0x01,
	}, tr.written.Bytes())
}

func TestClient_TimeoutIsSuccess(t *testing.T) {
	tr := newScriptTransport()
	c := newTestClient(tr, DefaultOptions())

	ack, err := c.Execute(context.Background(), CmdEnableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00}, ack)
	assert.Equal(t, 1, tr.writes)
}

func TestClient_TimeoutUnboundedBlocksUntilCancelled(t *testing.T) {
	c := newTestClient(newScriptTransport(), Options{Retry: RetryPolicy{}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Execute(ctx, strict(CmdEnableConfig))
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Execute returned on a silent line: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Execute ignored cancellation")
	}
}

func TestClient_TimeoutUnboundedHonoursDeadline(t *testing.T) {
	c := newTestClient(newScriptTransport(), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SendCommand(ctx, strict(CmdEnableConfig))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_TimeoutBounded(t *testing.T) {
	obs := &recordingObserver{}
	tr := newScriptTransport()
	c := newTestClient(tr, Options{
		Observer: obs,
		Retry:    RetryPolicy{MaxAttempts: 2, MaxWaits: 3},
	})

	_, err := c.SendCommand(context.Background(), strict(CmdEnableConfig))
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, tr.writes)
	assert.Equal(t, 6, obs.timeouts)
	assert.Equal(t, 1, obs.retries)
}

func TestClient_RadarResumeConsumesOneReport(t *testing.T) {
	report := EncodeReport(reportWith(sampleRecord))
	tr := newScriptTransport(report, report)
	c := newTestClient(tr, DefaultOptions())

	require.NoError(t, c.ExitConfigMode(context.Background()))
	assert.Equal(t, len(report), tr.consumed)
	assert.Equal(t, 1, tr.writes)
}

func TestClient_RadarResumeSynthesizedAck(t *testing.T) {
	tr := newScriptTransport(EncodeReport(reportWith()))
	c := newTestClient(tr, DefaultOptions())

	ack, err := c.Execute(context.Background(), CmdDisableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0x01, 0x00, 0x00}, ack)
}

func TestClient_DiscardsReportChatter(t *testing.T) {
	obs := &recordingObserver{}
	report := EncodeReport(reportWith(sampleRecord))
	ack := mustEncodeAck(OpEnableConfig, 0, []byte{0x01, 0x00})
	c := newTestClient(newScriptTransport(report, report, ack), Options{Observer: obs, Retry: DefaultRetryPolicy()})

	got, err := c.SendCommand(context.Background(), CmdEnableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00, 0x01, 0x00}, got)
	require.Len(t, obs.discarded, 2)
	assert.ErrorIs(t, obs.discarded[0], ErrWrongFrameKind)
}

func TestClient_DiscardsStaleAck(t *testing.T) {
	obs := &recordingObserver{}
	stale := mustEncodeAck(OpGetMAC, 0, []byte{1, 2, 3, 4, 5, 6})
	ack := mustEncodeAck(OpEnableConfig, 0, nil)
	c := newTestClient(newScriptTransport(stale, ack), Options{Observer: obs, Retry: DefaultRetryPolicy()})

	got, err := c.SendCommand(context.Background(), CmdEnableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00}, got)
	require.Len(t, obs.discarded, 1)
	assert.ErrorIs(t, obs.discarded[0], ErrWrongFrameKind)
}

func TestClient_AllowMalformedAcceptsDamagedPostamble(t *testing.T) {
	ack := mustEncodeAck(OpEnableConfig, 0, nil)
	ack[len(ack)-1] = 0x00
	c := newTestClient(newScriptTransport(ack), DefaultOptions())

	got, err := c.Execute(context.Background(), CmdEnableConfig)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00}, got)
}

func TestClient_AllowMalformedRejectsDamagedPreamble(t *testing.T) {
	obs := &recordingObserver{}
	ack := mustEncodeAck(OpEnableConfig, 0, nil)
	ack[2] = 0x00
	c := newTestClient(newScriptTransport(ack), Options{Observer: obs, Retry: RetryPolicy{MaxWaits: 2}})

	_, err := c.Execute(context.Background(), strict(CmdEnableConfig))
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.NotEmpty(t, obs.discarded)
	assert.ErrorIs(t, obs.discarded[0], ErrWrongFrameKind)
}

func TestClient_MalformedDiscardedWhenNotAllowed(t *testing.T) {
	obs := &recordingObserver{}
	damaged := mustEncodeAck(OpEnableConfig, 0, nil)
	damaged[len(damaged)-1] = 0x00
	good := mustEncodeAck(OpEnableConfig, 0, nil)

	d := strict(CmdEnableConfig)
	d.AllowMalformed = false
	c := newTestClient(newScriptTransport(damaged, good), Options{Observer: obs, Retry: DefaultRetryPolicy()})

	got, err := c.Execute(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x00, 0x00}, got)
	require.Len(t, obs.discarded, 1)
	assert.ErrorIs(t, obs.discarded[0], ErrBadPostamble)
}

func TestClient_CommandErrorRetriedThenExhausted(t *testing.T) {
	obs := &recordingObserver{}
	tr := newScriptTransport()
	tr.respond = func(op Opcode, _ []byte) []byte {
		return mustEncodeAck(op, 0x0001, nil)
	}
	c := newTestClient(tr, Options{Observer: obs, Retry: RetryPolicy{MaxAttempts: 3, MaxWaits: 5}})

	_, err := c.SendCommand(context.Background(), CmdFactoryReset)
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, OpFactoryReset.Ack(), cmdErr.Opcode)
	assert.Equal(t, uint16(1), cmdErr.Status)
	assert.Equal(t, 3, tr.writes)
	assert.Equal(t, 2, obs.retries)
}

func TestClient_CommandErrorRecovers(t *testing.T) {
	tr := newScriptTransport()
	calls := 0
	tr.respond = func(op Opcode, _ []byte) []byte {
		calls++
		if calls == 1 {
			return mustEncodeAck(op, 0x0001, nil)
		}
		return mustEncodeAck(op, 0, nil)
	}
	c := newTestClient(tr, DefaultOptions())

	require.NoError(t, c.Restart(context.Background()))
	assert.Equal(t, 2, tr.writes)
}

func TestClient_TransportWriteFailure(t *testing.T) {
	c := newTestClient(&failingWriter{}, DefaultOptions())

	_, err := c.SendCommand(context.Background(), CmdEnableConfig)
	require.ErrorIs(t, err, errWriteFailed)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

var errWriteFailed = errors.New("write failed")

type failingWriter struct{ scriptTransport }

func (*failingWriter) Write([]byte) (int, error) { return 0, errWriteFailed }

// ============================================================
// Catalog Operation Tests
// ============================================================

func TestClient_MACAddress(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(map[Opcode][]byte{
		OpGetMAC: {0x8F, 0x27, 0x2E, 0xB8, 0x0F, 0x65},
	})
	c := newTestClient(tr, DefaultOptions())

	mac, err := c.MACAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8F:27:2E:B8:0F:65", mac.String())
	assert.Equal(t, []byte{0xA5, 0x00, 0x01, 0x00}, tr.written.Bytes()[6:10])
}

func TestClient_MACAddressFiveByteAnswer(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(map[Opcode][]byte{
		OpGetMAC: {0x8F, 0x27, 0x2E, 0xB8, 0x0F},
	})
	c := newTestClient(tr, DefaultOptions())

	mac, err := c.MACAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8F:27:2E:B8:0F:00", mac.String())
	assert.Equal(t, 1, tr.writes)
}

func TestClient_MACAddressSilentLineRetries(t *testing.T) {
	tr := newScriptTransport()
	c := newTestClient(tr, Options{Retry: RetryPolicy{MaxAttempts: 2, MaxWaits: 1}})

	_, err := c.MACAddress(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, ErrShortResponse)
	assert.Equal(t, 2, tr.writes)
}

func TestClient_ReadTrackingMode(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(map[Opcode][]byte{OpReadTrackingMode: {0x02, 0x00}})
	c := newTestClient(tr, DefaultOptions())

	mode, err := c.ReadTrackingMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TrackingMulti, mode)
}

func TestClient_SetTrackingMode(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(nil)
	c := newTestClient(tr, DefaultOptions())

	require.NoError(t, c.SetTrackingMode(context.Background(), TrackingSingle))
	assert.Equal(t, []byte{0x80, 0x00}, tr.written.Bytes()[6:8])

	require.Error(t, c.SetTrackingMode(context.Background(), TrackingMode(7)))
}

func TestClient_SetBaudRate(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(nil)
	c := newTestClient(tr, DefaultOptions())

	require.NoError(t, c.SetBaudRate(context.Background(), Baud115200))
	assert.Equal(t, []byte{0xA1, 0x00, 0x05, 0x00}, tr.written.Bytes()[6:10])

	require.Error(t, c.SetBaudRate(context.Background(), AvailableBaudRate(0x42)))
	assert.Equal(t, 1, tr.writes)
}

func TestClient_SetBluetooth(t *testing.T) {
	tr := newScriptTransport()
	tr.respond = ackResponder(nil)
	c := newTestClient(tr, DefaultOptions())

	require.NoError(t, c.SetBluetooth(context.Background(), false))
	assert.Equal(t, []byte{0xA4, 0x00, 0x00, 0x00}, tr.written.Bytes()[6:10])
}

func TestClient_ZoneConfigurationStub(t *testing.T) {
	tr := newScriptTransport()
	c := newTestClient(tr, DefaultOptions())

	zc, err := c.ZoneConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ZoneFilterDisabled, zc.Type)
	assert.Zero(t, tr.writes)
}

func TestClient_ZoneConfigurationLive(t *testing.T) {
	data := []byte{
		0x01, 0x00,
		0xE8, 0x03, 0xE8, 0x03, 0x18, 0xFC, 0x88, 0x13,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	tr := newScriptTransport()
	tr.respond = ackResponder(map[Opcode][]byte{OpGetZoneFilter: data})
	opts := DefaultOptions()
	opts.LiveZones = true
	c := newTestClient(tr, opts)

	zc, err := c.ZoneConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ZoneFilterDetectOnly, zc.Type)
	assert.Equal(t, ZoneRegion{Start: ZoneVertex{1000, 1000}, End: ZoneVertex{-1000, 5000}}, zc.Regions[0])
	assert.True(t, zc.Regions[1].IsZero())
}

func TestClient_WithConfigMode(t *testing.T) {
	obs := &recordingObserver{}
	tr := newScriptTransport()
	tr.respond = ackResponder(nil)
	c := newTestClient(tr, Options{Observer: obs, Retry: DefaultRetryPolicy()})

	fnErr := errors.New("boom")
	err := c.WithConfigMode(context.Background(), func(ctx context.Context) error {
		require.NoError(t, c.Restart(ctx))
		return fnErr
	})
	require.ErrorIs(t, err, fnErr)
	assert.Equal(t, []Opcode{OpEnableConfig, OpRestart, OpDisableConfig}, obs.sent)
}

// ============================================================
// Tracking Tests
// ============================================================

func TestClient_ReadTrackingGroup(t *testing.T) {
	ack := mustEncodeAck(OpDisableConfig, 0, nil)
	report := EncodeReport(reportWith(nil, sampleRecord))
	c := newTestClient(newScriptTransport(ack, report), DefaultOptions())

	g, err := c.ReadTrackingGroup(100 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, g.IsEmpty())
	assert.False(t, g.Targets[0].Present)
	assert.Equal(t, 782, g.Targets[1].X)
}

func TestClient_ReadTrackingGroupTimeout(t *testing.T) {
	c := newTestClient(newScriptTransport(), DefaultOptions())

	_, err := c.ReadTrackingGroup(5 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}
