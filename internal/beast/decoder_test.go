package beast

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// encode builds a wire message, doubling every 0x1A after the type byte.
func encode(messageType byte, timestamp uint64, signal byte, data []byte) []byte {
	body := make([]byte, 0, headerLen+len(data))
	for shift := 40; shift >= 0; shift -= 8 {
		body = append(body, byte(timestamp>>uint(shift)))
	}
	body = append(body, signal)
	body = append(body, data...)

	out := []byte{SyncByte, messageType}
	for _, b := range body {
		out = append(out, b)
		if b == SyncByte {
			out = append(out, SyncByte)
		}
	}
	return out
}

var (
	shortFrame = []byte{0x5D, 0x48, 0x4F, 0xDE, 0xA2, 0x48, 0xF5}
	longFrame  = []byte{0x8D, 0x48, 0x40, 0xD6, 0x20, 0x2C, 0xC3, 0x71, 0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x98}
)

func TestDecoder_ValidMessages(t *testing.T) {
	tests := []struct {
		name        string
		messageType byte
		data        []byte
	}{
		{"Mode S short", ModeS, shortFrame},
		{"Mode S long", ModeSLong, longFrame},
		{"Mode A/C", ModeAC, []byte{0x02, 0x34}},
		{"Status", ModeStatus, []byte{0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewDecoder(testLogger())

			messages, err := decoder.Decode(encode(tt.messageType, 0x010203040506, 0x80, tt.data))
			require.NoError(t, err)
			require.Len(t, messages, 1)

			msg := messages[0]
			assert.Equal(t, tt.messageType, msg.MessageType)
			assert.Equal(t, uint64(0x010203040506), msg.Timestamp)
			assert.Equal(t, byte(0x80), msg.Signal)
			assert.Equal(t, tt.data, msg.Data)
			assert.Len(t, msg.Data, payloadLength(tt.messageType))
			assert.Equal(t, 1, decoder.Stats().Messages)
		})
	}
}

func TestDecoder_EscapedBytes(t *testing.T) {
	data := []byte{0x8D, 0x1A, 0x1A, 0x00, 0x1A, 0x2C, 0xC3, 0x71, 0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x1A}
	wire := encode(ModeSLong, 0x1A0000001A1A, 0x1A, data)

	decoder := NewDecoder(testLogger())
	messages, err := decoder.Decode(wire)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, uint64(0x1A0000001A1A), messages[0].Timestamp)
	assert.Equal(t, byte(0x1A), messages[0].Signal)
	assert.Equal(t, data, messages[0].Data)
	assert.Zero(t, decoder.Stats().Resyncs)
}

func TestDecoder_SplitAcrossReads(t *testing.T) {
	wire := append(encode(ModeSLong, 7, 1, longFrame), encode(ModeS, 8, 2, shortFrame)...)

	for split := 1; split < len(wire); split++ {
		decoder := NewDecoder(testLogger())

		first, err := decoder.Decode(wire[:split])
		require.NoError(t, err)
		second, err := decoder.Decode(wire[split:])
		require.NoError(t, err)

		messages := append(first, second...)
		require.Len(t, messages, 2, "split at %d", split)
		assert.Equal(t, longFrame, messages[0].Data)
		assert.Equal(t, shortFrame, messages[1].Data)
	}
}

func TestDecoder_SkipsGarbage(t *testing.T) {
	wire := append([]byte{0x00, 0xFF, 0x12}, encode(ModeS, 1, 1, shortFrame)...)

	decoder := NewDecoder(testLogger())
	messages, err := decoder.Decode(wire)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 3, decoder.Stats().Discarded)
}

func TestDecoder_UnknownType(t *testing.T) {
	wire := append([]byte{SyncByte, 0x39, 0x01}, encode(ModeS, 1, 1, shortFrame)...)

	decoder := NewDecoder(testLogger())
	messages, err := decoder.Decode(wire)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, shortFrame, messages[0].Data)
	assert.Equal(t, 1, decoder.Stats().Resyncs)
}

func TestDecoder_TruncatedMessageResyncs(t *testing.T) {
	truncated := encode(ModeSLong, 5, 1, longFrame)[:5]
	wire := append(truncated, encode(ModeS, 9, 3, shortFrame)...)

	decoder := NewDecoder(testLogger())
	messages, err := decoder.Decode(wire)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, byte(ModeS), messages[0].MessageType)
	assert.Equal(t, uint64(9), messages[0].Timestamp)
	assert.Equal(t, shortFrame, messages[0].Data)
	assert.Equal(t, 1, decoder.Stats().Resyncs)
}

func TestDecoder_ReceivedClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	decoder := NewDecoder(testLogger())
	decoder.now = func() time.Time { return fixed }

	messages, err := decoder.Decode(encode(ModeS, 1, 1, shortFrame))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, fixed, messages[0].Received)
}

func TestDecoder_Scan(t *testing.T) {
	var wire []byte
	for i := 0; i < 50; i++ {
		wire = append(wire, encode(ModeSLong, uint64(i), byte(i), longFrame)...)
	}
	wire = append(wire, SyncByte, ModeS, 0x00)

	decoder := NewDecoder(testLogger())
	var timestamps []uint64
	err := decoder.Scan(context.Background(), iotest.OneByteReader(bytes.NewReader(wire)), func(msg *Message) error {
		timestamps = append(timestamps, msg.Timestamp)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, timestamps, 50)
	assert.Equal(t, uint64(49), timestamps[49])
	assert.Equal(t, 3, decoder.Stats().Discarded)
}

func TestDecoder_ScanStops(t *testing.T) {
	wire := append(encode(ModeS, 1, 1, shortFrame), encode(ModeS, 2, 1, shortFrame)...)
	stop := errors.New("stop")

	decoder := NewDecoder(testLogger())
	calls := 0
	err := decoder.Scan(context.Background(), bytes.NewReader(wire), func(*Message) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewDecoder(testLogger()).Scan(ctx, bytes.NewReader(wire), func(*Message) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecoder_ScanReadError(t *testing.T) {
	boom := errors.New("boom")
	err := NewDecoder(testLogger()).Scan(context.Background(), iotest.ErrReader(boom), func(*Message) error { return nil })
	assert.ErrorIs(t, err, boom)
}

func TestMessage_Accessors(t *testing.T) {
	msg := &Message{MessageType: ModeSLong, Timestamp: 12000000, Signal: 255, Data: longFrame}
	assert.True(t, msg.IsModeS())
	assert.Equal(t, time.Second, msg.Elapsed())
	assert.InDelta(t, 1.0, msg.SignalLevel(), 1e-9)

	quiet := &Message{MessageType: ModeS, Signal: 0}
	assert.True(t, quiet.IsModeS())
	assert.Zero(t, quiet.SignalLevel())
	assert.Zero(t, quiet.Elapsed())

	ac := &Message{MessageType: ModeAC, Data: []byte{0x02, 0x34}}
	assert.False(t, ac.IsModeS())
}
