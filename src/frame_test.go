package elevator

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFrameEncodeDecode(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = string(rapid.SliceOfN(rapid.Byte(), 0, 1024).Draw(t, "payload"))

		var buf bytes.Buffer
		require.NoError(t, frame_send(&buf, payload))

		var decoded, err = frame_receive(&buf, MAX_FRAME_PAYLOAD)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame_send(&buf, ""))

	assert.Equal(t, []byte{0, 0}, buf.Bytes())

	var decoded, err = frame_receive(&buf, MAX_FRAME_PAYLOAD)
	require.NoError(t, err)
	assert.Equal(t, "", decoded)
}

func TestFrameTruncation(t *testing.T) {
	// A payload bigger than the receive buffer is truncated to
	// buffer size minus the terminator slot, and the stream stays
	// aligned for the next frame.
	var buf bytes.Buffer
	require.NoError(t, frame_send(&buf, strings.Repeat("x", 100)))
	require.NoError(t, frame_send(&buf, "SECOND"))

	var first, err1 = frame_receive(&buf, 16)
	require.NoError(t, err1)
	assert.Equal(t, strings.Repeat("x", 15), first)

	var second, err2 = frame_receive(&buf, 16)
	require.NoError(t, err2)
	assert.Equal(t, "SECOND", second)
}

func TestFrameEndOfStream(t *testing.T) {
	var buf bytes.Buffer

	var _, err = frame_receive(&buf, MAX_FRAME_PAYLOAD)
	assert.Equal(t, io.EOF, err)
}

func TestFrameShortPayload(t *testing.T) {
	// Header promises more than the stream delivers.
	var buf = bytes.NewBuffer([]byte{0, 10, 'a', 'b'})

	var _, err = frame_receive(buf, MAX_FRAME_PAYLOAD)
	assert.Error(t, err)
}

func TestFrameOversizeClamped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame_send(&buf, strings.Repeat("y", MAX_FRAME_PAYLOAD+1000)))

	var decoded, err = frame_receive(&buf, MAX_FRAME_PAYLOAD+2000)
	require.NoError(t, err)
	assert.Len(t, decoded, MAX_FRAME_PAYLOAD)
}
