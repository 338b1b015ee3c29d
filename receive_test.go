package athena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiveNothingAvailable(t *testing.T) {
	mod := newTestTCP(t)
	a, _ := newLinkPair(t, mod)

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
	require.Equal(t, uint64(1), linkEndpoint(a).stats.readWouldBlock)
}

func TestReceiveReassemblesFragmentedStream(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	body := []byte("interest: lci:/hello/world")
	wire := encodeTestFrame(7, body)

	// Feed the frame one byte at a time; every call before the last
	// byte must produce nothing, with no byte lost or duplicated.
	var got Message
	for i, by := range wire {
		rawWrite(t, b, []byte{by})
		msg, err := a.Receive()
		require.NoError(t, err)
		if i < len(wire)-1 {
			require.Nil(t, msg, "premature message after %d bytes", i+1)
		} else {
			got = msg
		}
	}
	require.NotNil(t, got)
	require.Equal(t, RawMessage(body), got)

	// Exactly one message, nothing trailing.
	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestReceivePersistsPartialBody(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	body := make([]byte, 512)
	for i := range body {
		body[i] = byte(i)
	}
	wire := encodeTestFrame(1, body)

	// Header plus half the body: receive must consume and buffer it.
	split := testHeaderLength + len(body)/2
	rawWrite(t, b, wire[:split])

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)

	ep := linkEndpoint(a)
	require.NotNil(t, ep.pending, "receive state must stay armed mid-body")
	require.Equal(t, split, ep.filled, "drained bytes must be retained")

	rawWrite(t, b, wire[split:])
	msg, err = a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage(body), msg)
	require.Nil(t, ep.pending)
}

func TestReceiveBackToBackFrames(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	first := encodeTestFrame(1, []byte("first"))
	second := encodeTestFrame(1, []byte("second"))
	rawWrite(t, b, append(append([]byte{}, first...), second...))

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage("first"), msg)

	msg, err = a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage("second"), msg)
}

func TestReceiveConfirmedEOF(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	require.NoError(t, b.Close())

	_, err := a.Receive()
	require.ErrorIs(t, err, ErrLinkEOF)
	require.NotZero(t, a.Events()&EventError)
}

func TestReceiveFramingErrorResync(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	// A header declaring a total below the fixed header length is a
	// framing error: the stream is drained but the link stays open.
	bad := []byte{1, 0, 0, 2}
	junk := append(bad, []byte("trailing garbage")...)
	rawWrite(t, b, junk)

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)

	ep := linkEndpoint(a)
	require.Equal(t, uint64(1), ep.stats.badMessageLength)

	// Subsequent well-formed frames flow again after the resync drain.
	rawWrite(t, b, encodeTestFrame(1, []byte("recovered")))
	msg, err = a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage("recovered"), msg)
}

func TestReceiveCodecLengthErrorDrains(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	// Version byte the codec refuses: same resync path as a bad length.
	rawWrite(t, b, []byte{9, 0, 0, 8, 'x', 'x', 'x', 'x'})

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
	require.Equal(t, uint64(1), linkEndpoint(a).stats.badMessageLength)
}

func TestReceiveDecodeFailureDropsMessageNotLink(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	rawWrite(t, b, encodeTestFrame(0xFF, []byte("poison")))

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
	require.Equal(t, uint64(1), linkEndpoint(a).stats.decodeFailed)

	rawWrite(t, b, encodeTestFrame(1, []byte("still alive")))
	msg, err = a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage("still alive"), msg)
}

func TestReceiveShortHeaderLeavesBytesPeekable(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	wire := encodeTestFrame(1, []byte("late header"))
	rawWrite(t, b, wire[:testHeaderLength-1])

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
	require.Equal(t, uint64(1), linkEndpoint(a).stats.headerReadFailure)

	rawWrite(t, b, wire[testHeaderLength-1:])
	msg, err = a.Receive()
	require.NoError(t, err)
	require.Equal(t, RawMessage("late header"), msg)
}

func TestReceiveAfterCloseFails(t *testing.T) {
	mod := newTestTCP(t)
	a, _ := newLinkPair(t, mod)

	require.NoError(t, a.Close())
	_, err := a.Receive()
	require.ErrorIs(t, err, ErrLinkClosed)

	// Idempotent close, no crash on repeated teardown.
	require.NoError(t, a.Close())
	require.Equal(t, -1, linkEndpoint(a).fd)
}

func TestReceiveEOFMidBody(t *testing.T) {
	mod := newTestTCP(t)
	a, b := newLinkPair(t, mod)

	wire := encodeTestFrame(1, make([]byte, 256))
	rawWrite(t, b, wire[:len(wire)/2])

	msg, err := a.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)

	// Peer dies with the frame half-delivered.
	require.NoError(t, b.Close())
	_, err = a.Receive()
	require.ErrorIs(t, err, ErrLinkEOF)
	require.NotZero(t, a.Events()&EventError)
}
