package athena

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	testWaitFor = 5 * time.Second
	testTick    = 20 * time.Millisecond
)

// testCodec frames messages with a 4-byte header: version, packet type,
// and the big-endian total length, header included. Decode yields the
// body as a RawMessage. A packet type of 0xFF is declared undecodable to
// exercise the decode-failure path.
type testCodec struct{}

const testHeaderLength = 4

func (testCodec) HeaderLength() int { return testHeaderLength }

func (testCodec) PacketLength(header []byte) (int, error) {
	if header[0] != 1 {
		return 0, errors.New("testcodec: bad version")
	}
	return int(binary.BigEndian.Uint16(header[2:4])), nil
}

func (testCodec) Decode(wire []byte) (Message, error) {
	if wire[1] == 0xFF {
		return nil, errors.New("testcodec: poisoned packet type")
	}
	body := make([]byte, len(wire)-testHeaderLength)
	copy(body, wire[testHeaderLength:])
	return RawMessage(body), nil
}

func encodeTestFrame(packetType byte, body []byte) []byte {
	wire := make([]byte, testHeaderLength+len(body))
	wire[0] = 1
	wire[1] = packetType
	binary.BigEndian.PutUint16(wire[2:4], uint16(len(wire)))
	copy(wire[testHeaderLength:], body)
	return wire
}

func newTestTCP(t *testing.T) *TCP {
	t.Helper()
	mod, err := NewTCP(
		WithCodec(testCodec{}),
		WithMetricSink(&metrics.BlackholeSink{}),
		WithLog(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)
	return mod
}

// newLinkPair wires two peer links over a non-blocking socketpair so
// receive/send semantics can be driven without real TCP.
func newLinkPair(t *testing.T, mod *TCP) (a, b *Link) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	links := make([]*Link, 2)
	for i, fd := range fds {
		require.NoError(t, unix.SetNonblock(fd, true))
		ep := newEndpoint(fd, mod.codec.HeaderLength())
		link := NewLink("pair", mod.send, mod.receive, mod.closeLink,
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		link.SetPrivateData(ep)
		link.SetEventFd(fd)
		links[i] = link
	}
	t.Cleanup(func() {
		links[0].Close()
		links[1].Close()
	})
	return links[0], links[1]
}

// rawWrite pushes bytes straight into the socket, bypassing the sender,
// to control exactly how fragmented the stream arrives.
func rawWrite(t *testing.T, l *Link, p []byte) {
	t.Helper()
	fd := linkEndpoint(l).fd
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		require.NoError(t, err)
		p = p[n:]
	}
}

// rawDrain reads whatever the socket currently holds.
func rawDrain(t *testing.T, l *Link) []byte {
	t.Helper()
	fd := linkEndpoint(l).fd
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			require.ErrorIs(t, err, unix.EAGAIN)
			return out
		}
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}
