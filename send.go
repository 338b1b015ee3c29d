package athena

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// send is the send operation bound to peer links. The message's wire
// bytes, whether one contiguous buffer or a scatter list of segments,
// are written fully before a nil return.
//
// On a would-block mid-write the bytes already accepted by the kernel
// are recorded against the link and ErrWriteWouldBlock is returned; the
// next send call flushes the remainder first, so nothing is ever written
// twice and ordering holds. Passing a nil message just flushes.
func (t *TCP) send(l *Link, msg Message) error {
	ep := linkEndpoint(l)

	var size int
	if msg != nil {
		size = ep.enqueue(msg.Wire())
	}

	for len(ep.unsent) > 0 {
		n, err := writeRaw(ep.fd, ep.unsent)
		if err != nil {
			if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) {
				// Peer is gone; the link must be closed by the caller.
				l.SetEvent(EventError)
				l.SetCloseCause(ClosedByRemote)
				l.Logger().Error("send error", LabelError.L(err))
				return fmt.Errorf("%w: %w", ErrPeerClosed, err)
			}
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				ep.stats.shortWrite++
				t.incr(MetricTCPShortWriteCount)
				l.Logger().Debug("short write", "pending", len(ep.unsent))
				return ErrWriteWouldBlock
			}
			l.Logger().Error("send error", LabelError.L(err))
			return fmt.Errorf("tcp: send error: %w", err)
		}
		if n <= 0 {
			// A zero write: retry.
			ep.stats.shortWrite++
			t.incr(MetricTCPShortWriteCount)
			continue
		}
		if n < len(ep.unsent) {
			ep.stats.shortWrite++
			t.incr(MetricTCPShortWriteCount)
		}
		ep.unsent = ep.unsent[n:]
	}
	ep.unsent = nil

	if msg != nil {
		t.incr(MetricTCPMsgOutCount)
		t.add(MetricTCPMsgOutBytes, float32(size))
		l.Logger().Debug("sending message", "size", size)
	}
	return nil
}

// enqueue appends a message's wire form to the endpoint's unsent bytes
// and reports its total size. A single contiguous buffer with no backlog
// is referenced as-is to avoid the copy; scatter segments are flattened.
func (ep *endpoint) enqueue(segments [][]byte) int {
	var size int
	for _, seg := range segments {
		size += len(seg)
	}

	if len(ep.unsent) == 0 && len(segments) == 1 {
		seg := segments[0]
		// Full slice expression so a later enqueue cannot append into
		// the caller's array.
		ep.unsent = seg[:len(seg):len(seg)]
		return size
	}

	for _, seg := range segments {
		ep.unsent = append(ep.unsent, seg...)
	}
	return size
}
