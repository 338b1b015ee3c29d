package athena

import (
	"errors"

	"golang.org/x/sys/unix"
)

// receive is the receive operation bound to peer links. It is called by
// the owning poll loop whenever the link's fd is readable and never
// blocks: a (nil, nil) return means "nothing complete yet, call again on
// the next readiness signal".
//
// The frame state machine persists across calls on the endpoint:
// awaiting-header peeks the fixed header without consuming it, while
// awaiting-body resumes destructive reads into the partially filled
// frame buffer, so bytes already drained from the socket are never lost
// to a mid-body would-block.
func (t *TCP) receive(l *Link) (Message, error) {
	ep := linkEndpoint(l)

	if ep.pending == nil {
		proceed, err := t.receiveHeader(l, ep)
		if !proceed {
			return nil, err
		}
	}
	return t.receiveBody(l, ep)
}

// receiveHeader runs the awaiting-header half: a non-destructive peek of
// exactly the fixed header, EOF disambiguation on a zero peek, and
// framing validation of the declared total length. It reports whether a
// frame buffer was armed and body consumption should proceed.
func (t *TCP) receiveHeader(l *Link, ep *endpoint) (bool, error) {
	headerLength := len(ep.hdr)

	n, _, err := unix.Recvfrom(ep.fd, ep.hdr, unix.MSG_PEEK)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			ep.stats.readWouldBlock++
			t.incr(MetricTCPReadWouldBlockCount)
			return false, nil
		}
		// Transient peek errors do not tear the link down.
		ep.stats.readError++
		t.incr(MetricTCPReadErrorCount)
		l.Logger().Debug("read error", LabelError.L(err))
		return false, nil
	}

	// A zero peek is ambiguous between "no data" and "peer has hung up".
	if n == 0 {
		if t.linkIsEOF(l, ep) {
			l.SetEvent(EventError)
			l.SetCloseCause(ClosedByRemote)
			return false, ErrLinkEOF
		}
		return false, nil
	}

	// Short header peek: the bytes stay queued, retry later.
	if n < headerLength {
		ep.stats.headerReadFailure++
		t.incr(MetricTCPHeaderFailureCount)
		return false, nil
	}

	totalLength, err := t.codec.PacketLength(ep.hdr)
	if err == nil && totalLength < headerLength {
		err = &FramingError{HeaderLength: headerLength, PacketLength: totalLength}
	}
	if err != nil {
		// Framing error: drain to attempt a resync, keep the link open.
		ep.stats.badMessageLength++
		t.incr(MetricTCPBadMessageLength)
		l.Logger().Error("framing error, flushing link",
			"packet_length", totalLength, LabelError.L(err))
		ep.drain()
		return false, nil
	}

	ep.frameBuffer(totalLength)
	return true, nil
}

// receiveBody drains the socket into the armed frame buffer and decodes
// a completely assembled frame. Progress made before a would-block stays
// on the endpoint for the next call.
func (t *TCP) receiveBody(l *Link, ep *endpoint) (Message, error) {
	buf := ep.pending

	for ep.filled < len(buf) {
		n, err := unix.Read(ep.fd, buf[ep.filled:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				if ep.filled > 0 {
					ep.stats.shortRead++
					t.incr(MetricTCPShortReadCount)
				}
				return nil, nil
			}
			ep.stats.readError++
			t.incr(MetricTCPReadErrorCount)
			l.Logger().Debug("read error", LabelError.L(err))
			return nil, nil
		}
		if n == 0 {
			// Nothing available right now, or the peer vanished
			// mid-frame; disambiguate the same way the header path does.
			if t.linkIsEOF(l, ep) {
				l.SetEvent(EventError)
				l.SetCloseCause(ClosedByRemote)
				return nil, ErrLinkEOF
			}
			return nil, nil
		}
		ep.filled += n
		if ep.filled < len(buf) {
			ep.stats.shortRead++
			t.incr(MetricTCPShortReadCount)
		}
	}

	// The frame buffer is reused for the next message once Decode
	// returns; codecs keep their own copy of anything they retain.
	msg, err := t.codec.Decode(buf)
	ep.resetFrame()
	if err != nil {
		// A failed decode drops the message, not the link.
		ep.stats.decodeFailed++
		t.incr(MetricTCPDecodeFailedCount)
		l.Logger().Error("failed to decode message from received packet", LabelError.L(err))
		return nil, nil
	}

	t.incr(MetricTCPMsgInCount)
	t.add(MetricTCPMsgInBytes, float32(len(buf)))
	l.Logger().Debug("received message", "size", len(buf))
	return msg, nil
}

// linkIsEOF resolves the zero-read ambiguity of a non-blocking socket:
// if poll reports the fd readable but a one-byte peek still yields
// nothing, the peer has hung up.
func (t *TCP) linkIsEOF(l *Link, ep *endpoint) bool {
	pollFd := []unix.PollFd{{Fd: int32(ep.fd), Events: unix.POLLIN}}
	events, err := unix.Poll(pollFd, 0)
	if err != nil {
		l.Logger().Error("poll error", LabelError.L(err))
		return true
	}
	if events == 0 {
		// No pending events: it truly was a zero read.
		return false
	}
	if pollFd[0].Revents&unix.POLLIN != 0 {
		var probe [1]byte
		n, _, err := unix.Recvfrom(ep.fd, probe[:], unix.MSG_PEEK)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				ep.stats.readWouldBlock++
				t.incr(MetricTCPReadWouldBlockCount)
				return false
			}
			return true
		}
		if n == 0 {
			return true
		}
	}
	return false
}

// drain destructively reads until the socket has nothing left, a
// best-effort resync against a corrupted stream.
func (ep *endpoint) drain() {
	var trash [4096]byte
	for {
		n, err := unix.Read(ep.fd, trash[:])
		if err != nil || n < len(trash) {
			return
		}
	}
}
