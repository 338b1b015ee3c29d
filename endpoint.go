package athena

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

// tcpStats are advisory, monotonically increasing per-link counters.
// They never influence behavior.
type tcpStats struct {
	headerReadFailure uint64
	badMessageLength  uint64
	readError         uint64
	readWouldBlock    uint64
	shortRead         uint64
	shortWrite        uint64
	decodeFailed      uint64
}

// endpoint is the per-link private state: it exclusively owns one OS
// socket plus the byte-level protocol state persisted across calls.
type endpoint struct {
	fd    int
	local unix.SockaddrInet4
	peer  unix.SockaddrInet4

	// hasPeer is false for listener endpoints, which have no remote.
	hasPeer bool

	stats tcpStats

	// hdr is the fixed-size header peek buffer; body is an owned
	// growable buffer reused across messages. pending, when non-nil,
	// aliases body[:totalLength] and holds a partially assembled frame
	// whose first filled bytes have already been drained from the
	// socket.
	hdr     []byte
	body    []byte
	pending []byte
	filled  int

	// unsent holds bytes accepted by Send but not yet written to the
	// kernel. They are flushed, never re-sent, on subsequent calls.
	unsent []byte
}

func newEndpoint(fd int, headerLength int) *endpoint {
	return &endpoint{
		fd:  fd,
		hdr: make([]byte, headerLength),
	}
}

// close releases the socket exactly once.
func (ep *endpoint) close() {
	if ep.fd >= 0 {
		unix.Close(ep.fd)
		ep.fd = -1
	}
	ep.pending = nil
	ep.unsent = nil
	ep.filled = 0
}

// frameBuffer hands out the reusable body buffer grown to exactly
// totalLength, arming the awaiting-body receive state.
func (ep *endpoint) frameBuffer(totalLength int) []byte {
	if cap(ep.body) < totalLength {
		ep.body = make([]byte, totalLength)
	}
	ep.pending = ep.body[:totalLength]
	ep.filled = 0
	return ep.pending
}

// resetFrame returns the receive state machine to awaiting-header.
func (ep *endpoint) resetFrame() {
	ep.pending = nil
	ep.filled = 0
}

func (ep *endpoint) isLocalPair() bool {
	return ep.hasPeer && ep.peer.Addr == ep.local.Addr
}

func (ep *endpoint) localAddrPort() netip.AddrPort {
	return sockaddrToAddrPort(&ep.local)
}

func (ep *endpoint) peerAddrPort() netip.AddrPort {
	if !ep.hasPeer {
		return netip.AddrPort{}
	}
	return sockaddrToAddrPort(&ep.peer)
}

func sockaddrToAddrPort(sa *unix.SockaddrInet4) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
}

func sockaddrFromAddrPort(ap netip.AddrPort) *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: int(ap.Port())}
	sa.Addr = ap.Addr().As4()
	return sa
}

// newStreamSocket creates the IPv4 stream socket every link variant is
// built on. The fd starts out blocking so connect(2) can complete
// synchronously; callers flip it non-blocking before handing it to the
// poll loop.
func newStreamSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

// linkEndpoint pulls the TCP private state back out of a generic link.
func linkEndpoint(l *Link) *endpoint {
	ep, _ := l.PrivateData().(*endpoint)
	return ep
}

// TCPAddrs reports the bound local and observed peer address of a link
// opened by the TCP module. The peer address is the zero AddrPort for
// listener links. ok is false when the link does not belong to this
// module.
func TCPAddrs(l *Link) (local, peer netip.AddrPort, ok bool) {
	ep := linkEndpoint(l)
	if ep == nil {
		return netip.AddrPort{}, netip.AddrPort{}, false
	}
	return ep.localAddrPort(), ep.peerAddrPort(), true
}
