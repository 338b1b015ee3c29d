package athena

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// openConnection establishes an outbound peer link. Any step failure
// releases every partially constructed resource; no half-open socket
// survives an error.
func (t *TCP) openConnection(spec *connSpec) (*Link, error) {
	fd, err := newStreamSocket()
	if err != nil {
		return nil, fmt.Errorf("tcp: socket error: %w", err)
	}

	ep := newEndpoint(fd, t.codec.HeaderLength())
	ep.peer = *sockaddrFromAddrPort(netip.AddrPortFrom(spec.addr, spec.port))
	ep.hasPeer = true

	if err := unix.Connect(fd, &ep.peer); err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: connect error: %w", err)
	}
	if err := t.setSocketOptions(fd); err != nil {
		ep.close()
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: set non-blocking: %w", err)
	}

	// The kernel picked our local endpoint during connect; read it back
	// for the derived name and the locality check.
	sa, err := unix.Getsockname(fd)
	if err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: getsockname: %w", err)
	}
	local, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		ep.close()
		return nil, fmt.Errorf("tcp: getsockname returned a non-IPv4 address")
	}
	ep.local = *local

	derivedName := deriveLinkName(ep)
	name := spec.name
	if name == "" {
		name = derivedName
	}

	link := NewLink(name, t.send, t.receive, t.closeLink, t.logger)
	t.setConnectLinkState(link, ep)

	t.incr(MetricTCPLinkEstCount, LabelPeerAddr.M(ep.peerAddrPort().String()))
	t.logger.Info("new link established",
		LabelLinkName.L(name), "derived_name", derivedName, LabelLocal.L(link.IsLocal()))
	return link, nil
}
