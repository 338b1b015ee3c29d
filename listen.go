package athena

import (
	"errors"
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// openListener binds a non-blocking listening socket and wraps it in a
// non-routable listener link whose receive operation accepts peers.
func (t *TCP) openListener(spec *connSpec) (*Link, error) {
	fd, err := newStreamSocket()
	if err != nil {
		return nil, fmt.Errorf("tcp: socket error: %w", err)
	}

	ep := newEndpoint(fd, t.codec.HeaderLength())
	ep.local = *sockaddrFromAddrPort(netip.AddrPortFrom(spec.addr, spec.port))

	if err := t.setSocketOptions(fd); err != nil {
		ep.close()
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: set non-blocking: %w", err)
	}
	if err := unix.Bind(fd, &ep.local); err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: bind error: %w", err)
	}
	if err := unix.Listen(fd, t.backlog); err != nil {
		ep.close()
		return nil, fmt.Errorf("tcp: listen error: %w", err)
	}

	// Re-read the bound address: the requested one may have carried a
	// wildcard port.
	if sa, err := unix.Getsockname(fd); err == nil {
		if local, ok := sa.(*unix.SockaddrInet4); ok {
			ep.local = *local
		}
	}

	derivedName := deriveLinkName(ep)
	name := spec.name
	if name == "" {
		name = derivedName
	}

	// A listener has no send operation; its receive operation
	// establishes new links and its fd only ever signals accepts.
	link := NewLink(name, nil, t.acceptAndRegister, t.closeLink, t.logger)
	link.SetPrivateData(ep)
	link.SetEventFd(fd)

	// Listener links never route application messages.
	link.SetRoutable(false)

	t.logger.Info("new listener established",
		LabelLinkName.L(name), "derived_name", derivedName)
	return link, nil
}

// acceptAndRegister is the receive operation of listener links: it
// accepts one pending peer, clones a routable link around it, and hands
// the clone to the external registry. It never yields a message.
func (t *TCP) acceptAndRegister(listener *Link) (Message, error) {
	lep := linkEndpoint(listener)

	nfd, sa, err := unix.Accept(lep.fd)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil, nil
		}
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("accept"))
		listener.Logger().Error("accept failed", LabelError.L(err))
		return nil, fmt.Errorf("%w: %w", ErrAcceptFailed, err)
	}

	nep := newEndpoint(nfd, t.codec.HeaderLength())
	peer, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		nep.close()
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("peer_addr"))
		return nil, fmt.Errorf("%w: non-IPv4 peer", ErrAcceptFailed)
	}
	nep.peer = *peer
	nep.hasPeer = true

	if err := unix.SetNonblock(nfd, true); err != nil {
		nep.close()
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("nonblock"))
		return nil, fmt.Errorf("%w: %w", ErrAcceptFailed, err)
	}
	if err := setNoSigpipe(nfd); err != nil {
		nep.close()
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("nosigpipe"))
		return nil, fmt.Errorf("%w: %w", ErrAcceptFailed, err)
	}

	// The listening address may have been wildcarded; the accepted fd
	// knows the real local endpoint.
	nep.local = lep.local
	if bound, err := unix.Getsockname(nfd); err == nil {
		if local, ok := bound.(*unix.SockaddrInet4); ok {
			nep.local = *local
		}
	}

	derivedName := deriveLinkName(nep)
	child := listener.Clone(derivedName, t.send, t.receive, t.closeLink)
	t.setConnectLinkState(child, nep)

	if t.registry == nil {
		nep.close()
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("no_registry"))
		listener.Logger().Error("accepted a peer with no registry to own it",
			LabelPeerAddr.L(nep.peerAddrPort().String()))
		return nil, nil
	}
	if err := t.registry.RegisterAcceptedLink(listener, child); err != nil {
		// Registration races are transient: drop the clone, keep the
		// listener.
		nep.close()
		t.incr(MetricTCPLinkAcceptErrorCount, LabelError.M("register"))
		listener.Logger().Error("registry rejected accepted link",
			LabelLinkName.L(derivedName), LabelError.L(err))
		return nil, nil
	}

	t.incr(MetricTCPLinkAcceptCount, LabelPeerAddr.M(nep.peerAddrPort().String()))
	listener.Logger().Info("new link accepted",
		LabelLinkName.L(derivedName), LabelLocal.L(child.IsLocal()))

	// No message travels up from an accept.
	return nil, nil
}

// closeLink releases the link's endpoint. Close is safe at any point in
// a multi-call receive: pending byte-level state goes with the endpoint.
func (t *TCP) closeLink(l *Link) {
	ep := linkEndpoint(l)
	if ep == nil {
		return
	}
	l.Logger().Info("link closed", "cause", l.CloseCause().String())
	t.incr(MetricTCPLinkClosedCount)
	ep.close()
}
