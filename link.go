package athena

import (
	"io"
	"log/slog"
)

// SendFunc writes one message to the wire. A nil SendFunc marks a
// listener link, which never carries application traffic.
type SendFunc func(*Link, Message) error

// ReceiveFunc yields the next complete message, or (nil, nil) when no
// complete message is available yet. Listener links use it to accept.
type ReceiveFunc func(*Link) (Message, error)

// CloseFunc releases the link's socket and private state.
type CloseFunc func(*Link)

// LinkEvent is the bitmask of conditions a link reports to the poll loop
// that owns it.
type LinkEvent uint8

const (
	EventSend LinkEvent = 1 << iota
	EventReceive
	EventError
)

// Locality overrides the automatic local/non-local determination of a
// link, primarily for test harnesses.
type Locality int8

const (
	LocalityAuto   Locality = 0
	ForcedLocal    Locality = 1
	ForcedNonLocal Locality = -1
)

// Link is a named handle over exactly one transport endpoint. Peer and
// listener links are two variants of the same type, distinguished by
// whether a send operation and a peer address are present.
//
// A Link is owned by a single poll loop: the registry guarantees at most
// one active call per link at a time, so no internal locking happens.
type Link struct {
	name    string
	send    SendFunc
	receive ReceiveFunc
	closeFn CloseFunc

	closed   bool
	cause    ClosedBy
	eventFd  int
	events   LinkEvent
	local    bool
	routable bool
	forced   Locality

	// priv is the transport module's per-link state, opaque to the
	// registry that owns the link.
	priv any

	base   *slog.Logger
	logger *slog.Logger
}

// NewLink builds a link around an operation set. The logger may be nil,
// in which case slog.Default() is used.
func NewLink(name string, send SendFunc, receive ReceiveFunc, closeFn CloseFunc, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		name:     name,
		send:     send,
		receive:  receive,
		closeFn:  closeFn,
		eventFd:  -1,
		routable: true,
		base:     logger,
		logger:   logger.With(LabelLinkName.L(name)),
	}
}

// Clone derives a new link from a parent, inheriting its logger. The
// operation set is passed explicitly: an accepted peer link does not run
// the listener's accept operation.
func (l *Link) Clone(name string, send SendFunc, receive ReceiveFunc, closeFn CloseFunc) *Link {
	return &Link{
		name:     name,
		send:     send,
		receive:  receive,
		closeFn:  closeFn,
		eventFd:  -1,
		routable: true,
		forced:   l.forced,
		base:     l.base,
		logger:   l.base.With(LabelLinkName.L(name)),
	}
}

func (l *Link) Name() string { return l.name }

// Send writes one message, fully, to the link. It returns
// ErrWriteWouldBlock when the socket stalled mid-write; the bytes already
// handed to the kernel are never re-sent, and the remainder is flushed by
// the next Send call on the link.
func (l *Link) Send(msg Message) error {
	if l.closed {
		return ErrLinkClosed
	}
	if l.send == nil {
		return ErrNotRoutable
	}
	return l.send(l, msg)
}

// Receive yields the next complete message from the link, (nil, nil)
// when nothing is available yet, or an error wrapping ErrLinkEOF when
// the peer is confirmed gone. On a listener link it accepts a pending
// peer instead and always returns a nil message.
func (l *Link) Receive() (Message, error) {
	if l.closed {
		return nil, ErrLinkClosed
	}
	return l.receive(l)
}

// Close tears the link down. Closing is idempotent and safe at any
// point, including mid-receive: byte-level protocol state is simply
// discarded with the endpoint.
func (l *Link) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.cause == ClosedByUnknown {
		l.cause = ClosedByUser
	}
	if l.closeFn != nil {
		l.closeFn(l)
	}
	return nil
}

// SetCloseCause records why the link is going away; it is a no-op once a
// cause is known. Close defaults the cause to ClosedByUser.
func (l *Link) SetCloseCause(cause ClosedBy) {
	if l.cause == ClosedByUnknown {
		l.cause = cause
	}
}

func (l *Link) CloseCause() ClosedBy { return l.cause }

var _ io.Closer = (*Link)(nil)

// SetEvent marks conditions for the owning poll loop to act on.
func (l *Link) SetEvent(ev LinkEvent)   { l.events |= ev }
func (l *Link) ClearEvent(ev LinkEvent) { l.events &^= ev }
func (l *Link) Events() LinkEvent       { return l.events }

// SetEventFd registers the descriptor the poll loop should watch for
// this link. It must be set before the link is handed to the registry.
func (l *Link) SetEventFd(fd int) { l.eventFd = fd }
func (l *Link) EventFd() int      { return l.eventFd }

// IsLocal reports whether both endpoints share one address. A forced
// locality directive from the connection descriptor wins over the
// observed addresses.
func (l *Link) IsLocal() bool {
	switch l.forced {
	case ForcedLocal:
		return true
	case ForcedNonLocal:
		return false
	}
	return l.local
}

func (l *Link) SetLocal(local bool) { l.local = local }

// ForceLocal overrides locality determination.
func (l *Link) ForceLocal(forced Locality) { l.forced = forced }

// IsRoutable reports whether the link may carry forwarded messages.
// Listener links never are.
func (l *Link) IsRoutable() bool   { return l.routable }
func (l *Link) SetRoutable(r bool) { l.routable = r }

// SetPrivateData attaches transport-private per-link state.
func (l *Link) SetPrivateData(priv any) { l.priv = priv }
func (l *Link) PrivateData() any        { return l.priv }

// Logger returns the link's structured logger.
func (l *Link) Logger() *slog.Logger { return l.logger }

// LinkRegistry is the external owner of links: it runs the poll loop and
// decides link lifetime. The engine only hands it freshly accepted links.
type LinkRegistry interface {
	// RegisterAcceptedLink adds a peer link cloned from a listener.
	// On error the engine closes the clone and keeps the listener.
	RegisterAcceptedLink(parent, child *Link) error
}
