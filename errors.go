package athena

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCfg        = errors.New("athena: invalid options")
	ErrModuleRegistered  = errors.New("athena: transport module already registered")
	ErrUnknownModule     = errors.New("athena: no transport module for scheme")
	ErrPlatformSupport   = errors.New("athena: no SIGPIPE suppression available on this platform")
	ErrInvalidDescriptor = errors.New("tcp: invalid connection descriptor")
	ErrHostResolve       = errors.New("tcp: could not resolve hostname")

	ErrLinkClosed      = errors.New("tcp: link is closed")
	ErrLinkEOF         = errors.New("tcp: end of stream")
	ErrPeerClosed      = errors.New("tcp: broken pipe, peer is gone")
	ErrNotRoutable     = errors.New("tcp: listener links cannot send")
	ErrWriteWouldBlock = errors.New("tcp: write would block, send must be resumed")
	ErrAcceptFailed    = errors.New("tcp: accept failed")
)

const (
	ClosedByUnknown ClosedBy = iota
	ClosedByUser
	ClosedByRemote
	ClosedByProtocol
)

// ClosedBy records which side (or condition) tore a link down.
type ClosedBy uint8

func (cause ClosedBy) String() string {
	switch cause {
	case ClosedByUser:
		return "explicit user close"
	case ClosedByRemote:
		return "remote"
	case ClosedByProtocol:
		return "protocol violation"
	default:
		return "unknown"
	}
}

// FramingError reports a structurally invalid frame: the total length
// declared by a fixed header was smaller than the header itself.
type FramingError struct {
	HeaderLength int
	PacketLength int
}

func (fe *FramingError) Error() string {
	return fmt.Sprintf("tcp: framing error: packet length %d below fixed header length %d",
		fe.PacketLength, fe.HeaderLength)
}
