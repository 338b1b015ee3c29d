// Package tlv provides a fixed-header packet codec for the transport
// engine: an 8-byte header carrying the total packet length, followed by
// an opaque TLV-encoded body this layer does not interpret.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jetboyjones/athena"
)

// FixedHeaderLength is the protocol constant for the fixed header size.
const FixedHeaderLength = 8

// Version is the schema version this codec emits.
const Version = 1

// MaxPacketLength bounds what a header may declare; larger frames are
// rejected before any buffer is allocated for them.
const MaxPacketLength = 64 * 1024

// Fixed header layout:
//
//	byte 0    version
//	byte 1    packet type
//	byte 2-3  packet length, big endian, header included
//	byte 4    hop limit
//	byte 5-6  reserved
//	byte 7    header length
const (
	offVersion      = 0
	offPacketType   = 1
	offPacketLength = 2
	offHopLimit     = 4
	offHeaderLength = 7
)

var (
	ErrHeaderShort  = errors.New("tlv: buffer below fixed header length")
	ErrBadVersion   = errors.New("tlv: unsupported schema version")
	ErrBadLength    = errors.New("tlv: header declares an impossible packet length")
	ErrTruncated    = errors.New("tlv: buffer shorter than declared packet length")
	ErrPayloadLarge = errors.New("tlv: payload exceeds maximum packet length")
)

// Packet is one decoded message. Wire renders it as a scatter list of
// header and payload, so sending never copies the payload.
type Packet struct {
	PacketType uint8
	HopLimit   uint8
	Payload    []byte
}

var _ athena.Message = (*Packet)(nil)

func (p *Packet) Wire() [][]byte {
	hdr := make([]byte, FixedHeaderLength)
	hdr[offVersion] = Version
	hdr[offPacketType] = p.PacketType
	binary.BigEndian.PutUint16(hdr[offPacketLength:], uint16(FixedHeaderLength+len(p.Payload)))
	hdr[offHopLimit] = p.HopLimit
	hdr[offHeaderLength] = FixedHeaderLength
	return [][]byte{hdr, p.Payload}
}

// Encode renders the packet as one contiguous wire buffer.
func Encode(p *Packet) ([]byte, error) {
	if FixedHeaderLength+len(p.Payload) > MaxPacketLength {
		return nil, ErrPayloadLarge
	}
	segments := p.Wire()
	wire := make([]byte, 0, FixedHeaderLength+len(p.Payload))
	for _, seg := range segments {
		wire = append(wire, seg...)
	}
	return wire, nil
}

// Codec implements athena.PacketCodec for the fixed-header framing.
type Codec struct{}

var _ athena.PacketCodec = Codec{}

func (Codec) HeaderLength() int { return FixedHeaderLength }

// PacketLength extracts the total packet length a complete fixed header
// declares. Version and bound violations are reported as errors so the
// engine treats the stream as corrupted.
func (Codec) PacketLength(header []byte) (int, error) {
	if len(header) < FixedHeaderLength {
		return 0, ErrHeaderShort
	}
	if header[offVersion] != Version {
		return 0, fmt.Errorf("%w: %d", ErrBadVersion, header[offVersion])
	}
	length := int(binary.BigEndian.Uint16(header[offPacketLength:]))
	if length > MaxPacketLength {
		return 0, fmt.Errorf("%w: %d", ErrBadLength, length)
	}
	return length, nil
}

// Decode turns a complete wire buffer into a Packet. The engine reuses
// the buffer afterwards, so the payload is copied out.
func (Codec) Decode(wire []byte) (athena.Message, error) {
	if len(wire) < FixedHeaderLength {
		return nil, ErrHeaderShort
	}
	if wire[offVersion] != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, wire[offVersion])
	}
	declared := int(binary.BigEndian.Uint16(wire[offPacketLength:]))
	if declared != len(wire) {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrTruncated, declared, len(wire))
	}
	headerLength := int(wire[offHeaderLength])
	if headerLength < FixedHeaderLength || headerLength > len(wire) {
		return nil, fmt.Errorf("%w: header length %d", ErrBadLength, headerLength)
	}

	payload := make([]byte, len(wire)-headerLength)
	copy(payload, wire[headerLength:])
	return &Packet{
		PacketType: wire[offPacketType],
		HopLimit:   wire[offHopLimit],
		Payload:    payload,
	}, nil
}
