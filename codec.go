package athena

// Message is one application message carried over a link. The wire
// representation is either a single contiguous buffer or a scatter list
// of segments; `Wire` returns it without copying.
type Message interface {
	Wire() [][]byte
}

// PacketCodec is the injected framing boundary. The engine itself never
// interprets packet contents: it only needs the fixed header length, the
// total packet length declared by a complete header, and a way to turn a
// fully assembled buffer into a Message.
type PacketCodec interface {
	// HeaderLength returns the protocol's fixed header size in bytes.
	HeaderLength() int

	// PacketLength extracts the total packet length (header included)
	// from a buffer holding at least HeaderLength bytes.
	PacketLength(header []byte) (int, error)

	// Decode turns a complete wire buffer of exactly the length reported
	// by PacketLength into a Message.
	Decode(wire []byte) (Message, error)
}

// RawMessage is the trivial single-buffer Message.
type RawMessage []byte

func (m RawMessage) Wire() [][]byte {
	return [][]byte{m}
}

// SegmentedMessage carries its wire form as a scatter list, typically
// produced by a codec that assembles header and body separately.
type SegmentedMessage [][]byte

func (m SegmentedMessage) Wire() [][]byte {
	return m
}
