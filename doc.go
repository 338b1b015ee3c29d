// Package athena implements the TCP transport-link engine of a
// packet-forwarding node: it maps TCP sockets onto the node's generic
// notion of a "link" over which length-framed messages flow.
//
// A `Link` is a named handle around exactly one OS socket. Two variants
// exist:
//
//   - a *peer link* represents one established point-to-point connection,
//     outbound-initiated or accepted, and carries send/receive/close
//     operations;
//   - a *listener link* is bound to a listening socket; it has no send
//     operation, and its receive operation accepts new peers and registers
//     a freshly cloned peer link with the external `LinkRegistry`.
//
// The engine is single-threaded and non-blocking by construction: every
// operation is meant to be invoked from an external poll/dispatch loop
// when the link's event fd signals readiness, and none of them block the
// calling loop beyond bounded retry loops. Receive tolerates arbitrarily
// fragmented input: partially arrived headers stay peekable, and partially
// read bodies are buffered against the link and resumed on the next call,
// never discarded.
//
// Wire framing is delegated to an injected `PacketCodec` which knows the
// fixed header length and how to extract the total packet length from it.
// `pkg/tlv` provides a ready-made fixed-header TLV codec.
//
// Transport modules are looked up through an explicit process-wide
// registry, see `RegisterModule`. The TCP module is constructed with
// `NewTCP` and opens links from `tcp://host:port[/flags...]` descriptors.
package athena
