package protocol

import "github.com/regenerativep/splinter-proxy/internal/wire"

// ConnState is the sub-protocol a schema's packet ids are interpreted
// against — the same raw id means different things in Handshake,
// Status, Login, and Play.
type ConnState int

const (
	StateHandshake ConnState = iota
	StateStatus
	StateLogin
	StatePlay
)

// Schema is a version's packet-schema capability set: the only thing
// the rest of the core knows about a concrete wire format. Direction
// distinguishes client->proxy from proxy/server->client
// framing, since the two directions can assign different packet ids to
// the same state.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

type Schema interface {
	// KindOf returns the cheap classification of a raw frame without
	// decoding its body.
	KindOf(state ConnState, dir Direction, f wire.RawFrame) PacketKind
	// Decode fully decodes a raw frame into a Packet variant.
	Decode(state ConnState, dir Direction, f wire.RawFrame) (Packet, error)
	// Encode serializes a Packet variant back into a raw frame.
	Encode(state ConnState, dir Direction, p Packet) (wire.RawFrame, error)
}
