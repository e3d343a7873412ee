package protocol

import "github.com/regenerativep/splinter-proxy/internal/wire"

// LazyDeserializedPacket carries either a raw frame or a decoded Packet
// variant, decoding at most once and caching the result. Relay passes
// uninterested in a packet's contents call only Kind and
// never pay the decode cost.
type LazyDeserializedPacket struct {
	schema  Schema
	state   ConnState
	dir     Direction
	raw     wire.RawFrame
	decoded Packet
	isDec   bool
}

func FromRawFrame(schema Schema, state ConnState, dir Direction, f wire.RawFrame) *LazyDeserializedPacket {
	return &LazyDeserializedPacket{schema: schema, state: state, dir: dir, raw: f}
}

func FromPacket(schema Schema, state ConnState, dir Direction, p Packet) *LazyDeserializedPacket {
	return &LazyDeserializedPacket{schema: schema, state: state, dir: dir, decoded: p, isDec: true}
}

// Kind is always available from the frame header without decoding.
func (p *LazyDeserializedPacket) Kind() PacketKind {
	if p.isDec {
		return p.decoded.Kind()
	}
	return p.schema.KindOf(p.state, p.dir, p.raw)
}

func (p *LazyDeserializedPacket) IsDecoded() bool { return p.isDec }

// Decode decodes the packet once and caches the result; subsequent calls
// return the cached variant.
func (p *LazyDeserializedPacket) Decode() (Packet, error) {
	if p.isDec {
		return p.decoded, nil
	}
	decoded, err := p.schema.Decode(p.state, p.dir, p.raw)
	if err != nil {
		return nil, err
	}
	p.decoded = decoded
	p.isDec = true
	return decoded, nil
}

// IntoRaw requires the packet to not yet be decoded. It panics
// otherwise: callers that may have decoded should use IsDecoded first,
// or use Encode to get bytes unconditionally.
func (p *LazyDeserializedPacket) IntoRaw() wire.RawFrame {
	if p.isDec {
		panic("protocol: IntoRaw called on a decoded packet")
	}
	return p.raw
}

func (p *LazyDeserializedPacket) IntoDecoded() Packet {
	if !p.isDec {
		panic("protocol: IntoDecoded called on a non-decoded packet")
	}
	return p.decoded
}

// Mutate replaces the decoded variant in place, forcing a decode first
// if necessary. Used by relay passes that rewrite fields.
func (p *LazyDeserializedPacket) Mutate(fn func(Packet) Packet) error {
	cur, err := p.Decode()
	if err != nil {
		return err
	}
	p.decoded = fn(cur)
	return nil
}

// Encode returns the frame to put on the wire: the raw frame verbatim if
// never decoded, or a freshly re-encoded frame if decoded/mutated.
func (p *LazyDeserializedPacket) Encode() (wire.RawFrame, error) {
	if !p.isDec {
		return p.raw, nil
	}
	return p.schema.Encode(p.state, p.dir, p.decoded)
}
