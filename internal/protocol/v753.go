package protocol

import (
	"bytes"
	"fmt"

	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// baselineSchema implements the v753 packet schema, also known as "the
// baseline schema"; 754 is schema-compatible and binds to the same type
// (Version.Schema).
type baselineSchema struct{}

// Wire ids, scoped per (state, direction) the way the real protocol
// scopes them; kept small and dense since this schema only needs to
// round-trip the packet variants protocol.Packet enumerates.
const (
	idHandshake = 0x00

	idStatusRequestSB  = 0x00
	idStatusPingSB     = 0x01
	idStatusResponseCB = 0x00
	idStatusPongCB     = 0x01

	idLoginStartSB      = 0x00
	idLoginSuccessCB    = 0x02
	idLoginDisconnectCB = 0x00

	idPlayKeepAliveCB    = 0x1f
	idPlaySpawnEntityCB  = 0x00
	idPlayEntityTeleCB   = 0x56
	idPlayTagsCB         = 0x5b
	idPlayDisconnectCB   = 0x19
	idPlayPositionSB     = 0x12
	idPlayKeepAliveSB    = 0x0f
)

func (baselineSchema) KindOf(state ConnState, dir Direction, f wire.RawFrame) PacketKind {
	switch state {
	case StateHandshake:
		if f.ID == idHandshake {
			return KindHandshake
		}
	case StateStatus:
		if dir == Serverbound {
			switch f.ID {
			case idStatusRequestSB:
				return KindStatusRequest
			case idStatusPingSB:
				return KindStatusPing
			}
		} else {
			switch f.ID {
			case idStatusResponseCB:
				return KindStatusResponse
			case idStatusPongCB:
				return KindStatusPong
			}
		}
	case StateLogin:
		if dir == Serverbound {
			if f.ID == idLoginStartSB {
				return KindLoginStart
			}
		} else {
			switch f.ID {
			case idLoginSuccessCB:
				return KindLoginSuccess
			case idLoginDisconnectCB:
				return KindLoginDisconnect
			}
		}
	case StatePlay:
		if dir == Serverbound {
			switch f.ID {
			case idPlayPositionSB:
				return KindPlayPlayerPosition
			case idPlayKeepAliveSB:
				return KindPlayKeepAliveServerbound
			}
		} else {
			switch f.ID {
			case idPlayKeepAliveCB:
				return KindPlayKeepAliveClientbound
			case idPlaySpawnEntityCB:
				return KindPlaySpawnEntity
			case idPlayEntityTeleCB:
				return KindPlayEntityTeleport
			case idPlayTagsCB:
				return KindPlayTags
			case idPlayDisconnectCB:
				return KindPlayDisconnect
			}
		}
	}
	return KindUnknown
}

func (s baselineSchema) Decode(state ConnState, dir Direction, f wire.RawFrame) (Packet, error) {
	r := f.Reader()
	switch s.KindOf(state, dir, f) {
	case KindHandshake:
		version, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		addr, err := wire.ReadString(r)
		if err != nil {
			return nil, err
		}
		var portBuf [2]byte
		if _, err := r.Read(portBuf[:]); err != nil {
			return nil, err
		}
		next, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		return Handshake{
			ProtocolVersion: version,
			ServerAddress:   addr,
			ServerPort:      uint16(portBuf[0])<<8 | uint16(portBuf[1]),
			NextState:       next,
		}, nil
	case KindStatusRequest:
		return StatusRequest{}, nil
	case KindStatusPing:
		v, err := wire.ReadInt64(r)
		return StatusPing{Payload: v}, err
	case KindStatusResponse:
		v, err := wire.ReadString(r)
		return StatusResponse{JSON: v}, err
	case KindStatusPong:
		v, err := wire.ReadInt64(r)
		return StatusPong{Payload: v}, err
	case KindLoginStart:
		name, err := wire.ReadString(r)
		return LoginStart{Username: name}, err
	case KindLoginSuccess:
		id, err := wire.ReadUUID(r)
		if err != nil {
			return nil, err
		}
		name, err := wire.ReadString(r)
		return LoginSuccess{UUID: id, Username: name}, err
	case KindLoginDisconnect:
		reason, err := wire.ReadString(r)
		return LoginDisconnect{Reason: reason}, err
	case KindPlayDisconnect:
		reason, err := wire.ReadString(r)
		return PlayDisconnect{Reason: reason}, err
	case KindPlayKeepAliveClientbound:
		v, err := wire.ReadInt64(r)
		return PlayKeepAliveClientbound{Nonce: v}, err
	case KindPlayKeepAliveServerbound:
		v, err := wire.ReadInt64(r)
		return PlayKeepAliveServerbound{Nonce: v}, err
	case KindPlaySpawnEntity:
		eid, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		etype, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		x, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		y, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		z, err := wire.ReadDouble(r)
		return PlaySpawnEntity{EntityID: eid, EntityType: etype, X: x, Y: y, Z: z}, err
	case KindPlayEntityTeleport:
		eid, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		x, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		y, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		z, err := wire.ReadDouble(r)
		return PlayEntityTeleport{EntityID: eid, X: x, Y: y, Z: z}, err
	case KindPlayPlayerPosition:
		x, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		y, err := wire.ReadDouble(r)
		if err != nil {
			return nil, err
		}
		z, err := wire.ReadDouble(r)
		return PlayPlayerPosition{X: x, Y: y, Z: z}, err
	case KindPlayTags:
		return decodeTags(r)
	default:
		return nil, fmt.Errorf("protocol: unexpected packet id 0x%02x in state %d dir %d", f.ID, state, dir)
	}
}

func decodeTags(r *bytes.Reader) (Packet, error) {
	readList := func() (map[string][]int32, error) {
		count, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		out := make(map[string][]int32, count)
		for i := int32(0); i < count; i++ {
			name, err := wire.ReadString(r)
			if err != nil {
				return nil, err
			}
			n, err := wire.ReadVarInt(r)
			if err != nil {
				return nil, err
			}
			ids := make([]int32, n)
			for j := int32(0); j < n; j++ {
				ids[j], err = wire.ReadVarInt(r)
				if err != nil {
					return nil, err
				}
			}
			out[name] = ids
		}
		return out, nil
	}
	blocks, err := readList()
	if err != nil {
		return nil, err
	}
	items, err := readList()
	if err != nil {
		return nil, err
	}
	fluids, err := readList()
	if err != nil {
		return nil, err
	}
	entities, err := readList()
	if err != nil {
		return nil, err
	}
	return PlayTags{BlockTagIDs: blocks, ItemTagIDs: items, FluidTagIDs: fluids, EntityTagIDs: entities}, nil
}

func encodeTags(w *bytes.Buffer, list map[string][]int32) error {
	if err := wire.WriteVarInt(w, int32(len(list))); err != nil {
		return err
	}
	for name, ids := range list {
		if err := wire.WriteString(w, name); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, int32(len(ids))); err != nil {
			return err
		}
		for _, id := range ids {
			if err := wire.WriteVarInt(w, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s baselineSchema) Encode(state ConnState, dir Direction, p Packet) (wire.RawFrame, error) {
	var buf bytes.Buffer
	var id int32
	switch v := p.(type) {
	case Handshake:
		id = idHandshake
		if err := wire.WriteVarInt(&buf, v.ProtocolVersion); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteString(&buf, v.ServerAddress); err != nil {
			return wire.RawFrame{}, err
		}
		buf.WriteByte(byte(v.ServerPort >> 8))
		buf.WriteByte(byte(v.ServerPort))
		if err := wire.WriteVarInt(&buf, v.NextState); err != nil {
			return wire.RawFrame{}, err
		}
	case StatusRequest:
		id = idStatusRequestSB
	case StatusResponse:
		id = idStatusResponseCB
		if err := wire.WriteString(&buf, v.JSON); err != nil {
			return wire.RawFrame{}, err
		}
	case StatusPing:
		id = idStatusPingSB
		if err := wire.WriteInt64(&buf, v.Payload); err != nil {
			return wire.RawFrame{}, err
		}
	case StatusPong:
		id = idStatusPongCB
		if err := wire.WriteInt64(&buf, v.Payload); err != nil {
			return wire.RawFrame{}, err
		}
	case LoginStart:
		id = idLoginStartSB
		if err := wire.WriteString(&buf, v.Username); err != nil {
			return wire.RawFrame{}, err
		}
	case LoginSuccess:
		id = idLoginSuccessCB
		if err := wire.WriteUUID(&buf, v.UUID); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteString(&buf, v.Username); err != nil {
			return wire.RawFrame{}, err
		}
	case LoginDisconnect:
		id = idLoginDisconnectCB
		if err := wire.WriteString(&buf, v.Reason); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayDisconnect:
		id = idPlayDisconnectCB
		if err := wire.WriteString(&buf, v.Reason); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayKeepAliveClientbound:
		id = idPlayKeepAliveCB
		if err := wire.WriteInt64(&buf, v.Nonce); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayKeepAliveServerbound:
		id = idPlayKeepAliveSB
		if err := wire.WriteInt64(&buf, v.Nonce); err != nil {
			return wire.RawFrame{}, err
		}
	case PlaySpawnEntity:
		id = idPlaySpawnEntityCB
		if err := wire.WriteVarInt(&buf, v.EntityID); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteVarInt(&buf, v.EntityType); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.X); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Y); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Z); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayEntityTeleport:
		id = idPlayEntityTeleCB
		if err := wire.WriteVarInt(&buf, v.EntityID); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.X); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Y); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Z); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayPlayerPosition:
		id = idPlayPositionSB
		if err := wire.WriteDouble(&buf, v.X); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Y); err != nil {
			return wire.RawFrame{}, err
		}
		if err := wire.WriteDouble(&buf, v.Z); err != nil {
			return wire.RawFrame{}, err
		}
	case PlayTags:
		id = idPlayTagsCB
		if err := encodeTags(&buf, v.BlockTagIDs); err != nil {
			return wire.RawFrame{}, err
		}
		if err := encodeTags(&buf, v.ItemTagIDs); err != nil {
			return wire.RawFrame{}, err
		}
		if err := encodeTags(&buf, v.FluidTagIDs); err != nil {
			return wire.RawFrame{}, err
		}
		if err := encodeTags(&buf, v.EntityTagIDs); err != nil {
			return wire.RawFrame{}, err
		}
	default:
		return wire.RawFrame{}, fmt.Errorf("protocol: unknown packet variant %T", p)
	}
	return wire.RawFrame{ID: id, Payload: buf.Bytes()}, nil
}
