package protocol

import "github.com/google/uuid"

// PacketKind is the cheap, always-available classification of a packet,
// derived from its wire id and the connection's current state without
// decoding the body.
type PacketKind int

const (
	KindUnknown PacketKind = iota
	KindHandshake
	KindStatusRequest
	KindStatusResponse
	KindStatusPing
	KindStatusPong
	KindLoginStart
	KindLoginSuccess
	KindLoginDisconnect
	KindPlayDisconnect
	KindPlayKeepAliveClientbound
	KindPlayKeepAliveServerbound
	KindPlaySpawnEntity
	KindPlayEntityTeleport
	KindPlayPlayerPosition
	KindPlayTags
)

func (k PacketKind) String() string {
	switch k {
	case KindHandshake:
		return "Handshake"
	case KindStatusRequest:
		return "StatusRequest"
	case KindStatusResponse:
		return "StatusResponse"
	case KindStatusPing:
		return "StatusPing"
	case KindStatusPong:
		return "StatusPong"
	case KindLoginStart:
		return "LoginStart"
	case KindLoginSuccess:
		return "LoginSuccess"
	case KindLoginDisconnect:
		return "LoginDisconnect"
	case KindPlayDisconnect:
		return "PlayDisconnect"
	case KindPlayKeepAliveClientbound:
		return "PlayKeepAliveClientbound"
	case KindPlayKeepAliveServerbound:
		return "PlayKeepAliveServerbound"
	case KindPlaySpawnEntity:
		return "PlaySpawnEntity"
	case KindPlayEntityTeleport:
		return "PlayEntityTeleport"
	case KindPlayPlayerPosition:
		return "PlayPlayerPosition"
	case KindPlayTags:
		return "PlayTags"
	default:
		return "Unknown"
	}
}

// Packet is any decoded packet variant. Schema.Decode returns one and
// Schema.Encode serializes one; how a variant maps to wire bytes is known
// only to the schema.
type Packet interface {
	Kind() PacketKind
}

const (
	NextStatus = 1
	NextLogin  = 2
)

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func (Handshake) Kind() PacketKind { return KindHandshake }

type StatusRequest struct{}

func (StatusRequest) Kind() PacketKind { return KindStatusRequest }

type StatusResponse struct {
	JSON string
}

func (StatusResponse) Kind() PacketKind { return KindStatusResponse }

type StatusPing struct {
	Payload int64
}

func (StatusPing) Kind() PacketKind { return KindStatusPing }

type StatusPong struct {
	Payload int64
}

func (StatusPong) Kind() PacketKind { return KindStatusPong }

type LoginStart struct {
	Username string
}

func (LoginStart) Kind() PacketKind { return KindLoginStart }

type LoginSuccess struct {
	UUID     uuid.UUID
	Username string
}

func (LoginSuccess) Kind() PacketKind { return KindLoginSuccess }

type LoginDisconnect struct {
	Reason string
}

func (LoginDisconnect) Kind() PacketKind { return KindLoginDisconnect }

type PlayDisconnect struct {
	Reason string
}

func (PlayDisconnect) Kind() PacketKind { return KindPlayDisconnect }

// PlayKeepAliveClientbound is server/proxy -> client.
type PlayKeepAliveClientbound struct {
	Nonce int64
}

func (PlayKeepAliveClientbound) Kind() PacketKind { return KindPlayKeepAliveClientbound }

// PlayKeepAliveServerbound is client -> server/proxy.
type PlayKeepAliveServerbound struct {
	Nonce int64
}

func (PlayKeepAliveServerbound) Kind() PacketKind { return KindPlayKeepAliveServerbound }

// PlaySpawnEntity is server -> client, introducing a new backend-side
// entity id and its entity type to the connection.
type PlaySpawnEntity struct {
	EntityID   int32
	EntityType int32
	X, Y, Z    float64
}

func (PlaySpawnEntity) Kind() PacketKind { return KindPlaySpawnEntity }

// PlayEntityTeleport is server -> client, referencing an existing
// backend-side entity id.
type PlayEntityTeleport struct {
	EntityID int32
	X, Y, Z  float64
}

func (PlayEntityTeleport) Kind() PacketKind { return KindPlayEntityTeleport }

// PlayPlayerPosition is client -> server, the client's own position; the
// zoning pass inspects this to decide on a backend switch.
type PlayPlayerPosition struct {
	X, Y, Z float64
}

func (PlayPlayerPosition) Kind() PacketKind { return KindPlayPlayerPosition }

// PlayTags carries the four numeric tag lists (blocks, items, fluids,
// entities).
type PlayTags struct {
	BlockTagIDs, ItemTagIDs, FluidTagIDs, EntityTagIDs map[string][]int32
}

func (PlayTags) Kind() PacketKind { return KindPlayTags }
