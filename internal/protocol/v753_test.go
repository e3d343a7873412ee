package protocol

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/regenerativep/splinter-proxy/internal/wire"
)

func roundTrip(t *testing.T, state ConnState, dir Direction, p Packet) Packet {
	t.Helper()
	schema := Baseline()
	frame, err := schema.Encode(state, dir, p)
	require.NoError(t, err)
	decoded, err := schema.Decode(state, dir, frame)
	require.NoError(t, err)
	return decoded
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{ProtocolVersion: 753, ServerAddress: "play.example.com", ServerPort: 25565, NextState: NextLogin}
	got := roundTrip(t, StateHandshake, Serverbound, h)
	require.Equal(t, h, got)
}

func TestStatusRoundTrip(t *testing.T) {
	got := roundTrip(t, StateStatus, Clientbound, StatusResponse{JSON: `{"version":{}}`})
	require.Equal(t, StatusResponse{JSON: `{"version":{}}`}, got)

	pong := roundTrip(t, StateStatus, Clientbound, StatusPong{Payload: 42})
	require.Equal(t, StatusPong{Payload: 42}, pong)
}

func TestLoginSuccessRoundTrip(t *testing.T) {
	id := uuid.New()
	got := roundTrip(t, StateLogin, Clientbound, LoginSuccess{UUID: id, Username: "alice"})
	require.Equal(t, LoginSuccess{UUID: id, Username: "alice"}, got)
}

func TestPlayTagsRoundTrip(t *testing.T) {
	tags := PlayTags{
		BlockTagIDs: map[string][]int32{"minecraft:mineable/pickaxe": {0, 1, 2}},
		ItemTagIDs:  map[string][]int32{},
		FluidTagIDs: map[string][]int32{},
		EntityTagIDs: map[string][]int32{
			"minecraft:skeletons": {5},
		},
	}
	got := roundTrip(t, StatePlay, Clientbound, tags)
	require.Equal(t, tags, got)
}

func TestKindOfDoesNotRequireDecoding(t *testing.T) {
	schema := Baseline()
	frame, err := schema.Encode(StatePlay, Clientbound, PlaySpawnEntity{EntityID: 1, EntityType: 2, X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	require.Equal(t, KindPlaySpawnEntity, schema.KindOf(StatePlay, Clientbound, frame))
}

func TestLazyDeserializedPacketDecodesOnceAndCaches(t *testing.T) {
	schema := Baseline()
	frame, err := schema.Encode(StatePlay, Serverbound, PlayPlayerPosition{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)

	lazy := FromRawFrame(schema, StatePlay, Serverbound, frame)
	require.False(t, lazy.IsDecoded())
	require.Equal(t, KindPlayPlayerPosition, lazy.Kind())
	require.False(t, lazy.IsDecoded(), "Kind must not force a decode")

	decoded, err := lazy.Decode()
	require.NoError(t, err)
	require.True(t, lazy.IsDecoded())
	require.Equal(t, PlayPlayerPosition{X: 1, Y: 2, Z: 3}, decoded)

	again, err := lazy.Decode()
	require.NoError(t, err)
	require.Equal(t, decoded, again)
}

func TestLazyDeserializedPacketEncodeVerbatimWhenUndecoded(t *testing.T) {
	schema := Baseline()
	frame, err := schema.Encode(StatePlay, Clientbound, PlayDisconnect{Reason: "bye"})
	require.NoError(t, err)

	lazy := FromRawFrame(schema, StatePlay, Clientbound, frame)
	out, err := lazy.Encode()
	require.NoError(t, err)
	require.Equal(t, frame, out)
}

func TestVersionFromNumber(t *testing.T) {
	v, err := FromNumber(753)
	require.NoError(t, err)
	require.Equal(t, V753, v)

	_, err = FromNumber(1)
	require.Error(t, err)
	var unsupported *UnsupportedVersionError
	require.ErrorAs(t, err, &unsupported)
}

func TestVersion755SchemaUnsupported(t *testing.T) {
	v, err := FromNumber(755)
	require.NoError(t, err, "755 is a recognized version number")
	_, err = v.Schema()
	require.Error(t, err, "755's schema is an explicitly unimplemented open question")
}

var _ = wire.RawFrame{}
