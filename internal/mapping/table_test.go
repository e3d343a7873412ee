package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMapEIDRoundTripAndStability(t *testing.T) {
	tbl := NewTable()

	eid1 := tbl.MapEIDServerToProxy(7, 1000, 42)
	eid2 := tbl.MapEIDServerToProxy(7, 1000, 42)
	require.Equal(t, eid1, eid2, "re-observing the same (backend, backend_eid) must return the same proxy_eid")

	backendID, backendEID, ok := tbl.MapEIDProxyToServer(eid1)
	require.True(t, ok)
	require.Equal(t, uint64(7), backendID)
	require.Equal(t, int32(1000), backendEID)

	data, ok := tbl.EntityData(eid1)
	require.True(t, ok)
	require.Equal(t, int32(42), data.EntityType)
}

func TestMapEIDFreshAllocationIncreasesStrictly(t *testing.T) {
	tbl := NewTable()
	a := tbl.MapEIDServerToProxy(1, 1, 0)
	b := tbl.MapEIDServerToProxy(1, 2, 0)
	c := tbl.MapEIDServerToProxy(2, 1, 0)
	require.Less(t, a, b)
	require.Less(t, b, c)
}

func TestMapEIDProxyToServerNotMapped(t *testing.T) {
	tbl := NewTable()
	_, _, ok := tbl.MapEIDProxyToServer(999)
	require.False(t, ok)
}

func TestMapUUIDRoundTripAndStability(t *testing.T) {
	tbl := NewTable()
	backendUUID := uuid.New()

	p1 := tbl.MapUUIDServerToProxy(3, backendUUID)
	p2 := tbl.MapUUIDServerToProxy(3, backendUUID)
	require.Equal(t, p1, p2)

	backendID, gotBackendUUID, ok := tbl.MapUUIDProxyToServer(p1)
	require.True(t, ok)
	require.Equal(t, uint64(3), backendID)
	require.Equal(t, backendUUID, gotBackendUUID)
}

func TestTagsRoundTrip(t *testing.T) {
	dicts := &StaticDictionaries{
		Blocks: dictFrom(map[int32]string{0: "minecraft:air", 1: "minecraft:stone"}),
	}
	wire := WireTags{
		Blocks: map[string][]int32{"minecraft:mineable/pickaxe": {0, 1}},
	}
	tags, err := tagListFromWire("block", wire.Blocks, dicts.Blocks)
	require.NoError(t, err)

	backOut, err := tagListToWire("block", tags, dicts.Blocks)
	require.NoError(t, err)
	require.ElementsMatch(t, wire.Blocks["minecraft:mineable/pickaxe"], backOut["minecraft:mineable/pickaxe"])
}

func TestTagsFromWireUnknownID(t *testing.T) {
	dicts := &StaticDictionaries{Blocks: dictFrom(map[int32]string{0: "minecraft:air"})}
	_, err := tagListFromWire("block", map[string][]int32{"t": {99}}, dicts.Blocks)
	require.Error(t, err)
	var unknown *UnknownIDError
	require.ErrorAs(t, err, &unknown)
}

func dictFrom(m map[int32]string) *StaticDictionary {
	d := &StaticDictionary{idToName: make(map[int32]string), nameToID: make(map[string]int32)}
	for id, name := range m {
		d.idToName[id] = name
		d.nameToID[name] = id
	}
	return d
}
