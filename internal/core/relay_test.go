package core

import (
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/mapping"
	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
	"github.com/regenerativep/splinter-proxy/internal/zoning"
)

func deadlineSoon() time.Time { return time.Now().Add(200 * time.Millisecond) }

func readFrame(conn net.Conn) (wire.RawFrame, error) {
	return wire.NewFrameReader(conn).ReadFrame()
}

func newTestProxy() *Proxy {
	return &Proxy{
		Table:    mapping.NewTable(),
		Zoner:    zoning.NewZoner(),
		Resolver: zoning.NewStaticResolver(nil),
		logger:   zap.NewNop(),
		passes:   defaultPasses(),
		clients:  make(map[uuid.UUID]*Client),
	}
}

func newTestClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })
	c := newClient(serverSide, "tester", uuid.New(), protocol.V753, protocol.Baseline())
	return c, clientSide
}

// TestRunPassChainRewritesSpawnedEntityID confirms passEIDRewrite replaces
// a backend-local entity id with a proxy-wide one, and that the mapping
// table records the bijection.
func TestRunPassChainRewritesSpawnedEntityID(t *testing.T) {
	proxy := newTestProxy()
	client, _ := newTestClient(t)

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound,
		protocol.PlaySpawnEntity{EntityID: 42, EntityType: 7, X: 1, Y: 2, Z: 3})
	dest := Destination{Kind: DestClient}

	runPassChain(proxy, client, serverOrigin(5), packet, &dest)

	decoded, err := packet.Decode()
	require.NoError(t, err)
	spawn, ok := decoded.(protocol.PlaySpawnEntity)
	require.True(t, ok)
	require.NotEqual(t, int32(42), spawn.EntityID, "backend-local id must not leak to the client unchanged")

	backendID, backendEID, ok := proxy.Table.MapEIDProxyToServer(spawn.EntityID)
	require.True(t, ok)
	require.Equal(t, uint64(5), backendID)
	require.Equal(t, int32(42), backendEID)
}

// TestRunPassChainEntityTeleportReusesSpawnMapping confirms a teleport
// referencing an already-spawned entity reuses its existing proxy eid
// rather than allocating a second one.
func TestRunPassChainEntityTeleportReusesSpawnMapping(t *testing.T) {
	proxy := newTestProxy()
	client, _ := newTestClient(t)

	spawnPacket := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound,
		protocol.PlaySpawnEntity{EntityID: 9, EntityType: 1})
	spawnDest := Destination{Kind: DestClient}
	runPassChain(proxy, client, serverOrigin(2), spawnPacket, &spawnDest)
	spawnDecoded, err := spawnPacket.Decode()
	require.NoError(t, err)
	spawnedProxyEID := spawnDecoded.(protocol.PlaySpawnEntity).EntityID

	teleportPacket := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound,
		protocol.PlayEntityTeleport{EntityID: 9, X: 5, Y: 5, Z: 5})
	teleportDest := Destination{Kind: DestClient}
	runPassChain(proxy, client, serverOrigin(2), teleportPacket, &teleportDest)
	teleportDecoded, err := teleportPacket.Decode()
	require.NoError(t, err)

	require.Equal(t, spawnedProxyEID, teleportDecoded.(protocol.PlayEntityTeleport).EntityID)
}

// TestRunPassChainIgnoresClientOriginEntityPackets confirms passEIDRewrite
// only acts on the server->client direction.
func TestRunPassChainIgnoresClientOriginEntityPackets(t *testing.T) {
	proxy := newTestProxy()
	client, _ := newTestClient(t)

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Serverbound,
		protocol.PlaySpawnEntity{EntityID: 42, EntityType: 7})
	dest := Destination{Kind: DestServer}

	runPassChain(proxy, client, clientOrigin(), packet, &dest)

	decoded, err := packet.Decode()
	require.NoError(t, err)
	require.Equal(t, int32(42), decoded.(protocol.PlaySpawnEntity).EntityID)
}

// TestRunPassChainKeepAliveAckClearsPending confirms the keep-alive pass
// tracks an outbound nonce and clears it once the client acknowledges it.
func TestRunPassChainKeepAliveAckClearsPending(t *testing.T) {
	proxy := newTestProxy()
	client, _ := newTestClient(t)

	sent := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound,
		protocol.PlayKeepAliveClientbound{Nonce: 123})
	sentDest := Destination{Kind: DestClient}
	runPassChain(proxy, client, serverOrigin(1), sent, &sentDest)

	_, ok := client.keepAlive.Oldest()
	require.True(t, ok, "pushing a clientbound keep-alive must record it as pending")

	ack := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Serverbound,
		protocol.PlayKeepAliveServerbound{Nonce: 123})
	ackDest := Destination{Kind: DestServer}
	runPassChain(proxy, client, clientOrigin(), ack, &ackDest)

	_, ok = client.keepAlive.Oldest()
	require.False(t, ok, "acknowledging the nonce must clear it")
}

// TestRunPassChainZoningSwitchesActiveBackend confirms a client position
// update crossing into a configured zone both updates the client's
// recorded position and redirects the packet's destination to the new
// backend once a connection to it can be established.
func TestRunPassChainZoningSwitchesActiveBackend(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			t.Cleanup(func() { conn.Close() })
			// Answer the proxy's backend login (Handshake, LoginStart)
			// with a LoginSuccess so the handshake completes.
			fr := wire.NewFrameReader(conn)
			if _, err := fr.ReadFrame(); err != nil {
				return
			}
			if _, err := fr.ReadFrame(); err != nil {
				return
			}
			success, err := protocol.Baseline().Encode(protocol.StateLogin, protocol.Clientbound,
				protocol.LoginSuccess{UUID: uuid.New(), Username: "tester"})
			if err != nil {
				return
			}
			_ = wire.NewFrameWriter(conn).WriteFrame(success)
		}
	}()

	proxy := newTestProxy()
	proxy.Zoner.Add(1, zoning.Rectangle{X1: -4, Z1: -4, X2: 4, Z2: 4})
	proxy.Zoner.SetDefault(0)
	proxy.Resolver = zoning.NewStaticResolver(map[uint64]string{1: listener.Addr().String()})

	client, _ := newTestClient(t)
	client.setActiveBackendID(0)

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Serverbound,
		protocol.PlayPlayerPosition{X: 1, Y: 64, Z: 1})
	dest := Destination{Kind: DestServer, BackendID: 0}

	runPassChain(proxy, client, clientOrigin(), packet, &dest)

	gotX, _, gotZ := client.Position()
	require.Equal(t, 1.0, gotX)
	require.Equal(t, 1.0, gotZ)
	require.Equal(t, uint64(1), client.ActiveBackendID())
	require.Equal(t, uint64(1), dest.BackendID)

	_, ok := client.Backend(1)
	require.True(t, ok, "zoning pass must have opened a connection to the new backend")
}

// TestRunPassChainStoresTagsSnapshot confirms the tags pass canonicalizes
// a backend's PlayTags packet and stores it as the proxy's tags snapshot.
func TestRunPassChainStoresTagsSnapshot(t *testing.T) {
	proxy := newTestProxy()
	proxy.Dicts = &mapping.StaticDictionaries{}
	client, _ := newTestClient(t)

	tagPacket := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound, protocol.PlayTags{
		BlockTagIDs:  map[string][]int32{},
		ItemTagIDs:   map[string][]int32{},
		FluidTagIDs:  map[string][]int32{},
		EntityTagIDs: map[string][]int32{},
	})
	dest := Destination{Kind: DestClient}

	runPassChain(proxy, client, serverOrigin(0), tagPacket, &dest)

	require.Equal(t, mapping.Tags{
		Blocks:   mapping.TagList{},
		Items:    mapping.TagList{},
		Fluids:   mapping.TagList{},
		Entities: mapping.TagList{},
	}, proxy.Tags())
}

// TestDispatchDestNoneWritesNothing confirms DestNone drops the packet
// without touching either socket.
func TestDispatchDestNoneWritesNothing(t *testing.T) {
	proxy := newTestProxy()
	client, clientSide := newTestClient(t)

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound,
		protocol.PlayDisconnect{Reason: "unused"})

	done := make(chan struct{})
	go func() {
		dispatch(proxy, client, packet, Destination{Kind: DestNone})
		close(done)
	}()
	<-done

	require.NoError(t, clientSide.SetReadDeadline(deadlineSoon()))
	buf := make([]byte, 1)
	_, err := clientSide.Read(buf)
	require.Error(t, err, "DestNone must not write to the client socket")
}

// TestDispatchDestServerWritesOnlyToResolvedBackend confirms a packet
// routed to a specific backend reaches only that backend's connection,
// not the client's.
func TestDispatchDestServerWritesOnlyToResolvedBackend(t *testing.T) {
	proxy := newTestProxy()
	client, clientSide := newTestClient(t)

	backendServerSide, backendClientSide := net.Pipe()
	t.Cleanup(func() { backendServerSide.Close(); backendClientSide.Close() })
	bc := newBackendConnection(backendServerSide, 3, uuid.Nil, client.version, client.schema)
	client.setBackend(3, bc)

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Serverbound,
		protocol.PlayPlayerPosition{X: 1, Y: 2, Z: 3})

	go dispatch(proxy, client, packet, Destination{Kind: DestServer, BackendID: 3})

	frame, err := readFrame(backendClientSide)
	require.NoError(t, err)
	require.NotZero(t, frame.ID)

	require.NoError(t, clientSide.SetReadDeadline(deadlineSoon()))
	buf := make([]byte, 1)
	_, err = clientSide.Read(buf)
	require.Error(t, err, "a DestServer dispatch must not also write to the client")
}
