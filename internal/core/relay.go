package core

import (
	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/mapping"
	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// Origin identifies where a packet entering the pipeline came from:
// the client, or a specific backend.
type Origin struct {
	FromClient bool
	BackendID  uint64
}

func clientOrigin() Origin                 { return Origin{FromClient: true} }
func serverOrigin(backendID uint64) Origin { return Origin{FromClient: false, BackendID: backendID} }

// DestinationKind is the final routing decision for one packet.
type DestinationKind int

const (
	DestNone DestinationKind = iota
	DestClient
	DestServer
)

type Destination struct {
	Kind      DestinationKind
	BackendID uint64
}

// RelayContext is what every relay pass receives: the proxy, the
// sender, the in-flight packet, the mapping table, and the mutable
// destination.
type RelayContext struct {
	Proxy       *Proxy
	Client      *Client
	Origin      Origin
	Packet      *protocol.LazyDeserializedPacket
	Table       *mapping.Table
	Destination *Destination
}

// RelayPass inspects and optionally mutates a packet in flight, and may
// reassign its destination. The process-wide chain is an ordered slice
// built once at startup and frozen, kept as an explicit slice rather
// than populated via package init() side effects so registration stays
// visible and testable.
type RelayPass func(rc *RelayContext) error

// defaultPasses returns the frozen, ordered relay-pass chain. Order
// matters: rewrite passes must run before the zoning pass observes a
// position update, so that EntityData/position fields a later pass
// reads have already been translated into proxy-facing values.
func defaultPasses() []RelayPass {
	return []RelayPass{
		passEIDRewrite,
		passUUIDRewrite,
		passTags,
		passKeepAlive,
		passZoning,
	}
}

// runPassChain runs one packet through the chain, holding the mapping
// table lock for the whole invocation.
func runPassChain(proxy *Proxy, client *Client, origin Origin, packet *protocol.LazyDeserializedPacket, dest *Destination) {
	proxy.Table.Lock()
	defer proxy.Table.Unlock()

	rc := &RelayContext{
		Proxy:       proxy,
		Client:      client,
		Origin:      origin,
		Packet:      packet,
		Table:       proxy.Table,
		Destination: dest,
	}
	for _, pass := range proxy.passes {
		if err := pass(rc); err != nil {
			// Errors within a pass are absorbed: logged, the packet keeps
			// flowing with whatever destination/state the pass left it in.
			proxy.logger.Debug("relay pass error", zap.Error(err))
		}
	}
}

// dispatch writes the packet to its final destination.
func dispatch(proxy *Proxy, client *Client, packet *protocol.LazyDeserializedPacket, dest Destination) {
	switch dest.Kind {
	case DestNone:
		return
	case DestClient:
		if err := client.WritePacket(packet); err != nil {
			proxy.logger.Warn("client write failed", zap.String("client", client.Username), zap.Error(err))
			if isFatalIo(err) {
				client.MarkDead()
			}
		}
	case DestServer:
		bc, ok := client.Backend(dest.BackendID)
		if !ok {
			proxy.logger.Warn("dropped packet: no such backend connection",
				zap.String("client", client.Username), zap.Uint64("backend_id", dest.BackendID))
			return
		}
		if err := bc.WritePacket(packet); err != nil {
			proxy.logger.Warn("backend write failed",
				zap.String("client", client.Username), zap.Uint64("backend_id", dest.BackendID), zap.Error(err))
		}
	}
}

// clientReadLoop is the client→server reader loop. A read error that
// does not signal a closed connection is logged and read past: only a
// genuine close ends the loop and marks the client dead.
func clientReadLoop(proxy *Proxy, client *Client) {
	fr := wire.NewFrameReader(client.conn)
	for client.Alive() {
		frame, err := fr.ReadFrame()
		if err != nil {
			if isConnClosed(err) {
				proxy.logger.Debug("client read loop ended", zap.String("client", client.Username), zap.Error(err))
				client.MarkDead()
				return
			}
			proxy.logger.Warn("client read failed, continuing",
				zap.String("client", client.Username), zap.Error(transientIoError(err)))
			continue
		}
		packet := protocol.FromRawFrame(client.schema, protocol.StatePlay, protocol.Serverbound, frame)
		dest := Destination{Kind: DestServer, BackendID: client.ActiveBackendID()}
		runPassChain(proxy, client, clientOrigin(), packet, &dest)
		dispatch(proxy, client, packet, dest)
	}
}

// backendReadLoop is one server→client reader loop, one per open
// backend connection. fr must be the FrameReader the connection's login
// handshake already read from, so any bytes it buffered past the
// handshake aren't dropped. A read error that does not signal a closed
// connection is logged and read past; only a genuine close ends the
// loop and marks the backend connection dead.
func backendReadLoop(proxy *Proxy, client *Client, bc *BackendConnection, fr *wire.FrameReader) {
	for client.Alive() && bc.Alive() {
		frame, err := fr.ReadFrame()
		if err != nil {
			if isConnClosed(err) {
				proxy.logger.Debug("backend read loop ended",
					zap.String("client", client.Username), zap.Uint64("backend_id", bc.BackendID), zap.Error(err))
				bc.MarkDead()
				return
			}
			proxy.logger.Warn("backend read failed, continuing",
				zap.String("client", client.Username), zap.Uint64("backend_id", bc.BackendID), zap.Error(transientIoError(err)))
			continue
		}
		packet := protocol.FromRawFrame(bc.schema, protocol.StatePlay, protocol.Clientbound, frame)
		dest := Destination{Kind: DestClient}
		runPassChain(proxy, client, serverOrigin(bc.BackendID), packet, &dest)
		dispatch(proxy, client, packet, dest)
	}
}
