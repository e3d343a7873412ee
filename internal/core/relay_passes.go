package core

import (
	"time"

	"github.com/regenerativep/splinter-proxy/internal/protocol"
)

// passEIDRewrite translates entity-id fields between a backend's
// namespace and the proxy's unified namespace. Server->client packets
// introducing or referencing a
// backend entity id are rewritten to the proxy eid; the inverse
// direction has no entity-id-bearing client->server packet in this
// packet set, so only the server->client half has work to do.
func passEIDRewrite(rc *RelayContext) error {
	if rc.Origin.FromClient {
		return nil
	}
	switch rc.Packet.Kind() {
	case protocol.KindPlaySpawnEntity, protocol.KindPlayEntityTeleport:
	default:
		return nil
	}
	return rc.Packet.Mutate(func(p protocol.Packet) protocol.Packet {
		switch v := p.(type) {
		case protocol.PlaySpawnEntity:
			v.EntityID = rc.Table.MapEIDServerToProxy(rc.Origin.BackendID, v.EntityID, v.EntityType)
			return v
		case protocol.PlayEntityTeleport:
			// A teleport references a backend-local id that should
			// already have been mapped by an earlier spawn; if not
			// (e.g. it spawned before this connection existed),
			// MapEIDServerToProxy allocates one now with an unknown
			// entity type, keeping later references consistent.
			v.EntityID = rc.Table.MapEIDServerToProxy(rc.Origin.BackendID, v.EntityID, 0)
			return v
		default:
			return p
		}
	})
}

// passUUIDRewrite is the UUID analog of passEIDRewrite.
// None of the play-phase packet variants in this packet set carry a
// standalone UUID field (Minecraft's real EntitySpawn packets do; this
// schema's spawn packet does not model one) — login-phase UUID
// assignment is handled directly in the login handshake instead. This
// pass is kept as the chain's designated UUID hook so a future
// UUID-bearing play packet only needs a case added here, not a new
// pass wired into defaultPasses.
func passUUIDRewrite(rc *RelayContext) error {
	return nil
}

// passTags intercepts the backend's PlayTags packet, canonicalizes it
// against the static dictionaries, stores it as the proxy's tags
// snapshot, and rewrites it back to wire ids before forwarding.
func passTags(rc *RelayContext) error {
	if rc.Origin.FromClient || rc.Packet.Kind() != protocol.KindPlayTags {
		return nil
	}
	decoded, err := rc.Packet.Decode()
	if err != nil {
		return err
	}
	wireTags, ok := decoded.(protocol.PlayTags)
	if !ok {
		return nil
	}
	tags, err := rc.Proxy.tagsFromWire(wireTags)
	if err != nil {
		return err
	}
	rc.Proxy.setTags(tags)

	rewired, err := rc.Proxy.tagsToWire(tags)
	if err != nil {
		return err
	}
	return rc.Packet.Mutate(func(protocol.Packet) protocol.Packet { return rewired })
}

// passKeepAlive tracks outstanding keep-alive nonces and acknowledges
// client responses. The proxy answers the
// backend's keep-alive on the client's behalf is out of scope here;
// this pass only maintains the bookkeeping the background watcher in
// proxy.go uses to decide on a TimedOut kick.
func passKeepAlive(rc *RelayContext) error {
	switch rc.Packet.Kind() {
	case protocol.KindPlayKeepAliveClientbound:
		if rc.Origin.FromClient {
			return nil
		}
		decoded, err := rc.Packet.Decode()
		if err != nil {
			return err
		}
		ka, ok := decoded.(protocol.PlayKeepAliveClientbound)
		if !ok {
			return nil
		}
		rc.Client.keepAlive.Push(ka.Nonce, time.Now())
	case protocol.KindPlayKeepAliveServerbound:
		if !rc.Origin.FromClient {
			return nil
		}
		decoded, err := rc.Packet.Decode()
		if err != nil {
			return err
		}
		ka, ok := decoded.(protocol.PlayKeepAliveServerbound)
		if !ok {
			return nil
		}
		rc.Client.keepAlive.Ack(ka.Nonce)
	}
	return nil
}

// passZoning inspects client position updates and triggers an
// active-backend switch when the client has crossed a zone boundary.
func passZoning(rc *RelayContext) error {
	if !rc.Origin.FromClient || rc.Packet.Kind() != protocol.KindPlayPlayerPosition {
		return nil
	}
	decoded, err := rc.Packet.Decode()
	if err != nil {
		return err
	}
	pos, ok := decoded.(protocol.PlayPlayerPosition)
	if !ok {
		return nil
	}
	rc.Client.SetPosition(pos.X, pos.Y, pos.Z)

	newBackendID, err := rc.Proxy.Zoner.ZoneOf(int64(pos.X), int64(pos.Z))
	if err != nil {
		// Unzoned: stay on the current active backend rather than
		// drop the client's movement entirely.
		return err
	}
	if newBackendID == rc.Client.ActiveBackendID() {
		return nil
	}

	bc, err := rc.Proxy.ensureBackendConnection(rc.Client, newBackendID)
	if err != nil {
		return err
	}
	rc.Client.setActiveBackendID(newBackendID)
	rc.Destination.Kind = DestServer
	rc.Destination.BackendID = bc.BackendID
	return nil
}
