package core

import (
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// handleLogin runs the Login sub-protocol: read LoginStart, assign a
// proxy-side UUID, send LoginSuccess, open a connection to the client's
// initial active backend, and transition both sockets to Play.
//
// The initial backend is ideally chosen by the zoner from the client's
// spawn position, but that position would have to come from the
// backend's first play-phase packet and this packet set carries no
// such server->client spawn packet. Absent that packet, the initial
// pick uses the world origin (0, 0); the zoning pass corrects the
// active backend as soon as the client's own position updates arrive,
// same as any other mid-session zone crossing.
func (p *Proxy) handleLogin(conn net.Conn, fr *wire.FrameReader, version protocol.Version, schema protocol.Schema) {
	frame, err := fr.ReadFrame()
	if err != nil {
		conn.Close()
		return
	}
	decoded, err := schema.Decode(protocol.StateLogin, protocol.Serverbound, frame)
	if err != nil {
		p.logger.Debug("login decode failed", zap.Error(err))
		conn.Close()
		return
	}
	loginStart, ok := decoded.(protocol.LoginStart)
	if !ok {
		p.logger.Debug("first login packet was not LoginStart", zap.Stringer("kind", decoded.Kind()))
		conn.Close()
		return
	}

	proxyUUID := uuid.New()
	fw := wire.NewFrameWriter(conn)
	successFrame, err := schema.Encode(protocol.StateLogin, protocol.Clientbound, protocol.LoginSuccess{UUID: proxyUUID, Username: loginStart.Username})
	if err != nil {
		p.logger.Warn("failed to encode login success", zap.Error(err))
		conn.Close()
		return
	}
	if err := fw.WriteFrame(successFrame); err != nil {
		p.logger.Debug("failed to write login success", zap.Error(err))
		conn.Close()
		return
	}

	initialBackendID, err := p.Zoner.ZoneOf(0, 0)
	if err != nil {
		p.logger.Warn("no backend resolves the initial spawn zone", zap.Error(err))
		p.sendPlayDisconnect(conn, schema, "No simulation server available")
		conn.Close()
		return
	}

	client := newClient(conn, loginStart.Username, proxyUUID, version, schema)
	bc, err := p.ensureBackendConnection(client, initialBackendID)
	if err != nil {
		p.logger.Warn("failed to open initial backend connection",
			zap.String("client", loginStart.Username), zap.Error(err))
		p.sendPlayDisconnect(conn, schema, "Failed to connect to simulation server")
		conn.Close()
		return
	}
	client.setActiveBackendID(initialBackendID)
	_ = bc

	p.registerClient(client)
	p.logger.Info("client entered play",
		zap.String("client", loginStart.Username), zap.Stringer("proxy_uuid", proxyUUID), zap.Uint64("backend_id", initialBackendID))

	client.readers.Go(func() error {
		clientReadLoop(p, client)
		return nil
	})
}

func (p *Proxy) sendLoginDisconnect(conn net.Conn, schema protocol.Schema, reason string) {
	frame, err := schema.Encode(protocol.StateLogin, protocol.Clientbound, protocol.LoginDisconnect{Reason: reason})
	if err != nil {
		return
	}
	_ = wire.NewFrameWriter(conn).WriteFrame(frame)
}

func (p *Proxy) sendPlayDisconnect(conn net.Conn, schema protocol.Schema, reason string) {
	frame, err := schema.Encode(protocol.StatePlay, protocol.Clientbound, protocol.PlayDisconnect{Reason: reason})
	if err != nil {
		return
	}
	_ = wire.NewFrameWriter(conn).WriteFrame(frame)
}
