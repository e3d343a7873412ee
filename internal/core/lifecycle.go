package core

import (
	"net"

	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// handleConnection drives one accepted connection through
// Raw -> Handshake -> {Status | Login} -> Play.
func (p *Proxy) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("connection handler panicked", zap.Any("recovered", r))
			conn.Close()
		}
	}()

	baseline := protocol.Baseline()
	fr := wire.NewFrameReader(conn)

	frame, err := fr.ReadFrame()
	if err != nil {
		conn.Close()
		return
	}
	decoded, err := baseline.Decode(protocol.StateHandshake, protocol.Serverbound, frame)
	if err != nil {
		p.logger.Debug("handshake decode failed", zap.Error(err))
		conn.Close()
		return
	}
	handshake, ok := decoded.(protocol.Handshake)
	if !ok {
		p.logger.Debug("first packet was not a Handshake", zap.Stringer("kind", decoded.Kind()))
		conn.Close()
		return
	}

	version, versionErr := protocol.FromNumber(handshake.ProtocolVersion)

	switch handshake.NextState {
	case protocol.NextStatus:
		// Status probes from any version must still receive a reply, so
		// an unresolved version still runs Status against the baseline
		// schema; the error surfaces only after the reply has been sent.
		schema := baseline
		if versionErr == nil {
			if s, err := version.Schema(); err == nil {
				schema = s
			}
		}
		p.handleStatus(conn, fr, schema)
		if versionErr != nil {
			p.logger.Info("status probe from unsupported version",
				zap.Int32("version", handshake.ProtocolVersion), zap.Error(versionErr))
		}
		conn.Close()

	case protocol.NextLogin:
		if versionErr != nil {
			p.sendLoginDisconnect(conn, baseline, p.Config.ImproperVersionDisconnectMessage)
			conn.Close()
			return
		}
		schema, err := version.Schema()
		if err != nil {
			p.sendLoginDisconnect(conn, baseline, p.Config.ImproperVersionDisconnectMessage)
			conn.Close()
			return
		}
		p.handleLogin(conn, fr, version, schema)

	default:
		p.logger.Debug("handshake requested unknown next state", zap.Int32("next_state", handshake.NextState))
		conn.Close()
	}
}
