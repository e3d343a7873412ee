package core

import (
	"net"

	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// handleStatus runs the Status sub-protocol: send StatusResponse
// immediately, then loop until a StatusPing is observed, echoing it
// back as StatusPong, then return (the caller closes the connection).
func (p *Proxy) handleStatus(conn net.Conn, fr *wire.FrameReader, schema protocol.Schema) {
	fw := wire.NewFrameWriter(conn)

	responseFrame, err := schema.Encode(protocol.StateStatus, protocol.Clientbound, protocol.StatusResponse{JSON: p.Config.ServerStatusJSON})
	if err != nil {
		p.logger.Warn("failed to encode status response", zap.Error(err))
		return
	}
	if err := fw.WriteFrame(responseFrame); err != nil {
		p.logger.Debug("failed to write status response", zap.Error(err))
		return
	}

	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			return
		}
		decoded, err := schema.Decode(protocol.StateStatus, protocol.Serverbound, frame)
		if err != nil {
			p.logger.Debug("failed to decode status packet", zap.Error(err))
			continue
		}
		switch v := decoded.(type) {
		case protocol.StatusPing:
			pongFrame, err := schema.Encode(protocol.StateStatus, protocol.Clientbound, protocol.StatusPong{Payload: v.Payload})
			if err != nil {
				p.logger.Warn("failed to encode status pong", zap.Error(err))
				return
			}
			if err := fw.WriteFrame(pongFrame); err != nil {
				p.logger.Debug("failed to write status pong", zap.Error(err))
			}
			return
		case protocol.StatusRequest:
			// A second StatusRequest after the initial response is
			// silently ignored.
			continue
		default:
			p.logger.Debug("unexpected packet during status", zap.Stringer("kind", decoded.Kind()))
		}
	}
}
