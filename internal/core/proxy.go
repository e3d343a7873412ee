package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pires/go-proxyproto"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regenerativep/splinter-proxy/internal/mapping"
	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/proxydata"
	"github.com/regenerativep/splinter-proxy/internal/tlsprovider"
	"github.com/regenerativep/splinter-proxy/internal/wire"
	"github.com/regenerativep/splinter-proxy/internal/zoning"
)

// Config is the subset of external configuration the proxy state root
// consumes directly.
type Config struct {
	ProxyAddress                     string
	ServerStatusJSON                 string
	ImproperVersionDisconnectMessage string
	KeepAliveInterval                time.Duration
	KeepAliveTimeout                 time.Duration

	// ProxyProtocol, if set, makes ensureBackendConnection write a PROXY
	// protocol v2 header ahead of the Minecraft handshake bytes when
	// dialing a backend. Off by default.
	ProxyProtocol bool

	// TLSProvider, if non-nil, terminates TLS on the client-facing
	// listener. Off by default.
	TLSProvider tlsprovider.Provider
}

// Proxy is the state root: it owns the registries, the mapping table,
// the tags snapshot, the zoner, the config, and the proxy-wide alive
// flag, and is the accept-loop's dispatch target.
type Proxy struct {
	Config   Config
	Dicts    *mapping.StaticDictionaries
	Table    *mapping.Table
	Zoner    *zoning.Zoner
	Resolver zoning.BackendResolver

	logger     *zap.Logger
	playerData *proxydata.Store

	passes []RelayPass

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]*Client

	tagsMu sync.Mutex
	tags   mapping.Tags

	alive atomic.Bool

	listener net.Listener

	// group tracks the per-connection handler goroutines spawned by
	// Serve's accept loop, so Shutdown can wait for in-flight handlers
	// to observe the cleared alive flag and return.
	group errgroup.Group
}

// New constructs a Proxy state root, wiring the ambient collaborators
// (logger, player data) alongside the domain state every component
// needs.
func New(cfg Config, dicts *mapping.StaticDictionaries, zoner *zoning.Zoner, resolver zoning.BackendResolver, logger *zap.Logger, playerData *proxydata.Store) *Proxy {
	p := &Proxy{
		Config:     cfg,
		Dicts:      dicts,
		Table:      mapping.NewTable(),
		Zoner:      zoner,
		Resolver:   resolver,
		logger:     logger,
		playerData: playerData,
		passes:     defaultPasses(),
		clients:    make(map[uuid.UUID]*Client),
	}
	p.alive.Store(true)
	return p
}

func (p *Proxy) Alive() bool { return p.alive.Load() }

// Serve binds the configured address and accepts connections in a loop,
// spawning an independent goroutine per accepted connection that runs
// the connection lifecycle (handshake -> login/status -> play).
func (p *Proxy) Serve() error {
	listener, err := net.Listen("tcp", p.Config.ProxyAddress)
	if err != nil {
		return fmt.Errorf("core: failed to listen on %s: %w", p.Config.ProxyAddress, err)
	}
	if p.Config.TLSProvider != nil {
		cert, err := p.Config.TLSProvider.GetCertificate(context.Background())
		if err != nil {
			listener.Close()
			return fmt.Errorf("core: failed to load TLS certificate: %w", err)
		}
		listener = tls.NewListener(listener, &tls.Config{Certificates: []tls.Certificate{*cert}})
		p.logger.Info("TLS enabled on client-facing listener")
	}
	p.listener = listener
	p.logger.Info("listening", zap.String("address", p.Config.ProxyAddress))

	go p.keepAliveWatcher()

	for p.Alive() {
		conn, err := listener.Accept()
		if err != nil {
			if !p.Alive() {
				return nil
			}
			p.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		p.group.Go(func() error {
			p.handleConnection(conn)
			return nil
		})
	}
	return nil
}

// Shutdown clears the alive flag, kicks every connected client, waits
// for in-flight connection handlers to return, and persists player
// data.
func (p *Proxy) Shutdown(ctx context.Context) {
	p.alive.Store(false)
	if p.listener != nil {
		p.listener.Close()
	}

	p.clientsMu.RLock()
	clients := make([]*Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clientsMu.RUnlock()

	for _, c := range clients {
		p.KickClient(c.ProxyUUID, "Server shut down")
	}

	if err := p.group.Wait(); err != nil {
		p.logger.Warn("connection handler returned an error during shutdown", zap.Error(err))
	}

	if err := p.playerData.Save(ctx); err != nil {
		p.logger.Warn("failed to persist player data on shutdown", zap.Error(err))
	}
}

// FindClientByName looks up a connected client by username, used by
// the command interface.
func (p *Proxy) FindClientByName(username string) (*Client, bool) {
	p.clientsMu.RLock()
	defer p.clientsMu.RUnlock()
	for _, c := range p.clients {
		if c.Username == username {
			return c, true
		}
	}
	return nil, false
}

// KickClient disconnects a client with a PlayDisconnect reason, persists
// its last position, and removes it from the registry.
func (p *Proxy) KickClient(proxyUUID uuid.UUID, reason string) {
	p.clientsMu.Lock()
	client, ok := p.clients[proxyUUID]
	if ok {
		delete(p.clients, proxyUUID)
	}
	p.clientsMu.Unlock()
	if !ok {
		return
	}

	packet := protocol.FromPacket(client.schema, protocol.StatePlay, protocol.Clientbound, protocol.PlayDisconnect{Reason: reason})
	if err := client.WritePacket(packet); err != nil {
		p.logger.Debug("kick: failed to deliver disconnect", zap.String("client", client.Username), zap.Error(err))
	}
	client.MarkDead()
	for _, bc := range client.Backends() {
		bc.MarkDead()
		bc.conn.Close()
	}
	client.conn.Close()

	x, y, z := client.Position()
	p.playerData.Record(proxyUUID, client.Username, x, y, z)
	if err := p.playerData.Save(context.Background()); err != nil {
		p.logger.Warn("failed to persist player data after kick", zap.String("client", client.Username), zap.Error(err))
	}
}

func (p *Proxy) registerClient(c *Client) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	p.clients[c.ProxyUUID] = c
}

func (p *Proxy) setTags(t mapping.Tags) {
	p.tagsMu.Lock()
	defer p.tagsMu.Unlock()
	p.tags = t
}

func (p *Proxy) Tags() mapping.Tags {
	p.tagsMu.Lock()
	defer p.tagsMu.Unlock()
	return p.tags
}

func (p *Proxy) tagsFromWire(pkt protocol.PlayTags) (mapping.Tags, error) {
	return mapping.TagsFromWire(mapping.WireTags{
		Blocks:   pkt.BlockTagIDs,
		Items:    pkt.ItemTagIDs,
		Fluids:   pkt.FluidTagIDs,
		Entities: pkt.EntityTagIDs,
	}, p.Dicts)
}

func (p *Proxy) tagsToWire(t mapping.Tags) (protocol.PlayTags, error) {
	w, err := mapping.TagsToWire(t, p.Dicts)
	if err != nil {
		return protocol.PlayTags{}, err
	}
	return protocol.PlayTags{
		BlockTagIDs:  w.Blocks,
		ItemTagIDs:   w.Items,
		FluidTagIDs:  w.Fluids,
		EntityTagIDs: w.Entities,
	}, nil
}

// ensureBackendConnection returns the client's connection to backendID,
// dialing a fresh one (via Resolver) if none is open yet.
func (p *Proxy) ensureBackendConnection(client *Client, backendID uint64) (*BackendConnection, error) {
	if bc, ok := client.Backend(backendID); ok && bc.Alive() {
		return bc, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	addr, err := p.Resolver.Resolve(ctx, backendID)
	if err != nil {
		return nil, fmt.Errorf("core: failed to resolve backend %d: %w", backendID, err)
	}
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("core: failed to dial backend %d at %s: %w", backendID, addr, err)
	}

	if p.Config.ProxyProtocol {
		if err := writeProxyProtocolHeader(conn, client.conn); err != nil {
			p.logger.Warn("failed to write PROXY protocol header",
				zap.Uint64("backend_id", backendID), zap.Error(err))
		}
	}

	fr := wire.NewFrameReader(conn)
	backendUUID, err := performBackendHandshake(fr, conn, addr, client.Username, client.version, client.schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("core: backend %d handshake failed: %w", backendID, err)
	}

	bc := newBackendConnection(conn, backendID, backendUUID, client.version, client.schema)
	client.setBackend(backendID, bc)
	client.readers.Go(func() error {
		backendReadLoop(p, client, bc, fr)
		return nil
	})
	return bc, nil
}

// performBackendHandshake runs the Handshake->Login sub-protocol against
// a freshly dialed backend, the same exchange a real Minecraft client
// would run against it, and returns the UUID the backend assigned this
// client. fr must read from conn and is also what the caller's
// subsequent Play-phase read loop uses, so no buffered bytes the
// backend sent past login are lost.
func performBackendHandshake(fr *wire.FrameReader, conn net.Conn, addr, username string, version protocol.Version, schema protocol.Schema) (uuid.UUID, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: backend address %q is not host:port: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: backend port %q is not numeric: %w", portStr, err)
	}

	fw := wire.NewFrameWriter(conn)
	handshakeFrame, err := schema.Encode(protocol.StateHandshake, protocol.Serverbound, protocol.Handshake{
		ProtocolVersion: version.Number(),
		ServerAddress:   host,
		ServerPort:      uint16(port),
		NextState:       protocol.NextLogin,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to encode backend handshake: %w", err)
	}
	if err := fw.WriteFrame(handshakeFrame); err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to write backend handshake: %w", err)
	}

	loginFrame, err := schema.Encode(protocol.StateLogin, protocol.Serverbound, protocol.LoginStart{Username: username})
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to encode backend login start: %w", err)
	}
	if err := fw.WriteFrame(loginFrame); err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to write backend login start: %w", err)
	}

	frame, err := fr.ReadFrame()
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to read backend login response: %w", err)
	}
	decoded, err := schema.Decode(protocol.StateLogin, protocol.Clientbound, frame)
	if err != nil {
		return uuid.Nil, fmt.Errorf("core: failed to decode backend login response: %w", err)
	}
	switch pkt := decoded.(type) {
	case protocol.LoginSuccess:
		return pkt.UUID, nil
	case protocol.LoginDisconnect:
		return uuid.Nil, fmt.Errorf("core: backend rejected login: %s", pkt.Reason)
	default:
		return uuid.Nil, fmt.Errorf("core: backend sent unexpected login-phase packet %s", decoded.Kind())
	}
}

// keepAliveWatcher periodically kicks clients whose oldest outstanding
// keep-alive nonce has exceeded the configured timeout, and sends a
// fresh keep-alive to every connected client on the configured
// interval. This is the proxy's only use of sleeps.
func (p *Proxy) keepAliveWatcher() {
	interval := p.Config.KeepAliveInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := p.Config.KeepAliveTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var nonce atomic.Int64
	for p.Alive() {
		<-ticker.C
		now := time.Now()
		p.clientsMu.RLock()
		clients := make([]*Client, 0, len(p.clients))
		for _, c := range p.clients {
			clients = append(clients, c)
		}
		p.clientsMu.RUnlock()

		for _, c := range clients {
			if !c.Alive() {
				continue
			}
			if c.keepAlive.TimedOut(timeout, now) {
				p.KickClient(c.ProxyUUID, "Timed out")
				continue
			}
			n := nonce.Inc()
			packet := protocol.FromPacket(c.schema, protocol.StatePlay, protocol.Clientbound, protocol.PlayKeepAliveClientbound{Nonce: n})
			if err := c.WritePacket(packet); err != nil {
				p.logger.Debug("keepalive send failed", zap.String("client", c.Username), zap.Error(err))
				if isFatalIo(err) {
					c.MarkDead()
				}
				continue
			}
			c.keepAlive.Push(n, now)
		}
	}
}

// writeProxyProtocolHeader writes a PROXY protocol v2 header to
// backendConn carrying clientConn's real remote address. Written once,
// immediately after dialing and before any Minecraft handshake bytes.
func writeProxyProtocolHeader(backendConn, clientConn net.Conn) error {
	sourceAddr, ok := clientConn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("core: client remote addr is not TCP: %v", clientConn.RemoteAddr())
	}
	destAddr, ok := backendConn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("core: backend remote addr is not TCP: %v", backendConn.RemoteAddr())
	}

	transport := proxyproto.TCPv4
	if sourceAddr.IP.To4() == nil {
		transport = proxyproto.TCPv6
	}

	header := proxyproto.Header{
		Version:           2,
		Command:           proxyproto.PROXY,
		TransportProtocol: transport,
		SourceAddr:        sourceAddr,
		DestinationAddr:   destAddr,
	}
	_, err := header.WriteTo(backendConn)
	return err
}
