package core

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/regenerativep/splinter-proxy/internal/protocol"
	"github.com/regenerativep/splinter-proxy/internal/wire"
)

// position is the client's last-known world position.
type position struct {
	X, Y, Z float64
}

// Client is a live play-phase session.
type Client struct {
	Username  string
	ProxyUUID uuid.UUID

	conn    net.Conn
	writeMu sync.Mutex

	alive atomic.Bool

	version protocol.Version
	schema  protocol.Schema

	backendsMu sync.RWMutex
	backends   map[uint64]*BackendConnection

	activeBackendID atomic.Uint64

	posMu sync.Mutex
	pos   position

	keepAlive *KeepAliveTracker

	// readers runs the client's reader loop and one reader loop per open
	// backend connection. It has no context, so it cancels nothing; the
	// loops end on their own via the alive flags.
	readers errgroup.Group
}

func newClient(conn net.Conn, username string, proxyUUID uuid.UUID, version protocol.Version, schema protocol.Schema) *Client {
	c := &Client{
		Username:  username,
		ProxyUUID: proxyUUID,
		conn:      conn,
		version:   version,
		schema:    schema,
		backends:  make(map[uint64]*BackendConnection),
		keepAlive: NewKeepAliveTracker(),
	}
	c.alive.Store(true)
	return c
}

func (c *Client) Alive() bool { return c.alive.Load() }

// MarkDead clears the alive flag; every loop touching this client checks
// it once per iteration.
func (c *Client) MarkDead() { c.alive.Store(false) }

// WritePacket re-encodes (or forwards verbatim) a packet to the client
// socket, holding the writer lock for the duration of the write. This is
// the primary client writer: a write failure here is fatal to the
// session, so it comes back wrapped as a fatalIoError.
func (c *Client) WritePacket(p *protocol.LazyDeserializedPacket) error {
	frame, err := p.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wire.NewFrameWriter(c.conn).WriteFrame(frame); err != nil {
		return fatalIoError(err)
	}
	return nil
}

func (c *Client) Write(b []byte) (int, error) { return c.conn.Write(b) }

func (c *Client) ActiveBackendID() uint64 { return c.activeBackendID.Load() }

func (c *Client) setActiveBackendID(id uint64) { c.activeBackendID.Store(id) }

func (c *Client) Position() (x, y, z float64) {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	return c.pos.X, c.pos.Y, c.pos.Z
}

func (c *Client) SetPosition(x, y, z float64) {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	c.pos = position{X: x, Y: y, Z: z}
}

func (c *Client) Backend(id uint64) (*BackendConnection, bool) {
	c.backendsMu.RLock()
	defer c.backendsMu.RUnlock()
	bc, ok := c.backends[id]
	return bc, ok
}

func (c *Client) setBackend(id uint64, bc *BackendConnection) {
	c.backendsMu.Lock()
	defer c.backendsMu.Unlock()
	c.backends[id] = bc
}

// Backends returns a snapshot of all open backend connections, used by
// shutdown/kick teardown.
func (c *Client) Backends() []*BackendConnection {
	c.backendsMu.RLock()
	defer c.backendsMu.RUnlock()
	out := make([]*BackendConnection, 0, len(c.backends))
	for _, bc := range c.backends {
		out = append(out, bc)
	}
	return out
}

// BackendConnection is a connection to one simulation server on behalf
// of a single client.
type BackendConnection struct {
	BackendID   uint64
	BackendUUID uuid.UUID

	conn    net.Conn
	writeMu sync.Mutex

	alive atomic.Bool

	version protocol.Version
	schema  protocol.Schema
}

func newBackendConnection(conn net.Conn, backendID uint64, backendUUID uuid.UUID, version protocol.Version, schema protocol.Schema) *BackendConnection {
	bc := &BackendConnection{
		BackendID:   backendID,
		BackendUUID: backendUUID,
		conn:        conn,
		version:     version,
		schema:      schema,
	}
	bc.alive.Store(true)
	return bc
}

func (b *BackendConnection) Alive() bool { return b.alive.Load() }
func (b *BackendConnection) MarkDead()   { b.alive.Store(false) }

// WritePacket writes to one backend connection. This is never the
// primary client writer, so a failure here is transient: the caller
// logs it and the connection's own read loop is what eventually notices
// the backend went away.
func (b *BackendConnection) WritePacket(p *protocol.LazyDeserializedPacket) error {
	frame, err := p.Encode()
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := wire.NewFrameWriter(b.conn).WriteFrame(frame); err != nil {
		return transientIoError(err)
	}
	return nil
}

func (b *BackendConnection) Write(p []byte) (int, error) { return b.conn.Write(p) }
