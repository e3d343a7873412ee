package mapping

import (
	"sync"

	"github.com/google/uuid"
)

// eidKey identifies an entity as its originating backend knows it:
// (backend_id, backend_eid) maps to a single proxy_eid.
type eidKey struct {
	BackendID  uint64
	BackendEID int32
}

type uuidKey struct {
	BackendID   uint64
	BackendUUID uuid.UUID
}

// EntityData is the auxiliary per-proxy_eid state kept alongside the
// mapping (the entity's type code, needed later by relay passes without
// a round trip to the backend).
type EntityData struct {
	EntityType int32
}

// Table is the per-proxy mapping table. An exclusive lock is held for
// the duration of a single pass-chain invocation, not per individual
// call, so the lookup/allocate methods below do not lock internally:
// the relay loop calls Lock once before running the pass chain for a
// packet and Unlock once after (see core.runPassChain).
type Table struct {
	mu sync.Mutex

	entityIDs     map[eidKey]int32
	entityIDsBack map[int32]eidKey
	entityData    map[int32]EntityData
	eidGen        *IDGenerator

	uuids     map[uuidKey]uuid.UUID
	uuidsBack map[uuid.UUID]uuidKey
	uuidGen   func() uuid.UUID
}

func NewTable() *Table {
	return &Table{
		entityIDs:     make(map[eidKey]int32),
		entityIDsBack: make(map[int32]eidKey),
		entityData:    make(map[int32]EntityData),
		eidGen:        NewIDGenerator(),
		uuids:         make(map[uuidKey]uuid.UUID),
		uuidsBack:     make(map[uuid.UUID]uuidKey),
		uuidGen:       uuid.New,
	}
}

// MapEIDServerToProxy returns the existing proxy_eid mapping for
// (backendID, backendEID) if present; otherwise it allocates a fresh
// proxy_eid, records entityType, installs both directions of the
// bijection, and returns it. The first (backend_id, backend_eid) seen
// keeps its proxy_eid — later calls are idempotent.
func (t *Table) MapEIDServerToProxy(backendID uint64, backendEID int32, entityType int32) int32 {
	key := eidKey{BackendID: backendID, BackendEID: backendEID}
	if proxyEID, ok := t.entityIDs[key]; ok {
		return proxyEID
	}
	proxyEID := t.eidGen.Next()
	t.entityIDs[key] = proxyEID
	t.entityIDsBack[proxyEID] = key
	t.entityData[proxyEID] = EntityData{EntityType: entityType}
	return proxyEID
}

// MapEIDProxyToServer is the inverse lookup; ok is false if proxyEID was
// never allocated.
func (t *Table) MapEIDProxyToServer(proxyEID int32) (backendID uint64, backendEID int32, ok bool) {
	key, ok := t.entityIDsBack[proxyEID]
	return key.BackendID, key.BackendEID, ok
}

func (t *Table) EntityData(proxyEID int32) (EntityData, bool) {
	d, ok := t.entityData[proxyEID]
	return d, ok
}

// MapUUIDServerToProxy is the UUID analog of MapEIDServerToProxy,
// equally idempotent.
func (t *Table) MapUUIDServerToProxy(backendID uint64, backendUUID uuid.UUID) uuid.UUID {
	key := uuidKey{BackendID: backendID, BackendUUID: backendUUID}
	if proxyUUID, ok := t.uuids[key]; ok {
		return proxyUUID
	}
	proxyUUID := t.uuidGen()
	t.uuids[key] = proxyUUID
	t.uuidsBack[proxyUUID] = key
	return proxyUUID
}

func (t *Table) MapUUIDProxyToServer(proxyUUID uuid.UUID) (backendID uint64, backendUUID uuid.UUID, ok bool) {
	key, ok := t.uuidsBack[proxyUUID]
	return key.BackendID, key.BackendUUID, ok
}

// Lock/Unlock expose the single-writer discipline (exclusive lock per
// packet processing, held for the duration of a single pass-chain
// invocation) to callers that need to hold the lock across several
// Table calls within one relay-pass-chain invocation.
func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }
