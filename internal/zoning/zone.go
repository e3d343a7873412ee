// Package zoning implements the Zoner and active-server selection: a
// pure function from world coordinates to backend id, plus the
// BackendResolver abstraction that turns a backend id into a dial
// address.
package zoning

import "errors"

// Zone is a region of the world X/Z plane bound to one backend.
type Zone interface {
	Contains(x, z int64) bool
}

// Rectangle is an inclusive X/Z rectangle.
type Rectangle struct {
	X1, Z1, X2, Z2 int64
}

func (r Rectangle) Contains(x, z int64) bool {
	minX, maxX := minMax(r.X1, r.X2)
	minZ, maxZ := minMax(r.Z1, r.Z2)
	return x >= minX && x <= maxX && z >= minZ && z <= maxZ
}

// InvertedRectangle is the complement of a Rectangle.
type InvertedRectangle struct {
	X1, Z1, X2, Z2 int64
}

func (r InvertedRectangle) Contains(x, z int64) bool {
	return !Rectangle(r).Contains(x, z)
}

func minMax(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// ErrUnzoned is returned by Zoner.ZoneOf when no zone matches and no
// default backend is configured.
var ErrUnzoned = errors.New("zoning: no zone matches and no default backend configured")

type zoneEntry struct {
	BackendID uint64
	Zone      Zone
}

// Zoner is an ordered list of (backend_id, Zone) pairs, checked
// first-match-wins.
type Zoner struct {
	entries    []zoneEntry
	defaultID  uint64
	hasDefault bool
}

func NewZoner() *Zoner {
	return &Zoner{}
}

// Add appends a zone to the end of the list; lookup order is list order.
func (z *Zoner) Add(backendID uint64, zone Zone) {
	z.entries = append(z.entries, zoneEntry{BackendID: backendID, Zone: zone})
}

func (z *Zoner) SetDefault(backendID uint64) {
	z.defaultID = backendID
	z.hasDefault = true
}

// ZoneOf returns the backend id of the first matching zone in list
// order; if none match, it returns the configured default, or
// ErrUnzoned if there is none.
func (z *Zoner) ZoneOf(x, zCoord int64) (uint64, error) {
	for _, e := range z.entries {
		if e.Zone.Contains(x, zCoord) {
			return e.BackendID, nil
		}
	}
	if z.hasDefault {
		return z.defaultID, nil
	}
	return 0, ErrUnzoned
}
