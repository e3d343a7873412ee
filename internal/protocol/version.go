// Package protocol implements the version registry and the
// packet-schema abstraction the rest of the core is parameterized over:
// the wire encoding of every packet variant lives only in this package's
// per-version schema files.
package protocol

import "fmt"

// Version is a closed enumeration of supported wire protocol versions.
type Version int32

const (
	V753 Version = 753
	V754 Version = 754
	V755 Version = 755
)

// UnsupportedVersionError reports a numeric protocol version the registry
// does not recognize.
type UnsupportedVersionError struct {
	Number int32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("protocol: unsupported or unimplemented version %d", e.Number)
}

// FromNumber resolves a wire-numbered protocol version, or reports
// UnsupportedVersionError for anything outside the compile-time constant
// supported set.
func FromNumber(n int32) (Version, error) {
	switch Version(n) {
	case V753, V754, V755:
		return Version(n), nil
	default:
		return 0, &UnsupportedVersionError{Number: n}
	}
}

func (v Version) Number() int32 { return int32(v) }

// Schema returns the packet-schema capability set bound to this version.
// 754 shares 753's schema. 755's schema is not implemented; Schema
// returns an UnsupportedVersionError for it so callers fail the same
// way an unrecognized number would on the Login path, while Status
// probes still get the baseline schema treatment (see
// core.Proxy.handleConnection).
func (v Version) Schema() (Schema, error) {
	switch v {
	case V753, V754:
		return baselineSchema{}, nil
	default:
		return nil, &UnsupportedVersionError{Number: int32(v)}
	}
}

// Baseline is the v753 schema used for every connection before its
// protocol version is known: the stream is wrapped in a reader/writer
// pair using this schema until the handshake reveals the real version.
func Baseline() Schema { return baselineSchema{} }
