package mapping

import "go.uber.org/atomic"

// IDGenerator is a monotonic allocator yielding strictly increasing ids
// starting from 1, never reusing a value.
type IDGenerator struct {
	next atomic.Int32
}

func NewIDGenerator() *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(1)
	return g
}

func (g *IDGenerator) Next() int32 {
	return g.next.Inc() - 1
}
