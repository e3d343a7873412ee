package zoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticResolverResolveAndSet(t *testing.T) {
	r := NewStaticResolver(map[uint64]string{0: "127.0.0.1:25566"})

	addr, err := r.Resolve(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:25566", addr)

	_, err = r.Resolve(context.Background(), 99)
	require.Error(t, err)

	r.Set(99, "127.0.0.1:25567")
	addr, err = r.Resolve(context.Background(), 99)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:25567", addr)
}

func TestStaticResolverCopiesInputMap(t *testing.T) {
	backing := map[uint64]string{0: "a"}
	r := NewStaticResolver(backing)
	backing[0] = "mutated"

	addr, err := r.Resolve(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "a", addr)
}
