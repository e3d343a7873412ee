package zoning

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZoneOfFirstMatchWins(t *testing.T) {
	z := NewZoner()
	z.Add(0, Rectangle{X1: -4, Z1: -4, X2: 4, Z2: 4})
	z.Add(1, InvertedRectangle{X1: -4, Z1: -4, X2: 4, Z2: 4})

	id, err := z.ZoneOf(0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	id, err = z.ZoneOf(10, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestZoneOfFallsBackToDefault(t *testing.T) {
	z := NewZoner()
	z.Add(0, Rectangle{X1: -4, Z1: -4, X2: 4, Z2: 4})
	z.SetDefault(7)

	id, err := z.ZoneOf(100, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)
}

func TestZoneOfUnzonedWithoutDefault(t *testing.T) {
	z := NewZoner()
	z.Add(0, Rectangle{X1: -4, Z1: -4, X2: 4, Z2: 4})

	_, err := z.ZoneOf(100, 100)
	require.ErrorIs(t, err, ErrUnzoned)
}

func TestRectangleContainsHandlesUnorderedCorners(t *testing.T) {
	r := Rectangle{X1: 4, Z1: 4, X2: -4, Z2: -4}
	require.True(t, r.Contains(0, 0))
	require.True(t, r.Contains(4, 4))
	require.False(t, r.Contains(5, 0))
}

func TestInvertedRectangleIsComplement(t *testing.T) {
	r := InvertedRectangle{X1: -4, Z1: -4, X2: 4, Z2: 4}
	require.False(t, r.Contains(0, 0))
	require.True(t, r.Contains(5, 0))
}
