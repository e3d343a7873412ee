package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeepAliveTrackerPushAckOldest(t *testing.T) {
	k := NewKeepAliveTracker()
	_, ok := k.Oldest()
	require.False(t, ok)

	now := time.Now()
	k.Push(1, now)
	k.Push(2, now.Add(time.Second))

	oldest, ok := k.Oldest()
	require.True(t, ok)
	require.Equal(t, int64(1), oldest.Nonce)

	require.True(t, k.Ack(1))
	oldest, ok = k.Oldest()
	require.True(t, ok)
	require.Equal(t, int64(2), oldest.Nonce)
}

func TestKeepAliveTrackerAckClearsEverythingOlder(t *testing.T) {
	k := NewKeepAliveTracker()
	now := time.Now()
	k.Push(1, now)
	k.Push(2, now)
	k.Push(3, now)

	require.True(t, k.Ack(2))
	oldest, ok := k.Oldest()
	require.True(t, ok)
	require.Equal(t, int64(3), oldest.Nonce, "acking nonce 2 must also drop the stale nonce 1 ahead of it")
}

func TestKeepAliveTrackerAckUnknownNonceDrainsQueue(t *testing.T) {
	k := NewKeepAliveTracker()
	k.Push(1, time.Now())
	require.False(t, k.Ack(999))
	_, ok := k.Oldest()
	require.False(t, ok)
}

func TestKeepAliveTrackerTimedOut(t *testing.T) {
	k := NewKeepAliveTracker()
	sentAt := time.Now().Add(-time.Minute)
	k.Push(1, sentAt)

	require.True(t, k.TimedOut(30*time.Second, time.Now()))
	require.False(t, k.TimedOut(2*time.Minute, time.Now()))
}
