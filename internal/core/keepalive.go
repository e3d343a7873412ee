package core

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// pendingKeepAlive is one outstanding keep-alive nonce sent to a client.
type pendingKeepAlive struct {
	Nonce  int64
	SentAt time.Time
}

// KeepAliveTracker maintains the ordered list of outstanding keep-alive
// nonces per client; if the oldest exceeds a configured threshold
// without a response, the client is kicked with TimedOut. A deque gives
// O(1) push-back and pop-front for this queue discipline.
type KeepAliveTracker struct {
	mu      sync.Mutex
	pending deque.Deque[pendingKeepAlive]
}

func NewKeepAliveTracker() *KeepAliveTracker {
	return &KeepAliveTracker{}
}

// Push records a freshly sent nonce.
func (k *KeepAliveTracker) Push(nonce int64, sentAt time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending.PushBack(pendingKeepAlive{Nonce: nonce, SentAt: sentAt})
}

// Ack removes the first pending entry matching nonce, and every older
// entry ahead of it (a client only ever needs to answer once to clear
// the backlog up to that point). Reports whether a match was found.
func (k *KeepAliveTracker) Ack(nonce int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for k.pending.Len() > 0 {
		front := k.pending.PopFront()
		if front.Nonce == nonce {
			return true
		}
	}
	return false
}

// Oldest reports the longest-outstanding nonce, if any.
func (k *KeepAliveTracker) Oldest() (pendingKeepAlive, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.pending.Len() == 0 {
		return pendingKeepAlive{}, false
	}
	return k.pending.Front(), true
}

// TimedOut reports whether the oldest outstanding nonce has exceeded
// threshold without a response.
func (k *KeepAliveTracker) TimedOut(threshold time.Duration, now time.Time) bool {
	oldest, ok := k.Oldest()
	if !ok {
		return false
	}
	return now.Sub(oldest.SentAt) > threshold
}
