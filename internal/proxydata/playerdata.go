// Package proxydata implements player-data persistence: a single JSON
// document recording each known client's last position, written on
// shutdown and after each kick.
package proxydata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// PlInfoPlayer is one player's persisted record: { x, y, z, name }.
type PlInfoPlayer struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Name string  `json:"name"`
}

// PlInfo is the on-disk document shape: { players: { <proxy_uuid>: {
// x, y, z, name } } }.
type PlInfo struct {
	Players map[uuid.UUID]PlInfoPlayer `json:"players"`
}

// Store is the loaded, mutable player-data document plus the path it
// persists to.
type Store struct {
	path string

	mu      sync.Mutex
	players map[uuid.UUID]PlInfoPlayer
}

// Load reads path if it exists, treating an absent file as empty.
func Load(path string) (*Store, error) {
	s := &Store{path: path, players: make(map[uuid.UUID]PlInfoPlayer)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("proxydata: failed to read %s: %w", path, err)
	}

	var doc PlInfo
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("proxydata: failed to parse %s: %w", path, err)
	}
	if doc.Players != nil {
		s.players = doc.Players
	}
	return s, nil
}

// Record updates a client's last-known position in memory; it is called
// on every kick, not just at shutdown.
func (s *Store) Record(playerUUID uuid.UUID, name string, x, y, z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerUUID] = PlInfoPlayer{X: x, Y: y, Z: z, Name: name}
}

// Position looks up a previously recorded player.
func (s *Store) Position(playerUUID uuid.UUID) (PlInfoPlayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerUUID]
	return p, ok
}

// Save writes the current document to disk. Write failures are logged
// by the caller, not fatal.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	doc := PlInfo{Players: make(map[uuid.UUID]PlInfoPlayer, len(s.players))}
	for k, v := range s.players {
		doc.Players[k] = v
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("proxydata: failed to marshal player data: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("proxydata: failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("proxydata: failed to replace %s: %w", s.path, err)
	}
	return nil
}
