// Package mapping implements the identifier remapping tables: per-proxy
// bijections for entity ids and UUIDs, the process-wide static
// id<->name dictionaries, and tag-list translation.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
)

// idNamePair is the shape of each element of the four static data
// files: a top-level array of {"id": int, "name": string}.
type idNamePair struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// StaticDictionary is an immutable-after-load bijection between a
// numeric id and a namespaced name, used for blocks, items, entities,
// and fluids.
type StaticDictionary struct {
	idToName map[int32]string
	nameToID map[string]int32
}

func LoadStaticDictionary(path string) (*StaticDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: failed to load %q: %w", path, err)
	}
	var pairs []idNamePair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("mapping: failed to parse %q: %w", path, err)
	}
	d := &StaticDictionary{
		idToName: make(map[int32]string, len(pairs)),
		nameToID: make(map[string]int32, len(pairs)),
	}
	for _, p := range pairs {
		d.idToName[p.ID] = p.Name
		d.nameToID[p.Name] = p.ID
	}
	return d, nil
}

func (d *StaticDictionary) NameByID(id int32) (string, bool) {
	name, ok := d.idToName[id]
	return name, ok
}

func (d *StaticDictionary) IDByName(name string) (int32, bool) {
	id, ok := d.nameToID[name]
	return id, ok
}

// StaticDictionaries bundles the four process-wide dictionaries,
// loaded once from external data; failure to load is fatal at
// startup.
type StaticDictionaries struct {
	Blocks   *StaticDictionary
	Items    *StaticDictionary
	Entities *StaticDictionary
	Fluids   *StaticDictionary
}

type StaticDictionaryPaths struct {
	Blocks, Items, Entities, Fluids string
}

func LoadStaticDictionaries(paths StaticDictionaryPaths) (*StaticDictionaries, error) {
	blocks, err := LoadStaticDictionary(paths.Blocks)
	if err != nil {
		return nil, err
	}
	items, err := LoadStaticDictionary(paths.Items)
	if err != nil {
		return nil, err
	}
	entities, err := LoadStaticDictionary(paths.Entities)
	if err != nil {
		return nil, err
	}
	fluids, err := LoadStaticDictionary(paths.Fluids)
	if err != nil {
		return nil, err
	}
	return &StaticDictionaries{Blocks: blocks, Items: items, Entities: entities, Fluids: fluids}, nil
}
