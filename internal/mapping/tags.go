package mapping

import "fmt"

// TagList maps a tag name to an ordered list of namespaced member
// names. Invariant: every member name must resolve in the
// corresponding static id dictionary — enforced at construction time by
// TagsFromWire/TagsToWire, never by TagList itself.
type TagList map[string][]string

// Tags groups the four TagLists.
type Tags struct {
	Blocks, Items, Fluids, Entities TagList
}

// UnknownIDError is returned by TagsFromWire when a wire tag list
// references a numeric id absent from the static dictionary.
type UnknownIDError struct {
	Kind string
	ID   int32
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("mapping: unknown %s id %d", e.Kind, e.ID)
}

// UnknownNameError is returned by TagsToWire when a Tags value names a
// member absent from the static dictionary.
type UnknownNameError struct {
	Kind string
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("mapping: unknown %s name %q", e.Kind, e.Name)
}

func tagListFromWire(kind string, wire map[string][]int32, dict *StaticDictionary) (TagList, error) {
	out := make(TagList, len(wire))
	for name, ids := range wire {
		names := make([]string, len(ids))
		for i, id := range ids {
			n, ok := dict.NameByID(id)
			if !ok {
				return nil, &UnknownIDError{Kind: kind, ID: id}
			}
			names[i] = n
		}
		out[name] = names
	}
	return out, nil
}

func tagListToWire(kind string, list TagList, dict *StaticDictionary) (map[string][]int32, error) {
	out := make(map[string][]int32, len(list))
	for name, members := range list {
		ids := make([]int32, len(members))
		for i, member := range members {
			id, ok := dict.IDByName(member)
			if !ok {
				return nil, &UnknownNameError{Kind: kind, Name: member}
			}
			ids[i] = id
		}
		out[name] = ids
	}
	return out, nil
}

// WireTags is the numeric-id shape tag lists arrive in/leave as on the
// wire.
type WireTags struct {
	Blocks, Items, Fluids, Entities map[string][]int32
}

// TagsFromWire resolves each wire entry's numeric ids against the static
// dictionary of its kind, producing name-based Tags. Unknown ids fail
// with UnknownIDError.
func TagsFromWire(w WireTags, dicts *StaticDictionaries) (Tags, error) {
	blocks, err := tagListFromWire("block", w.Blocks, dicts.Blocks)
	if err != nil {
		return Tags{}, err
	}
	items, err := tagListFromWire("item", w.Items, dicts.Items)
	if err != nil {
		return Tags{}, err
	}
	fluids, err := tagListFromWire("fluid", w.Fluids, dicts.Fluids)
	if err != nil {
		return Tags{}, err
	}
	entities, err := tagListFromWire("entity", w.Entities, dicts.Entities)
	if err != nil {
		return Tags{}, err
	}
	return Tags{Blocks: blocks, Items: items, Fluids: fluids, Entities: entities}, nil
}

// TagsToWire is the inverse of TagsFromWire. Unknown names fail with
// UnknownNameError.
func TagsToWire(t Tags, dicts *StaticDictionaries) (WireTags, error) {
	blocks, err := tagListToWire("block", t.Blocks, dicts.Blocks)
	if err != nil {
		return WireTags{}, err
	}
	items, err := tagListToWire("item", t.Items, dicts.Items)
	if err != nil {
		return WireTags{}, err
	}
	fluids, err := tagListToWire("fluid", t.Fluids, dicts.Fluids)
	if err != nil {
		return WireTags{}, err
	}
	entities, err := tagListToWire("entity", t.Entities, dicts.Entities)
	if err != nil {
		return WireTags{}, err
	}
	return WireTags{Blocks: blocks, Items: items, Fluids: fluids, Entities: entities}, nil
}
