package mapping

import "context"

// Loader produces a fresh Definition from the mock directory on every call.
// Files that fail to load are reported in the returned errors and contribute nothing.
// When the directory itself cannot be listed the Definition is nil.
type Loader interface {
	Load(ctx context.Context) (*Definition, []error)
}

// Entry is a single route key with its raw value and the file it came from.
// Source is empty for definitions built in code.
type Entry struct {
	Key    string
	Value  any
	Source string
}

// Definition is an ordered route key mapping. Setting an existing key replaces
// its value but keeps its original position.
type Definition struct {
	keys    []string
	entries map[string]Entry
}

func NewDefinition() *Definition {
	return &Definition{entries: make(map[string]Entry)}
}

func (d *Definition) Set(key string, value any) *Definition {
	return d.set(Entry{Key: key, Value: value})
}

func (d *Definition) set(entry Entry) *Definition {
	if d.entries == nil {
		d.entries = make(map[string]Entry)
	}

	if _, found := d.entries[entry.Key]; !found {
		d.keys = append(d.keys, entry.Key)
	}

	d.entries[entry.Key] = entry

	return d
}

// Merge copies every entry of other into d, other wins on identical keys.
func (d *Definition) Merge(other *Definition) *Definition {
	if other == nil {
		return d
	}

	for _, entry := range other.Entries() {
		d.set(entry)
	}

	return d
}

func (d *Definition) Get(key string) (Entry, bool) {
	entry, found := d.entries[key]
	return entry, found
}

func (d *Definition) Entries() []Entry {
	if d == nil {
		return nil
	}

	result := make([]Entry, 0, len(d.keys))
	for _, key := range d.keys {
		result = append(result, d.entries[key])
	}

	return result
}

func (d *Definition) Len() int {
	if d == nil {
		return 0
	}

	return len(d.keys)
}
