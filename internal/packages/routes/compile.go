package routes

import (
	"github.com/djordjev/mock-simulator/internal/packages/mapping"
	"github.com/djordjev/mock-simulator/internal/packages/pattern"
)

// Compile builds a Table from a Definition, keeping key order. A single bad
// entry fails the whole compilation with a *ReloadError listing every problem.
func Compile(definition *mapping.Definition) (*Table, error) {
	entries := definition.Entries()

	table := &Table{routes: make([]*Route, 0, len(entries))}
	var errs []error

	for _, entry := range entries {
		route, err := compileEntry(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		table.routes = append(table.routes, route)
	}

	if len(errs) > 0 {
		return nil, &ReloadError{Errors: errs}
	}

	return table, nil
}

func compileEntry(entry mapping.Entry) (*Route, error) {
	action, err := newAction(entry.Value)
	if err != nil {
		return nil, &ConfigError{Key: entry.Key, Source: entry.Source, Err: err}
	}

	method, path := ParseKey(entry.Key)

	compiled, err := pattern.Compile(path)
	if err != nil {
		return nil, &ConfigError{Key: entry.Key, Source: entry.Source, Err: err}
	}

	return &Route{
		Method:  method,
		Path:    path,
		Key:     entry.Key,
		Source:  entry.Source,
		Pattern: compiled,
		Action:  action,
	}, nil
}
