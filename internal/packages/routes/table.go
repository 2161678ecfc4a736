package routes

import (
	"github.com/djordjev/mock-simulator/internal/packages/pattern"
)

// Route is immutable once compiled and owned by the Table that holds it.
type Route struct {
	Method  Method
	Path    string
	Key     string
	Source  string
	Pattern *pattern.Pattern
	Action  Action
}

func (r *Route) Keys() []string {
	return r.Pattern.Keys()
}

// Table is a compiled snapshot of the mock API. Tables are never modified after
// Compile returns, so they can be shared freely between goroutines.
type Table struct {
	routes []*Route
}

func Empty() *Table {
	return &Table{}
}

// Routes returns the routes in definition order.
func (t *Table) Routes() []*Route {
	return append([]*Route(nil), t.routes...)
}

func (t *Table) Len() int {
	return len(t.routes)
}

// Match scans the table in order and returns the first route whose method and
// path both match. A nil route means nothing matched.
func (t *Table) Match(method string, escapedPath string) (*Route, pattern.Params, error) {
	for _, route := range t.routes {
		if !route.Method.Matches(method) {
			continue
		}

		params, isMatch, err := route.Pattern.Match(escapedPath)
		if err != nil {
			return nil, nil, err
		}

		if isMatch {
			return route, params, nil
		}
	}

	return nil, nil, nil
}
