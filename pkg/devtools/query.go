package devtools

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ConsoleFilter selects console records. Empty fields match everything.
type ConsoleFilter struct {
	Severity Severity
	Origin   string
	Contains string
}

func (f ConsoleFilter) empty() bool {
	return f == ConsoleFilter{}
}

func (f ConsoleFilter) match(r ConsoleRecord) bool {
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.Origin != "" && r.Origin != f.Origin {
		return false
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(r.Text), strings.ToLower(f.Contains)) {
		return false
	}
	return true
}

// QueryConsole returns the last limit console records matching filter in
// chronological order. A non-positive limit returns every match. With clear
// set the whole console store is emptied after the snapshot.
func (s *Session) QueryConsole(filter ConsoleFilter, limit int, clear bool) []ConsoleRecord {
	var match func(ConsoleRecord) bool
	if !filter.empty() {
		match = filter.match
	}
	return s.records.Console.Query(match, limit, clear)
}

// NetworkFilter selects network records. Empty fields match everything.
type NetworkFilter struct {
	// Method matches the HTTP method case-insensitively.
	Method string

	// URLPattern is a glob matched against the full request URL,
	// e.g. "*/api/*".
	URLPattern string

	// Status matches the response status code.
	Status int

	// PendingOnly selects records still waiting for a response.
	PendingOnly bool
}

func (f NetworkFilter) compile() (func(NetworkRecord) bool, error) {
	if f == (NetworkFilter{}) {
		return nil, nil
	}

	var pattern glob.Glob
	if f.URLPattern != "" {
		g, err := glob.Compile(f.URLPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", f.URLPattern, err)
		}
		pattern = g
	}

	return func(r NetworkRecord) bool {
		if f.Method != "" && !strings.EqualFold(r.Method, f.Method) {
			return false
		}
		if pattern != nil && !pattern.Match(r.URL) {
			return false
		}
		if f.Status != 0 && (r.Response == nil || r.Response.Status != f.Status) {
			return false
		}
		if f.PendingOnly && r.Response != nil {
			return false
		}
		return true
	}, nil
}

// QueryNetwork returns the last limit network records matching filter in
// chronological order, with the same limit and clear semantics as
// QueryConsole.
func (s *Session) QueryNetwork(filter NetworkFilter, limit int, clear bool) ([]NetworkRecord, error) {
	match, err := filter.compile()
	if err != nil {
		return nil, err
	}
	return s.records.Network.Query(match, limit, clear), nil
}
