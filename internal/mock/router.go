package mock

import "strings"

// Match is a resolved route: the operation plus the bound path parameters.
type Match struct {
	Operation  *Operation
	PathParams map[string]string
}

// Match resolves a method and concrete request path to an operation. It
// returns nil when nothing matches. Matching ignores the query string and a
// single trailing slash; placeholder values are percent-decoded on binding.
// Templates with fewer placeholders are tried first, so a literal route
// always beats a placeholder route covering the same path.
func (r *Registry) Match(method, path string) *Match {
	segments := splitPath(path)
	for _, op := range r.byMethod[method] {
		if params, ok := op.Template.Bind(segments); ok {
			return &Match{Operation: op, PathParams: params}
		}
	}
	return nil
}

// MatchesOtherMethod reports whether the path matches some operation under a
// different method, which distinguishes 405 from 404.
func (r *Registry) MatchesOtherMethod(method, path string) bool {
	segments := splitPath(path)
	for m, ops := range r.byMethod {
		if m == method {
			continue
		}
		for _, op := range ops {
			if _, ok := op.Template.Bind(segments); ok {
				return true
			}
		}
	}
	return false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
