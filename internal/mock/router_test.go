package mock

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func testDoc(t *testing.T, paths map[string][]string) *openapi3.T {
	t.Helper()
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "test", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
	}
	for path, methods := range paths {
		item := &openapi3.PathItem{}
		for _, method := range methods {
			op := &openapi3.Operation{
				Responses: openapi3.NewResponses(),
			}
			item.SetOperation(method, op)
		}
		doc.Paths.Set(path, item)
	}
	return doc
}

func TestMatchTemplatedRoute(t *testing.T) {
	reg := LoadDocument(testDoc(t, map[string][]string{
		"/api/users":      {"GET", "POST"},
		"/api/users/{id}": {"GET", "PUT", "DELETE"},
	}))

	m := reg.Match("GET", "/api/users/42")
	if m == nil {
		t.Fatal("expected match for /api/users/42")
	}
	if m.Operation.Path != "/api/users/{id}" {
		t.Errorf("matched %q, want /api/users/{id}", m.Operation.Path)
	}
	if m.PathParams["id"] != "42" {
		t.Errorf("bound id = %q, want 42", m.PathParams["id"])
	}

	if reg.Match("GET", "/api/posts") != nil {
		t.Error("unexpected match for unknown path")
	}
	if reg.Match("PATCH", "/api/users/42") != nil {
		t.Error("unexpected match for undeclared method")
	}
}

func TestLiteralBeatsPlaceholder(t *testing.T) {
	reg := LoadDocument(testDoc(t, map[string][]string{
		"/api/users/{id}":    {"GET"},
		"/api/users/current": {"GET"},
	}))

	m := reg.Match("GET", "/api/users/current")
	if m == nil {
		t.Fatal("expected match")
	}
	if m.Operation.Path != "/api/users/current" {
		t.Errorf("matched %q, want the literal route", m.Operation.Path)
	}
	if len(m.PathParams) != 0 {
		t.Errorf("literal match bound params: %v", m.PathParams)
	}

	m = reg.Match("GET", "/api/users/99")
	if m == nil || m.Operation.Path != "/api/users/{id}" {
		t.Fatalf("expected placeholder route for /api/users/99, got %+v", m)
	}
}

func TestTrailingSlashAndQueryIgnored(t *testing.T) {
	reg := LoadDocument(testDoc(t, map[string][]string{
		"/api/users": {"GET"},
	}))

	if reg.Match("GET", "/api/users/") == nil {
		t.Error("trailing slash should still match")
	}
}

func TestPercentDecodedParams(t *testing.T) {
	reg := LoadDocument(testDoc(t, map[string][]string{
		"/api/tags/{name}": {"GET"},
	}))

	m := reg.Match("GET", "/api/tags/hello%20world")
	if m == nil {
		t.Fatal("expected match")
	}
	if m.PathParams["name"] != "hello world" {
		t.Errorf("param = %q, want decoded value", m.PathParams["name"])
	}
}

func TestMatchesOtherMethod(t *testing.T) {
	reg := LoadDocument(testDoc(t, map[string][]string{
		"/api/users": {"GET"},
	}))

	if !reg.MatchesOtherMethod("POST", "/api/users") {
		t.Error("expected other-method match for POST /api/users")
	}
	if reg.MatchesOtherMethod("POST", "/api/posts") {
		t.Error("unknown path should not report other-method match")
	}
}

func TestParseTemplate(t *testing.T) {
	tmpl := ParseTemplate("/api/users/{id}/posts")
	if len(tmpl) != 4 {
		t.Fatalf("got %d segments, want 4", len(tmpl))
	}
	if tmpl[2].Param != "id" {
		t.Errorf("segment 2 param = %q, want id", tmpl[2].Param)
	}
	if tmpl[3].Literal != "posts" {
		t.Errorf("segment 3 literal = %q, want posts", tmpl[3].Literal)
	}
}
