// Package mock serves synthetic responses for a generated OpenAPI document:
// route matching, request validation, response synthesis and authentication
// simulation. The loaded document is compiled once into an immutable
// operation set; serving never mutates it, so concurrent requests need no
// locking.
package mock

import (
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Segment is one piece of a route template: a literal or a named
// placeholder.
type Segment struct {
	Literal string
	Param   string // non-empty for placeholder segments
}

// RouteTemplate is an ordered list of path segments.
type RouteTemplate []Segment

// ParseTemplate splits a templated path into segments.
func ParseTemplate(path string) RouteTemplate {
	path = strings.Trim(path, "/")
	if path == "" {
		return RouteTemplate{}
	}
	parts := strings.Split(path, "/")
	t := make(RouteTemplate, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			t = append(t, Segment{Param: p[1 : len(p)-1]})
		} else {
			t = append(t, Segment{Literal: p})
		}
	}
	return t
}

// Bind matches concrete path segments against the template. Literal
// segments compare exactly (case-sensitive); placeholder segments bind the
// percent-decoded value.
func (t RouteTemplate) Bind(segments []string) (map[string]string, bool) {
	if len(segments) != len(t) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range t {
		if seg.Param == "" {
			if seg.Literal != segments[i] {
				return nil, false
			}
			continue
		}
		value, err := url.PathUnescape(segments[i])
		if err != nil {
			value = segments[i]
		}
		params[seg.Param] = value
	}
	return params, true
}

func (t RouteTemplate) paramCount() int {
	n := 0
	for _, seg := range t {
		if seg.Param != "" {
			n++
		}
	}
	return n
}

// SecurityRequirement is one alternative authentication scheme declared for
// an operation, in document order.
type SecurityRequirement struct {
	SchemeName string
	Type       string // http, apiKey, oauth2
	Scheme     string // bearer, basic (for http)
	In         string // header, query (for apiKey)
	ParamName  string // header/query name (for apiKey)
	Scopes     []string
}

// RateLimit is the decoded x-rate-limit extension.
type RateLimit struct {
	Limit  int
	Period int // seconds
}

// Operation is one compiled, read-only mock operation.
type Operation struct {
	Method        string
	Path          string
	Template      RouteTemplate
	Security      []SecurityRequirement
	RequestSchema *openapi3.Schema // JSON body schema, nil when bodyless
	BodyRequired  bool
	QueryParams   []*openapi3.Parameter
	PathParams    []*openapi3.Parameter
	Responses     map[int]*openapi3.Response
	RateLimit     *RateLimit
	Middleware    []string
}

// Registry is the compiled operation set for one document. Built once at
// load time, read-only thereafter.
type Registry struct {
	byMethod map[string][]*Operation
	all      []*Operation
}

// LoadDocument compiles an OpenAPI document into a registry.
func LoadDocument(doc *openapi3.T) *Registry {
	reg := &Registry{byMethod: make(map[string][]*Operation)}
	if doc.Paths == nil {
		return reg
	}

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for method, specOp := range item.Operations() {
			op := compileOperation(doc, method, path, specOp)
			reg.byMethod[method] = append(reg.byMethod[method], op)
			reg.all = append(reg.all, op)
		}
	}

	// Literal templates must win over placeholder templates: sort each
	// method's operations by placeholder count, then by longer path.
	for method := range reg.byMethod {
		ops := reg.byMethod[method]
		sort.SliceStable(ops, func(i, j int) bool {
			pi, pj := ops[i].Template.paramCount(), ops[j].Template.paramCount()
			if pi != pj {
				return pi < pj
			}
			return len(ops[i].Path) > len(ops[j].Path)
		})
	}
	return reg
}

// Operations returns every compiled operation.
func (r *Registry) Operations() []*Operation {
	return r.all
}

func compileOperation(doc *openapi3.T, method, path string, specOp *openapi3.Operation) *Operation {
	op := &Operation{
		Method:    method,
		Path:      path,
		Template:  ParseTemplate(path),
		Responses: make(map[int]*openapi3.Response),
	}

	if specOp.RequestBody != nil && specOp.RequestBody.Value != nil {
		op.BodyRequired = specOp.RequestBody.Value.Required
		for _, mt := range specOp.RequestBody.Value.Content {
			if mt.Schema != nil && mt.Schema.Value != nil {
				op.RequestSchema = mt.Schema.Value
				break
			}
		}
	}

	for _, pref := range specOp.Parameters {
		if pref.Value == nil {
			continue
		}
		switch pref.Value.In {
		case openapi3.ParameterInQuery:
			op.QueryParams = append(op.QueryParams, pref.Value)
		case openapi3.ParameterInPath:
			op.PathParams = append(op.PathParams, pref.Value)
		}
	}

	if specOp.Responses != nil {
		for statusText, rref := range specOp.Responses.Map() {
			if rref == nil || rref.Value == nil {
				continue
			}
			if code, ok := statusCode(statusText); ok {
				op.Responses[code] = rref.Value
			}
		}
	}

	op.Security = compileSecurity(doc, specOp)
	op.Middleware = middlewareExtension(specOp.Extensions)
	op.RateLimit = rateLimitExtension(specOp.Extensions)

	// x-middleware lets the authenticator infer security for documents that
	// carry no explicit requirements.
	if len(op.Security) == 0 && hasAuthMiddleware(op.Middleware) {
		op.Security = []SecurityRequirement{{SchemeName: "bearerAuth", Type: "http", Scheme: "bearer"}}
	}
	return op
}

func compileSecurity(doc *openapi3.T, specOp *openapi3.Operation) []SecurityRequirement {
	var reqLists openapi3.SecurityRequirements
	if specOp.Security != nil {
		reqLists = *specOp.Security
	} else if doc.Security != nil {
		reqLists = doc.Security
	}

	var out []SecurityRequirement
	for _, req := range reqLists {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sr := SecurityRequirement{SchemeName: name, Scopes: req[name]}
			if doc.Components != nil {
				if ref, ok := doc.Components.SecuritySchemes[name]; ok && ref.Value != nil {
					sr.Type = ref.Value.Type
					sr.Scheme = ref.Value.Scheme
					sr.In = ref.Value.In
					sr.ParamName = ref.Value.Name
				}
			}
			if sr.Type == "" {
				sr.Type = "http"
				sr.Scheme = "bearer"
			}
			out = append(out, sr)
		}
	}
	return out
}

func middlewareExtension(ext map[string]any) []string {
	raw, ok := ext["x-middleware"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func rateLimitExtension(ext map[string]any) *RateLimit {
	raw, ok := ext["x-rate-limit"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	rl := &RateLimit{Limit: intValue(m["limit"]), Period: intValue(m["period"])}
	if rl.Limit <= 0 {
		return nil
	}
	if rl.Period <= 0 {
		rl.Period = 60
	}
	return rl
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func hasAuthMiddleware(middleware []string) bool {
	for _, mw := range middleware {
		if mw == "auth" || strings.HasPrefix(mw, "auth:") {
			return true
		}
	}
	return false
}

func statusCode(text string) (int, bool) {
	if len(text) != 3 {
		return 0, false
	}
	code := 0
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, false
		}
		code = code*10 + int(c-'0')
	}
	return code, true
}
