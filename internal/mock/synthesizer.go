package mock

import (
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// Generator synthesizes response bodies from response examples and schemas.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded for varied output.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// SynthesizedResponse is the outcome of response synthesis.
type SynthesizedResponse struct {
	Status  int
	Headers map[string]string
	Body    any
}

// DefaultStatus picks the status served when the client requests none: the
// lowest declared 2xx code, else the lowest declared code, else 200.
func DefaultStatus(op *Operation) int {
	codes := make([]int, 0, len(op.Responses))
	for code := range op.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		if code >= 200 && code < 300 {
			return code
		}
	}
	if len(codes) > 0 {
		return codes[0]
	}
	return http.StatusOK
}

// Generate builds a response for the operation. A non-empty scenario selects
// the named example wherever it is declared, and the served status becomes
// that example's response code. Otherwise the response declared for status
// is used: its example verbatim when present, else a body synthesized from
// its schema. Path parameter values substitute into {placeholder} markers
// and into properties named after a bound parameter.
func (g *Generator) Generate(op *Operation, status int, scenario string, pathParams map[string]string) SynthesizedResponse {
	if scenario != "" {
		if resp := g.fromScenario(op, scenario, pathParams); resp != nil {
			return *resp
		}
	}

	out := SynthesizedResponse{Status: status, Headers: headerValues(op.Responses[status])}
	response := op.Responses[status]
	if response == nil {
		out.Body = defaultBodyFor(status)
		return out
	}

	media := jsonContent(response)
	if media == nil {
		out.Body = defaultBodyFor(status)
		return out
	}
	if media.Example != nil {
		out.Body = substitute(media.Example, pathParams)
		return out
	}
	if len(media.Examples) > 0 {
		// No scenario requested: serve the first example by name.
		names := exampleNames(media)
		if ex := media.Examples[names[0]]; ex != nil && ex.Value != nil {
			out.Body = substitute(ex.Value.Value, pathParams)
			return out
		}
	}
	if media.Schema != nil && media.Schema.Value != nil {
		out.Body = g.fromSchema(media.Schema.Value, "", pathParams)
		return out
	}
	out.Body = defaultBodyFor(status)
	return out
}

// fromScenario searches every declared response for a named example and
// serves it with that response's status code.
func (g *Generator) fromScenario(op *Operation, scenario string, pathParams map[string]string) *SynthesizedResponse {
	codes := make([]int, 0, len(op.Responses))
	for code := range op.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		media := jsonContent(op.Responses[code])
		if media == nil {
			continue
		}
		ex, ok := media.Examples[scenario]
		if !ok || ex.Value == nil {
			continue
		}
		return &SynthesizedResponse{
			Status:  code,
			Headers: headerValues(op.Responses[code]),
			Body:    substitute(ex.Value.Value, pathParams),
		}
	}
	return nil
}

func (g *Generator) fromSchema(schema *openapi3.Schema, field string, pathParams map[string]string) any {
	if schema == nil {
		return nil
	}
	if schema.Example != nil {
		return substitute(schema.Example, pathParams)
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}

	switch {
	case schema.Type.Is(openapi3.TypeInteger):
		if bound, ok := pathParams[field]; ok {
			if n, err := strconv.ParseInt(bound, 10, 64); err == nil {
				return n
			}
		}
		return g.randomInt(schema)
	case schema.Type.Is(openapi3.TypeNumber):
		return g.randomFloat(schema)
	case schema.Type.Is(openapi3.TypeBoolean):
		return true
	case schema.Type.Is(openapi3.TypeArray):
		return g.generateArray(schema, field, pathParams, 1)
	case schema.Type.Is(openapi3.TypeObject):
		return g.generateObject(schema, pathParams)
	default:
		if bound, ok := pathParams[field]; ok {
			return bound
		}
		return g.stringFor(schema, field)
	}
}

// generateObject synthesizes each property. Objects shaped like a
// pagination envelope get a multi-item data array and page metadata that
// agree with each other.
func (g *Generator) generateObject(schema *openapi3.Schema, pathParams map[string]string) map[string]any {
	out := make(map[string]any, len(schema.Properties))
	dataRef, paginated := paginationEnvelope(schema)

	for _, name := range sortedPropertyNames(schema) {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		if paginated && name == "data" {
			out[name] = g.generateArray(dataRef.Value, name, pathParams, 3)
			continue
		}
		out[name] = g.fromSchema(ref.Value, name, pathParams)
	}

	if paginated {
		items, _ := out["data"].([]any)
		if meta, ok := out["meta"].(map[string]any); ok {
			meta["current_page"] = int64(1)
			meta["per_page"] = int64(15)
			meta["total"] = int64(len(items))
			meta["last_page"] = int64(1)
		}
	}
	return out
}

func (g *Generator) generateArray(schema *openapi3.Schema, field string, pathParams map[string]string, count int) []any {
	if schema.Items == nil || schema.Items.Value == nil {
		return []any{}
	}
	if schema.MinItems > 0 && count < int(schema.MinItems) {
		count = int(schema.MinItems)
	}
	if schema.MaxItems != nil && count > int(*schema.MaxItems) {
		count = int(*schema.MaxItems)
	}
	items := make([]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, g.fromSchema(schema.Items.Value, field, pathParams))
	}
	return items
}

func (g *Generator) randomInt(schema *openapi3.Schema) int64 {
	lo, hi := int64(1), int64(1000)
	if schema.Min != nil {
		lo = int64(*schema.Min)
	}
	if schema.Max != nil {
		hi = int64(*schema.Max)
	}
	if hi < lo {
		hi = lo
	}
	return lo + g.rng.Int63n(hi-lo+1)
}

func (g *Generator) randomFloat(schema *openapi3.Schema) float64 {
	lo, hi := 0.0, 1000.0
	if schema.Min != nil {
		lo = *schema.Min
	}
	if schema.Max != nil {
		hi = *schema.Max
	}
	if hi < lo {
		hi = lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) stringFor(schema *openapi3.Schema, field string) string {
	switch schema.Format {
	case "email":
		return "user@example.com"
	case "uuid":
		return uuid.NewString()
	case "uri":
		return "https://example.com"
	case "date":
		return "2026-01-15"
	case "date-time":
		return "2026-01-15T10:30:00Z"
	case "ipv4":
		return "192.168.1.1"
	case "ipv6":
		return "2001:db8::1"
	case "password":
		return "********"
	}
	if schema.Pattern != "" {
		if s := literalFromPattern(schema.Pattern); s != "" {
			return s
		}
	}
	s := "sample text"
	if field != "" && field != "data" {
		s = "Sample " + strings.ReplaceAll(field, "_", " ")
	}
	if schema.MinLength > 0 && uint64(len(s)) < schema.MinLength {
		s += strings.Repeat("x", int(schema.MinLength)-len(s))
	}
	if schema.MaxLength != nil && uint64(len(s)) > *schema.MaxLength {
		s = s[:*schema.MaxLength]
	}
	return s
}

// literalFromPattern extracts a concrete value from an anchored literal or
// alternation pattern such as ^(draft|published)$. The candidate is checked
// against the compiled pattern; anything more elaborate yields "" and the
// generic string path applies.
func literalFromPattern(pattern string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	if i := strings.IndexByte(s, '|'); i >= 0 {
		s = s[:i]
	}
	if s == "" || strings.ContainsAny(s, `\[](){}.*+?^$|`) {
		return ""
	}
	if re, err := regexp.Compile(pattern); err != nil || !re.MatchString(s) {
		return ""
	}
	return s
}

// substitute replaces {param} markers in string values with bound path
// parameter values, recursively through objects and arrays.
func substitute(value any, pathParams map[string]string) any {
	if len(pathParams) == 0 {
		return value
	}
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{") {
			return v
		}
		for name, bound := range pathParams {
			v = strings.ReplaceAll(v, "{"+name+"}", bound)
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = substitute(item, pathParams)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substitute(item, pathParams)
		}
		return out
	}
	return value
}

func paginationEnvelope(schema *openapi3.Schema) (*openapi3.SchemaRef, bool) {
	dataRef, ok := schema.Properties["data"]
	if !ok || dataRef.Value == nil || !dataRef.Value.Type.Is(openapi3.TypeArray) {
		return nil, false
	}
	if _, ok := schema.Properties["meta"]; ok {
		return dataRef, true
	}
	if _, ok := schema.Properties["links"]; ok {
		return dataRef, true
	}
	return nil, false
}

func jsonContent(response *openapi3.Response) *openapi3.MediaType {
	if response == nil {
		return nil
	}
	if mt, ok := response.Content["application/json"]; ok {
		return mt
	}
	for _, mt := range response.Content {
		return mt
	}
	return nil
}

func exampleNames(media *openapi3.MediaType) []string {
	names := make([]string, 0, len(media.Examples))
	for name := range media.Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func headerValues(response *openapi3.Response) map[string]string {
	if response == nil || len(response.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(response.Headers))
	for name, ref := range response.Headers {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ref.Value.Example != nil {
			out[name] = fmt.Sprintf("%v", ref.Value.Example)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func defaultBodyFor(status int) any {
	switch {
	case status == http.StatusUnprocessableEntity:
		return map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string]any{},
		}
	case status == http.StatusUnauthorized:
		return map[string]any{"error": "Unauthorized", "message": "Unauthenticated."}
	case status == http.StatusNotFound:
		return map[string]any{"error": "Not Found", "message": "The requested resource was not found."}
	case status == http.StatusNoContent:
		return nil
	case status >= 400:
		return map[string]any{"error": http.StatusText(status), "message": http.StatusText(status)}
	}
	return map[string]any{}
}
