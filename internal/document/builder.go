// Package document assembles analysis results into an OpenAPI 3 document
// and persists it. The document is the single hand-off artifact between the
// analysis path and the mock-serving path.
package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/laragen/laragen/internal/analyzer"
	"github.com/laragen/laragen/internal/params"
)

// Info configures the document header.
type Info struct {
	Title       string
	Version     string
	Description string
	ServerURL   string
}

// Extension field names consumed by the mock server.
const (
	ExtMiddleware = "x-middleware"
	ExtRateLimit  = "x-rate-limit"
)

var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// Build assembles the OpenAPI document from analyzed routes. Routes arrive
// already sorted by path+method, so assembly is deterministic.
func Build(res *analyzer.Result, info Info) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{},
			Schemas:         openapi3.Schemas{},
		},
	}
	if info.ServerURL != "" {
		doc.Servers = openapi3.Servers{&openapi3.Server{URL: info.ServerURL}}
	}

	for _, route := range res.Routes {
		op := buildOperation(route, doc)
		item := doc.Paths.Value(route.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(route.Path, item)
		}
		item.SetOperation(route.Method, op)
	}
	return doc
}

func buildOperation(route analyzer.AnalyzedRoute, doc *openapi3.T) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: operationID(route.Method, route.Path),
		Summary:     summarize(route),
		Tags:        []string{resourceTag(route.Controller)},
		Responses:   buildResponses(route),
	}

	for _, name := range placeholderNames(route.Path) {
		p := openapi3.NewPathParameter(name).WithSchema(pathParamSchema(name))
		p.Required = true
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}

	if hasBody(route.Method) {
		if body := buildRequestBody(route.Parameters); body != nil {
			op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		}
	} else {
		for _, def := range route.Parameters {
			q := openapi3.NewQueryParameter(def.Name).WithSchema(schemaFor(def))
			q.Required = def.Required
			q.Description = def.Description
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: q})
		}
	}

	applySecurity(op, route.Middleware, doc)

	if len(route.Middleware) > 0 || route.RateLimit != nil {
		op.Extensions = map[string]any{}
		if len(route.Middleware) > 0 {
			op.Extensions[ExtMiddleware] = route.Middleware
		}
		if route.RateLimit != nil {
			op.Extensions[ExtRateLimit] = map[string]any{
				"limit":  route.RateLimit.Limit,
				"period": route.RateLimit.Period,
			}
		}
	}
	return op
}

// buildRequestBody builds the JSON (or multipart, when uploads are present)
// request schema from the route's parameter definitions.
func buildRequestBody(defs []params.Definition) *openapi3.RequestBody {
	if len(defs) == 0 {
		return nil
	}
	schema := openapi3.NewObjectSchema()
	hasFile := false
	for _, def := range defs {
		if def.Type == "file" {
			hasFile = true
		}
		schema.Properties[def.Name] = openapi3.NewSchemaRef("", schemaFor(def))
		if def.Required {
			schema.Required = append(schema.Required, def.Name)
		}
	}

	mediaType := "application/json"
	if hasFile {
		mediaType = "multipart/form-data"
	}
	body := openapi3.NewRequestBody().WithRequired(len(schema.Required) > 0)
	body.Content = openapi3.NewContentWithSchema(schema, []string{mediaType})
	return body
}

// schemaFor converts one parameter definition into an OpenAPI schema,
// carrying conditional-requiredness as a vendor extension so the information
// survives the document boundary.
func schemaFor(def params.Definition) *openapi3.Schema {
	var s *openapi3.Schema
	switch def.Type {
	case "integer":
		s = openapi3.NewIntegerSchema()
	case "number":
		s = openapi3.NewFloat64Schema()
	case "boolean":
		s = openapi3.NewBoolSchema()
	case "array":
		s = &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}
	case "file":
		s = openapi3.NewStringSchema()
		s.Format = "binary"
	default:
		s = openapi3.NewStringSchema()
	}

	if def.Format != "" && s.Format == "" {
		s.Format = def.Format
	}
	s.Description = def.Description
	s.Nullable = def.Nullable
	s.Pattern = def.Pattern
	if def.Example != nil {
		s.Example = def.Example
	}
	if def.Enum != nil {
		for _, v := range def.Enum.Values {
			s.Enum = append(s.Enum, v)
		}
	}
	if def.MinLength != nil {
		s.MinLength = uint64(*def.MinLength)
	}
	if def.MaxLength != nil {
		v := uint64(*def.MaxLength)
		s.MaxLength = &v
	}
	if def.Minimum != nil {
		s.Min = def.Minimum
	}
	if def.Maximum != nil {
		s.Max = def.Maximum
	}
	if def.MinItems != nil {
		s.MinItems = uint64(*def.MinItems)
	}
	if def.MaxItems != nil {
		v := uint64(*def.MaxItems)
		s.MaxItems = &v
	}
	if def.ConditionalRequired {
		s.Extensions = map[string]any{"x-conditional-rules": def.ConditionalRules}
	}
	return s
}

func buildResponses(route analyzer.AnalyzedRoute) *openapi3.Responses {
	var opts []openapi3.NewResponsesOption

	successCode := 200
	if route.Method == "POST" {
		successCode = 201
	}
	var successSchema *openapi3.Schema
	switch {
	case route.Method == "GET" && !strings.Contains(route.Path, "{"):
		successSchema = paginationEnvelopeSchema()
	case route.Method == "DELETE":
		successCode = 204
	default:
		successSchema = resourceSchema(route.Parameters)
	}

	success := openapi3.NewResponse().WithDescription(statusDescription(successCode))
	if successSchema != nil {
		success = success.WithJSONSchema(successSchema)
	}
	opts = append(opts, openapi3.WithStatus(successCode, &openapi3.ResponseRef{Value: success}))

	if len(route.Parameters) > 0 && hasBody(route.Method) {
		unprocessable := openapi3.NewResponse().
			WithDescription("Validation failed").
			WithJSONSchema(validationErrorSchema())
		opts = append(opts, openapi3.WithStatus(422, &openapi3.ResponseRef{Value: unprocessable}))
	}
	if hasAuthMiddleware(route.Middleware) {
		unauthorized := openapi3.NewResponse().
			WithDescription("Unauthenticated").
			WithJSONSchema(errorSchema())
		opts = append(opts, openapi3.WithStatus(401, &openapi3.ResponseRef{Value: unauthorized}))
	}
	if strings.Contains(route.Path, "{") {
		notFound := openapi3.NewResponse().
			WithDescription("Not found").
			WithJSONSchema(errorSchema())
		opts = append(opts, openapi3.WithStatus(404, &openapi3.ResponseRef{Value: notFound}))
	}
	return openapi3.NewResponses(opts...)
}

// resourceSchema approximates the resource's shape from its writable fields.
func resourceSchema(defs []params.Definition) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	id := openapi3.NewIntegerSchema()
	id.Example = 1
	s.Properties["id"] = openapi3.NewSchemaRef("", id)
	for _, def := range defs {
		if def.Type == "file" {
			continue
		}
		s.Properties[def.Name] = openapi3.NewSchemaRef("", schemaFor(def))
	}
	return s
}

// paginationEnvelopeSchema is the standard index-endpoint shape: data plus
// links/meta, which the mock synthesizer recognizes and fills.
func paginationEnvelopeSchema() *openapi3.Schema {
	item := openapi3.NewObjectSchema()
	idSchema := openapi3.NewIntegerSchema()
	idSchema.Example = 1
	item.Properties["id"] = openapi3.NewSchemaRef("", idSchema)

	data := &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: openapi3.NewSchemaRef("", item),
	}

	links := openapi3.NewObjectSchema()
	for _, name := range []string{"first", "last", "prev", "next"} {
		ls := openapi3.NewStringSchema()
		ls.Nullable = true
		links.Properties[name] = openapi3.NewSchemaRef("", ls)
	}

	meta := openapi3.NewObjectSchema()
	for _, name := range []string{"current_page", "from", "last_page", "per_page", "to", "total"} {
		meta.Properties[name] = openapi3.NewSchemaRef("", openapi3.NewIntegerSchema())
	}
	pathSchema := openapi3.NewStringSchema()
	meta.Properties["path"] = openapi3.NewSchemaRef("", pathSchema)

	envelope := openapi3.NewObjectSchema()
	envelope.Properties["data"] = openapi3.NewSchemaRef("", data)
	envelope.Properties["links"] = openapi3.NewSchemaRef("", links)
	envelope.Properties["meta"] = openapi3.NewSchemaRef("", meta)
	return envelope
}

func validationErrorSchema() *openapi3.Schema {
	errors := openapi3.NewObjectSchema()
	errors.AdditionalProperties = openapi3.AdditionalProperties{
		Schema: openapi3.NewSchemaRef("", &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}),
	}
	s := openapi3.NewObjectSchema()
	s.Properties["message"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	s.Properties["errors"] = openapi3.NewSchemaRef("", errors)
	return s
}

func errorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties["message"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	return s
}

// applySecurity maps auth middleware onto security requirements, registering
// the referenced schemes in components on first use.
func applySecurity(op *openapi3.Operation, middleware []string, doc *openapi3.T) {
	for _, mw := range middleware {
		name, guard, _ := strings.Cut(mw, ":")
		if name != "auth" {
			continue
		}
		switch guard {
		case "basic":
			ensureScheme(doc, "basicAuth", &openapi3.SecurityScheme{Type: "http", Scheme: "basic"})
			addRequirement(op, "basicAuth")
		default:
			// sanctum, api and bare auth all present as bearer tokens.
			ensureScheme(doc, "bearerAuth", &openapi3.SecurityScheme{Type: "http", Scheme: "bearer"})
			addRequirement(op, "bearerAuth")
		}
		return
	}
}

func ensureScheme(doc *openapi3.T, name string, scheme *openapi3.SecurityScheme) {
	if _, ok := doc.Components.SecuritySchemes[name]; !ok {
		doc.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{Value: scheme}
	}
}

func addRequirement(op *openapi3.Operation, scheme string) {
	reqs := openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	op.Security = reqs
}

func hasAuthMiddleware(middleware []string) bool {
	for _, mw := range middleware {
		if mw == "auth" || strings.HasPrefix(mw, "auth:") {
			return true
		}
	}
	return false
}

func hasBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func placeholderNames(path string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		names = append(names, m[1])
	}
	return names
}

func pathParamSchema(name string) *openapi3.Schema {
	if name == "id" || strings.HasSuffix(name, "_id") {
		return openapi3.NewIntegerSchema()
	}
	return openapi3.NewStringSchema()
}

func operationID(method, path string) string {
	cleaned := placeholderPattern.ReplaceAllString(path, "")
	cleaned = strings.Trim(strings.ReplaceAll(cleaned, "/", "_"), "_")
	cleaned = strings.ReplaceAll(cleaned, "__", "_")
	return strings.ToLower(method) + "_" + cleaned
}

func summarize(route analyzer.AnalyzedRoute) string {
	resource := resourceTag(route.Controller)
	switch route.Action {
	case "index":
		return fmt.Sprintf("List %s", plural(resource))
	case "show":
		return fmt.Sprintf("Get a %s", resource)
	case "store":
		return fmt.Sprintf("Create a %s", resource)
	case "update":
		return fmt.Sprintf("Update a %s", resource)
	case "destroy":
		return fmt.Sprintf("Delete a %s", resource)
	}
	return fmt.Sprintf("%s %s", capitalize(route.Action), resource)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// resourceTag derives a lowercase resource name from the controller class
// name (UserController -> user).
func resourceTag(controller string) string {
	name := strings.TrimSuffix(controller, "Controller")
	if name == "" {
		name = controller
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func plural(s string) string {
	if strings.HasSuffix(s, "s") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") {
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

func statusDescription(code int) string {
	switch code {
	case 200:
		return "Successful response"
	case 201:
		return "Resource created"
	case 204:
		return "Resource deleted"
	default:
		return "Response"
	}
}
