package mock

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func responseWithSchema(schema *openapi3.Schema) *openapi3.Response {
	return openapi3.NewResponse().
		WithDescription("ok").
		WithContent(openapi3.NewContentWithSchema(schema, []string{"application/json"}))
}

func TestGenerateIntegerRespectsBounds(t *testing.T) {
	age := openapi3.NewIntegerSchema()
	min, max := 18.0, 65.0
	age.Min = &min
	age.Max = &max

	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{"age": openapi3.NewSchemaRef("", age)}

	op := &Operation{
		Method:    "GET",
		Path:      "/api/users/{id}",
		Responses: map[int]*openapi3.Response{200: responseWithSchema(schema)},
	}

	g := NewGenerator(1)
	for i := 0; i < 100; i++ {
		resp := g.Generate(op, 200, "", nil)
		body, ok := resp.Body.(map[string]any)
		if !ok {
			t.Fatalf("body = %T", resp.Body)
		}
		n, ok := body["age"].(int64)
		if !ok {
			t.Fatalf("age = %T", body["age"])
		}
		if n < 18 || n > 65 {
			t.Fatalf("generated age %d outside [18, 65]", n)
		}
	}
}

func TestGenerateScenarioServesNamedExample(t *testing.T) {
	okSchema := openapi3.NewObjectSchema()
	okResp := responseWithSchema(okSchema)
	okResp.Content["application/json"].Examples = openapi3.Examples{
		"success": &openapi3.ExampleRef{Value: &openapi3.Example{Value: map[string]any{"id": float64(1)}}},
	}

	notFound := openapi3.NewResponse().
		WithDescription("missing").
		WithContent(openapi3.NewContentWithSchema(openapi3.NewObjectSchema(), []string{"application/json"}))
	notFound.Content["application/json"].Examples = openapi3.Examples{
		"not_found": &openapi3.ExampleRef{Value: &openapi3.Example{Value: map[string]any{"message": "User not found"}}},
	}

	op := &Operation{
		Method: "GET",
		Path:   "/api/users/{id}",
		Responses: map[int]*openapi3.Response{
			200: okResp,
			404: notFound,
		},
	}

	g := NewGenerator(1)
	resp := g.Generate(op, 200, "not_found", nil)
	if resp.Status != 404 {
		t.Errorf("status = %d, want the example's declared code 404", resp.Status)
	}
	body, _ := resp.Body.(map[string]any)
	if body["message"] != "User not found" {
		t.Errorf("body = %v, want the example verbatim", resp.Body)
	}

	// Unknown scenario falls back to the requested status.
	resp = g.Generate(op, 200, "nonexistent", nil)
	if resp.Status != 200 {
		t.Errorf("fallback status = %d, want 200", resp.Status)
	}
}

func TestGeneratePaginationEnvelope(t *testing.T) {
	item := openapi3.NewObjectSchema()
	item.Properties = openapi3.Schemas{
		"id":   openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"name": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}

	data := openapi3.NewArraySchema()
	data.Items = openapi3.NewSchemaRef("", item)

	meta := openapi3.NewObjectSchema()
	meta.Properties = openapi3.Schemas{
		"current_page": openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"per_page":     openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"total":        openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"last_page":    openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
	}

	envelope := openapi3.NewObjectSchema()
	envelope.Properties = openapi3.Schemas{
		"data": openapi3.NewSchemaRef("", data),
		"meta": openapi3.NewSchemaRef("", meta),
	}

	op := &Operation{
		Method:    "GET",
		Path:      "/api/users",
		Responses: map[int]*openapi3.Response{200: responseWithSchema(envelope)},
	}

	g := NewGenerator(7)
	resp := g.Generate(op, 200, "", nil)
	body, _ := resp.Body.(map[string]any)
	items, ok := body["data"].([]any)
	if !ok || len(items) < 2 {
		t.Fatalf("data = %v, want several items", body["data"])
	}
	metaOut, ok := body["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta = %T", body["meta"])
	}
	if metaOut["current_page"] != int64(1) {
		t.Errorf("current_page = %v", metaOut["current_page"])
	}
	if metaOut["total"] != int64(len(items)) {
		t.Errorf("total = %v, want %d", metaOut["total"], len(items))
	}
}

func TestGenerateSubstitutesPathParams(t *testing.T) {
	okSchema := openapi3.NewObjectSchema()
	okResp := responseWithSchema(okSchema)
	okResp.Content["application/json"].Example = map[string]any{
		"id":  "{id}",
		"url": "https://api.example.com/users/{id}",
	}

	op := &Operation{
		Method:    "GET",
		Path:      "/api/users/{id}",
		Responses: map[int]*openapi3.Response{200: okResp},
	}

	g := NewGenerator(1)
	resp := g.Generate(op, 200, "", map[string]string{"id": "42"})
	body, _ := resp.Body.(map[string]any)
	if body["id"] != "42" {
		t.Errorf("id = %v", body["id"])
	}
	if body["url"] != "https://api.example.com/users/42" {
		t.Errorf("url = %v", body["url"])
	}
}

func TestGenerateEchoesBoundIntegerParam(t *testing.T) {
	item := openapi3.NewObjectSchema()
	item.Properties = openapi3.Schemas{
		"id": openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
	}

	op := &Operation{
		Method:    "GET",
		Path:      "/api/users/{id}",
		Responses: map[int]*openapi3.Response{200: responseWithSchema(item)},
	}

	g := NewGenerator(1)
	resp := g.Generate(op, 200, "", map[string]string{"id": "123"})
	body, _ := resp.Body.(map[string]any)
	if body["id"] != int64(123) {
		t.Errorf("id = %v, want the bound path value", body["id"])
	}
}

func TestGenerateFormatsAndEnums(t *testing.T) {
	email := openapi3.NewStringSchema()
	email.Format = "email"
	status := openapi3.NewStringSchema()
	status.Enum = []any{"active", "inactive"}

	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		"email":  openapi3.NewSchemaRef("", email),
		"status": openapi3.NewSchemaRef("", status),
	}

	op := &Operation{
		Method:    "GET",
		Path:      "/api/users/1",
		Responses: map[int]*openapi3.Response{200: responseWithSchema(schema)},
	}

	g := NewGenerator(1)
	body, _ := g.Generate(op, 200, "", nil).Body.(map[string]any)
	if body["email"] != "user@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if body["status"] != "active" {
		t.Errorf("status = %v, want first enum value", body["status"])
	}
}

func TestGenerateHonorsSimplePattern(t *testing.T) {
	sku := openapi3.NewStringSchema()
	sku.Pattern = "^(draft|published)$"
	code := openapi3.NewStringSchema()
	code.Pattern = `^[A-Z]{3}-\d+$` // too elaborate, generic string applies

	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		"sku":  openapi3.NewSchemaRef("", sku),
		"code": openapi3.NewSchemaRef("", code),
	}
	op := &Operation{
		Method:    "GET",
		Path:      "/api/items/1",
		Responses: map[int]*openapi3.Response{200: responseWithSchema(schema)},
	}

	g := NewGenerator(1)
	body, _ := g.Generate(op, 200, "", nil).Body.(map[string]any)
	if body["sku"] != "draft" {
		t.Errorf("sku = %v, want first alternation literal", body["sku"])
	}
	if body["code"] != "Sample code" {
		t.Errorf("code = %v, want generic string", body["code"])
	}
}

func TestGenerateDefaultBodies(t *testing.T) {
	op := &Operation{Method: "POST", Path: "/api/users", Responses: map[int]*openapi3.Response{}}
	g := NewGenerator(1)

	resp := g.Generate(op, 422, "", nil)
	body, _ := resp.Body.(map[string]any)
	if body["message"] != "The given data was invalid." {
		t.Errorf("422 body = %v", resp.Body)
	}

	resp = g.Generate(op, 204, "", nil)
	if resp.Body != nil {
		t.Errorf("204 body = %v, want empty", resp.Body)
	}

	resp = g.Generate(op, 401, "", nil)
	body, _ = resp.Body.(map[string]any)
	if body["error"] != "Unauthorized" || body["message"] != "Unauthenticated." {
		t.Errorf("401 body = %v", resp.Body)
	}

	resp = g.Generate(op, 500, "", nil)
	body, _ = resp.Body.(map[string]any)
	if body["error"] != "Internal Server Error" || body["message"] != "Internal Server Error" {
		t.Errorf("500 body = %v", resp.Body)
	}
}

func TestDefaultStatusPrefersLowestSuccess(t *testing.T) {
	op := &Operation{Responses: map[int]*openapi3.Response{
		404: openapi3.NewResponse().WithDescription("missing"),
		201: openapi3.NewResponse().WithDescription("created"),
		200: openapi3.NewResponse().WithDescription("ok"),
	}}
	if got := DefaultStatus(op); got != 200 {
		t.Errorf("DefaultStatus = %d, want 200", got)
	}

	op = &Operation{Responses: map[int]*openapi3.Response{404: openapi3.NewResponse().WithDescription("missing")}}
	if got := DefaultStatus(op); got != 404 {
		t.Errorf("DefaultStatus = %d, want 404", got)
	}
}
