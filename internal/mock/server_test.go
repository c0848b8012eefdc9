package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func serverDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "test", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{
					Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer"},
				},
			},
		},
	}

	userSchema := openapi3.NewObjectSchema()
	userSchema.Properties = openapi3.Schemas{
		"id":   openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"name": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}

	show := &openapi3.Operation{
		OperationID: "getUser",
		Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
			Value: responseWithSchema(userSchema),
		})),
	}

	createSchema := openapi3.NewObjectSchema()
	createSchema.Required = []string{"name"}
	createSchema.Properties = openapi3.Schemas{
		"name": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}
	create := &openapi3.Operation{
		OperationID: "createUser",
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithContent(openapi3.NewContentWithSchema(createSchema, []string{"application/json"})),
		},
		Responses: openapi3.NewResponses(openapi3.WithStatus(201, &openapi3.ResponseRef{
			Value: responseWithSchema(userSchema),
		})),
		Security: openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate("bearerAuth")),
		Extensions: map[string]any{
			"x-rate-limit": map[string]any{"limit": 2, "period": 60},
		},
	}

	users := &openapi3.PathItem{}
	users.SetOperation("POST", create)
	doc.Paths.Set("/api/users", users)

	user := &openapi3.PathItem{}
	user.SetOperation("GET", show)
	doc.Paths.Set("/api/users/{id}", user)
	return doc
}

func testServer(t *testing.T) http.Handler {
	t.Helper()
	s := NewServer(serverDoc(t), Config{
		Auth: AuthConfig{Tokens: []string{"valid-token"}},
		Seed: 1,
	})
	return s.Handler()
}

func doRequest(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServeUnknownPath(t *testing.T) {
	h := testServer(t)
	w := doRequest(h, "GET", "/api/unknown", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeWrongMethod(t *testing.T) {
	h := testServer(t)
	w := doRequest(h, "DELETE", "/api/users", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestServeSuccess(t *testing.T) {
	h := testServer(t)
	w := doRequest(h, "GET", "/api/users/42", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["id"] != float64(42) {
		t.Errorf("id = %v, want the bound path value", body["id"])
	}
}

func TestServeUnauthenticated(t *testing.T) {
	h := testServer(t)
	w := doRequest(h, "POST", "/api/users", `{"name":"Ada"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Bearer") {
		t.Errorf("message = %q", msg)
	}
}

func TestServeValidationFailure(t *testing.T) {
	h := testServer(t)
	headers := map[string]string{"Authorization": "Bearer valid-token"}

	w := doRequest(h, "POST", "/api/users", `{}`, headers)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "The given data was invalid." {
		t.Errorf("message = %q", body.Message)
	}
	if len(body.Errors["name"]) == 0 {
		t.Errorf("errors = %v, want a name error", body.Errors)
	}
}

func TestServeRateLimit(t *testing.T) {
	h := testServer(t)
	headers := map[string]string{"Authorization": "Bearer valid-token"}

	for i := 0; i < 2; i++ {
		w := doRequest(h, "POST", "/api/users", `{"name":"Ada"}`, headers)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d, body = %s", i, w.Code, w.Body.String())
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}

	w := doRequest(h, "POST", "/api/users", `{"name":"Ada"}`, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestServeForcedStatus(t *testing.T) {
	h := testServer(t)
	w := doRequest(h, "GET", "/api/users/42?_status=404", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want forced 404", w.Code)
	}
}

func TestServePercentInPathValue(t *testing.T) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "test", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
	}
	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		"name": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}
	resp := responseWithSchema(schema)
	resp.Content.Get("application/json").Example = map[string]any{"name": "{name}"}
	item := &openapi3.PathItem{}
	item.SetOperation("GET", &openapi3.Operation{
		Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: resp})),
	})
	doc.Paths.Set("/api/tags/{name}", item)

	h := NewServer(doc, Config{Seed: 1}).Handler()
	w := doRequest(h, "GET", "/api/tags/50%25off", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "50%off" {
		t.Errorf("name = %q, want the value decoded exactly once", body["name"])
	}
}

func TestServeReload(t *testing.T) {
	s := NewServer(serverDoc(t), Config{Seed: 1})
	h := s.Handler()

	if w := doRequest(h, "GET", "/api/users/42", "", nil); w.Code != http.StatusOK {
		t.Fatalf("status before reload = %d", w.Code)
	}

	empty := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "empty", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
	}
	s.Reload(empty)

	if w := doRequest(h, "GET", "/api/users/42", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("status after reload = %d, want 404", w.Code)
	}
}
