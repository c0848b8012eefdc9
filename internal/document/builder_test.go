package document

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/laragen/laragen/internal/analyzer"
	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/params"
)

func intPtr(v int) *int { return &v }

func sampleResult() *analyzer.Result {
	nameMax := intPtr(255)
	return &analyzer.Result{
		Diagnostics: diag.NewCollector(),
		Routes: []analyzer.AnalyzedRoute{
			{
				Route: analyzer.Route{
					Method:     "GET",
					Path:       "/api/users",
					Controller: "UserController",
					Action:     "index",
				},
			},
			{
				Route: analyzer.Route{
					Method:     "POST",
					Path:       "/api/users",
					Controller: "UserController",
					Action:     "store",
					Middleware: []string{"auth:sanctum", "throttle:60,1"},
				},
				RateLimit: &analyzer.RateLimit{Limit: 60, Period: 60},
				Parameters: []params.Definition{
					{Name: "name", Type: "string", Required: true, MaxLength: nameMax},
					{Name: "email", Type: "string", Required: true, Format: "email"},
					{
						Name:                "company",
						Type:                "string",
						ConditionalRequired: true,
						ConditionalRules: []params.ConditionalRuleDetail{
							{Type: "required_if", Parameters: "type,business"},
						},
					},
				},
			},
			{
				Route: analyzer.Route{
					Method:     "GET",
					Path:       "/api/users/{id}",
					Controller: "UserController",
					Action:     "show",
				},
			},
		},
	}
}

func buildSample() *openapi3.T {
	return Build(sampleResult(), Info{
		Title:     "Test API",
		Version:   "1.0.0",
		ServerURL: "http://localhost:8080",
	})
}

func TestBuildDocumentHeader(t *testing.T) {
	doc := buildSample()

	if doc.OpenAPI != "3.0.3" {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	if doc.Info.Title != "Test API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers = %+v", doc.Servers)
	}
	if doc.Paths.Len() != 2 {
		t.Errorf("paths = %d, want 2", doc.Paths.Len())
	}
}

func TestBuildOperationShape(t *testing.T) {
	doc := buildSample()

	item := doc.Paths.Value("/api/users")
	if item == nil {
		t.Fatal("/api/users missing")
	}
	post := item.Post
	if post == nil {
		t.Fatal("POST operation missing")
	}
	if post.OperationID != "post_api_users" {
		t.Errorf("operationID = %q", post.OperationID)
	}
	if post.Summary != "Create a user" {
		t.Errorf("summary = %q", post.Summary)
	}
	if len(post.Tags) != 1 || post.Tags[0] != "user" {
		t.Errorf("tags = %v", post.Tags)
	}

	index := item.Get
	if index == nil || index.Summary != "List users" {
		t.Errorf("index summary = %+v", index)
	}
}

func TestBuildRequestBody(t *testing.T) {
	doc := buildSample()
	post := doc.Paths.Value("/api/users").Post

	if post.RequestBody == nil || post.RequestBody.Value == nil {
		t.Fatal("request body missing")
	}
	body := post.RequestBody.Value
	if !body.Required {
		t.Error("body should be required")
	}
	mt := body.Content["application/json"]
	if mt == nil || mt.Schema == nil {
		t.Fatal("json content missing")
	}
	schema := mt.Schema.Value

	if len(schema.Required) != 2 {
		t.Errorf("required = %v", schema.Required)
	}
	name := schema.Properties["name"].Value
	if name.MaxLength == nil || *name.MaxLength != 255 {
		t.Errorf("name maxLength = %v", name.MaxLength)
	}
	email := schema.Properties["email"].Value
	if email.Format != "email" {
		t.Errorf("email format = %q", email.Format)
	}

	// Conditionally required fields stay out of required and carry the
	// x-conditional-rules extension.
	for _, r := range schema.Required {
		if r == "company" {
			t.Error("company must not be plainly required")
		}
	}
	company := schema.Properties["company"].Value
	if company.Extensions["x-conditional-rules"] == nil {
		t.Error("company missing x-conditional-rules extension")
	}
}

func TestBuildResponsesAndSecurity(t *testing.T) {
	doc := buildSample()
	post := doc.Paths.Value("/api/users").Post

	if post.Responses.Value("201") == nil {
		t.Error("201 response missing")
	}
	if post.Responses.Value("422") == nil {
		t.Error("422 response missing")
	}
	if post.Responses.Value("401") == nil {
		t.Error("401 response missing")
	}

	if post.Security == nil || len(*post.Security) == 0 {
		t.Fatal("security missing")
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Error("bearerAuth scheme not registered")
	}

	// Collection GET gets the pagination envelope.
	index := doc.Paths.Value("/api/users").Get
	envelope := index.Responses.Value("200").Value.Content["application/json"].Schema.Value
	if envelope.Properties["data"] == nil || envelope.Properties["meta"] == nil {
		t.Errorf("envelope properties = %v", envelope.Properties)
	}
}

func TestBuildExtensions(t *testing.T) {
	doc := buildSample()
	post := doc.Paths.Value("/api/users").Post

	mw, ok := post.Extensions[ExtMiddleware].([]string)
	if !ok || len(mw) != 2 {
		t.Errorf("x-middleware = %v", post.Extensions[ExtMiddleware])
	}
	rl, ok := post.Extensions[ExtRateLimit].(map[string]any)
	if !ok || rl["limit"] != 60 {
		t.Errorf("x-rate-limit = %v", post.Extensions[ExtRateLimit])
	}
}

func TestBuildPathParameters(t *testing.T) {
	doc := buildSample()
	show := doc.Paths.Value("/api/users/{id}").Get
	if show == nil {
		t.Fatal("show operation missing")
	}

	var idParam *openapi3.Parameter
	for _, p := range show.Parameters {
		if p.Value != nil && p.Value.In == openapi3.ParameterInPath {
			idParam = p.Value
		}
	}
	if idParam == nil {
		t.Fatal("path parameter missing")
	}
	if idParam.Name != "id" || !idParam.Required {
		t.Errorf("param = %+v", idParam)
	}
	if !idParam.Schema.Value.Type.Is(openapi3.TypeInteger) {
		t.Error("id should be integer-typed")
	}
	if show.Responses.Value("404") == nil {
		t.Error("404 response missing for templated path")
	}
}

func TestResourceTagAndPlural(t *testing.T) {
	tests := []struct {
		controller string
		want       string
	}{
		{"UserController", "user"},
		{"BlogPostController", "blog_post"},
		{"APIController", "a_p_i"},
	}
	for _, tt := range tests {
		if got := resourceTag(tt.controller); got != tt.want {
			t.Errorf("resourceTag(%q) = %q, want %q", tt.controller, got, tt.want)
		}
	}

	if plural("category") != "categories" {
		t.Errorf("plural(category) = %q", plural("category"))
	}
	if plural("user") != "users" {
		t.Errorf("plural(user) = %q", plural("user"))
	}
}
