package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func exportDoc() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "Billing API", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
		Servers: openapi3.Servers{{URL: "https://billing.example.com"}},
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{
					Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer"},
				},
			},
		},
	}

	createSchema := openapi3.NewObjectSchema()
	createSchema.Properties = openapi3.Schemas{
		"amount":   openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"currency": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}

	create := &openapi3.Operation{
		Summary: "Create invoice",
		Tags:    []string{"Invoices"},
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithContent(openapi3.NewContentWithSchema(createSchema, []string{"application/json"})),
		},
		Responses: openapi3.NewResponses(),
		Security: openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate("bearerAuth")),
	}

	show := &openapi3.Operation{
		Summary: "Get invoice",
		Tags:    []string{"Invoices"},
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("include").WithSchema(openapi3.NewStringSchema())},
		},
		Responses: openapi3.NewResponses(),
	}

	invoices := &openapi3.PathItem{}
	invoices.SetOperation("POST", create)
	doc.Paths.Set("/api/invoices", invoices)

	invoice := &openapi3.PathItem{}
	invoice.SetOperation("GET", show)
	doc.Paths.Set("/api/invoices/{id}", invoice)
	return doc
}

func TestPostmanCollectionShape(t *testing.T) {
	col := Postman(exportDoc())

	if col.Info.Name != "Billing API" {
		t.Errorf("name = %q", col.Info.Name)
	}
	if !strings.Contains(col.Info.Schema, "v2.1.0") {
		t.Errorf("schema = %q", col.Info.Schema)
	}
	if len(col.Variable) == 0 || col.Variable[0].Value != "https://billing.example.com" {
		t.Errorf("baseUrl variable = %v", col.Variable)
	}

	if len(col.Item) != 1 || col.Item[0].Name != "Invoices" {
		t.Fatalf("folders = %+v", col.Item)
	}
	items := col.Item[0].Item
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestPostmanPathVariables(t *testing.T) {
	col := Postman(exportDoc())

	var show *Item
	for _, item := range col.Item[0].Item {
		if item.Request.Method == "GET" {
			show = item
		}
	}
	if show == nil {
		t.Fatal("GET item missing")
	}

	url := show.Request.URL
	if url.Path[len(url.Path)-1] != ":id" {
		t.Errorf("path = %v, want :id segment", url.Path)
	}
	if len(url.Variable) != 1 || url.Variable[0].Key != "id" {
		t.Errorf("variables = %v", url.Variable)
	}
	if len(url.Query) != 1 || url.Query[0].Key != "include" {
		t.Errorf("query = %v", url.Query)
	}
}

func TestPostmanBodyAndAuth(t *testing.T) {
	col := Postman(exportDoc())

	var create *Item
	for _, item := range col.Item[0].Item {
		if item.Request.Method == "POST" {
			create = item
		}
	}
	if create == nil {
		t.Fatal("POST item missing")
	}

	if create.Request.Body == nil {
		t.Fatal("expected a raw body")
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(create.Request.Body.Raw), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["amount"] != float64(1) {
		t.Errorf("amount placeholder = %v", body["amount"])
	}

	if create.Request.Auth == nil || create.Request.Auth.Type != "bearer" {
		t.Errorf("auth = %+v", create.Request.Auth)
	}
}
