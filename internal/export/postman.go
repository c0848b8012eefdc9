// Package export converts a generated OpenAPI document into a Postman
// collection so consumers can import the API directly.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

const collectionSchema = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman collection v2.1 document.
type Collection struct {
	Info     CollectionInfo `json:"info"`
	Item     []*Folder      `json:"item"`
	Variable []Variable     `json:"variable,omitempty"`
}

// CollectionInfo identifies the collection.
type CollectionInfo struct {
	PostmanID   string `json:"_postman_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema"`
}

// Folder groups requests by resource tag.
type Folder struct {
	Name string  `json:"name"`
	Item []*Item `json:"item"`
}

// Item is a single request.
type Item struct {
	Name    string  `json:"name"`
	Request Request `json:"request"`
}

// Request is the Postman request body.
type Request struct {
	Method      string   `json:"method"`
	Header      []Header `json:"header,omitempty"`
	URL         URL      `json:"url"`
	Body        *Body    `json:"body,omitempty"`
	Auth        *Auth    `json:"auth,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Header is a request header pair.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// URL is the decomposed request URL.
type URL struct {
	Raw      string     `json:"raw"`
	Host     []string   `json:"host"`
	Path     []string   `json:"path"`
	Query    []Query    `json:"query,omitempty"`
	Variable []Variable `json:"variable,omitempty"`
}

// Query is a query string pair.
type Query struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Variable is a collection or URL variable.
type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Body is a raw JSON request body.
type Body struct {
	Mode    string       `json:"mode"`
	Raw     string       `json:"raw"`
	Options *BodyOptions `json:"options,omitempty"`
}

// BodyOptions sets the raw body language.
type BodyOptions struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

// Auth declares the request authentication.
type Auth struct {
	Type   string      `json:"type"`
	Bearer []AuthParam `json:"bearer,omitempty"`
	Basic  []AuthParam `json:"basic,omitempty"`
}

// AuthParam is a single auth setting.
type AuthParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Postman converts the document into a collection. Requests are grouped
// into folders by their first tag and ordered by path and method.
func Postman(doc *openapi3.T) *Collection {
	col := &Collection{
		Info: CollectionInfo{
			PostmanID: uuid.New().String(),
			Name:      "API",
			Schema:    collectionSchema,
		},
		Variable: []Variable{{Key: "baseUrl", Value: serverURL(doc)}},
	}
	if doc.Info != nil {
		if doc.Info.Title != "" {
			col.Info.Name = doc.Info.Title
		}
		col.Info.Description = doc.Info.Description
	}

	folders := make(map[string]*Folder)
	var order []string

	if doc.Paths != nil {
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
			methods := make([]string, 0, len(item.Operations()))
			for method := range item.Operations() {
				methods = append(methods, method)
			}
			sort.Strings(methods)

			for _, method := range methods {
				op := item.Operations()[method]
				folderName := folderFor(op)
				folder, ok := folders[folderName]
				if !ok {
					folder = &Folder{Name: folderName}
					folders[folderName] = folder
					order = append(order, folderName)
				}
				folder.Item = append(folder.Item, buildItem(doc, method, path, op))
			}
		}
	}

	for _, name := range order {
		col.Item = append(col.Item, folders[name])
	}
	return col
}

// Save writes the collection as indented JSON.
func Save(doc *openapi3.T, path string) error {
	data, err := json.MarshalIndent(Postman(doc), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func buildItem(doc *openapi3.T, method, path string, op *openapi3.Operation) *Item {
	name := op.Summary
	if name == "" {
		name = method + " " + path
	}

	req := Request{
		Method:      method,
		URL:         buildURL(path, op),
		Description: op.Description,
		Header:      []Header{{Key: "Accept", Value: "application/json"}},
	}

	if body := exampleBody(op); body != "" {
		req.Header = append(req.Header, Header{Key: "Content-Type", Value: "application/json"})
		b := &Body{Mode: "raw", Raw: body, Options: &BodyOptions{}}
		b.Options.Raw.Language = "json"
		req.Body = b
	}

	req.Auth = authFor(doc, op)
	return &Item{Name: name, Request: req}
}

func buildURL(path string, op *openapi3.Operation) URL {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	out := URL{Host: []string{"{{baseUrl}}"}}

	for _, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := seg[1 : len(seg)-1]
			out.Path = append(out.Path, ":"+name)
			out.Variable = append(out.Variable, Variable{Key: name, Value: "1"})
		} else {
			out.Path = append(out.Path, seg)
		}
	}

	for _, pref := range op.Parameters {
		if pref.Value == nil || pref.Value.In != openapi3.ParameterInQuery {
			continue
		}
		out.Query = append(out.Query, Query{
			Key:         pref.Value.Name,
			Value:       "",
			Description: pref.Value.Description,
		})
	}

	raw := "{{baseUrl}}/" + strings.Join(out.Path, "/")
	out.Raw = raw
	return out
}

// exampleBody builds a raw JSON body from the request schema's examples and
// property types.
func exampleBody(op *openapi3.Operation) string {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return ""
	}
	mt, ok := op.RequestBody.Value.Content["application/json"]
	if !ok || mt.Schema == nil || mt.Schema.Value == nil {
		return ""
	}
	schema := mt.Schema.Value

	fields := make(map[string]any, len(schema.Properties))
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		fields[name] = placeholderFor(ref.Value)
	}
	if len(fields) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func placeholderFor(schema *openapi3.Schema) any {
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}
	switch {
	case schema.Type.Is(openapi3.TypeInteger):
		return 1
	case schema.Type.Is(openapi3.TypeNumber):
		return 1.0
	case schema.Type.Is(openapi3.TypeBoolean):
		return true
	case schema.Type.Is(openapi3.TypeArray):
		return []any{}
	case schema.Type.Is(openapi3.TypeObject):
		return map[string]any{}
	}
	return ""
}

func authFor(doc *openapi3.T, op *openapi3.Operation) *Auth {
	var reqs openapi3.SecurityRequirements
	if op.Security != nil {
		reqs = *op.Security
	} else if doc.Security != nil {
		reqs = doc.Security
	}
	if len(reqs) == 0 || doc.Components == nil {
		return nil
	}

	for _, req := range reqs {
		for name := range req {
			ref, ok := doc.Components.SecuritySchemes[name]
			if !ok || ref.Value == nil {
				continue
			}
			switch {
			case ref.Value.Type == "http" && ref.Value.Scheme == "bearer", ref.Value.Type == "oauth2":
				return &Auth{Type: "bearer", Bearer: []AuthParam{{Key: "token", Value: "{{token}}", Type: "string"}}}
			case ref.Value.Type == "http" && ref.Value.Scheme == "basic":
				return &Auth{Type: "basic", Basic: []AuthParam{
					{Key: "username", Value: "{{username}}", Type: "string"},
					{Key: "password", Value: "{{password}}", Type: "string"},
				}}
			}
		}
	}
	return nil
}

func folderFor(op *openapi3.Operation) string {
	if len(op.Tags) > 0 {
		return op.Tags[0]
	}
	return "Endpoints"
}

func serverURL(doc *openapi3.T) string {
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		return strings.TrimRight(doc.Servers[0].URL, "/")
	}
	return "http://localhost:8080"
}
