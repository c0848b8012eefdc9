package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Save writes the document to path, serialized as YAML for .yaml/.yml
// extensions and JSON otherwise. Callers never depend on which was chosen.
func Save(doc *openapi3.T, path string) error {
	data, err := Marshal(doc, filepath.Ext(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Marshal serializes the document for the given file extension.
func Marshal(doc *openapi3.T, ext string) ([]byte, error) {
	jsonBytes, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var tree any
		if err := json.Unmarshal(jsonBytes, &tree); err != nil {
			return nil, fmt.Errorf("failed to round-trip document: %w", err)
		}
		out, err := yaml.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize document as YAML: %w", err)
		}
		return out, nil
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, jsonBytes, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
}

// Load reads an OpenAPI document from disk; kin-openapi accepts both JSON
// and YAML transparently.
func Load(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return doc, nil
}

// LoadFromData parses an in-memory OpenAPI document.
func LoadFromData(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return doc, nil
}
