// Package params converts recovered rule maps into normalized parameter
// definitions: requiredness, inferred type and format, bounds, enums and
// file-upload metadata.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/laragen/laragen/internal/rules"
)

// ConditionalRuleDetail records one conditional-requiredness rule for a
// field, kept separate from the plain required flag.
type ConditionalRuleDetail struct {
	Type       string `json:"type"`                 // required_if, required_unless, sometimes, branch, ...
	Parameters string `json:"parameters,omitempty"` // raw rule parameters or branch description
}

// EnumInfo describes an enumerated value set, either inline (in:...) or a
// backing enum class.
type EnumInfo struct {
	Values []string `json:"values,omitempty"`
	Class  string   `json:"class,omitempty"` // fully qualified, resolved via use-aliases
}

// FileInfo describes an upload field's constraints.
type FileInfo struct {
	MimeTypes []string `json:"mimeTypes,omitempty"`
	MinBytes  int64    `json:"minBytes,omitempty"`
	MaxBytes  int64    `json:"maxBytes,omitempty"`
	MinWidth  int      `json:"minWidth,omitempty"`
	MaxWidth  int      `json:"maxWidth,omitempty"`
	MinHeight int      `json:"minHeight,omitempty"`
	MaxHeight int      `json:"maxHeight,omitempty"`
}

// Definition is the normalized model for one parameter.
type Definition struct {
	Name                string                  `json:"name"`
	Required            bool                    `json:"required"`
	Type                string                  `json:"type"`
	Format              string                  `json:"format,omitempty"`
	Description         string                  `json:"description,omitempty"`
	Example             any                     `json:"example,omitempty"`
	Enum                *EnumInfo               `json:"enum,omitempty"`
	File                *FileInfo               `json:"file,omitempty"`
	Nullable            bool                    `json:"nullable,omitempty"`
	Pattern             string                  `json:"pattern,omitempty"`
	MinLength           *int                    `json:"minLength,omitempty"`
	MaxLength           *int                    `json:"maxLength,omitempty"`
	Minimum             *float64                `json:"minimum,omitempty"`
	Maximum             *float64                `json:"maximum,omitempty"`
	MinItems            *int                    `json:"minItems,omitempty"`
	MaxItems            *int                    `json:"maxItems,omitempty"`
	ConditionalRequired bool                    `json:"conditionalRequired,omitempty"`
	ConditionalRules    []ConditionalRuleDetail `json:"conditionalRules,omitempty"`
}

// Builder turns extractions into parameter definitions. Aliases map short
// class names to qualified ones for enum-class resolution.
type Builder struct {
	aliases map[string]string
}

// NewBuilder creates a builder with the given use-alias table (may be nil).
func NewBuilder(aliases map[string]string) *Builder {
	return &Builder{aliases: aliases}
}

// Build produces one definition per field appearing anywhere in the
// extraction, in merged (source) order.
func (b *Builder) Build(ex rules.Extraction) []Definition {
	defs := make([]Definition, 0, len(ex.MergedFields))
	for _, field := range ex.MergedFields {
		defs = append(defs, b.buildField(field, ex))
	}
	return defs
}

func (b *Builder) buildField(field string, ex rules.Extraction) Definition {
	def := Definition{Name: field, Type: "string"}

	mentions := 0
	requiredEverywhere := len(ex.RuleSets) > 0
	var conditionals []ConditionalRuleDetail

	for _, rs := range ex.RuleSets {
		tokens, ok := rs.Rules[field]
		if !ok {
			requiredEverywhere = false
			continue
		}
		mentions++
		hasPlainRequired := false
		for _, tok := range tokens {
			if tok == "required" {
				hasPlainRequired = true
			}
		}
		if !hasPlainRequired {
			requiredEverywhere = false
		} else if len(rs.Conditions) > 0 {
			conditionals = append(conditionals, ConditionalRuleDetail{
				Type:       "branch",
				Parameters: rs.DescribeConditions(),
			})
		}
	}

	tokens := ex.Merged[field]
	b.applyTokens(&def, tokens)

	// required=true only when every reachable branch demands the field
	// unconditionally. A branch-scoped required is conditional, never a
	// plain true.
	if requiredEverywhere && mentions > 0 {
		def.Required = true
	} else if len(conditionals) > 0 {
		def.ConditionalRequired = true
		def.ConditionalRules = append(def.ConditionalRules, conditionals...)
	}
	// Token-level conditional rules apply regardless of branching.
	for _, tok := range tokens {
		if detail, ok := conditionalDetail(tok); ok {
			def.ConditionalRequired = true
			def.Required = false
			def.ConditionalRules = append(def.ConditionalRules, detail)
		}
	}

	def.Description = b.describe(&def)
	def.Example = exampleFor(&def)
	return def
}

// conditionalPrefixes are the rule names that make requiredness conditional.
var conditionalPrefixes = []string{
	"required_if", "required_unless", "required_with", "required_with_all",
	"required_without", "required_without_all",
}

func conditionalDetail(tok string) (ConditionalRuleDetail, bool) {
	if tok == "sometimes" {
		return ConditionalRuleDetail{Type: "sometimes"}, true
	}
	name, args, _ := strings.Cut(tok, ":")
	for _, p := range conditionalPrefixes {
		if name == p {
			return ConditionalRuleDetail{Type: name, Parameters: args}, true
		}
	}
	return ConditionalRuleDetail{}, false
}

// applyTokens walks the merged token list and fills type, format, bounds,
// enum and file metadata. Token order matters: the first type-indicating
// token wins, and formats follow the documented priority.
func (b *Builder) applyTokens(def *Definition, tokens []string) {
	typeSet := false
	for _, tok := range tokens {
		name, args, _ := strings.Cut(tok, ":")
		switch name {
		case "integer", "int":
			setType(def, &typeSet, "integer")
		case "numeric", "decimal":
			setType(def, &typeSet, "number")
		case "boolean", "bool":
			setType(def, &typeSet, "boolean")
		case "array":
			setType(def, &typeSet, "array")
		case "string":
			setType(def, &typeSet, "string")
		case "file", "image", "mimes", "mimetypes", "dimensions":
			setType(def, &typeSet, "file")
			b.applyFileToken(def, name, args)
		case "nullable":
			def.Nullable = true
		case "in":
			def.Enum = &EnumInfo{Values: splitArgs(args)}
		case "enum":
			class := args
			if full, ok := b.aliases[args]; ok {
				class = full
			}
			def.Enum = &EnumInfo{Class: class}
		case "regex":
			def.Pattern = strings.Trim(args, "/")
		case "min":
			b.applyBound(def, args, true)
		case "max":
			b.applyBound(def, args, false)
		case "between":
			parts := splitArgs(args)
			if len(parts) == 2 {
				b.applyBound(def, parts[0], true)
				b.applyBound(def, parts[1], false)
			}
		case "size":
			b.applyBound(def, args, true)
			b.applyBound(def, args, false)
		}
	}

	def.Format = inferFormat(def, tokens)
}

func setType(def *Definition, typeSet *bool, t string) {
	if *typeSet {
		return
	}
	def.Type = t
	*typeSet = true
}

// applyBound interprets min/max according to the inferred type: character
// counts for strings, value bounds for numbers, item counts for arrays and
// kilobytes for files.
func (b *Builder) applyBound(def *Definition, arg string, isMin bool) {
	n, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return
	}
	switch def.Type {
	case "integer", "number":
		if isMin {
			def.Minimum = floatPtr(n)
		} else {
			def.Maximum = floatPtr(n)
		}
	case "array":
		if isMin {
			def.MinItems = intPtr(int(n))
		} else {
			def.MaxItems = intPtr(int(n))
		}
	case "file":
		if def.File == nil {
			def.File = &FileInfo{}
		}
		if isMin {
			def.File.MinBytes = int64(n) * 1024
		} else {
			def.File.MaxBytes = int64(n) * 1024
		}
	default:
		if isMin {
			def.MinLength = intPtr(int(n))
		} else {
			def.MaxLength = intPtr(int(n))
		}
	}
}

func (b *Builder) applyFileToken(def *Definition, name, args string) {
	if def.File == nil {
		def.File = &FileInfo{}
	}
	switch name {
	case "image":
		def.File.MimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	case "mimes":
		var mimes []string
		for _, ext := range splitArgs(args) {
			mimes = append(mimes, mimeForExtension(ext))
		}
		def.File.MimeTypes = mimes
	case "mimetypes":
		def.File.MimeTypes = splitArgs(args)
	case "dimensions":
		for _, kv := range splitArgs(args) {
			k, v, _ := strings.Cut(kv, "=")
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			switch k {
			case "min_width":
				def.File.MinWidth = n
			case "max_width":
				def.File.MaxWidth = n
			case "min_height":
				def.File.MinHeight = n
			case "max_height":
				def.File.MaxHeight = n
			}
		}
	}
}

// inferFormat applies the format priority: password sentinel, then the date
// family, then the remaining string formats.
func inferFormat(def *Definition, tokens []string) string {
	if def.Type != "string" {
		return ""
	}
	for _, tok := range tokens {
		name, _, _ := strings.Cut(tok, ":")
		if name == "password" || name == "current_password" {
			return "password"
		}
	}
	for _, tok := range tokens {
		name, args, _ := strings.Cut(tok, ":")
		switch name {
		case "date":
			return "date"
		case "date_format":
			if strings.ContainsAny(args, "HisGu") {
				return "date-time"
			}
			return "date"
		}
	}
	for _, tok := range tokens {
		switch tok {
		case "email":
			return "email"
		case "url", "active_url":
			return "uri"
		case "uuid":
			return "uuid"
		case "ip", "ipv4":
			return "ipv4"
		case "ipv6":
			return "ipv6"
		}
	}
	if strings.Contains(def.Name, "password") {
		for _, tok := range tokens {
			if tok == "required" || strings.HasPrefix(tok, "min:") {
				return "password"
			}
		}
	}
	return ""
}

// describe synthesizes a human-readable description from the definition's
// constraints instead of dumping raw rule tokens.
func (b *Builder) describe(def *Definition) string {
	var clauses []string

	for _, detail := range def.ConditionalRules {
		switch detail.Type {
		case "branch":
			clauses = append(clauses, fmt.Sprintf("Required %s.", detail.Parameters))
		case "sometimes":
			clauses = append(clauses, "Validated only when present.")
		default:
			clauses = append(clauses, fmt.Sprintf("Conditionally required (%s: %s).",
				strings.ReplaceAll(detail.Type, "_", " "), detail.Parameters))
		}
	}

	if def.File != nil {
		if len(def.File.MimeTypes) > 0 {
			clauses = append(clauses, fmt.Sprintf("Allowed types: %s.", strings.Join(def.File.MimeTypes, ", ")))
		}
		if def.File.MaxBytes > 0 {
			clauses = append(clauses, fmt.Sprintf("(Max size: %s)", humanBytes(def.File.MaxBytes)))
		}
		if def.File.MinWidth > 0 || def.File.MinHeight > 0 {
			clauses = append(clauses, fmt.Sprintf("Minimum dimensions: %dx%d.", def.File.MinWidth, def.File.MinHeight))
		}
	}
	if def.MaxLength != nil {
		clauses = append(clauses, fmt.Sprintf("Must not exceed %d characters.", *def.MaxLength))
	}
	if def.Minimum != nil && def.Maximum != nil {
		clauses = append(clauses, fmt.Sprintf("Must be between %s and %s.",
			trimFloat(*def.Minimum), trimFloat(*def.Maximum)))
	}
	if def.Enum != nil && len(def.Enum.Values) > 0 {
		clauses = append(clauses, fmt.Sprintf("Must be one of: %s.", strings.Join(def.Enum.Values, ", ")))
	}

	return strings.Join(clauses, " ")
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%dKB", n/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// mimeForExtension maps common upload extensions to MIME types; unknown
// extensions pass through as application/<ext>.
func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	case "csv":
		return "text/csv"
	case "txt":
		return "text/plain"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xls":
		return "application/vnd.ms-excel"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "zip":
		return "application/zip"
	case "mp4":
		return "video/mp4"
	case "mp3":
		return "audio/mpeg"
	default:
		return "application/" + strings.ToLower(ext)
	}
}

// exampleFor fabricates a small example value consistent with the inferred
// type and format.
func exampleFor(def *Definition) any {
	switch def.Type {
	case "integer":
		if def.Minimum != nil {
			return int(*def.Minimum)
		}
		return 1
	case "number":
		if def.Minimum != nil {
			return *def.Minimum
		}
		return 1.5
	case "boolean":
		return true
	case "array":
		return []any{}
	case "file":
		return nil
	}
	if def.Enum != nil && len(def.Enum.Values) > 0 {
		return def.Enum.Values[0]
	}
	switch def.Format {
	case "email":
		return "user@example.com"
	case "uri":
		return "https://example.com"
	case "uuid":
		return "123e4567-e89b-12d3-a456-426614174000"
	case "date":
		return "2024-01-15"
	case "date-time":
		return "2024-01-15T10:30:00Z"
	case "ipv4":
		return "192.168.1.1"
	case "ipv6":
		return "2001:db8::1"
	case "password":
		return "secret-password"
	}
	return nil
}
