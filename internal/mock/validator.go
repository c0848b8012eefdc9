package mock

import (
	"fmt"
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// ValidationResult accumulates per-field failures across the whole request.
type ValidationResult struct {
	Errors map[string][]string
}

// Valid reports whether no check failed.
func (v ValidationResult) Valid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) add(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string][]string)
	}
	v.Errors[field] = append(v.Errors[field], message)
}

// Validate checks a decoded request against the operation's schema and
// parameters. A missing or undecodable body on an operation that requires
// one yields a single _body error and skips the field checks. All other
// failures accumulate so the caller sees every invalid field at once.
func Validate(op *Operation, body map[string]any, bodyPresent bool, query url.Values, pathParams map[string]string) ValidationResult {
	var result ValidationResult

	if op.RequestSchema != nil {
		if !bodyPresent {
			if op.BodyRequired || len(op.RequestSchema.Required) > 0 {
				result.add("_body", "The request body must be valid JSON.")
			}
		} else {
			validateBody(&result, op.RequestSchema, body)
		}
	}

	for _, param := range op.QueryParams {
		values, present := query[param.Name]
		if !present || len(values) == 0 {
			if param.Required {
				result.add(param.Name, fmt.Sprintf("The %s field is required.", param.Name))
			}
			continue
		}
		if param.Schema != nil && param.Schema.Value != nil {
			validateStringValue(&result, param.Name, values[0], param.Schema.Value)
		}
	}

	for _, param := range op.PathParams {
		value, present := pathParams[param.Name]
		if !present {
			continue
		}
		if param.Schema != nil && param.Schema.Value != nil {
			validateStringValue(&result, param.Name, value, param.Schema.Value)
		}
	}
	return result
}

func validateBody(result *ValidationResult, schema *openapi3.Schema, body map[string]any) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := sortedPropertyNames(schema)
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		value, present := body[name]
		if !present || value == nil {
			if required[name] {
				result.add(name, fmt.Sprintf("The %s field is required.", name))
			}
			continue
		}
		validateValue(result, name, value, ref.Value)
	}
}

func validateValue(result *ValidationResult, field string, value any, schema *openapi3.Schema) {
	switch {
	case schema.Type.Is(openapi3.TypeInteger):
		if n, ok := asNumber(value); !ok || n != float64(int64(n)) {
			result.add(field, fmt.Sprintf("The %s must be an integer.", field))
		} else {
			checkNumberBounds(result, field, n, schema)
		}
	case schema.Type.Is(openapi3.TypeNumber):
		if n, ok := asNumber(value); !ok {
			result.add(field, fmt.Sprintf("The %s must be a number.", field))
		} else {
			checkNumberBounds(result, field, n, schema)
		}
	case schema.Type.Is(openapi3.TypeBoolean):
		if _, ok := value.(bool); !ok {
			result.add(field, fmt.Sprintf("The %s field must be true or false.", field))
		}
	case schema.Type.Is(openapi3.TypeArray):
		if items, ok := value.([]any); !ok {
			result.add(field, fmt.Sprintf("The %s must be an array.", field))
		} else {
			if schema.MinItems > 0 && uint64(len(items)) < schema.MinItems {
				result.add(field, fmt.Sprintf("The %s must have at least %d items.", field, schema.MinItems))
			}
			if schema.MaxItems != nil && uint64(len(items)) > *schema.MaxItems {
				result.add(field, fmt.Sprintf("The %s must not have more than %d items.", field, *schema.MaxItems))
			}
		}
	case schema.Type.Is(openapi3.TypeObject):
		if _, ok := value.(map[string]any); !ok {
			result.add(field, fmt.Sprintf("The %s must be an object.", field))
		}
	default:
		if s, ok := value.(string); !ok {
			result.add(field, fmt.Sprintf("The %s must be a string.", field))
		} else {
			checkString(result, field, s, schema)
		}
	}

	if len(schema.Enum) > 0 && !enumContains(schema.Enum, value) {
		result.add(field, fmt.Sprintf("The selected %s is invalid.", field))
	}
}

// validateStringValue validates a query or path parameter, converting the
// raw string to the schema's type first.
func validateStringValue(result *ValidationResult, field, raw string, schema *openapi3.Schema) {
	switch {
	case schema.Type.Is(openapi3.TypeInteger):
		if n, err := strconv.ParseInt(raw, 10, 64); err != nil {
			result.add(field, fmt.Sprintf("The %s must be an integer.", field))
		} else {
			checkNumberBounds(result, field, float64(n), schema)
		}
	case schema.Type.Is(openapi3.TypeNumber):
		if n, err := strconv.ParseFloat(raw, 64); err != nil {
			result.add(field, fmt.Sprintf("The %s must be a number.", field))
		} else {
			checkNumberBounds(result, field, n, schema)
		}
	case schema.Type.Is(openapi3.TypeBoolean):
		if raw != "true" && raw != "false" && raw != "1" && raw != "0" {
			result.add(field, fmt.Sprintf("The %s field must be true or false.", field))
		}
	default:
		checkString(result, field, raw, schema)
	}

	if len(schema.Enum) > 0 && !enumContains(schema.Enum, raw) {
		result.add(field, fmt.Sprintf("The selected %s is invalid.", field))
	}
}

func checkString(result *ValidationResult, field, s string, schema *openapi3.Schema) {
	if schema.MinLength > 0 && uint64(len(s)) < schema.MinLength {
		result.add(field, fmt.Sprintf("The %s must be at least %d characters.", field, schema.MinLength))
	}
	if schema.MaxLength != nil && uint64(len(s)) > *schema.MaxLength {
		result.add(field, fmt.Sprintf("The %s must not be greater than %d characters.", field, *schema.MaxLength))
	}
	if schema.Pattern != "" {
		if re, err := regexp.Compile(schema.Pattern); err == nil && !re.MatchString(s) {
			result.add(field, fmt.Sprintf("The %s format is invalid.", field))
		}
	}
	switch schema.Format {
	case "email":
		if _, err := mail.ParseAddress(s); err != nil {
			result.add(field, fmt.Sprintf("The %s must be a valid email address.", field))
		}
	case "uuid":
		if _, err := uuid.Parse(s); err != nil {
			result.add(field, fmt.Sprintf("The %s must be a valid UUID.", field))
		}
	case "uri":
		if u, err := url.Parse(s); err != nil || u.Scheme == "" {
			result.add(field, fmt.Sprintf("The %s format is invalid.", field))
		}
	case "ipv4":
		if addr, err := netip.ParseAddr(s); err != nil || !addr.Is4() {
			result.add(field, fmt.Sprintf("The %s must be a valid IP address.", field))
		}
	case "ipv6":
		if addr, err := netip.ParseAddr(s); err != nil || !addr.Is6() {
			result.add(field, fmt.Sprintf("The %s must be a valid IP address.", field))
		}
	case "date", "date-time":
		if !looksLikeDate(s) {
			result.add(field, fmt.Sprintf("The %s is not a valid date.", field))
		}
	}
}

func checkNumberBounds(result *ValidationResult, field string, n float64, schema *openapi3.Schema) {
	if schema.Min != nil && n < *schema.Min {
		result.add(field, fmt.Sprintf("The %s must be at least %s.", field, formatNumber(*schema.Min)))
	}
	if schema.Max != nil && n > *schema.Max {
		result.add(field, fmt.Sprintf("The %s must not be greater than %s.", field, formatNumber(*schema.Max)))
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if fmt.Sprintf("%v", e) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}

func looksLikeDate(s string) bool {
	if len(s) < 10 {
		return false
	}
	for i, c := range s[:10] {
		if i == 4 || i == 7 {
			if c != '-' {
				return false
			}
		} else if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedPropertyNames(schema *openapi3.Schema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
