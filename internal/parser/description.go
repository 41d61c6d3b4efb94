package parser

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"qa-harness/internal/types"

	"github.com/getkin/kin-openapi/openapi3"
)

var placeholderPattern = regexp.MustCompile(`\{[^}]+\}`)

// Templating selects paths by whether they carry {placeholders}
type Templating int

const (
	AnyPath Templating = iota
	PlainPath
	TemplatedPath
)

// Description is a loaded service description. It is never modified after
// ParseDescription returns.
type Description struct {
	Doc        *openapi3.T
	SourceURL  string
	// Unresolved is set when some $ref could not be resolved; those
	// references keep a nil Value and are ignored by the lookups.
	Unresolved error
	order      []string
}

// Paths returns the path templates in document order
func (d *Description) Paths() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Title returns info.title, or "" when absent
func (d *Description) Title() string {
	if d.Doc == nil || d.Doc.Info == nil {
		return ""
	}
	return d.Doc.Info.Title
}

// PathItem returns the item for an exact path key
func (d *Description) PathItem(path string) *openapi3.PathItem {
	if d.Doc == nil || d.Doc.Paths == nil {
		return nil
	}
	return d.Doc.Paths.Value(path)
}

// FindOperationPath returns the first path, in document order, that supports
// method and whose text contains keyword case-insensitively.
func (d *Description) FindOperationPath(method, keyword string, templating Templating) (string, bool) {
	needle := strings.ToLower(keyword)
	for _, p := range d.order {
		item := d.PathItem(p)
		if item == nil || item.GetOperation(strings.ToUpper(method)) == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(p), needle) {
			continue
		}
		switch templating {
		case PlainPath:
			if strings.Contains(p, "{") {
				continue
			}
		case TemplatedPath:
			if !HasPlaceholder(p) {
				continue
			}
		}
		return p, true
	}
	return "", false
}

// FindCollectionPath finds a non-templated GET path such as /products
func (d *Description) FindCollectionPath(keyword string) (string, bool) {
	return d.FindOperationPath(http.MethodGet, keyword, PlainPath)
}

// FindDetailPath finds a templated GET path such as /products/{id}
func (d *Description) FindDetailPath(keyword string) (string, bool) {
	return d.FindOperationPath(http.MethodGet, keyword, TemplatedPath)
}

// HasPlaceholder reports whether a path template has a {placeholder}
func HasPlaceholder(path string) bool {
	return placeholderPattern.MatchString(path)
}

// ReplaceFirstPlaceholder substitutes value for the first {placeholder}
func ReplaceFirstPlaceholder(path, value string) string {
	loc := placeholderPattern.FindStringIndex(path)
	if loc == nil {
		return path
	}
	return path[:loc[0]] + value + path[loc[1]:]
}

// StripQuery drops a query string from a path
func StripQuery(path string) string {
	p, _, _ := strings.Cut(path, "?")
	return p
}

// PathVariants lists description keys that may correspond to a runtime path:
// the query-stripped path with a leading slash, then the same path with an
// "/api" prefix added or removed.
func PathVariants(path string) []string {
	base := StripQuery(path)
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}

	variants := []string{base}
	if strings.HasPrefix(base, "/api/") {
		variants = append(variants, strings.TrimPrefix(base, "/api"))
	} else {
		variants = append(variants, "/api"+base)
	}
	return dedupe(variants)
}

// findQueryParameter returns the first GET parameter of any path variant whose
// name contains keyword case-insensitively
func (d *Description) findQueryParameter(path, keyword string) *openapi3.Parameter {
	needle := strings.ToLower(keyword)
	for _, key := range PathVariants(path) {
		item := d.PathItem(key)
		if item == nil || item.Get == nil {
			continue
		}
		params := append(openapi3.Parameters{}, item.Get.Parameters...)
		params = append(params, item.Parameters...)
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			if strings.Contains(strings.ToLower(ref.Value.Name), needle) {
				return ref.Value
			}
		}
	}
	return nil
}

// FindQueryParameter returns the name of a GET parameter matching keyword
func (d *Description) FindQueryParameter(path, keyword string) (string, bool) {
	param := d.findQueryParameter(path, keyword)
	if param == nil {
		return "", false
	}
	return param.Name, true
}

// FindQueryParameterNamed returns the first GET parameter whose lowercased
// name equals one of names
func (d *Description) FindQueryParameterNamed(path string, names ...string) (string, bool) {
	for _, key := range PathVariants(path) {
		item := d.PathItem(key)
		if item == nil || item.Get == nil {
			continue
		}
		params := append(openapi3.Parameters{}, item.Get.Parameters...)
		params = append(params, item.Parameters...)
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			name := strings.ToLower(ref.Value.Name)
			for _, want := range names {
				if name == want {
					return ref.Value.Name, true
				}
			}
		}
	}
	return "", false
}

// QueryParameterCandidates returns plausible values for the parameter
// matching keyword: parameter example, named examples, then schema values.
func (d *Description) QueryParameterCandidates(path, keyword string) []string {
	param := d.findQueryParameter(path, keyword)
	if param == nil {
		return nil
	}

	var candidates []string
	if s, ok := scalarString(param.Example); ok {
		candidates = append(candidates, s)
	}

	names := make([]string, 0, len(param.Examples))
	for name := range param.Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ex := param.Examples[name]
		if ex == nil || ex.Value == nil {
			continue
		}
		if s, ok := scalarString(ex.Value.Value); ok {
			candidates = append(candidates, s)
		}
	}

	if param.Schema != nil && param.Schema.Value != nil {
		candidates = append(candidates, ExtractCandidateValues(param.Schema.Value)...)
	}
	return dedupe(candidates)
}

// Endpoints lists every described operation with its parameters
func (d *Description) Endpoints() []types.Endpoint {
	var endpoints []types.Endpoint
	for _, p := range d.order {
		item := d.PathItem(p)
		if item == nil {
			continue
		}

		methods := make([]string, 0)
		ops := item.Operations()
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			endpoint := types.Endpoint{
				Method:     strings.ToUpper(method),
				Path:       p,
				Parameters: make([]types.Parameter, 0),
			}

			params := append(openapi3.Parameters{}, item.Parameters...)
			params = append(params, op.Parameters...)
			for _, ref := range params {
				if ref == nil || ref.Value == nil {
					continue
				}
				param := types.Parameter{
					Name:     ref.Value.Name,
					In:       ref.Value.In,
					Required: ref.Value.Required,
				}
				if s, ok := scalarString(ref.Value.Example); ok {
					param.Candidates = append(param.Candidates, s)
				}
				if ref.Value.Schema != nil && ref.Value.Schema.Value != nil {
					param.Candidates = dedupe(append(param.Candidates, ExtractCandidateValues(ref.Value.Schema.Value)...))
				}
				endpoint.Parameters = append(endpoint.Parameters, param)
			}
			endpoints = append(endpoints, endpoint)
		}
	}
	return endpoints
}

// ExtractCandidateValues pulls example values out of a parameter schema in
// priority order: enum, items enum, oneOf/anyOf enums, default, example,
// examples. Duplicates keep their first position.
func ExtractCandidateValues(schema *openapi3.Schema) []string {
	if schema == nil {
		return nil
	}

	var candidates []string
	candidates = append(candidates, enumStrings(schema.Enum)...)

	if schema.Items != nil && schema.Items.Value != nil {
		candidates = append(candidates, enumStrings(schema.Items.Value.Enum)...)
	}

	for _, alts := range []openapi3.SchemaRefs{schema.OneOf, schema.AnyOf} {
		for _, alt := range alts {
			if alt != nil && alt.Value != nil {
				candidates = append(candidates, enumStrings(alt.Value.Enum)...)
			}
		}
	}

	for _, v := range []any{schema.Default, schema.Example} {
		if s, ok := scalarString(v); ok {
			candidates = append(candidates, s)
		}
	}

	if examples, ok := schema.Extensions["examples"].([]any); ok {
		for _, v := range examples {
			if s, ok := scalarString(v); ok {
				candidates = append(candidates, s)
			}
		}
	}

	return dedupe(candidates)
}

func enumStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := scalarString(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// scalarString renders strings, numbers and booleans; other values are ignored.
// Numbers never use exponent form, so 1000000 stays "1000000".
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int, int64, int32, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
