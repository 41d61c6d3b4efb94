package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"

	"qa-harness/internal/client"
	"qa-harness/internal/types"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// descriptionURLPattern finds the machine-readable description advertised by
// a Swagger UI page, e.g. url: "http://localhost:8091/docs?api-docs.json"
var descriptionURLPattern = regexp.MustCompile(`url:\s*"([^"]+)"`)

// SwaggerParser fetches and parses OpenAPI/Swagger documentation
type SwaggerParser struct {
	client *client.Client
	log    *zap.Logger
}

// NewSwaggerParser creates a new instance of SwaggerParser
func NewSwaggerParser(c *client.Client, log *zap.Logger) *SwaggerParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &SwaggerParser{client: c, log: log}
}

// ExtractDescriptionURL returns the first url: "..." reference in a docs page
func ExtractDescriptionURL(page []byte) (string, bool) {
	m := descriptionURLPattern.FindSubmatch(page)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// FetchServiceDescription resolves the documentation page to its
// machine-readable description and loads it. When the page carries no
// reference, the fallback URLs are tried in order.
func (p *SwaggerParser) FetchServiceDescription(ctx context.Context, docsURL string, fallbackURLs ...string) (*Description, error) {
	page, err := p.client.Get(ctx, docsURL)
	if err != nil {
		return nil, &types.DiscoveryError{Op: "fetch documentation page " + docsURL, Err: err}
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return nil, &types.DiscoveryError{
			Op:  "fetch documentation page " + docsURL,
			Err: fmt.Errorf("unexpected status code: %d", page.StatusCode),
		}
	}

	if url, ok := ExtractDescriptionURL(page.Body); ok {
		p.log.Info("found description reference in documentation page", zap.String("url", url))
		return p.fetchDescription(ctx, url)
	}

	if len(fallbackURLs) == 0 {
		return nil, &types.DiscoveryError{Op: "documentation page " + docsURL + " has no description reference"}
	}

	var attempts []string
	var lastErr error
	for _, url := range fallbackURLs {
		p.log.Info("trying conventional description URL", zap.String("url", url))
		desc, err := p.fetchDescription(ctx, url)
		if err == nil {
			return desc, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", url, err))
		lastErr = err
	}
	return nil, &types.DiscoveryError{
		Op:       "failed to fetch service description from any known URL",
		Attempts: attempts,
		Err:      lastErr,
	}
}

// fetchDescription fetches and parses one description document
func (p *SwaggerParser) fetchDescription(ctx context.Context, url string) (*Description, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, &types.DiscoveryError{Op: "fetch service description " + url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.DiscoveryError{
			Op:  "fetch service description " + url,
			Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	desc, err := ParseDescription(resp.Body)
	if err != nil {
		return nil, &types.DiscoveryError{Op: "parse service description " + url, Err: err}
	}
	desc.SourceURL = url
	if desc.Unresolved != nil {
		p.log.Warn("service description has unresolved references",
			zap.String("url", url), zap.Error(desc.Unresolved))
	}
	return desc, nil
}

// ParseDescription parses a JSON or YAML OpenAPI 3 / Swagger 2 document.
// The document must be a mapping with a "paths" key.
func ParseDescription(data []byte) (*Description, error) {
	raw, err := readRawDocument(data)
	if err != nil {
		return nil, err
	}
	if !raw.isMapping || !raw.hasPaths {
		return nil, fmt.Errorf("document did not look like an OpenAPI document (missing 'paths')")
	}

	var version struct {
		Swagger string `json:"swagger"`
	}
	if err := json.Unmarshal(raw.json, &version); err != nil {
		return nil, fmt.Errorf("failed to read document version: %w", err)
	}

	var doc *openapi3.T
	var unresolved error
	if version.Swagger != "" {
		var doc2 openapi2.T
		if err := json.Unmarshal(raw.json, &doc2); err != nil {
			return nil, fmt.Errorf("failed to parse Swagger 2 doc: %w", err)
		}
		doc, err = openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert Swagger 2 doc: %w", err)
		}
	} else {
		loader := openapi3.NewLoader()
		doc, err = loader.LoadFromData(raw.json)
		if err != nil {
			// keep the document with its broken $refs left unresolved
			var loose openapi3.T
			if jerr := json.Unmarshal(raw.json, &loose); jerr != nil {
				return nil, fmt.Errorf("failed to parse OpenAPI doc: %w", err)
			}
			doc, unresolved = &loose, err
		}
	}

	desc := newDescription(doc, raw.pathOrder)
	desc.Unresolved = unresolved
	return desc, nil
}

// rawDocument is what we learn about a document before kin-openapi sees it
type rawDocument struct {
	json      []byte
	isMapping bool
	hasPaths  bool
	pathOrder []string
}

func readRawDocument(data []byte) (*rawDocument, error) {
	if json.Valid(data) {
		return readJSONDocument(data)
	}
	return readYAMLDocument(data)
}

// readJSONDocument walks the top level with a token decoder so that path keys
// keep their document order
func readJSONDocument(data []byte) (*rawDocument, error) {
	raw := &rawDocument{json: data}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return raw, nil
	}
	raw.isMapping = true

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		if key, _ := keyTok.(string); key == "paths" {
			raw.hasPaths = true
			raw.pathOrder = jsonObjectKeys(value)
		}
	}
	return raw, nil
}

func jsonObjectKeys(value json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(value))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		if key, ok := tok.(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// readYAMLDocument reads path order from the node tree and re-encodes the
// document as JSON for the loaders
func readYAMLDocument(data []byte) (*rawDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	raw := &rawDocument{}
	if node.Kind != yaml.MappingNode {
		return raw, nil
	}
	raw.isMapping = true
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "paths" {
			continue
		}
		raw.hasPaths = true
		if paths := node.Content[i+1]; paths.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(paths.Content); j += 2 {
				raw.pathOrder = append(raw.pathOrder, paths.Content[j].Value)
			}
		}
	}

	var generic any
	if err := node.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	encoded, err := json.Marshal(stringKeys(generic))
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode document: %w", err)
	}
	raw.json = encoded
	return raw, nil
}

// stringKeys converts YAML mappings with non-string keys (e.g. response codes)
// into JSON-compatible maps
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = stringKeys(inner)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = stringKeys(inner)
		}
		return out
	case []any:
		for i, inner := range t {
			t[i] = stringKeys(inner)
		}
		return t
	default:
		return v
	}
}

// newDescription pairs a loaded document with the path order seen in the raw
// document. Paths the raw walk missed are appended in sorted order.
func newDescription(doc *openapi3.T, order []string) *Description {
	seen := make(map[string]bool, len(order))
	var ordered []string
	for _, p := range order {
		if doc.Paths != nil && doc.Paths.Value(p) != nil && !seen[p] {
			seen[p] = true
			ordered = append(ordered, p)
		}
	}
	if doc.Paths != nil {
		var rest []string
		for p := range doc.Paths.Map() {
			if !seen[p] {
				rest = append(rest, p)
			}
		}
		sort.Strings(rest)
		ordered = append(ordered, rest...)
	}
	return &Description{Doc: doc, order: ordered}
}
