// Package testdata generates request templates from a service description
// and loads them back for the template sweep.
package testdata

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qa-harness/internal/parser"
	"qa-harness/internal/types"
)

// Loader handles loading request templates from files
type Loader struct {
	dir string
}

// NewLoader creates a new template loader
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadTestData loads the generated template, falling back to a hand-written
// testdata.json
func (l *Loader) LoadTestData() (*types.TestDataTemplate, error) {
	data, err := l.loadFromFile(TemplateFile)
	if err != nil {
		var fallbackErr error
		data, fallbackErr = l.loadFromFile("testdata.json")
		if fallbackErr != nil {
			return nil, fmt.Errorf("no test data found in %s: %w", l.dir, err)
		}
	}
	return data, nil
}

func (l *Loader) loadFromFile(filename string) (*types.TestDataTemplate, error) {
	path := filepath.Join(l.dir, filename)
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data types.TestDataTemplate
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("failed to parse test data %s: %w", path, err)
	}
	if data.Endpoints == nil {
		data.Endpoints = make(map[string]types.EndpointTestData)
	}
	return &data, nil
}

// Keys returns the template's endpoint keys sorted
func Keys(template *types.TestDataTemplate) []string {
	keys := make([]string, 0, len(template.Endpoints))
	for k := range template.Endpoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildURL substitutes the path parameters of data into path and appends
// its query parameters in key order. A placeholder left without a value is
// an error.
func BuildURL(baseURL, path string, data types.EndpointTestData) (string, error) {
	resolved := path
	for key, value := range data.PathParams {
		resolved = strings.ReplaceAll(resolved, "{"+key+"}", url.PathEscape(fmt.Sprint(value)))
	}
	if parser.HasPlaceholder(resolved) {
		return "", fmt.Errorf("no value for the path parameters of %s", resolved)
	}

	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(resolved, "/")
	if len(data.QueryParams) > 0 {
		query := url.Values{}
		for key, value := range data.QueryParams {
			query.Set(key, fmt.Sprint(value))
		}
		u += "?" + query.Encode()
	}
	return u, nil
}
