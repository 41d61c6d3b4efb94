package testdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"qa-harness/internal/parser"
	"qa-harness/internal/types"

	"go.uber.org/zap"
)

// TemplateFile is the file GenerateTemplate writes and Loader reads first
const TemplateFile = "testdata_template.json"

// Samples are live values discovered for the catalog's path parameters
type Samples struct {
	Product  string
	Category string
	Brand    string
}

// Generator handles the generation of request templates
type Generator struct {
	outputDir string
	log       *zap.Logger
}

// NewGenerator creates a new instance of Generator
func NewGenerator(outputDir string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		outputDir: outputDir,
		log:       log,
	}
}

// Key identifies an endpoint in a template
func Key(method, path string) string {
	return fmt.Sprintf("%s %s", strings.ToUpper(method), path)
}

// Build creates request data for every GET operation of desc. Mutating
// operations are left out so the sweep never changes the service's data.
func (g *Generator) Build(desc *parser.Description, baseURL string, samples Samples) *types.TestDataTemplate {
	template := &types.TestDataTemplate{
		Source:    desc.SourceURL,
		BaseURL:   baseURL,
		Endpoints: make(map[string]types.EndpointTestData),
	}

	for _, endpoint := range desc.Endpoints() {
		if endpoint.Method != http.MethodGet {
			continue
		}
		template.Endpoints[Key(endpoint.Method, endpoint.Path)] = g.generateEndpointTestData(endpoint, samples)
	}
	g.log.Debug("built request template", zap.Int("endpoints", len(template.Endpoints)))
	return template
}

// GenerateTemplate writes template to the output directory and returns the
// file path
func (g *Generator) GenerateTemplate(template *types.TestDataTemplate) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(g.outputDir, TemplateFile)
	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal template: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write template file: %w", err)
	}

	g.log.Info("request template generated", zap.String("path", outputPath))
	return outputPath, nil
}

// generateEndpointTestData fills path parameters from the samples, and query
// and header parameters from described values. Optional parameters without a
// described value are left out.
func (g *Generator) generateEndpointTestData(endpoint types.Endpoint, samples Samples) types.EndpointTestData {
	testData := types.EndpointTestData{
		PathParams:  make(map[string]interface{}),
		QueryParams: make(map[string]interface{}),
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}

	for _, param := range endpoint.Parameters {
		switch param.In {
		case "path":
			testData.PathParams[param.Name] = pathValue(param, samples)
		case "query":
			if value, ok := describedValue(param); ok {
				testData.QueryParams[param.Name] = value
			}
		case "header":
			if value, ok := describedValue(param); ok {
				testData.Headers[param.Name] = value
			}
		}
	}

	return testData
}

func pathValue(param types.Parameter, samples Samples) string {
	name := strings.ToLower(param.Name)
	switch {
	case strings.Contains(name, "product") && samples.Product != "":
		return samples.Product
	case strings.Contains(name, "categor") && samples.Category != "":
		return samples.Category
	case strings.Contains(name, "brand") && samples.Brand != "":
		return samples.Brand
	}
	if len(param.Candidates) > 0 {
		return param.Candidates[0]
	}
	return sampleValue(name)
}

func describedValue(param types.Parameter) (string, bool) {
	if len(param.Candidates) > 0 {
		return param.Candidates[0], true
	}
	if param.Required {
		return sampleValue(strings.ToLower(param.Name)), true
	}
	return "", false
}

// sampleValue guesses a plausible value from a parameter name
func sampleValue(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "test@example.com"
	case strings.Contains(name, "date"):
		return "2024-01-01"
	case strings.Contains(name, "uuid"):
		return "123e4567-e89b-12d3-a456-426614174000"
	case strings.Contains(name, "page"), strings.Contains(name, "limit"):
		return "1"
	}
	return "sample_string"
}
