package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qa-harness/internal/client"
	"qa-harness/internal/testutil"
	"qa-harness/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDescriptionURL(t *testing.T) {
	url, ok := ExtractDescriptionURL([]byte(`const ui = SwaggerUIBundle({ url: "http://x/docs?api-docs.json", dom_id: '#x' })`))
	require.True(t, ok)
	assert.Equal(t, "http://x/docs?api-docs.json", url)

	_, ok = ExtractDescriptionURL([]byte(`<html>no reference here</html>`))
	assert.False(t, ok)
}

func TestFetchServiceDescriptionFollowsPageReference(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{})
	p := NewSwaggerParser(client.New(), nil)

	desc, err := p.FetchServiceDescription(context.Background(), cat.DocsURL(), cat.URL+"/unused.json")
	require.NoError(t, err)

	assert.Equal(t, cat.URL+"/docs?api-docs.json", desc.SourceURL)
	assert.True(t, cat.Requested("GET /docs?api-docs.json"))
	assert.False(t, cat.Requested("GET /unused.json"))
	assert.Equal(t, "Toolshop API", desc.Title())
}

func TestFetchServiceDescriptionFallback(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{DocsPage: "<html><title>docs</title></html>"})
	p := NewSwaggerParser(client.New(), nil)

	desc, err := p.FetchServiceDescription(context.Background(), cat.DocsURL(),
		cat.URL+"/swagger.json", cat.URL+"/docs?api-docs.json")
	require.NoError(t, err)
	assert.Equal(t, cat.URL+"/docs?api-docs.json", desc.SourceURL)
	assert.True(t, cat.Requested("GET /swagger.json"))
}

func TestFetchServiceDescriptionFatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"docs page missing", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"description not a mapping", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/docs" {
				_, _ = w.Write([]byte(`[1, 2, 3]`))
				return
			}
			_, _ = w.Write([]byte(`url: "http://` + r.Host + `/docs"`))
		}},
		{"description without paths", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/docs" {
				_, _ = w.Write([]byte(`{"openapi": "3.0.0", "info": {"title": "x"}}`))
				return
			}
			_, _ = w.Write([]byte(`url: "http://` + r.Host + `/docs"`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewSwaggerParser(client.New(), nil)
			_, err := p.FetchServiceDescription(context.Background(), srv.URL+"/page", srv.URL+"/fallback")
			require.Error(t, err)

			var derr *types.DiscoveryError
			assert.True(t, errors.As(err, &derr), "want DiscoveryError, got %T", err)
		})
	}
}

func TestParseDescriptionSwagger2(t *testing.T) {
	desc, err := ParseDescription([]byte(testutil.CatalogSwagger2))
	require.NoError(t, err)

	path, ok := desc.FindDetailPath("products")
	require.True(t, ok)
	assert.Equal(t, "/products/{id}", path)

	assert.Equal(t, []string{"price,asc", "price,desc"}, desc.QueryParameterCandidates("/products", "sort"))
}

func TestParseDescriptionYAMLKeepsDocumentOrder(t *testing.T) {
	desc, err := ParseDescription([]byte(testutil.CatalogYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"/products", "/brands"}, desc.Paths())

	name, ok := desc.FindQueryParameter("/products", "page")
	require.True(t, ok)
	assert.Equal(t, "page", name)
}

func TestParseDescriptionKeepsUnresolvedReferences(t *testing.T) {
	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Shop", "version": "1"},
  "paths": {
    "/products": {
      "get": {
        "parameters": [
          {"name": "sort", "in": "query", "schema": {"$ref": "#/components/schemas/Missing"}},
          {"name": "page", "in": "query", "schema": {"type": "integer", "example": 1}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`
	desc, err := ParseDescription([]byte(doc))
	require.NoError(t, err)
	assert.ErrorContains(t, desc.Unresolved, "Missing")
	assert.Equal(t, "Shop", desc.Title())

	path, ok := desc.FindCollectionPath("products")
	require.True(t, ok)
	assert.Equal(t, "/products", path)

	name, ok := desc.FindQueryParameter("/products", "sort")
	require.True(t, ok)
	assert.Equal(t, "sort", name)
	assert.Empty(t, desc.QueryParameterCandidates("/products", "sort"))
	assert.Equal(t, []string{"1"}, desc.QueryParameterCandidates("/products", "page"))

	desc, err = ParseDescription([]byte(testutil.CatalogSpec))
	require.NoError(t, err)
	assert.NoError(t, desc.Unresolved)
}

func TestParseDescriptionRejectsGarbage(t *testing.T) {
	_, err := ParseDescription([]byte("\t::: not yaml {"))
	assert.Error(t, err)

	_, err = ParseDescription([]byte(`"just a string"`))
	assert.ErrorContains(t, err, "missing 'paths'")
}
