package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// DemoToken is returned by the fake login endpoint
const DemoToken = "tok-demo-123"

// CatalogOptions shapes the behaviour of the fake catalog
type CatalogOptions struct {
	// Prefix mounts the API under a path such as "/api"
	Prefix string
	// DetailKey is the product field accepted by the detail endpoint
	DetailKey string
	// SortBroken makes every sorted products request fail with 500
	SortBroken bool
	// Description replaces CatalogSpec
	Description string
	// DocsPage replaces the docs page; %s is the server URL
	DocsPage string
	// LoginField is the credential key the login endpoint expects
	LoginField string
	Email      string
	Password   string
	// NestedToken wraps the login token in {"data": {...}}
	NestedToken bool
}

// Catalog is a running fake catalog API
type Catalog struct {
	*httptest.Server
	Opts CatalogOptions

	mu       sync.Mutex
	requests []string
}

// NewCatalog starts a fake catalog and registers its shutdown with t
func NewCatalog(t *testing.T, opts CatalogOptions) *Catalog {
	t.Helper()
	if opts.DetailKey == "" {
		opts.DetailKey = "id"
	}
	if opts.Description == "" {
		opts.Description = CatalogSpec
	}
	if opts.LoginField == "" {
		opts.LoginField = "email"
	}
	if opts.Email == "" {
		opts.Email = "customer@example.com"
	}
	if opts.Password == "" {
		opts.Password = "welcome01"
	}

	c := &Catalog{Opts: opts}
	r := chi.NewRouter()
	r.Use(c.record)

	r.Get("/api/documentation", c.docsPage)
	r.Get("/docs", c.description)

	p := opts.Prefix
	r.Get(p+"/products", c.listProducts)
	r.Get(p+"/products/{id}", c.getProduct)
	r.Get(p+"/categories", c.listCategories)
	r.Get(p+"/brands", c.listBrands)
	r.Post(p+"/users/login", c.login)
	r.Get(p+"/users/me", c.protected)
	r.Get(p+"/invoices", c.protected)
	r.Get(p+"/favorites", c.protected)

	c.Server = httptest.NewServer(r)
	t.Cleanup(c.Server.Close)
	return c
}

// DocsURL is the Swagger UI page of the fake catalog
func (c *Catalog) DocsURL() string {
	return c.URL + "/api/documentation"
}

// Requests returns the request URIs seen so far
func (c *Catalog) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.requests))
	copy(out, c.requests)
	return out
}

// Requested reports whether a request URI was seen
func (c *Catalog) Requested(uri string) bool {
	for _, r := range c.Requests() {
		if r == uri {
			return true
		}
	}
	return false
}

func (c *Catalog) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.requests = append(c.requests, r.Method+" "+r.URL.RequestURI())
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (c *Catalog) docsPage(w http.ResponseWriter, r *http.Request) {
	page := c.Opts.DocsPage
	if page == "" {
		page = `<!DOCTYPE html><html><head><title>Toolshop API</title></head><body>
<script>
window.onload = function() {
  const ui = SwaggerUIBundle({
    dom_id: '#swagger-ui',
    url: "%s/docs?api-docs.json",
  })
}
</script></body></html>`
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if strings.Contains(page, "%s") {
		page = fmt.Sprintf(page, c.URL)
	}
	_, _ = w.Write([]byte(page))
}

func (c *Catalog) description(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(c.Opts.Description))
}

func (c *Catalog) listProducts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("sort") != "" && c.Opts.SortBroken {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_page": 1,
		"data":         Products,
	})
}

func (c *Catalog) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, p := range Products {
		if fmt.Sprint(p[c.Opts.DetailKey]) == id {
			writeJSON(w, http.StatusOK, map[string]any{"data": p})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Requested item not found"})
}

func (c *Catalog) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": "cat-hand-tools", "name": "Hand Tools", "slug": "hand-tools"},
	})
}

func (c *Catalog) listBrands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"data": []map[string]any{
				{"id": "brand-forgeflex", "name": "ForgeFlex Tools"},
			},
		},
	})
}

func (c *Catalog) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "bad json"})
		return
	}
	if body[c.Opts.LoginField] != c.Opts.Email || body["password"] != c.Opts.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}
	if c.Opts.NestedToken {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"token": DemoToken}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": DemoToken, "token_type": "bearer"})
}

func (c *Catalog) protected(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+DemoToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
