package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"qa-harness/internal/client"
	"qa-harness/internal/envelope"
	"qa-harness/internal/parser"
	"qa-harness/internal/types"

	"go.uber.org/zap"
)

// Conventional paths used when the description has no match
const (
	DefaultProductsPath      = "/products"
	DefaultCategoriesPath    = "/categories"
	DefaultBrandsPath        = "/brands"
	DefaultProductDetailPath = "/products/{id}"
)

// Target identifies the service under test
type Target struct {
	Host     string
	DocsURL  string
	Email    string
	Password string
}

// lazy memoizes one derived fact, errors included. Transport errors and
// results computed under a cancelled context are not kept, so a retried check
// computes them again.
type lazy[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
	err  error
}

func (l *lazy[T]) get(ctx context.Context, compute func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.val, l.err
	}
	val, err := compute()
	if err != nil && (ctx.Err() != nil || isTransport(err)) {
		return val, err
	}
	l.val, l.err, l.done = val, err, true
	return val, err
}

func isTransport(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr)
}

// Session computes discovery facts on first use and keeps them for the rest
// of the run.
type Session struct {
	client *client.Client
	parser *parser.SwaggerParser
	target Target
	log    *zap.Logger

	description    lazy[*parser.Description]
	baseURL        lazy[string]
	sampleProduct  lazy[map[string]any]
	productID      lazy[string]
	sampleCategory lazy[string]
	sampleBrand    lazy[string]
	authToken      lazy[string]
}

// NewSession creates a session for target
func NewSession(c *client.Client, target Target, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if target.DocsURL == "" {
		target.DocsURL = client.Absolute(target.Host, "/api/documentation")
	}
	return &Session{
		client: c,
		parser: parser.NewSwaggerParser(c, log),
		target: target,
		log:    log,
	}
}

// Client returns the shared HTTP client
func (s *Session) Client() *client.Client {
	return s.client
}

// DocsURL returns the documentation page URL
func (s *Session) DocsURL() string {
	return s.target.DocsURL
}

// Description fetches and parses the service description once
func (s *Session) Description(ctx context.Context) (*parser.Description, error) {
	return s.description.get(ctx, func() (*parser.Description, error) {
		fallback := client.Absolute(s.target.Host, "/docs?api-docs.json")
		desc, err := s.parser.FetchServiceDescription(ctx, s.target.DocsURL, fallback)
		if err != nil {
			return nil, err
		}
		s.log.Info("loaded service description",
			zap.String("url", desc.SourceURL),
			zap.String("title", desc.Title()),
			zap.Int("paths", len(desc.Paths())))
		return desc, nil
	})
}

func (s *Session) collectionPath(ctx context.Context, keyword, fallback string) (string, error) {
	desc, err := s.Description(ctx)
	if err != nil {
		return "", err
	}
	if p, ok := desc.FindCollectionPath(keyword); ok {
		return p, nil
	}
	return fallback, nil
}

// ProductsPath returns the products collection path
func (s *Session) ProductsPath(ctx context.Context) (string, error) {
	return s.collectionPath(ctx, "products", DefaultProductsPath)
}

// CategoriesPath returns the categories collection path
func (s *Session) CategoriesPath(ctx context.Context) (string, error) {
	return s.collectionPath(ctx, "categories", DefaultCategoriesPath)
}

// BrandsPath returns the brands collection path
func (s *Session) BrandsPath(ctx context.Context) (string, error) {
	return s.collectionPath(ctx, "brands", DefaultBrandsPath)
}

// ProductDetailPath returns the templated product detail path
func (s *Session) ProductDetailPath(ctx context.Context) (string, error) {
	desc, err := s.Description(ctx)
	if err != nil {
		return "", err
	}
	if p, ok := desc.FindDetailPath("products"); ok {
		return p, nil
	}
	return DefaultProductDetailPath, nil
}

// BaseURL probes the products path to decide whether the API lives at the
// host root or under /api
func (s *Session) BaseURL(ctx context.Context) (string, error) {
	return s.baseURL.get(ctx, func() (string, error) {
		products, err := s.ProductsPath(ctx)
		if err != nil {
			return "", err
		}
		base, err := ResolveBaseURL(ctx, s.client, []string{s.target.Host}, products)
		if err != nil {
			return "", err
		}
		s.log.Info("resolved API base URL", zap.String("base_url", base))
		return base, nil
	})
}

// URL joins a path onto the resolved base URL
func (s *Session) URL(ctx context.Context, path string) (string, error) {
	base, err := s.BaseURL(ctx)
	if err != nil {
		return "", err
	}
	return client.Absolute(base, path), nil
}

// fetchJSON GETs a path under the base URL and decodes a 2xx JSON body
func (s *Session) fetchJSON(ctx context.Context, path string) (any, error) {
	url, err := s.URL(ctx, path)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: unexpected status code: %d", url, resp.StatusCode)
	}
	return resp.JSON()
}

// SampleProduct returns the first product of the products list
func (s *Session) SampleProduct(ctx context.Context) (map[string]any, error) {
	return s.sampleProduct.get(ctx, func() (map[string]any, error) {
		path, err := s.ProductsPath(ctx)
		if err != nil {
			return nil, err
		}
		body, err := s.fetchJSON(ctx, path)
		if err != nil {
			return nil, err
		}

		list := envelope.UnwrapList(body)
		if len(list) == 0 {
			return nil, types.Skipf("products list is empty; cannot pick sample product")
		}
		product, ok := list[0].(map[string]any)
		if !ok {
			return nil, types.Skipf("first product item is not an object")
		}
		return product, nil
	})
}

// SampleProductIdentifier returns a product identifier confirmed by a
// successful detail request
func (s *Session) SampleProductIdentifier(ctx context.Context) (string, error) {
	return s.productID.get(ctx, func() (string, error) {
		product, err := s.SampleProduct(ctx)
		if err != nil {
			return "", err
		}
		detail, err := s.ProductDetailPath(ctx)
		if err != nil {
			return "", err
		}
		base, err := s.BaseURL(ctx)
		if err != nil {
			return "", err
		}

		ids := IdentifierCandidates(product)
		if len(ids) == 0 {
			return "", types.Skipf("sample product had no usable identifier fields: keys=%v", sortedKeys(product))
		}

		id, err := ResolveSampleIdentifier(ctx, s.client, base, detail, ids)
		if errors.Is(err, ErrUnresolvable) {
			return "", types.Skipf("could not find a working identifier for the product details endpoint: %v", err)
		}
		if err != nil {
			return "", err
		}
		s.log.Info("resolved sample product", zap.String("identifier", id), zap.String("detail_path", detail))
		return id, nil
	})
}

// SampleProductDetailsURL returns the detail URL of the sample product
func (s *Session) SampleProductDetailsURL(ctx context.Context) (string, error) {
	id, err := s.SampleProductIdentifier(ctx)
	if err != nil {
		return "", err
	}
	detail, err := s.ProductDetailPath(ctx)
	if err != nil {
		return "", err
	}
	return s.URL(ctx, parser.ReplaceFirstPlaceholder(detail, id))
}

// SampleCategoryID returns the first identifier of the categories list
func (s *Session) SampleCategoryID(ctx context.Context) (string, error) {
	return s.sampleCategory.get(ctx, func() (string, error) {
		return s.firstIdentifierOf(ctx, s.CategoriesPath, "category")
	})
}

// SampleBrandID returns the first identifier of the brands list
func (s *Session) SampleBrandID(ctx context.Context) (string, error) {
	return s.sampleBrand.get(ctx, func() (string, error) {
		return s.firstIdentifierOf(ctx, s.BrandsPath, "brand")
	})
}

func (s *Session) firstIdentifierOf(ctx context.Context, pathOf func(context.Context) (string, error), kind string) (string, error) {
	path, err := pathOf(ctx)
	if err != nil {
		return "", err
	}
	body, err := s.fetchJSON(ctx, path)
	if err != nil {
		return "", err
	}
	id, ok := FirstIdentifier(envelope.Items(body))
	if !ok {
		return "", types.Skipf("could not extract a sample %s id", kind)
	}
	return id, nil
}

// AuthToken logs in with the demo credentials through the first POST path
// mentioning "login"
func (s *Session) AuthToken(ctx context.Context) (string, error) {
	return s.authToken.get(ctx, func() (string, error) {
		desc, err := s.Description(ctx)
		if err != nil {
			return "", err
		}
		loginPath, ok := desc.FindOperationPath(http.MethodPost, "login", parser.AnyPath)
		if !ok {
			return "", types.Skipf("no login endpoint described in the service description")
		}
		base, err := s.BaseURL(ctx)
		if err != nil {
			return "", err
		}

		token, err := Login(ctx, s.client, base, loginPath, Credentials{Email: s.target.Email, Password: s.target.Password})
		if errors.Is(err, ErrUnsupported) {
			return "", types.Skipf("login did not return a usable token with the demo credentials")
		}
		if err != nil {
			return "", err
		}
		s.log.Info("logged in", zap.String("path", loginPath))
		return token, nil
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
