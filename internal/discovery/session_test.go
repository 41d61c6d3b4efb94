package discovery

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"qa-harness/internal/client"
	"qa-harness/internal/testutil"
	"qa-harness/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(cat *testutil.Catalog) *Session {
	return NewSession(client.New(), Target{
		Host:     cat.URL,
		DocsURL:  cat.DocsURL(),
		Email:    cat.Opts.Email,
		Password: cat.Opts.Password,
	}, nil)
}

func count(requests []string, want string) int {
	n := 0
	for _, r := range requests {
		if r == want {
			n++
		}
	}
	return n
}

func TestSessionDiscoversCatalog(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api"})
	s := newSession(cat)
	ctx := context.Background()

	base, err := s.BaseURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, cat.URL+"/api", base)

	detail, err := s.ProductDetailPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/products/{productId}", detail)

	id, err := s.SampleProductIdentifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "01HPRODUCT0001", id)

	url, err := s.SampleProductDetailsURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, cat.URL+"/api/products/01HPRODUCT0001", url)

	category, err := s.SampleCategoryID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cat-hand-tools", category)

	brand, err := s.SampleBrandID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "brand-forgeflex", brand)

	token, err := s.AuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.DemoToken, token)
}

func TestSessionMemoizes(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{})
	s := newSession(cat)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.SampleProductIdentifier(ctx)
		require.NoError(t, err)
		_, err = s.AuthToken(ctx)
		require.NoError(t, err)
	}

	reqs := cat.Requests()
	assert.Equal(t, 1, count(reqs, "GET /docs?api-docs.json"))
	assert.Equal(t, 1, count(reqs, "POST /users/login"))
	assert.Equal(t, 1, count(reqs, "GET /products/01HPRODUCT0001"))
}

func TestSessionIdentifierFallsBackToSlug(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{DetailKey: "slug"})
	s := newSession(cat)

	id, err := s.SampleProductIdentifier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "combination-pliers", id)
	assert.True(t, cat.Requested("GET /products/01HPRODUCT0001"))
}

func TestSessionSkipsWhenIdentifierUnresolvable(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{DetailKey: "sku"})
	s := newSession(cat)

	_, err := s.SampleProductIdentifier(context.Background())
	var skip *types.SkipError
	require.True(t, errors.As(err, &skip), "got %v", err)
	assert.Contains(t, skip.Reason, "working identifier")
}

func TestSessionSkipsLoginWithBadCredentials(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{})
	s := NewSession(client.New(), Target{Host: cat.URL, Email: "nobody@example.com", Password: "x"}, nil)

	_, err := s.AuthToken(context.Background())
	var skip *types.SkipError
	assert.True(t, errors.As(err, &skip), "got %v", err)
}

func TestSessionFatalDiscoveryIsMemoized(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{})
	s := NewSession(client.New(), Target{Host: cat.URL, DocsURL: cat.URL + "/missing"}, nil)
	ctx := context.Background()

	_, err := s.BaseURL(ctx)
	var derr *types.DiscoveryError
	require.True(t, errors.As(err, &derr), "got %v", err)

	_, err = s.SampleBrandID(ctx)
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, 1, count(cat.Requests(), "GET /missing"))
}

func TestLazyRecomputesAfterTransportError(t *testing.T) {
	ctx := context.Background()
	var l lazy[string]
	calls := 0
	compute := func() (string, error) {
		calls++
		if calls == 1 {
			return "", &url.Error{Op: "Get", URL: "http://shop.test/products", Err: errors.New("connection reset")}
		}
		return "ok", nil
	}

	_, err := l.get(ctx, compute)
	require.Error(t, err)
	v, err := l.get(ctx, compute)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	// a successful value is kept
	v, err = l.get(ctx, compute)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)

	var failed lazy[string]
	fails := 0
	for i := 0; i < 2; i++ {
		_, err = failed.get(ctx, func() (string, error) {
			fails++
			return "", types.Skipf("no brands")
		})
		assert.Error(t, err)
	}
	assert.Equal(t, 1, fails)
}
