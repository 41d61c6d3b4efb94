package suite

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qa-harness/internal/api"
	"qa-harness/internal/client"
	"qa-harness/internal/discovery"
	"qa-harness/internal/executor"
	"qa-harness/internal/logger"
	"qa-harness/internal/testdata"
	"qa-harness/internal/testutil"
	"qa-harness/internal/users"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSession(cat *testutil.Catalog) *discovery.Session {
	return discovery.NewSession(client.New(), discovery.Target{
		Host:     cat.URL,
		DocsURL:  cat.DocsURL(),
		Email:    cat.Opts.Email,
		Password: cat.Opts.Password,
	}, nil)
}

func run(t *testing.T, checks []executor.Check) []executor.CheckResult {
	t.Helper()
	runner := executor.NewRunner(executor.RunConfig{Timeout: 10 * time.Second}, logger.Nop())
	return runner.Run(context.Background(), checks)
}

func outcomes(results []executor.CheckResult) map[string]executor.Outcome {
	out := make(map[string]executor.Outcome, len(results))
	for _, r := range results {
		out[r.Name] = r.Outcome
	}
	return out
}

func allPassExcept(checks []executor.Check, except map[string]executor.Outcome) map[string]executor.Outcome {
	want := make(map[string]executor.Outcome, len(checks))
	for _, c := range checks {
		want[c.Name] = executor.Pass
		if o, ok := except[c.Name]; ok {
			want[c.Name] = o
		}
	}
	return want
}

func TestSmokeChecksAgainstCatalog(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api"})
	checks := SmokeChecks(newSession(cat))

	results := run(t, checks)
	if diff := cmp.Diff(allPassExcept(checks, nil), outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s\nresults: %+v", diff, results)
	}
	assert.True(t, cat.Requested("GET /api/products?page=2"))
	assert.True(t, cat.Requested("GET /api/products?by_category=cat-hand-tools"))
	assert.True(t, cat.Requested("GET /api/products?by_brand=brand-forgeflex"))
}

func TestRegressionChecksAgainstCatalog(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api"})
	checks := RegressionChecks(newSession(cat))

	results := run(t, checks)
	want := allPassExcept(checks, map[string]executor.Outcome{
		"cart_get_requires_auth_if_present": executor.Skip,
	})
	if diff := cmp.Diff(want, outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s\nresults: %+v", diff, results)
	}

	for _, r := range results {
		if r.Name == "cart_get_requires_auth_if_present" {
			assert.Contains(t, r.Message, "only templated cart endpoint found")
			assert.Contains(t, r.Message, "/carts/{cartId}")
		}
	}
	// the first described sort value is accepted, so no other value is tried
	assert.True(t, cat.Requested("GET /api/products?sort=name%2Casc"))
	assert.False(t, cat.Requested("GET /api/products?sort=price-asc"))
}

func TestRegressionSortCrashIsKnownDefect(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api", SortBroken: true})
	session := newSession(cat)

	var sortChecks []executor.Check
	for _, c := range RegressionChecks(session) {
		if strings.Contains(c.Name, "sort") {
			sortChecks = append(sortChecks, c)
		}
	}
	require.Len(t, sortChecks, 2)

	results := run(t, sortChecks)
	for _, r := range results {
		assert.Equal(t, executor.XFail, r.Outcome, r.Name)
		assert.True(t, strings.HasPrefix(r.Repro, "curl -i "), r.Repro)
	}
	assert.Contains(t, results[0].Message, "[name,asc name,desc price,asc price-asc]")
	assert.Contains(t, results[0].Repro, "sort=price-asc")
	assert.Contains(t, results[1].Repro, "sort="+InvalidSortValue)
}

func TestRegressionSkipsWhenLoginFails(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api", Password: "something-else"})
	session := discovery.NewSession(client.New(), discovery.Target{
		Host:     cat.URL,
		DocsURL:  cat.DocsURL(),
		Email:    cat.Opts.Email,
		Password: "welcome01",
	}, nil)

	got := outcomes(run(t, RegressionChecks(session)))
	assert.Equal(t, executor.Skip, got["login_returns_token"])
	assert.Equal(t, executor.Skip, got["me_endpoint_requires_auth_if_present"])
	assert.Equal(t, executor.Pass, got["products_list_returns_json_200"])
}

func TestSmokeAbortsOnDiscoveryFailure(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api"})
	session := discovery.NewSession(client.New(), discovery.Target{
		Host:    cat.URL,
		DocsURL: cat.URL + "/missing",
	}, nil)

	results := run(t, SmokeChecks(session))
	got := outcomes(results)
	// the docs page check does not need the description
	assert.Equal(t, executor.Fail, got["swagger_ui_is_reachable"])
	assert.Equal(t, executor.Error, got["openapi_spec_is_loadable"])
	for _, r := range results[2:] {
		assert.Equal(t, executor.Error, r.Outcome, r.Name)
		assert.Contains(t, r.Message, "not run")
	}
}

func TestUserChecksAgainstService(t *testing.T) {
	store := users.NewMemoryStore()
	h := api.NewHandler(users.NewService(store), zap.NewNop())
	srv := httptest.NewServer(api.NewRouter(h, zap.NewNop()))
	t.Cleanup(srv.Close)

	checks := UserChecks(client.New(), srv.URL, store.Truncate)
	results := run(t, checks)
	if diff := cmp.Diff(allPassExcept(checks, nil), outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s\nresults: %+v", diff, results)
	}
}

func TestTemplateChecksAgainstCatalog(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{Prefix: "/api"})
	session := newSession(cat)

	desc, err := session.Description(ctx)
	require.NoError(t, err)
	base, err := session.BaseURL(ctx)
	require.NoError(t, err)
	product, err := session.SampleProductIdentifier(ctx)
	require.NoError(t, err)

	template := testdata.NewGenerator(t.TempDir(), nil).Build(desc, base, testdata.Samples{Product: product})
	checks := TemplateChecks(client.New(), template)

	results := run(t, checks)
	want := allPassExcept(checks, map[string]executor.Outcome{
		"GET /carts/{cartId}": executor.Skip,
	})
	if diff := cmp.Diff(want, outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s\nresults: %+v", diff, results)
	}
	assert.True(t, cat.Requested("GET /api/products/01HPRODUCT0001"))
}

func TestSelect(t *testing.T) {
	cat := testutil.NewCatalog(t, testutil.CatalogOptions{})
	deps := Deps{Session: newSession(cat), Client: client.New(), AppBaseURL: "http://app:8000"}

	checks, err := Select([]string{All}, deps)
	require.NoError(t, err)
	suites := map[string]int{}
	for _, c := range checks {
		suites[c.Suite]++
	}
	assert.Equal(t, len(SmokeChecks(deps.Session)), suites[Smoke])
	assert.Equal(t, len(RegressionChecks(deps.Session)), suites[Regression])
	assert.Equal(t, 7, suites[Users])
	assert.Zero(t, suites[Template])

	// a repeated name is only expanded once
	checks, err = Select([]string{Smoke, Smoke}, deps)
	require.NoError(t, err)
	assert.Len(t, checks, len(SmokeChecks(deps.Session)))

	_, err = Select([]string{Template}, deps)
	assert.ErrorContains(t, err, "needs a request template")

	_, err = Select([]string{"load"}, deps)
	assert.ErrorContains(t, err, `unknown suite "load"`)
}
