package suite

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/discovery"
	"qa-harness/internal/envelope"
	"qa-harness/internal/executor"
	"qa-harness/internal/types"
)

// Sample product keys that may carry a category or brand reference
var (
	categoryKeys = []string{"category_id", "categoryId", "category", "category_slug", "categorySlug"}
	brandKeys    = []string{"brand_id", "brandId", "brand", "brand_slug", "brandSlug"}
)

// SmokeChecks are fast, high-signal checks that the catalog API is up.
// Capabilities the description does not offer are skipped.
func SmokeChecks(s *discovery.Session) []executor.Check {
	return []executor.Check{
		check(Smoke, "swagger_ui_is_reachable", func(ctx context.Context) error {
			resp, err := s.Client().Get(ctx, s.DocsURL())
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			if !strings.Contains(strings.ToLower(string(resp.Body)), "<title") {
				return unexpected(resp, "documentation page does not look like HTML")
			}
			return nil
		}),

		check(Smoke, "openapi_spec_is_loadable", func(ctx context.Context) error {
			desc, err := s.Description(ctx)
			if err != nil {
				return err
			}
			if len(desc.Paths()) == 0 {
				return fmt.Errorf("service description %s has no paths", desc.SourceURL)
			}
			return nil
		}),

		check(Smoke, "products_list_returns_200", func(ctx context.Context) error {
			resp, err := getCollection(ctx, s, s.ProductsPath)
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			return expectJSONContent(resp)
		}),

		check(Smoke, "products_list_is_not_empty", func(ctx context.Context) error {
			resp, err := getCollection(ctx, s, s.ProductsPath)
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			body, err := resp.JSON()
			if err != nil {
				return err
			}
			if len(envelope.UnwrapList(body)) == 0 {
				return unexpected(resp, "products list is empty")
			}
			return nil
		}),

		check(Smoke, "product_details_for_first_item", func(ctx context.Context) error {
			u, err := s.SampleProductDetailsURL(ctx)
			if err != nil {
				return err
			}
			resp, err := s.Client().Get(ctx, u)
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			if err := expectJSONContent(resp); err != nil {
				return err
			}
			body, err := resp.JSON()
			if err != nil {
				return err
			}
			switch body.(type) {
			case map[string]any, []any:
				return nil
			}
			return unexpected(resp, "product details are neither an object nor a list")
		}),

		check(Smoke, "categories_list_returns_200", func(ctx context.Context) error {
			return collectionReturns200(ctx, s, s.CategoriesPath)
		}),

		check(Smoke, "brands_list_returns_200", func(ctx context.Context) error {
			return collectionReturns200(ctx, s, s.BrandsPath)
		}),

		check(Smoke, "products_pagination_if_described", func(ctx context.Context) error {
			products, err := s.ProductsPath(ctx)
			if err != nil {
				return err
			}
			desc, err := s.Description(ctx)
			if err != nil {
				return err
			}
			param, ok := desc.FindQueryParameterNamed(products, "page", "p", "pageindex", "pagenumber")
			if !ok {
				return types.Skipf("no pagination parameter described for the products list endpoint")
			}
			resp, err := getPath(ctx, s, withQuery(products, param, "2"))
			if err != nil {
				return err
			}
			return expectStatus(resp, http.StatusOK)
		}),

		check(Smoke, "filter_products_by_category_if_supported", func(ctx context.Context) error {
			return filterBySampleProduct(ctx, s, "category", categoryKeys)
		}),

		check(Smoke, "filter_products_by_brand_if_supported", func(ctx context.Context) error {
			return filterBySampleProduct(ctx, s, "brand", brandKeys)
		}),
	}
}

// getCollection GETs the collection path returned by pathOf
func getCollection(ctx context.Context, s *discovery.Session, pathOf func(context.Context) (string, error)) (*client.Response, error) {
	path, err := pathOf(ctx)
	if err != nil {
		return nil, err
	}
	return getPath(ctx, s, path)
}

func collectionReturns200(ctx context.Context, s *discovery.Session, pathOf func(context.Context) (string, error)) error {
	resp, err := getCollection(ctx, s, pathOf)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}

// filterBySampleProduct filters the products list by the parameter named
// after kind, using the value the sample product exposes under keys
func filterBySampleProduct(ctx context.Context, s *discovery.Session, kind string, keys []string) error {
	products, err := s.ProductsPath(ctx)
	if err != nil {
		return err
	}
	desc, err := s.Description(ctx)
	if err != nil {
		return err
	}
	param, ok := desc.FindQueryParameter(products, kind)
	if !ok {
		return types.Skipf("no %s filter parameter described for the products list endpoint", kind)
	}

	product, err := s.SampleProduct(ctx)
	if err != nil {
		return err
	}
	value, ok := firstValue(product, keys...)
	if !ok {
		return types.Skipf("sample product does not expose a %s identifier; cannot test the %s filter safely", kind, kind)
	}

	resp, err := getPath(ctx, s, withQuery(products, param, value))
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}
