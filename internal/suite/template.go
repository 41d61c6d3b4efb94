package suite

import (
	"context"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/executor"
	"qa-harness/internal/testdata"
	"qa-harness/internal/types"
)

// TemplateChecks send one request per template endpoint. A response below
// 500 passes: the sweep only asserts that described endpoints do not crash.
func TemplateChecks(c *client.Client, template *types.TestDataTemplate) []executor.Check {
	var checks []executor.Check
	for _, key := range testdata.Keys(template) {
		method, path, _ := strings.Cut(key, " ")
		data := template.Endpoints[key]

		checks = append(checks, check(Template, key, func(ctx context.Context) error {
			u, err := testdata.BuildURL(template.BaseURL, path, data)
			if err != nil {
				return types.Skipf("%v", err)
			}
			resp, err := c.Do(ctx, client.Request{
				Method:  method,
				URL:     u,
				Body:    data.Body,
				Headers: data.Headers,
			})
			if err != nil {
				return err
			}
			if resp.StatusCode >= 500 {
				return unexpected(resp, "server error for %s", key)
			}
			return nil
		}))
	}
	return checks
}
