// Package suite holds the check catalogues run by the harness: smoke and
// regression checks against the discovered catalog API, CRUD checks against
// the user service, and a sweep over a generated request template.
package suite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/discovery"
	"qa-harness/internal/executor"
	"qa-harness/internal/parser"
	"qa-harness/internal/types"
)

// Suite names
const (
	Smoke      = "smoke"
	Regression = "regression"
	Users      = "users"
	Template   = "template"
	All        = "all"
)

// Names lists the selectable suites in run order
var Names = []string{Smoke, Regression, Users, Template}

// Deps carries what the suites need. Fields a selected suite does not use
// may be left empty.
type Deps struct {
	Session *discovery.Session
	Client  *client.Client
	// AppBaseURL is the user service base URL
	AppBaseURL string
	// ResetUsers, when set, empties the user store before each CRUD check
	ResetUsers func(ctx context.Context) error
	TestData   *types.TestDataTemplate
}

// Select builds the checks of the named suites. "all" expands to every suite
// whose dependencies are present.
func Select(names []string, deps Deps) ([]executor.Check, error) {
	var expanded []string
	for _, name := range names {
		if name != All {
			expanded = append(expanded, name)
			continue
		}
		if deps.Session != nil {
			expanded = append(expanded, Smoke, Regression)
		}
		if deps.AppBaseURL != "" {
			expanded = append(expanded, Users)
		}
		if deps.TestData != nil {
			expanded = append(expanded, Template)
		}
	}

	var checks []executor.Check
	seen := make(map[string]bool)
	for _, name := range expanded {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case Smoke, Regression:
			if deps.Session == nil {
				return nil, fmt.Errorf("suite %s needs a discovery session", name)
			}
			if name == Smoke {
				checks = append(checks, SmokeChecks(deps.Session)...)
			} else {
				checks = append(checks, RegressionChecks(deps.Session)...)
			}
		case Users:
			if deps.AppBaseURL == "" || deps.Client == nil {
				return nil, fmt.Errorf("suite %s needs the user service base URL", name)
			}
			checks = append(checks, UserChecks(deps.Client, deps.AppBaseURL, deps.ResetUsers)...)
		case Template:
			if deps.TestData == nil || deps.Client == nil {
				return nil, fmt.Errorf("suite %s needs a request template", name)
			}
			checks = append(checks, TemplateChecks(deps.Client, deps.TestData)...)
		default:
			return nil, fmt.Errorf("unknown suite %q (known: %s, %s)", name, strings.Join(Names, ", "), All)
		}
	}
	return checks, nil
}

func check(suite, name string, run func(ctx context.Context) error) executor.Check {
	return executor.Check{Suite: suite, Name: name, Run: run}
}

// unexpected describes a response that failed an assertion, with a body
// snippet for debugging
func unexpected(resp *client.Response, format string, args ...any) error {
	return fmt.Errorf("%s: url=%s status=%d body_snippet=%q",
		fmt.Sprintf(format, args...), resp.URL, resp.StatusCode, resp.Snippet(client.SnippetLimit))
}

func expectStatus(resp *client.Response, want ...int) error {
	if slices.Contains(want, resp.StatusCode) {
		return nil
	}
	if len(want) == 1 {
		return unexpected(resp, "expected status %d", want[0])
	}
	return unexpected(resp, "expected status in %v", want)
}

func expectJSONContent(resp *client.Response) error {
	if resp.IsJSON() {
		return nil
	}
	return unexpected(resp, "expected a JSON content type, got %q", resp.Header.Get("Content-Type"))
}

// getPath issues a GET for path under the resolved base URL
func getPath(ctx context.Context, s *discovery.Session, path string) (*client.Response, error) {
	u, err := s.URL(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Client().Get(ctx, u)
}

// withQuery replaces any query string of path with key=value
func withQuery(path, key, value string) string {
	return parser.StripQuery(path) + "?" + url.Values{key: {value}}.Encode()
}

// scalarString renders a JSON scalar as a trimmed string
func scalarString(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	case json.Number:
		s = x.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// firstValue returns the first non-empty scalar among keys of item
func firstValue(item map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := scalarString(item[k]); ok {
			return s, true
		}
	}
	return "", false
}
