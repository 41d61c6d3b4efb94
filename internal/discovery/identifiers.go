package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/parser"
)

// ErrUnresolvable means no candidate identifier worked against the detail
// endpoint. It reflects test data, not a defect.
var ErrUnresolvable = errors.New("sample identifier unresolvable")

// IdentifierFields lists identifier keys in priority order
var IdentifierFields = []string{"id", "slug", "uuid", "ulid", "code"}

// IdentifierCandidates returns the non-blank identifier values of an item in
// IdentifierFields order.
func IdentifierCandidates(item map[string]any) []string {
	var out []string
	for _, k := range IdentifierFields {
		if s, ok := identifierString(item[k]); ok {
			out = append(out, s)
		}
	}
	return out
}

// FirstIdentifier returns the first identifier found in a list of items
func FirstIdentifier(items []map[string]any) (string, bool) {
	for _, it := range items {
		if ids := IdentifierCandidates(it); len(ids) > 0 {
			return ids[0], true
		}
	}
	return "", false
}

// identifierString accepts strings and whole numbers
func identifierString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		if t != float64(int64(t)) {
			return "", false
		}
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case json.Number:
		s = t.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// ResolveSampleIdentifier substitutes each candidate into the first
// placeholder of detailTemplate and returns the first one whose detail GET
// answers 200.
func ResolveSampleIdentifier(ctx context.Context, c *client.Client, baseURL, detailTemplate string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: no identifier candidates for %s", ErrUnresolvable, detailTemplate)
	}

	candidates := make([]Candidate[string], 0, len(ids))
	for _, id := range ids {
		url := client.Absolute(baseURL, parser.ReplaceFirstPlaceholder(detailTemplate, id))
		candidates = append(candidates, Candidate[string]{
			Name: url,
			Try: func(ctx context.Context) (string, error) {
				resp, err := c.Get(ctx, url)
				if err != nil {
					return "", Reject("%v", err)
				}
				if resp.StatusCode != http.StatusOK {
					return "", Reject("status %d", resp.StatusCode)
				}
				return id, nil
			},
		})
	}

	id, err := FirstSuccess(ctx, candidates)
	if errors.Is(err, ErrExhausted) {
		return "", fmt.Errorf("%w: tried %v on path %s", ErrUnresolvable, ids, detailTemplate)
	}
	return id, err
}
