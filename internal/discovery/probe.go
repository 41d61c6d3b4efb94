package discovery

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/types"
)

// CandidateHosts expands each host into the bases tried for it: the bare host
// first, then the host with an "/api" prefix.
func CandidateHosts(hosts ...string) []string {
	out := make([]string, 0, len(hosts)*2)
	for _, h := range hosts {
		h = strings.TrimRight(h, "/")
		if h == "" {
			continue
		}
		out = append(out, h, h+"/api")
	}
	return out
}

// ResolveBaseURL probes probePath under every candidate base and returns the
// first base that answers with neither 404 nor a server error.
func ResolveBaseURL(ctx context.Context, c *client.Client, hosts []string, probePath string) (string, error) {
	bases := CandidateHosts(hosts...)
	candidates := make([]Candidate[string], 0, len(bases))
	for _, base := range bases {
		url := client.Absolute(base, probePath)
		candidates = append(candidates, Candidate[string]{
			Name: url,
			Try: func(ctx context.Context) (string, error) {
				resp, err := c.Probe(ctx, url)
				if err != nil {
					return "", Reject("%v", err)
				}
				if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
					return "", Reject("status %d", resp.StatusCode)
				}
				return base, nil
			},
		})
	}

	base, err := FirstSuccess(ctx, candidates)
	if err == nil {
		return base, nil
	}

	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return "", &types.DiscoveryError{
			Op:       "could not determine API base URL; check routing or the products path " + probePath,
			Attempts: exhausted.Attempts,
		}
	}
	return "", &types.DiscoveryError{Op: "could not determine API base URL", Err: err}
}
