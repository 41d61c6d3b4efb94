package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"qa-harness/internal/client"
)

// ErrUnsupported means the service offers no usable login for the
// configured credentials
var ErrUnsupported = errors.New("login not supported")

// tokenKeys are the response fields that may carry a bearer token
var tokenKeys = []string{"token", "access_token", "accessToken", "jwt", "bearer"}

// Credentials are the demo account used for login
type Credentials struct {
	Email    string
	Password string
}

// LoginPayloads returns the request bodies tried in order
func LoginPayloads(creds Credentials) []map[string]string {
	return []map[string]string{
		{"email": creds.Email, "password": creds.Password},
		{"username": creds.Email, "password": creds.Password},
		{"login": creds.Email, "password": creds.Password},
	}
}

// Login posts each payload shape to loginPath and returns the first token
// found in a successful response.
func Login(ctx context.Context, c *client.Client, baseURL, loginPath string, creds Credentials) (string, error) {
	url := client.Absolute(baseURL, loginPath)

	var candidates []Candidate[string]
	for _, payload := range LoginPayloads(creds) {
		candidates = append(candidates, Candidate[string]{
			Name: fmt.Sprintf("POST %s with %s", url, credentialField(payload)),
			Try: func(ctx context.Context) (string, error) {
				resp, err := c.PostJSON(ctx, url, payload)
				if err != nil {
					return "", Reject("%v", err)
				}
				switch resp.StatusCode {
				case http.StatusOK, http.StatusCreated, http.StatusAccepted:
				default:
					return "", Reject("status %d", resp.StatusCode)
				}
				body, err := resp.JSON()
				if err != nil {
					return "", Reject("response is not JSON")
				}
				token, ok := ExtractToken(body)
				if !ok {
					return "", Reject("no token in response")
				}
				return token, nil
			},
		})
	}

	token, err := FirstSuccess(ctx, candidates)
	if errors.Is(err, ErrExhausted) {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return token, err
}

// ExtractToken looks for a token at the top level, then under "data" and
// "result".
func ExtractToken(payload any) (string, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	if tok, ok := tokenIn(m); ok {
		return tok, true
	}
	for _, container := range []string{"data", "result"} {
		if inner, ok := m[container].(map[string]any); ok {
			if tok, ok := tokenIn(inner); ok {
				return tok, true
			}
		}
	}
	return "", false
}

func tokenIn(m map[string]any) (string, bool) {
	for _, k := range tokenKeys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func credentialField(payload map[string]string) string {
	for _, k := range []string{"email", "username", "login"} {
		if _, ok := payload[k]; ok {
			return k
		}
	}
	return "credentials"
}
