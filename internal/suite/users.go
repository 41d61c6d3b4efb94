package suite

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"qa-harness/internal/client"
	"qa-harness/internal/executor"

	"github.com/google/uuid"
)

// UserChecks exercise the user service end to end over HTTP. reset, when not
// nil, runs before every check. Emails are unique per check so the checks
// also pass against a store that is never reset.
func UserChecks(c *client.Client, baseURL string, reset func(ctx context.Context) error) []executor.Check {
	u := &userAPI{c: c, base: strings.TrimRight(baseURL, "/") + "/api"}

	wrap := func(name string, run func(ctx context.Context) error) executor.Check {
		return check(Users, name, func(ctx context.Context) error {
			if reset != nil {
				if err := reset(ctx); err != nil {
					return fmt.Errorf("failed to reset users: %w", err)
				}
			}
			return run(ctx)
		})
	}

	return []executor.Check{
		wrap("healthcheck", func(ctx context.Context) error {
			resp, err := c.Get(ctx, u.base+"/health")
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			body, err := object(resp)
			if err != nil {
				return err
			}
			if body["status"] != "ok" {
				return unexpected(resp, "health status is not ok")
			}
			return nil
		}),

		wrap("create_and_get_user", func(ctx context.Context) error {
			email := uniqueEmail("a")
			created, err := u.create(ctx, map[string]any{"email": email, "name": "Alice", "is_active": true})
			if err != nil {
				return err
			}
			if created["email"] != email || created["name"] != "Alice" {
				return fmt.Errorf("created user does not echo the payload: %v", created)
			}
			id, _ := created["id"].(string)

			resp, err := c.Get(ctx, u.user(id))
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			got, err := object(resp)
			if err != nil {
				return err
			}
			if got["id"] != id {
				return unexpected(resp, "fetched user id does not match %s", id)
			}
			return nil
		}),

		wrap("duplicate_email_returns_409", func(ctx context.Context) error {
			payload := map[string]any{"email": uniqueEmail("dup"), "name": "A", "is_active": true}
			if _, err := u.create(ctx, payload); err != nil {
				return err
			}
			resp, err := c.PostJSON(ctx, u.base+"/users", payload)
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusConflict); err != nil {
				return err
			}
			body, err := object(resp)
			if err != nil {
				return err
			}
			if detail, _ := body["detail"].(string); detail == "" {
				return unexpected(resp, "conflict response has no detail")
			}
			return nil
		}),

		wrap("not_found_returns_404", func(ctx context.Context) error {
			resp, err := c.Get(ctx, u.user(uuid.NewString()))
			if err != nil {
				return err
			}
			return expectStatus(resp, http.StatusNotFound)
		}),

		wrap("invalid_payload_returns_422", func(ctx context.Context) error {
			resp, err := c.PostJSON(ctx, u.base+"/users", map[string]any{"email": "not-an-email", "name": ""})
			if err != nil {
				return err
			}
			return expectStatus(resp, http.StatusUnprocessableEntity)
		}),

		wrap("update_user", func(ctx context.Context) error {
			created, err := u.create(ctx, map[string]any{"email": uniqueEmail("u"), "name": "User", "is_active": true})
			if err != nil {
				return err
			}
			id, _ := created["id"].(string)

			resp, err := c.Do(ctx, client.Request{Method: http.MethodPut, URL: u.user(id), Body: map[string]any{"name": "User Updated"}})
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusOK); err != nil {
				return err
			}
			got, err := object(resp)
			if err != nil {
				return err
			}
			if got["name"] != "User Updated" {
				return unexpected(resp, "name was not updated")
			}
			return nil
		}),

		wrap("delete_user", func(ctx context.Context) error {
			created, err := u.create(ctx, map[string]any{"email": uniqueEmail("d"), "name": "Del", "is_active": true})
			if err != nil {
				return err
			}
			id, _ := created["id"].(string)

			resp, err := c.Do(ctx, client.Request{Method: http.MethodDelete, URL: u.user(id)})
			if err != nil {
				return err
			}
			if err := expectStatus(resp, http.StatusNoContent); err != nil {
				return err
			}

			resp, err = c.Get(ctx, u.user(id))
			if err != nil {
				return err
			}
			return expectStatus(resp, http.StatusNotFound)
		}),
	}
}

type userAPI struct {
	c    *client.Client
	base string
}

func (u *userAPI) user(id string) string {
	return u.base + "/users/" + id
}

// create POSTs a user and requires a 201 with an id
func (u *userAPI) create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	resp, err := u.c.PostJSON(ctx, u.base+"/users", payload)
	if err != nil {
		return nil, err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return nil, err
	}
	body, err := object(resp)
	if err != nil {
		return nil, err
	}
	if id, _ := body["id"].(string); id == "" {
		return nil, unexpected(resp, "created user has no id")
	}
	return body, nil
}

func object(resp *client.Response) (map[string]any, error) {
	body, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil, unexpected(resp, "expected a JSON object")
	}
	return m, nil
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}
