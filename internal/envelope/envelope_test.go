package envelope

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestUnwrapList(t *testing.T) {
	want := []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}}

	tests := []struct {
		name string
		raw  string
		want []any
	}{
		{"bare list", `[{"id":"1"},{"id":"2"}]`, want},
		{"data list", `{"data":[{"id":"1"},{"id":"2"}]}`, want},
		{"nested data list", `{"data":{"current_page":1,"data":[{"id":"1"},{"id":"2"}]}}`, want},
		{"scalar data", `{"data":5}`, []any{}},
		{"no data key", `{"items":[1,2]}`, []any{}},
		{"nested non list", `{"data":{"data":"x"}}`, []any{}},
		{"scalar", `"hello"`, []any{}},
		{"null", `null`, []any{}},
		{"empty list", `[]`, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnwrapList(decode(t, tt.raw))
			require.NotNil(t, got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UnwrapList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnwrapListIdempotent(t *testing.T) {
	for _, raw := range []string{
		`[1,2,3]`,
		`{"data":[1,2,3]}`,
		`{"data":{"data":[1,2,3]}}`,
		`{"data":5}`,
	} {
		once := UnwrapList(decode(t, raw))
		twice := UnwrapList(once)
		assert.Equal(t, once, twice, raw)
	}
}

func TestUnwrapObject(t *testing.T) {
	assert.Equal(t, map[string]any{"a": float64(1)}, UnwrapObject(decode(t, `{"data":{"a":1}}`)))
	assert.Equal(t, map[string]any{"a": float64(1)}, UnwrapObject(decode(t, `{"a":1}`)))
	assert.Equal(t,
		map[string]any{"data": []any{float64(1), float64(2)}},
		UnwrapObject(decode(t, `{"data":[1,2]}`)))
	assert.Equal(t, []any{float64(1)}, UnwrapObject(decode(t, `[1]`)))
	assert.Nil(t, UnwrapObject(nil))
}

func TestItemsDropsNonObjects(t *testing.T) {
	items := Items(decode(t, `{"data":[{"id":1},"x",2,{"id":2}]}`))
	require.Len(t, items, 2)
	assert.Equal(t, float64(2), items[1]["id"])
}
