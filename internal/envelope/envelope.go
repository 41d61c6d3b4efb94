// Package envelope extracts list and object payloads from JSON bodies that may
// be wrapped in a "data" envelope.
package envelope

// UnwrapList returns the list payload of a decoded JSON body.
//
// Recognised shapes are a bare list, {"data": [...]} and
// {"data": {"data": [...]}}. Anything else yields an empty, non-nil slice.
func UnwrapList(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		switch data := v["data"].(type) {
		case []any:
			return data
		case map[string]any:
			if inner, ok := data["data"].([]any); ok {
				return inner
			}
		}
	}
	return []any{}
}

// UnwrapObject returns the inner mapping of {"data": {...}} and the payload
// itself otherwise. A list-valued "data" is left wrapped.
func UnwrapObject(payload any) any {
	if m, ok := payload.(map[string]any); ok {
		if data, ok := m["data"].(map[string]any); ok {
			return data
		}
	}
	return payload
}

// Items returns the mapping elements of a list payload, dropping anything
// that is not a JSON object.
func Items(payload any) []map[string]any {
	list := UnwrapList(payload)
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
