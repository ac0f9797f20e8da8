package jsonutil

import "encoding/json"

// StructToMap converts source to its JSON object form.
func StructToMap(source any) (map[string]any, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}

	var target map[string]any
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, err
	}

	return target, nil
}

// Lookup walks nested objects and arrays by key or index, e.g.
// Lookup(payload, "images", 0, "url").
func Lookup(source any, path ...any) (any, bool) {
	current := source
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[key]; !ok {
				return nil, false
			}
		case int:
			arr, ok := current.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			current = arr[key]
		default:
			return nil, false
		}
	}

	return current, true
}

func LookupString(source any, path ...any) string {
	v, ok := Lookup(source, path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
