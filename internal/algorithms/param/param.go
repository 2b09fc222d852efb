// Package param reads loosely typed algorithm parameters. Values may arrive
// as int or float64 depending on whether they came from a widget, a flag or
// a decoded config file.
package param

func Bool(params map[string]interface{}, key string, fallback bool) bool {
	if value, ok := params[key].(bool); ok {
		return value
	}
	return fallback
}

func Int(params map[string]interface{}, key string, fallback int) int {
	switch value := params[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case float32:
		return int(value)
	}
	return fallback
}

func Float(params map[string]interface{}, key string, fallback float64) float64 {
	switch value := params[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	}
	return fallback
}

func String(params map[string]interface{}, key string, fallback string) string {
	if value, ok := params[key].(string); ok {
		return value
	}
	return fallback
}

// Copy returns a shallow copy of params.
func Copy(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
