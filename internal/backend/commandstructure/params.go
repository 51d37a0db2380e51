package commandstructure

import (
	"fmt"
)

// GetIntParam safely extracts an int parameter from the params map.
// YAML and JSON decoders produce int, int64 or float64 depending on source.
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetPositiveIntParam extracts an int parameter and rejects values <= 0
func GetPositiveIntParam(params map[string]any, key string, defaultValue int) (int, error) {
	value := GetIntParam(params, key, defaultValue)
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, value)
	}
	return value, nil
}

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}
