package commandstructure

import (
	"fmt"
)

// GetIntParam safely extracts an int parameter from the params map
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

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}

// GetPositiveDimensions reads the required "width" and "height" params and checks both are positive
func GetPositiveDimensions(params map[string]any) (width int, height int, err error) {
	if err := ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return 0, 0, err
	}
	width = GetIntParam(params, "width", 0)
	height = GetIntParam(params, "height", 0)
	if width <= 0 {
		return 0, 0, fmt.Errorf("width must be positive, got %d", width)
	}
	if height <= 0 {
		return 0, 0, fmt.Errorf("height must be positive, got %d", height)
	}
	return width, height, nil
}
