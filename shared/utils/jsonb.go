package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	return ScanJSON(value, j)
}

// JSONValue marshals v for storage in a JSONB column.
func JSONValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json column: marshal failed: %w", err)
	}
	return b, nil
}

// ScanJSON decodes a JSONB column value into dest. Drivers hand the payload
// back either as []byte (postgres) or string (sqlite TEXT affinity).
func ScanJSON(value any, dest any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("json column: Scan failed, expected []byte or string but got %T", value)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dest)
}
