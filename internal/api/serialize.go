package api

import (
	"fmt"
	"time"

	"github.com/kalambet/convoql/internal/engine"
)

// serializeRows converts an engine result into JSON-safe rows. Timestamps
// become RFC3339 strings; anything the engine returns that is not a JSON
// primitive is stringified.
func serializeRows(res engine.Result) []map[string]any {
	rows := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		out := make(map[string]any, len(row))
		for col, v := range row {
			out[col] = serializeValue(v)
		}
		rows = append(rows, out)
	}
	return rows
}

func serializeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
