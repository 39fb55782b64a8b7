package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a scalar cell or annotation value. After normalization it is
// always one of: string, float64, nil. Spreadsheet cells and annotation
// values arrive as heterogeneous scalars; collapsing them at ingestion
// means downstream code never branches on source-specific missing-value
// sentinels.
type Value = any

// NormalizeValue collapses a raw scalar into the closed value union.
// Empty strings and nil map to nil (explicit absence). Integer kinds
// widen to float64 so numbers compare consistently after a round-trip
// through an untyped store.
func NormalizeValue(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return v
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// ValueString renders a value as the text form written to the remote
// annotation store. Floats that carry no fractional part render without
// a decimal point, matching how spreadsheet integers are usually meant.
func ValueString(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
