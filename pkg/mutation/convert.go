// Package mutation builds Cloud Spanner insert mutations from loosely
// typed seed records, coercing values to each column's declared type.
package mutation

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/nu0ma/spanwright-sub002/pkg/schema"
)

// Converter coerces seed values into the in-memory representation the
// Spanner client expects for a column's declared type. Conversion is
// deliberately permissive: a value that cannot be coerced is passed
// through unchanged with a warning, so one oddly shaped value never sinks
// a whole seeding batch.
type Converter struct {
	logger *zap.Logger
}

func NewConverter(logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{logger: logger}
}

// Convert returns value coerced to the declared column type. Nil input
// short-circuits to nil regardless of the declared type.
func (c *Converter) Convert(table, column string, value any, declared schema.ColumnType) any {
	if value == nil {
		return nil
	}

	// Timestamp strings get parsed ahead of the generic switch: an RFC3339
	// string destined for a TIMESTAMP column becomes a time.Time, and one
	// destined for an INT64 column becomes Unix epoch seconds. Parse
	// failures fall through to generic conversion.
	if s, ok := value.(string); ok && (declared == schema.TypeTimestamp || declared == schema.TypeInt64) {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			if declared == schema.TypeInt64 {
				return ts.Unix()
			}
			return ts
		} else if declared == schema.TypeTimestamp {
			c.logger.Warn("timestamp value did not parse, passing through",
				zap.String("table", table),
				zap.String("column", column),
				zap.String("value", s),
				zap.Error(err),
			)
		}
	}

	switch declared {
	case schema.TypeString:
		return value
	case schema.TypeInt64:
		if n, ok := toInt64(value); ok {
			return n
		}
		return value
	case schema.TypeFloat64:
		if f, ok := toFloat64(value); ok {
			return f
		}
		return value
	case schema.TypeBool:
		return value
	case schema.TypeJSON:
		return c.convertJSON(table, column, value)
	case schema.TypeArray:
		return c.convertArray(value)
	default:
		// Unknown declared type: leave the value for the client to reject
		// or accept.
		return value
	}
}

// convertJSON serializes structured input to its textual JSON form.
// Already-textual input is assumed pre-serialized and passed through.
func (c *Converter) convertJSON(table, column string, value any) any {
	if s, ok := value.(string); ok {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("JSON serialization failed, passing raw value through",
			zap.String("table", table),
			zap.String("column", column),
			zap.Error(err),
		)
		return value
	}
	return string(data)
}

// convertArray coerces a list based on its first element's runtime type.
// Empty or non-list input defaults to an empty string array, matching how
// seed files usually mean "no tags yet".
func (c *Converter) convertArray(value any) any {
	list, ok := value.([]any)
	if !ok {
		switch value.(type) {
		case []string, []int64:
			return value
		}
		return []string{}
	}
	if len(list) == 0 {
		return []string{}
	}

	switch list[0].(type) {
	case int, int64, float64:
		out := make([]int64, 0, len(list))
		for _, elem := range list {
			if n, ok := toInt64(elem); ok {
				out = append(out, n)
			}
		}
		return out
	default:
		out := make([]string, 0, len(list))
		for _, elem := range list {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
}

// toInt64 truncates numeric input toward an int64.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// toFloat64 widens numeric input to a float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
