package factory

import (
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
)

// Sanitize returns a copy of the payload with sensitive keys dropped at
// every nesting level and nesting truncated at the configured depth. The
// input is never mutated. Sanitization is idempotent: applying it to its
// own output is a no-op.
func (f *Factory) Sanitize(payload domain.Payload) domain.Payload {
	out := f.truncateMap(payload, 0)
	if out == nil {
		out = domain.Payload{}
	}
	return out
}

// truncate walks the value as a tagged variant (map / slice / scalar) and
// cuts recursion at maxDepth. A map beyond the limit collapses to {id}
// when it carries one, else to nil. time.Time values are opaque leaves.
// Maps normalize to domain.Payload on the way out.
func (f *Factory) truncate(value any, depth int) any {
	switch v := value.(type) {
	case time.Time, *time.Time:
		return v
	case domain.Payload:
		if out := f.truncateMap(v, depth); out != nil {
			return out
		}
		return nil
	case map[string]any:
		if out := f.truncateMap(v, depth); out != nil {
			return out
		}
		return nil
	case []any:
		if depth >= f.maxDepth {
			return nil
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = f.truncate(item, depth+1)
		}
		return out
	default:
		return v
	}
}

func (f *Factory) truncateMap(m map[string]any, depth int) domain.Payload {
	if depth >= f.maxDepth {
		if id, ok := m["id"]; ok {
			return domain.Payload{"id": id}
		}
		return nil
	}
	out := make(domain.Payload, len(m))
	for key, value := range m {
		if _, sensitive := f.sensitiveKeys[key]; sensitive {
			f.logger.Warn("sensitive field dropped from payload", zap.String("field", key))
			continue
		}
		switch value.(type) {
		case map[string]any, domain.Payload, []any, time.Time, *time.Time:
			out[key] = f.truncate(value, depth+1)
		default:
			out[key] = value
		}
	}
	return out
}
