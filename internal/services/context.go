package services

import "context"

type contextKey string

const (
	itemIDKey    contextKey = "item_id"
	databaseKey  contextKey = "database"
	requestIDKey contextKey = "request_id"
)

// WithItemID annotates context with the library record identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the record identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(itemIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithDatabase annotates context with the citation database being queried.
func WithDatabase(ctx context.Context, database string) context.Context {
	if database == "" {
		return ctx
	}
	return context.WithValue(ctx, databaseKey, database)
}

// DatabaseFromContext returns the database name if present.
func DatabaseFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(databaseKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
