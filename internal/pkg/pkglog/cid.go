package pkglog

import "context"

// NoCorrelationID is returned when the context carries no correlation ID.
const NoCorrelationID = "[invalid_chain_id]"

type correlationIDKey struct{}

// GetCorrelationID returns the correlation ID stored in the context.
func GetCorrelationID(ctx context.Context) string {
	cid, ok := ctx.Value(correlationIDKey{}).(string)
	if !ok {
		return NoCorrelationID
	}
	return cid
}

// SetCorrelationID stores a correlation ID into the context. Request
// middleware sets it so every log line of a request can be grouped.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cid)
}

// CopyCorrelationID returns dst carrying the correlation ID of src, if any.
// Background work started from a request keeps dst's lifetime but logs
// under the request's ID.
func CopyCorrelationID(dst, src context.Context) context.Context {
	cid, ok := src.Value(correlationIDKey{}).(string)
	if !ok {
		return dst
	}
	return SetCorrelationID(dst, cid)
}
