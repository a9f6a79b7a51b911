package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const partitionKey contextKey = "partition"

// WithPartition attaches the verified session partition to the request.
func WithPartition(r *http.Request, partition string) *http.Request {
	ctx := context.WithValue(r.Context(), partitionKey, partition)
	return r.WithContext(ctx)
}

// GetPartition returns the session partition, or "" if the request never
// passed the session middleware.
func GetPartition(r *http.Request) string {
	partition, _ := r.Context().Value(partitionKey).(string)
	return partition
}
