// Package requestid carries the per-request correlation id.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the response header echoing the id.
const Header = "X-Request-ID"

type key struct{}

func New() string {
	return uuid.NewString()
}

func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// FromContext returns the id stored in ctx, or "" when there is none.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(key{}).(string); ok {
		return id
	}
	return ""
}
