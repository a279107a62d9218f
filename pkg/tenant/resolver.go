package tenant

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultHeader carries the tenant id on API requests.
const DefaultHeader = "X-Tenant-ID"

// Resolver extracts the tenant id from a request.
// It returns ErrMissingIdentifier when the request names no tenant.
type Resolver interface {
	Resolve(r *http.Request) (uuid.UUID, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (uuid.UUID, error)

func (f ResolverFunc) Resolve(r *http.Request) (uuid.UUID, error) { return f(r) }

// HeaderResolver reads a UUID from a request header.
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver reads from header, or X-Tenant-ID when header is empty.
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = DefaultHeader
	}
	return &HeaderResolver{Header: header}
}

func (h *HeaderResolver) Resolve(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(h.Header))
	if raw == "" {
		return uuid.Nil, ErrMissingIdentifier
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidIdentifier
	}
	return id, nil
}
