// Package tenant binds each unit of work to a branch identity and a
// dedicated database session, so the row-level security policies can
// scope every query without per-query filtering.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Context is the tenant identity of one unit of work. It is ephemeral:
// built when the unit of work starts, gone when it ends, never
// persisted.
type Context struct {
	BranchID *uuid.UUID
	UserID   *uuid.UUID
	Role     string
	IsAdmin  bool
}

// System returns the identity used by maintenance units of work
// (retention, seeding). With the admin flag set and no branch bound,
// the RLS policies grant cross-branch visibility.
func System() Context {
	return Context{IsAdmin: true}
}

// ErrNoActiveScope is returned by tenant-scoped operations invoked
// outside an activation. Business code must never fall back to a
// non-isolated manager.
var ErrNoActiveScope = errors.New("no active tenant scope")

type contextKey string

const scopeKey contextKey = "tenantScope"

// WithScope returns a context carrying the given scope.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the Scope bound to the current unit of work.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey).(*Scope)
	return s, ok
}
