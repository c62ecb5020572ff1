// Package session carries the authenticated identity through a request.
//
// A Session is created once per request by the authentication middleware and
// passed by reference in the request context. Group permissions are resolved
// on demand and memoized until Refresh, which handlers call after any role or
// membership mutation.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/permission"
)

// Identity is who the caller is, as asserted by the bearer token.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// Resolver resolves effective permissions for a user in a group.
type Resolver interface {
	Resolve(ctx context.Context, userID, groupID uuid.UUID) (permission.Set, error)
}

// Session is the per-request view of the caller.
type Session struct {
	Identity

	resolver Resolver

	mu       sync.Mutex
	resolved map[uuid.UUID]permission.Set
}

// New returns a session for id that resolves permissions through r.
func New(id Identity, r Resolver) *Session {
	return &Session{Identity: id, resolver: r, resolved: make(map[uuid.UUID]permission.Set)}
}

// Permissions returns the caller's effective permissions in groupID.
func (s *Session) Permissions(ctx context.Context, groupID uuid.UUID) (permission.Set, error) {
	s.mu.Lock()
	if set, ok := s.resolved[groupID]; ok {
		s.mu.Unlock()
		return set, nil
	}
	s.mu.Unlock()

	set, err := s.resolver.Resolve(ctx, s.UserID, groupID)
	if err != nil {
		return permission.None(), err
	}
	s.mu.Lock()
	s.resolved[groupID] = set
	s.mu.Unlock()
	return set, nil
}

// Require fails with ErrForbidden unless the caller holds every capability in caps.
// Non-members get ErrNotAMember.
func (s *Session) Require(ctx context.Context, groupID uuid.UUID, caps ...permission.Capability) error {
	set, err := s.Permissions(ctx, groupID)
	if err != nil {
		return err
	}
	if !set.HasAll(caps...) {
		return fmt.Errorf("requires %s: %w", permission.Of(caps...), errs.ErrForbidden)
	}
	return nil
}

// RequireAny fails with ErrForbidden unless the caller holds at least one capability in caps.
func (s *Session) RequireAny(ctx context.Context, groupID uuid.UUID, caps ...permission.Capability) error {
	set, err := s.Permissions(ctx, groupID)
	if err != nil {
		return err
	}
	if !set.HasAny(caps...) {
		return fmt.Errorf("requires one of %s: %w", permission.Of(caps...), errs.ErrForbidden)
	}
	return nil
}

// Refresh drops every memoized resolution. It is the only way cached
// permissions are invalidated.
func (s *Session) Refresh() {
	s.mu.Lock()
	s.resolved = make(map[uuid.UUID]permission.Set)
	s.mu.Unlock()
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
