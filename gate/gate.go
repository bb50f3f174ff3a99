package gate

import (
	"context"
	"fmt"
)

// Gate checks subjects against the permissions of their resolved profile.
type Gate[S comparable] struct {
	resolver Resolver[S]
}

func New[S comparable](resolver Resolver[S]) *Gate[S] {
	return &Gate[S]{resolver: resolver}
}

// Authorize returns nil when subject may perform action on resource. The
// zero subject is always rejected.
func (g *Gate[S]) Authorize(ctx context.Context, subject S, resource string, action Action) error {
	var zero S
	if subject == zero {
		return ErrForbidden
	}
	p, err := g.resolver.Resolve(ctx, subject)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}
	if p == nil || !p.HasPermission(NewPermission(resource, action)) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[S]) Can(ctx context.Context, subject S, resource string, action Action) bool {
	return g.Authorize(ctx, subject, resource, action) == nil
}

// Permissions lists what subject's profile grants, or nothing when it cannot
// be resolved.
func (g *Gate[S]) Permissions(ctx context.Context, subject S) []Permission {
	p, err := g.resolver.Resolve(ctx, subject)
	if err != nil || p == nil {
		return []Permission{}
	}
	return p.Permissions()
}
