package gate

import (
	"context"
	"sort"
)

// Profile is a named set of permissions.
type Profile interface {
	Name() string
	HasPermission(Permission) bool
	Permissions() []Permission
}

// Resolver maps a subject to its profile. A nil profile with a nil error
// means the subject has no profile.
type Resolver[S any] interface {
	Resolve(ctx context.Context, subject S) (Profile, error)
}

// StaticProfile is an in-memory profile.
type StaticProfile struct {
	name  string
	perms map[Permission]struct{}
}

func NewStaticProfile(name string, perms ...Permission) *StaticProfile {
	p := &StaticProfile{name: name, perms: make(map[Permission]struct{}, len(perms))}
	for _, perm := range perms {
		p.perms[perm] = struct{}{}
	}
	return p
}

func (p *StaticProfile) Name() string { return p.name }

// Permissions returns the granted permissions sorted.
func (p *StaticProfile) Permissions() []Permission {
	out := make([]Permission, 0, len(p.perms))
	for perm := range p.perms {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *StaticProfile) HasPermission(requested Permission) bool {
	for perm := range p.perms {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticResolver resolves subjects from a fixed table.
type StaticResolver[S comparable] struct {
	profiles map[S]Profile
}

func NewStaticResolver[S comparable]() *StaticResolver[S] {
	return &StaticResolver[S]{profiles: make(map[S]Profile)}
}

// Set assigns a profile to a subject. Not safe for use after the resolver is shared.
func (r *StaticResolver[S]) Set(subject S, p Profile) { r.profiles[subject] = p }

func (r *StaticResolver[S]) Resolve(_ context.Context, subject S) (Profile, error) {
	return r.profiles[subject], nil
}
