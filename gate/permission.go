package gate

import "strings"

// Permission is an allowed action on a resource, written "resource:action"
// (e.g. "stats:view", "admin:create").
type Permission string

func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits a permission into its resource and action.
func (p Permission) Parse() (resource string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

const (
	Wildcard = "*"
	All      Permission = "*:*"
)

// Matches reports whether p grants requested. "*:*" grants everything and
// "invoice:*" grants every invoice action.
func (p Permission) Matches(requested Permission) bool {
	if p == All || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == Wildcard
}
