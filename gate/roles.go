package gate

import "github.com/Roquverse/flow-invoice-nexus/internal/models"

// Resources guarded for back-office accounts.
const (
	ResourceStats = "stats"
	ResourceAdmin = "admin"
	ResourceUser  = "user"
)

// RoleResolver resolves admin roles to their built-in profiles.
func RoleResolver() *StaticResolver[models.AdminRole] {
	r := NewStaticResolver[models.AdminRole]()
	r.Set(models.AdminRoleSuperAdmin, NewStaticProfile("superadmin", All))
	r.Set(models.AdminRoleAdmin, NewStaticProfile("admin",
		NewPermission(ResourceStats, Wildcard),
		NewPermission(ResourceUser, Wildcard),
		NewPermission(ResourceAdmin, ActionView),
		NewPermission(ResourceAdmin, ActionList),
	))
	r.Set(models.AdminRoleSupport, NewStaticProfile("support",
		NewPermission(ResourceStats, ActionView),
		NewPermission(ResourceUser, ActionView),
		NewPermission(ResourceUser, ActionList),
		NewPermission(ResourceAdmin, ActionView),
	))
	return r
}

// ForRoles returns a gate over the built-in admin role profiles.
func ForRoles() *Gate[models.AdminRole] { return New[models.AdminRole](RoleResolver()) }
