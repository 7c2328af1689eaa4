package domain

// RoleStatus enumerates role lifecycle states.
type RoleStatus string

const (
	RoleStatusNormal   RoleStatus = "NORMAL"
	RoleStatusDisabled RoleStatus = "DISABLED"
)

// Role is an assignable permission grouping. Role records are immutable
// once loaded for a request; Permissions is filled lazily by the resolver.
type Role struct {
	ID          int64
	Key         string
	Name        string
	Status      RoleStatus
	Permissions map[string]struct{}
}

// Enabled reports whether the role contributes permissions.
func (r *Role) Enabled() bool {
	return r != nil && r.Status == RoleStatusNormal
}
