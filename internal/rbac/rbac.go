package rbac

// Role is the coarse-grained role assigned to every user of a business.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleApprover Role = "approver"
	RoleViewer   Role = "viewer"
)

// Capability is a named action a role may perform.
type Capability string

const (
	CapCreate      Capability = "create"
	CapEdit        Capability = "edit"
	CapApprove     Capability = "approve"
	CapDelete      Capability = "delete"
	CapManageUsers Capability = "manage_users"
	CapView        Capability = "view"
)

// permissions is the single authoritative role table. The same table gates
// UI affordances client-side and route access server-side.
var permissions = map[Role][]Capability{
	RoleAdmin:    {CapCreate, CapEdit, CapApprove, CapDelete, CapManageUsers},
	RoleEditor:   {CapCreate, CapEdit, CapDelete},
	RoleApprover: {CapCreate, CapEdit, CapApprove, CapDelete},
	RoleViewer:   {CapView},
}

// Can reports whether role may perform action. Unknown roles and unknown
// actions deny (fail closed).
func Can(role Role, action Capability) bool {
	caps, ok := permissions[role]
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == action {
			return true
		}
	}
	return false
}

// Capabilities returns the actions granted to role, nil for unknown roles.
func Capabilities(role Role) []Capability {
	caps, ok := permissions[role]
	if !ok {
		return nil
	}
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Roles lists every known role name.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleApprover, RoleViewer}
}

// Valid reports whether role is one of the known roles.
func Valid(role Role) bool {
	_, ok := permissions[role]
	return ok
}
