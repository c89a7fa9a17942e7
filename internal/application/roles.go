package application

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Capability names an action guarded by role membership.
type Capability string

const (
	// CapabilityManageTasks covers task update, assignment and reassignment of others' tasks.
	CapabilityManageTasks Capability = "tasks:manage"
	// CapabilityDeleteTasks covers task deletion.
	CapabilityDeleteTasks Capability = "tasks:delete"
	// CapabilityManageAvailability covers availability changes on behalf of another user.
	CapabilityManageAvailability Capability = "availability:manage"
	// CapabilityManageProjects covers project creation, update and closing.
	CapabilityManageProjects Capability = "projects:manage"
	// CapabilityDeleteProjects covers project deletion.
	CapabilityDeleteProjects Capability = "projects:delete"
	// CapabilityManagePlannings covers planning creation, update and deletion.
	CapabilityManagePlannings Capability = "plannings:manage"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: {
		CapabilityManageTasks:        {},
		CapabilityDeleteTasks:        {},
		CapabilityManageAvailability: {},
		CapabilityManageProjects:     {},
		CapabilityDeleteProjects:     {},
		CapabilityManagePlannings:    {},
	},
	RoleManager: {
		CapabilityManageTasks:     {},
		CapabilityManageProjects:  {},
		CapabilityManagePlannings: {},
	},
	RoleEmployee: {},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants c.
func (r Role) Can(c Capability) bool {
	_, ok := roleCapabilities[r][c]
	return ok
}

// Can reports whether the principal's role grants c.
func (p Principal) Can(c Capability) bool {
	return p.Role.Can(c)
}
