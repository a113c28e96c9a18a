package admin

// Permission represents an admin permission
type Permission string

const (
	// Claim operations
	PermViewClaims    Permission = "claims.view"
	PermApproveClaims Permission = "claims.approve"
	PermPauseClaims   Permission = "claims.pause"

	// User reward state
	PermResetRewards Permission = "rewards.reset"

	// Fraud controls
	PermManageBlacklist Permission = "blacklist.manage"

	// System
	PermManageSettings Permission = "settings.manage"
	PermViewTreasury   Permission = "treasury.view"
	PermManageAdmins   Permission = "admins.manage"
	PermViewAuditLogs  Permission = "audit.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleSuperAdmin: {
		PermViewClaims, PermApproveClaims, PermPauseClaims,
		PermResetRewards,
		PermManageBlacklist,
		PermManageSettings, PermViewTreasury, PermManageAdmins, PermViewAuditLogs,
	},
	RoleAdmin: {
		PermViewClaims, PermApproveClaims, PermPauseClaims,
		PermResetRewards,
		PermManageBlacklist,
		PermManageSettings, PermViewTreasury, PermViewAuditLogs,
	},
	RoleSupport: {
		PermViewClaims,
		PermViewAuditLogs,
	},
}

// RoleHierarchy defines role levels (higher = more permissions)
var RoleHierarchy = map[Role]int{
	RoleSuperAdmin: 100,
	RoleAdmin:      80,
	RoleSupport:    40,
}

// CanManage checks if role1 can manage role2
func CanManage(role1, role2 Role) bool {
	return RoleHierarchy[role1] > RoleHierarchy[role2]
}
