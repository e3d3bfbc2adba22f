package domain

import (
	"slices"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// Role is the coarse access level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Permission names checked by the authorization service.
const (
	PermUsersCreate         = "users:create"
	PermUsersRead           = "users:read"
	PermUsersUpdate         = "users:update"
	PermUsersAssignRole     = "users:assign-role"
	PermUsersDelete         = "users:delete"
	PermAnnouncementsRead   = "announcements:read"
	PermAnnouncementsWrite  = "announcements:write"
	PermAnnouncementsDelete = "announcements:delete"
	PermCommentsRead        = "comments:read"
	PermCommentsCreate      = "comments:create"
	PermCommentsDeleteAny   = "comments:delete:any"
	PermMetricsRead         = "metrics:read"
	PermMetricsRecalculate  = "metrics:recalculate"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermUsersCreate, PermUsersRead, PermUsersUpdate, PermUsersAssignRole, PermUsersDelete,
		PermAnnouncementsRead, PermAnnouncementsWrite, PermAnnouncementsDelete,
		PermCommentsRead, PermCommentsCreate, PermCommentsDeleteAny,
		PermMetricsRead, PermMetricsRecalculate,
	},
	RoleEditor: {
		PermUsersRead, PermUsersUpdate,
		PermAnnouncementsRead, PermAnnouncementsWrite,
		PermCommentsRead, PermCommentsCreate,
		PermMetricsRead, PermMetricsRecalculate,
	},
	RoleViewer: {
		PermUsersRead,
		PermAnnouncementsRead,
		PermCommentsRead, PermCommentsCreate,
		PermMetricsRead,
	},
}

// ParseRole converts a raw role name into a Role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return r, nil
	}
	return "", apperrors.ErrInvalidRole
}

// Permissions returns a copy of the permissions granted to the role.
func (r Role) Permissions() []string {
	return slices.Clone(rolePermissions[r])
}

// Has reports whether the role grants the permission.
func (r Role) Has(permission string) bool {
	return slices.Contains(rolePermissions[r], permission)
}
