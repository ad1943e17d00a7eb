package model

import "strings"

// ModuleRole is a document-scoped authorization role. Role membership is
// resolved externally (RBAC settings plus per-document assignments) and
// handed to the core as plain tokens.
type ModuleRole string

const (
	RoleAuthor   ModuleRole = "AUTHOR"
	RoleEditor   ModuleRole = "EDITOR"
	RoleReviewer ModuleRole = "REVIEWER"
	RoleApprover ModuleRole = "APPROVER"
)

// SystemRole is a system-wide role of the host application, distinct from the
// document-scoped module roles. ADMIN and QMB may override workflow ownership
// rules (e.g. aborting a workflow they did not start).
type SystemRole string

const (
	SystemAdmin SystemRole = "ADMIN"
	SystemQMB   SystemRole = "QMB"
)

var validModuleRoles = map[ModuleRole]bool{
	RoleAuthor:   true,
	RoleEditor:   true,
	RoleReviewer: true,
	RoleApprover: true,
}

var validSystemRoles = map[SystemRole]bool{
	SystemAdmin: true,
	SystemQMB:   true,
}

// String returns the role token.
func (r ModuleRole) String() string { return string(r) }

// IsValid reports whether the token names a module role.
func (r ModuleRole) IsValid() bool { return validModuleRoles[r] }

// ParseModuleRole normalizes a raw role token. The second return value is
// false for tokens outside the module role set.
func ParseModuleRole(raw string) (ModuleRole, bool) {
	r := ModuleRole(normalizeToken(raw))
	return r, r.IsValid()
}

// IsSystemRole reports whether the (normalized) token names a system-wide
// override role.
func IsSystemRole(raw string) bool {
	return validSystemRoles[SystemRole(normalizeToken(raw))]
}

func normalizeToken(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
