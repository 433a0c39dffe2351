package rbac

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	PermQuizView        = "quiz:view"
	PermQuizViewAnswers = "quiz:view-answers"
	PermQuizCreate      = "quiz:create"
	PermQuizEdit        = "quiz:edit"
	PermAttemptSubmit   = "attempt:submit"
	PermAttemptViewOwn  = "attempt:view-own"
	PermAttemptViewAll  = "attempt:view-all"
	PermReportView      = "report:view"
	PermUsersList       = "users:list"
	PermUsersImport     = "users:import"
	PermUsersManage     = "users:manage"
	PermChangePassword  = "user:change-password"
	PermEventsView      = "events:view"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermQuizView,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermChangePassword,
	},
	RoleAdmin: {
		"*",
	},
}

// ValidRole reports whether role is known to the default policy.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
