package enums

import "fmt"

// UserRole represents the account-level role chosen at signup.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
	UserRoleNGO   UserRole = "ngo"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleUser,
	UserRoleNGO,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanAccept reports whether the role may accept contributions.
func (r UserRole) CanAccept() bool {
	return r == UserRoleAdmin || r == UserRoleNGO
}

// SeesAllUploads reports whether upload listings are unfiltered for the role.
func (r UserRole) SeesAllUploads() bool {
	return r == UserRoleAdmin || r == UserRoleNGO
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
