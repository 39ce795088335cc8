package domain

import (
	"regexp"
	"time"
)

// Role is the permission tier assigned to a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ReservedUsername is the path alias of the self-profile endpoint and can never
// be registered.
const ReservedUsername = "me"

const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxNameLength     = 150
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ValidUsername reports whether s is slug-shaped and within length limits.
func ValidUsername(s string) bool {
	return s != "" && len(s) <= MaxUsernameLength && usernamePattern.MatchString(s)
}

// User models an identity on the platform.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Bio          string     `json:"bio"`
	Role         Role       `json:"role"`
	IsPrivileged bool       `json:"-"`
	LastLogin    *time.Time `json:"-"`
	CodeIssuedAt time.Time  `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

// ProfilePatch carries a partial update of a user record. Nil fields are left
// untouched. Role is only honoured on the admin path.
type ProfilePatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *Role
}

// WithoutRole returns a copy of p that cannot change the role.
func (p ProfilePatch) WithoutRole() ProfilePatch {
	p.Role = nil
	return p
}

// Apply writes the non-nil fields of p onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}
