// Package authz holds the single access-control decision table for the API.
//
// Every mutating endpoint resolves its actor, verb and target resource and asks
// Decide whether to proceed. The function is pure: it never touches storage and
// never reads ambient request state.
package authz

import (
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// Verb is the kind of operation being attempted.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Kind tags the resource family a request targets.
type Kind string

const (
	// KindCatalog covers works, categories and genres.
	KindCatalog   Kind = "catalog"
	KindReview    Kind = "review"
	KindComment   Kind = "comment"
	// KindUserAdmin is the admin user-settings surface (/users, /users/{username}).
	KindUserAdmin Kind = "user_admin"
	// KindUserSelf is the self-profile surface (/users/me).
	KindUserSelf  Kind = "user_self"
)

// Actor is the caller of an operation. The zero value is anonymous.
type Actor struct {
	UserID     int64
	Username   string
	Role       domain.Role
	Privileged bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// ActorFor builds the actor for an authenticated user. A nil user yields
// Anonymous.
func ActorFor(u *domain.User) Actor {
	if u == nil {
		return Anonymous
	}
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role, Privileged: u.IsPrivileged}
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

func (a Actor) admin() bool {
	return a.Role == domain.RoleAdmin || a.Privileged
}

func (a Actor) moderator() bool {
	return a.Role == domain.RoleModerator || a.admin()
}

// Resource identifies the target of an operation. OwnerID is the author for
// reviews and comments and the profile owner for KindUserSelf; zero when the
// resource does not exist yet or has no owner.
type Resource struct {
	Kind    Kind
	OwnerID int64
}

// Resource constructors.
func Catalog() Resource                   { return Resource{Kind: KindCatalog} }
func ReviewOwnedBy(owner int64) Resource  { return Resource{Kind: KindReview, OwnerID: owner} }
func CommentOwnedBy(owner int64) Resource { return Resource{Kind: KindComment, OwnerID: owner} }
func UserAdmin() Resource                 { return Resource{Kind: KindUserAdmin} }
func UserSelf(owner int64) Resource       { return Resource{Kind: KindUserSelf, OwnerID: owner} }

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Decide evaluates the access table. The first matching rule wins.
func Decide(actor Actor, verb Verb, res Resource) Decision {
	switch res.Kind {
	case KindCatalog:
		if verb == VerbRead {
			return allow("catalog is public")
		}
		if !actor.Authenticated() {
			return deny("anonymous")
		}
		if actor.admin() {
			return allow("admin")
		}
		return deny("catalog writes require admin")

	case KindReview, KindComment:
		if verb == VerbRead {
			return allow("reviews are public")
		}
		if !actor.Authenticated() {
			return deny("anonymous")
		}
		switch verb {
		case VerbCreate:
			return allow("authenticated")
		case VerbUpdate, VerbDelete:
			if actor.moderator() {
				return allow("moderator")
			}
			if res.OwnerID != 0 && res.OwnerID == actor.UserID {
				return allow("author")
			}
			return deny("not the author")
		}

	case KindUserAdmin:
		if !actor.Authenticated() {
			return deny("anonymous")
		}
		if actor.admin() {
			return allow("admin")
		}
		return deny("user administration requires admin")

	case KindUserSelf:
		if !actor.Authenticated() {
			return deny("anonymous")
		}
		if verb != VerbRead && verb != VerbUpdate {
			return deny("self profile is read/update only")
		}
		if res.OwnerID == actor.UserID {
			return allow("owner")
		}
		return deny("not the profile owner")
	}
	return deny("no rule")
}

// Authorize runs Decide and converts a denial into ErrUnauthenticated for
// anonymous actors or ErrForbidden otherwise.
func Authorize(actor Actor, verb Verb, res Resource) error {
	d := Decide(actor, verb, res)
	if d.Allowed {
		return nil
	}
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return domain.ErrForbidden
}
