package model

// MemberRole is the raw role string reported by the chat platform for a
// user inside a channel.
type MemberRole string

const (
	MemberRoleCreator       MemberRole = "creator"
	MemberRoleAdministrator MemberRole = "administrator"
	MemberRoleMember        MemberRole = "member"
	MemberRoleRestricted    MemberRole = "restricted"
	MemberRoleLeft          MemberRole = "left"
	MemberRoleKicked        MemberRole = "kicked"
)

// GrantsAccess reports whether the role counts as channel membership.
// Only member, administrator and creator do.
func (r MemberRole) GrantsAccess() bool {
	switch r {
	case MemberRoleMember, MemberRoleAdministrator, MemberRoleCreator:
		return true
	}
	return false
}

// MembershipStatus is the outcome of one membership check.
type MembershipStatus int

const (
	MembershipNotMember MembershipStatus = iota
	MembershipMember
	MembershipLookupError
)

func (s MembershipStatus) String() string {
	switch s {
	case MembershipMember:
		return "member"
	case MembershipLookupError:
		return "lookup_error"
	default:
		return "not_member"
	}
}

// MembershipResult carries the status together with the reported role and
// the lookup error, if any.
type MembershipResult struct {
	Status MembershipStatus
	Role   MemberRole
	Err    error
}

// IsMember collapses the result to a boolean. A lookup error is never a member.
func (r MembershipResult) IsMember() bool {
	return r.Status == MembershipMember
}
