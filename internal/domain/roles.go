package domain

import "strings"

type Role string

const (
	// Student can book resources and register for approved events.
	RoleStudent Role = "student"
	// Organizer can additionally create events and manage the ones they own.
	RoleOrganizer Role = "organizer"
	// Admin reviews events and can manage any of them.
	RoleAdmin Role = "admin"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []Role{RoleStudent, RoleOrganizer, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any casing ("ADMIN", "admin") but only the three known roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole(s)
	}
	return r, nil
}

// Principal is the verified identity attached to a request.
type Principal struct {
	SubjectID string
	Email     string
	Role      Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanManage reports whether p may manage something owned by ownerID.
func (p Principal) CanManage(ownerID string) bool {
	if p.IsAdmin() {
		return true
	}
	return strings.TrimSpace(p.SubjectID) != "" && p.SubjectID == ownerID
}
