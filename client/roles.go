package client

import (
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
)

type Roles struct {
	IsAdmin             bool
	IsInstructor        bool
	IsAdminOrInstructor bool
}

// DeriveRoles is the single definition of the authorization flags. A nil
// profile has no roles.
func DeriveRoles(p *v1.Profile) Roles {
	if p == nil {
		return Roles{}
	}
	isAdmin := p.IsSuperuser || p.HasGroup(constraints.GroupAdmin)
	isInstructor := p.HasGroup(constraints.GroupInstructor)
	return Roles{
		IsAdmin:             isAdmin,
		IsInstructor:        isInstructor,
		IsAdminOrInstructor: isAdmin || isInstructor,
	}
}
