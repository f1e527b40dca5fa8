package v1

import "slices"

type Profile struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	IsSuperuser bool     `json:"is_superuser,omitempty"`
	Groups      []string `json:"groups"`
	AvatarURL   *string  `json:"avatar_url"`
}

// ProfilePatch carries a partial profile. Nil fields are absent and leave the
// current value alone.
type ProfilePatch struct {
	ID          *int64
	Username    *string
	Email       *string
	FirstName   *string
	LastName    *string
	IsSuperuser *bool
	Groups      []string
	AvatarURL   *string
	ClearAvatar bool
}

// UpdateMeRequest is the PATCH body of the profile endpoint.
type UpdateMeRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Groups = slices.Clone(p.Groups)
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}

// HasGroup reports membership in the named group.
func (p *Profile) HasGroup(name string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Groups, name)
}

// Merge returns a copy of p with the present fields of patch applied.
// ID and Username are fixed for the lifetime of a loaded profile.
func (p *Profile) Merge(patch ProfilePatch) *Profile {
	out := p.Clone()
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.FirstName != nil {
		out.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		out.LastName = *patch.LastName
	}
	if patch.IsSuperuser != nil {
		out.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Groups != nil {
		out.Groups = slices.Clone(patch.Groups)
	}
	switch {
	case patch.ClearAvatar:
		out.AvatarURL = nil
	case patch.AvatarURL != nil:
		v := *patch.AvatarURL
		out.AvatarURL = &v
	}
	return out
}

// Identifying reports whether the patch names a user, which lets it stand in
// for a profile that has not been loaded yet.
func (pp ProfilePatch) Identifying() bool {
	return pp.ID != nil || pp.Username != nil
}

// AsProfile builds a profile out of an identifying patch.
func (pp ProfilePatch) AsProfile() *Profile {
	p := &Profile{}
	if pp.ID != nil {
		p.ID = *pp.ID
	}
	if pp.Username != nil {
		p.Username = *pp.Username
	}
	return p.Merge(pp)
}
