package model

import (
	"slices"
	"time"

	"classroom/pkg/constraints"
)

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex"`
	Email        string `gorm:"size:254;index"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	PasswordHash []byte
	IsSuperuser  bool
	IsActive     bool
	Groups       []string `gorm:"serializer:json"`
	AvatarURL    *string  `gorm:"size:512"`
	CreatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.IsSuperuser || slices.Contains(u.Groups, constraints.GroupAdmin)
}

func (u *User) IsInstructor() bool {
	return slices.Contains(u.Groups, constraints.GroupInstructor)
}

// IsStaff reports whether the user may manage classes and other students.
func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.IsInstructor()
}

func (u *User) Clone() *User {
	c := *u
	c.Groups = slices.Clone(u.Groups)
	c.PasswordHash = slices.Clone(u.PasswordHash)
	if u.AvatarURL != nil {
		v := *u.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}
