package repository

import (
	"context"
	"errors"

	"classroom/internal/model"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateEnrollment = errors.New("student already enrolled in class")
	ErrDuplicateUser       = errors.New("username already taken")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByLogin matches the username exactly or the email case-insensitively.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
}

type ClassRepository interface {
	GetClass(ctx context.Context, id int64) (*model.Class, error)
	// ListClasses returns classes ordered by start time, then ID.
	ListClasses(ctx context.Context) ([]*model.Class, error)
	CreateClass(ctx context.Context, c *model.Class) error
	UpdateClass(ctx context.Context, c *model.Class) error
	// DeleteClass removes the class and its enrollments.
	DeleteClass(ctx context.Context, id int64) error
}

// EnrollmentFilter narrows ListEnrollments. Zero fields match everything.
type EnrollmentFilter struct {
	StudentID int64
	ClassID   int64
}

type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error)
	FindEnrollment(ctx context.Context, classID, studentID int64) (*model.Enrollment, error)
	// ListEnrollments returns the newest enrollments first.
	ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]*model.Enrollment, error)
	CountByClass(ctx context.Context, classID int64) (int, error)
	CreateEnrollment(ctx context.Context, e *model.Enrollment) error
	DeleteEnrollment(ctx context.Context, id int64) error
}

type AvatarRepository interface {
	SaveAvatar(ctx context.Context, a *model.Avatar) error
	GetAvatar(ctx context.Context, userID int64) (*model.Avatar, error)
}

// Store is a backend serving every repository above.
type Store interface {
	UserRepository
	ClassRepository
	EnrollmentRepository
	AvatarRepository
}
