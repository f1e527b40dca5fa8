package service

import (
	"context"
	"errors"

	"classroom/internal/model"
	"classroom/internal/repository"
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/logger"

	"go.uber.org/zap"
)

type EnrollmentService struct {
	enrollments repository.EnrollmentRepository
	classes     repository.ClassRepository
	users       repository.UserRepository
}

func NewEnrollmentService(enrollments repository.EnrollmentRepository, classes repository.ClassRepository, users repository.UserRepository) *EnrollmentService {
	return &EnrollmentService{enrollments: enrollments, classes: classes, users: users}
}

// List returns every enrollment to staff and only their own to students.
// classID narrows the result when non-zero.
func (s *EnrollmentService) List(ctx context.Context, op *OperatorInfo, classID int64) ([]v1.Enrollment, error) {
	f := repository.EnrollmentFilter{ClassID: classID}
	if !op.IsStaff() {
		f.StudentID = op.UserID
	}
	list, err := s.enrollments.ListEnrollments(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]v1.Enrollment, 0, len(list))
	for _, e := range list {
		out = append(out, *s.toEnrollment(ctx, e))
	}
	return out, nil
}

// Create enrolls the caller. Staff may pass a student to enroll someone else;
// admins and instructors themselves cannot be enrolled.
func (s *EnrollmentService) Create(ctx context.Context, op *OperatorInfo, in v1.EnrollmentInput) (*v1.Enrollment, error) {
	studentID := op.UserID
	if op.IsStaff() && in.Student != nil && *in.Student != 0 {
		u, err := s.users.GetByID(ctx, *in.Student)
		if err != nil {
			return nil, invalid("invalid student")
		}
		if u.IsSuperuser || u.IsStaff() {
			return nil, invalid("this user cannot be enrolled")
		}
		studentID = u.ID
	}
	if in.ClassRef == 0 {
		return nil, invalid("class is required")
	}
	if _, err := s.classes.GetClass(ctx, in.ClassRef); err != nil {
		return nil, invalid("invalid class %d", in.ClassRef)
	}

	e := &model.Enrollment{ClassID: in.ClassRef, StudentID: studentID}
	if err := s.enrollments.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, invalid("already enrolled in this class")
		}
		return nil, err
	}
	logger.Info("enrollment created",
		zap.Int64("class_id", e.ClassID),
		zap.Int64("student_id", e.StudentID),
		zap.String("operator", op.Username))
	return s.toEnrollment(ctx, e), nil
}

// Delete removes an enrollment by ID. Students only see, and so can only
// delete, their own.
func (s *EnrollmentService) Delete(ctx context.Context, op *OperatorInfo, id int64) error {
	e, err := s.enrollments.GetEnrollment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !op.IsStaff() && e.StudentID != op.UserID) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, e)
}

// DeleteByClass removes the caller's own enrollment in a class.
func (s *EnrollmentService) DeleteByClass(ctx context.Context, op *OperatorInfo, classID int64) error {
	e, err := s.enrollments.FindEnrollment(ctx, classID, op.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, e)
}

// DeleteByClassAndStudent removes a given student's enrollment. Staff only.
func (s *EnrollmentService) DeleteByClassAndStudent(ctx context.Context, op *OperatorInfo, classID, studentID int64) error {
	if !op.IsStaff() {
		return ErrForbidden
	}
	e, err := s.enrollments.FindEnrollment(ctx, classID, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, e)
}

func (s *EnrollmentService) remove(ctx context.Context, e *model.Enrollment) error {
	if err := s.enrollments.DeleteEnrollment(ctx, e.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *EnrollmentService) toEnrollment(ctx context.Context, e *model.Enrollment) *v1.Enrollment {
	out := &v1.Enrollment{
		ID:        e.ID,
		Student:   e.StudentID,
		ClassRef:  e.ClassID,
		CreatedAt: e.CreatedAt,
	}
	if c, err := s.classes.GetClass(ctx, e.ClassID); err == nil {
		id, title, start := c.ID, c.Title, c.StartDatetime
		out.ClassID = &id
		out.ClassTitle = &title
		out.ClassStartDatetime = &start
	}
	if u, err := s.users.GetByID(ctx, e.StudentID); err == nil {
		name := u.Username
		out.StudentUsername = &name
	}
	return out
}
