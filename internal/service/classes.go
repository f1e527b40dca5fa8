package service

import (
	"context"
	"errors"
	"strings"

	"classroom/internal/model"
	"classroom/internal/repository"
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/logger"

	"go.uber.org/zap"
)

type ClassService struct {
	classes     repository.ClassRepository
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository
}

func NewClassService(classes repository.ClassRepository, enrollments repository.EnrollmentRepository, users repository.UserRepository) *ClassService {
	return &ClassService{classes: classes, enrollments: enrollments, users: users}
}

func (s *ClassService) List(ctx context.Context, op *OperatorInfo) ([]v1.ClassItem, error) {
	classes, err := s.classes.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]v1.ClassItem, 0, len(classes))
	for _, c := range classes {
		item, err := s.toItem(ctx, op, c)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func (s *ClassService) Get(ctx context.Context, op *OperatorInfo, id int64) (*v1.ClassItem, error) {
	c, err := s.classes.GetClass(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.toItem(ctx, op, c)
}

// Create adds a class. Only staff may create; an instructor who names no
// instructor is assigned to the class.
func (s *ClassService) Create(ctx context.Context, op *OperatorInfo, in v1.ClassInput) (*v1.ClassItem, error) {
	if !op.IsStaff() {
		return nil, ErrForbidden
	}
	c, err := s.fromInput(ctx, in)
	if err != nil {
		return nil, err
	}
	if c.InstructorID == nil && op.IsInstructor() && !op.IsAdmin() {
		id := op.UserID
		c.InstructorID = &id
	}
	if err := s.classes.CreateClass(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("class created",
		zap.Int64("class_id", c.ID),
		zap.String("operator", op.Username))
	return s.toItem(ctx, op, c)
}

// Update replaces every editable field of the class.
func (s *ClassService) Update(ctx context.Context, op *OperatorInfo, id int64, in v1.ClassInput) (*v1.ClassItem, error) {
	if !op.IsStaff() {
		return nil, ErrForbidden
	}
	c, err := s.fromInput(ctx, in)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.classes.UpdateClass(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.toItem(ctx, op, c)
}

func (s *ClassService) Delete(ctx context.Context, op *OperatorInfo, id int64) error {
	if !op.IsStaff() {
		return ErrForbidden
	}
	if err := s.classes.DeleteClass(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logger.Info("class deleted",
		zap.Int64("class_id", id),
		zap.String("operator", op.Username))
	return nil
}

func (s *ClassService) fromInput(ctx context.Context, in v1.ClassInput) (*model.Class, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if in.StartDatetime.IsZero() {
		return nil, invalid("start_datetime is required")
	}
	c := &model.Class{
		Title:         title,
		Description:   in.Description,
		StartDatetime: in.StartDatetime,
	}
	if in.Instructor != nil {
		u, err := s.users.GetByID(ctx, *in.Instructor)
		if err != nil || !u.IsInstructor() {
			return nil, invalid("instructor %d is not a valid instructor", *in.Instructor)
		}
		id := u.ID
		c.InstructorID = &id
	}
	return c, nil
}

func (s *ClassService) toItem(ctx context.Context, op *OperatorInfo, c *model.Class) (*v1.ClassItem, error) {
	count, err := s.enrollments.CountByClass(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	item := &v1.ClassItem{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		StartDatetime:     c.StartDatetime,
		Instructor:        c.InstructorID,
		ParticipantsCount: count,
	}
	if c.InstructorID != nil {
		if u, err := s.users.GetByID(ctx, *c.InstructorID); err == nil {
			name := u.Username
			item.InstructorUsername = &name
		}
	}
	if op != nil {
		_, err := s.enrollments.FindEnrollment(ctx, c.ID, op.UserID)
		switch {
		case err == nil:
			item.Enrolled = true
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}
	return item, nil
}
