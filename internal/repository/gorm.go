package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"classroom/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the SQL implementation of every repository interface. It runs
// on MySQL or SQLite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Migrate creates or updates the tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Class{},
		&model.Enrollment{},
		&model.Avatar{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("username = ?", login).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) || !strings.Contains(login, "@") {
		return nil, notFound(err)
	}

	err = s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(login)).Order("id").First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := s.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}

func (s *GormStore) Create(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateUser
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.now()
		}
		return tx.Create(u).Error
	})
}

func (s *GormStore) Update(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.User
		if err := tx.Select("id", "created_at").First(&existing, u.ID).Error; err != nil {
			return notFound(err)
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = existing.CreatedAt
		}
		return tx.Save(u).Error
	})
}

func (s *GormStore) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	var c model.Class
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) ListClasses(ctx context.Context) ([]*model.Class, error) {
	var classes []*model.Class
	err := s.db.WithContext(ctx).Order("start_datetime, id").Find(&classes).Error
	return classes, err
}

func (s *GormStore) CreateClass(ctx context.Context, c *model.Class) error {
	c.ID = 0
	c.CreatedAt = s.now()
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) UpdateClass(ctx context.Context, c *model.Class) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Class
		if err := tx.First(&existing, c.ID).Error; err != nil {
			return notFound(err)
		}
		c.CreatedAt = existing.CreatedAt
		return tx.Save(c).Error
	})
}

func (s *GormStore) DeleteClass(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Class{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) FindEnrollment(ctx context.Context, classID, studentID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := s.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		First(&e).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]*model.Enrollment, error) {
	query := s.db.WithContext(ctx)
	if f.StudentID != 0 {
		query = query.Where("student_id = ?", f.StudentID)
	}
	if f.ClassID != 0 {
		query = query.Where("class_id = ?", f.ClassID)
	}

	enrollments := make([]*model.Enrollment, 0)
	err := query.Order("created_at DESC, id DESC").Find(&enrollments).Error
	return enrollments, err
}

func (s *GormStore) CountByClass(ctx context.Context, classID int64) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).Where("class_id = ?", classID).Count(&n).Error
	return int(n), err
}

func (s *GormStore) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Class{}).Where("id = ?", e.ClassID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&model.Enrollment{}).
			Where("class_id = ? AND student_id = ?", e.ClassID, e.StudentID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateEnrollment
		}
		e.ID = 0
		e.CreatedAt = s.now()
		return tx.Create(e).Error
	})
}

func (s *GormStore) DeleteEnrollment(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Enrollment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAvatar replaces the user's picture.
func (s *GormStore) SaveAvatar(ctx context.Context, a *model.Avatar) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(a).Error
}

func (s *GormStore) GetAvatar(ctx context.Context, userID int64) (*model.Avatar, error) {
	var a model.Avatar
	if err := s.db.WithContext(ctx).First(&a, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
