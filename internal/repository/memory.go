package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"classroom/internal/model"
)

// MemoryStore keeps users, classes, enrollments and avatars in process. It
// implements every repository interface of the package.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[int64]*model.User
	classes     map[int64]*model.Class
	enrollments map[int64]*model.Enrollment
	avatars     map[int64]*model.Avatar

	nextUser       int64
	nextClass      int64
	nextEnrollment int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]*model.User),
		classes:     make(map[int64]*model.Class),
		enrollments: make(map[int64]*model.Enrollment),
		avatars:     make(map[int64]*model.Avatar),
		now:         time.Now,
	}
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetByLogin(_ context.Context, login string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == login {
			return u.Clone(), nil
		}
	}
	if strings.Contains(login, "@") {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, login) {
				return u.Clone(), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	slices.SortFunc(out, func(a, b *model.User) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return ErrDuplicateUser
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) GetClass(_ context.Context, id int64) (*model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListClasses(_ context.Context) ([]*model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Class, 0, len(s.classes))
	for _, c := range s.classes {
		cp := *c
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Class) int {
		if c := a.StartDatetime.Compare(b.StartDatetime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) CreateClass(_ context.Context, c *model.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextClass++
	c.ID = s.nextClass
	c.CreatedAt = s.now()
	cp := *c
	s.classes[c.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateClass(_ context.Context, c *model.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.classes[c.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt
	s.classes[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteClass(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[id]; !ok {
		return ErrNotFound
	}
	delete(s.classes, id)
	for eid, e := range s.enrollments {
		if e.ClassID == id {
			delete(s.enrollments, eid)
		}
	}
	return nil
}

func (s *MemoryStore) GetEnrollment(_ context.Context, id int64) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) FindEnrollment(_ context.Context, classID, studentID int64) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListEnrollments(_ context.Context, f EnrollmentFilter) ([]*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Enrollment, 0)
	for _, e := range s.enrollments {
		if f.StudentID != 0 && e.StudentID != f.StudentID {
			continue
		}
		if f.ClassID != 0 && e.ClassID != f.ClassID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Enrollment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *MemoryStore) CountByClass(_ context.Context, classID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.enrollments {
		if e.ClassID == classID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateEnrollment(_ context.Context, e *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[e.ClassID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.enrollments {
		if existing.ClassID == e.ClassID && existing.StudentID == e.StudentID {
			return ErrDuplicateEnrollment
		}
	}
	s.nextEnrollment++
	e.ID = s.nextEnrollment
	e.CreatedAt = s.now()
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteEnrollment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[id]; !ok {
		return ErrNotFound
	}
	delete(s.enrollments, id)
	return nil
}

func (s *MemoryStore) SaveAvatar(_ context.Context, a *model.Avatar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.Data = slices.Clone(a.Data)
	s.avatars[a.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetAvatar(_ context.Context, userID int64) (*model.Avatar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.avatars[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}
