package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"path"
	"strings"
	"unicode"

	"classroom/internal/model"
	"classroom/internal/repository"
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
	"classroom/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserService struct {
	users      repository.UserRepository
	avatars    repository.AvatarRepository
	bcryptCost int
}

func NewUserService(users repository.UserRepository, avatars repository.AvatarRepository, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{users: users, avatars: avatars, bcryptCost: bcryptCost}
}

func (s *UserService) current(ctx context.Context, op *OperatorInfo) (*model.User, error) {
	if op == nil {
		return nil, ErrTokenInvalid
	}
	u, err := s.users.GetByID(ctx, op.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *UserService) Me(ctx context.Context, op *OperatorInfo) (*v1.Profile, error) {
	u, err := s.current(ctx, op)
	if err != nil {
		return nil, err
	}
	return toProfile(u), nil
}

func (s *UserService) UpdateMe(ctx context.Context, op *OperatorInfo, in v1.UpdateMeRequest) (*v1.Profile, error) {
	u, err := s.current(ctx, op)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, invalid("enter a valid email address")
			}
		}
		u.Email = email
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return toProfile(u), nil
}

func (s *UserService) ChangePassword(ctx context.Context, op *OperatorInfo, oldPassword, newPassword string) error {
	u, err := s.current(ctx, op)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(oldPassword)); err != nil {
		return invalid("current password is incorrect")
	}
	if err := validatePassword(newPassword, u); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	logger.Info("password changed", zap.Int64("user_id", u.ID))
	return nil
}

func validatePassword(pw string, u *model.User) error {
	if len(pw) < minPasswordLength {
		return invalid("password must contain at least %d characters", minPasswordLength)
	}
	if strings.IndexFunc(pw, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return invalid("password cannot be entirely numeric")
	}
	if strings.EqualFold(pw, u.Username) {
		return invalid("password is too similar to the username")
	}
	return nil
}

// SetAvatar stores an uploaded image and points the profile at it. baseURL is
// the scheme and host the avatar will be served from.
func (s *UserService) SetAvatar(ctx context.Context, op *OperatorInfo, filename, contentType string, data []byte, baseURL string) (string, error) {
	u, err := s.current(ctx, op)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", invalid("no file was submitted")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", invalid("upload a valid image")
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	if err := s.avatars.SaveAvatar(ctx, &model.Avatar{
		UserID:      u.ID,
		Filename:    fmt.Sprintf("%d%s", u.ID, ext),
		ContentType: contentType,
		Data:        data,
	}); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s%s%d%s", strings.TrimSuffix(baseURL, "/"), constraints.PathMediaAvatars, u.ID, ext)
	u.AvatarURL = &url
	if err := s.users.Update(ctx, u); err != nil {
		return "", err
	}
	return url, nil
}

func (s *UserService) Avatar(ctx context.Context, userID int64) (*model.Avatar, error) {
	a, err := s.avatars.GetAvatar(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

// Students lists active accounts that are neither admins nor instructors.
// Callers without staff rights get an empty list.
func (s *UserService) Students(ctx context.Context, op *OperatorInfo, q string) ([]v1.UserLite, error) {
	return s.search(ctx, op, q, false, func(u *model.User) bool {
		return !u.IsSuperuser && !u.IsStaff()
	})
}

// Instructors lists active members of the instructor group. Callers without
// staff rights get an empty list.
func (s *UserService) Instructors(ctx context.Context, op *OperatorInfo, q string) ([]v1.UserLite, error) {
	return s.search(ctx, op, q, true, (*model.User).IsInstructor)
}

func (s *UserService) search(ctx context.Context, op *OperatorInfo, q string, matchEmail bool, keep func(*model.User) bool) ([]v1.UserLite, error) {
	out := []v1.UserLite{}
	if !op.IsStaff() {
		return out, nil
	}
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	for _, u := range all {
		if !u.IsActive || !keep(u) {
			continue
		}
		if q != "" && !matches(u, q, matchEmail) {
			continue
		}
		out = append(out, v1.UserLite{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
		})
	}
	return out, nil
}

func matches(u *model.User, q string, matchEmail bool) bool {
	fields := []string{u.Username, u.FirstName, u.LastName}
	if matchEmail {
		fields = append(fields, u.Email)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func toProfile(u *model.User) *v1.Profile {
	p := &v1.Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
		Groups:      append([]string{}, u.Groups...),
	}
	if u.AvatarURL != nil {
		v := *u.AvatarURL
		p.AvatarURL = &v
	}
	return p
}
