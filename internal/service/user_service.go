package service

import (
	"context"
	"strings"
	"sync"

	"vacations-api/internal/apperror"
	"vacations-api/internal/auth"
	"vacations-api/internal/domain"
	"vacations-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = apperror.Unauthenticated("invalid email or password")
	// ErrWrongPassword is returned when the current password does not match on change.
	ErrWrongPassword = apperror.InvalidField("currentPassword", "does not match")
	// ErrAdminEmailTaken is returned when the bootstrap admin email belongs to a regular account.
	ErrAdminEmailTaken = apperror.Conflict("admin email already exists on a non-admin account", nil)
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
	EnsureAdmin(ctx context.Context, in RegisterInput) (*domain.User, bool, error)
}

type userService struct {
	users  repository.UserRepository
	hasher auth.Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, hasher auth.Hasher) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

func (s *userService) create(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string]string{}
	if in.FirstName == "" {
		fields["firstName"] = "is required"
	}
	if in.LastName == "" {
		fields["lastName"] = "is required"
	}
	if in.Email == "" {
		fields["email"] = "is required"
	}
	if in.Password == "" {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid data", fields)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			// spend the same bcrypt time as a real mismatch
			s.hasher.Verify(password, s.fallbackHash())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) (*domain.User, error) {
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	update.Email = strings.ToLower(strings.TrimSpace(update.Email))
	if update.FirstName == "" || update.LastName == "" || update.Email == "" {
		return nil, apperror.Validation("invalid data", map[string]string{"profile": "first name, last name and email are required"})
	}

	if err := s.users.UpdateProfile(ctx, id, update); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *userService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if next == "" {
		return apperror.InvalidField("newPassword", "is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// EnsureAdmin creates the admin account unless it already exists.
// The boolean reports whether an account was created. An existing account
// with that email must already be an admin.
func (s *userService) EnsureAdmin(ctx context.Context, in RegisterInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		if !existing.Role.IsAdmin() {
			return nil, false, ErrAdminEmailTaken
		}
		return sanitizeUser(existing), false, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return nil, false, err
	}

	user, err := s.create(ctx, in, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *userService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("no-such-user-placeholder")
	})
	return s.dummyHash
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
