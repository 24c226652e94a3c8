package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/pagination"
)

const minPasswordLen = 8

type Service struct {
	users  Repository
	issuer *auth.TokenIssuer
	logger zerolog.Logger
}

func NewService(users Repository, issuer *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, issuer: issuer, logger: logger}
}

// RegisterInput is the signup payload. Role defaults to doctor.
type RegisterInput struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	Specialization *string `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`
}

func (in *RegisterInput) Validate() error {
	fields := apperror.FieldErrors{}
	if in.Email == "" {
		fields.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fields.Add("email", "invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		fields.Add("password", "password must be at least 8 characters")
	}
	if in.FullName == "" {
		fields.Add("full_name", "full name is required")
	}
	if in.Role != "" && in.Role != auth.RoleAdmin && in.Role != auth.RoleDoctor {
		fields.Add("role", "role must be admin or doctor")
	}
	return fields.Err()
}

// Register creates an account. Only an authenticated admin may create
// another admin; actor is the zero Principal for anonymous signups.
func (s *Service) Register(ctx context.Context, actor auth.Principal, in *RegisterInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = auth.RoleDoctor
	}
	if role == auth.RoleAdmin && !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins can create admin accounts")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:   hash,
		FullName:       in.FullName,
		Role:           role,
		Specialization: in.Specialization,
		LicenseNumber:  in.LicenseNumber,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Login verifies credentials and issues a signed token. Inactive accounts
// are rejected. The same error covers a missing user and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, "", apperror.Unauthenticated("invalid email or password")
		}
		return nil, "", err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return nil, "", apperror.Unauthenticated("invalid email or password")
	}
	if !u.IsActive {
		return nil, "", apperror.Unauthenticated("account is deactivated")
	}

	token, err := s.issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("user logged in")
	return u, token, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, actor auth.Principal) (*User, error) {
	return s.users.GetByID(ctx, actor.ID)
}

// UpdateMeInput carries the self-service profile fields. Nil leaves a field
// untouched. Role and is_active are not self-service.
type UpdateMeInput struct {
	Email          *string `json:"email"`
	FullName       *string `json:"full_name"`
	Password       *string `json:"password"`
	Specialization *string `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`
}

func (in *UpdateMeInput) Validate() error {
	fields := apperror.FieldErrors{}
	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			fields.Add("email", "invalid email address")
		}
	}
	if in.FullName != nil && *in.FullName == "" {
		fields.Add("full_name", "full name cannot be empty")
	}
	if in.Password != nil && len(*in.Password) < minPasswordLen {
		fields.Add("password", "password must be at least 8 characters")
	}
	return fields.Err()
}

// ListUsers returns all accounts, newest first. Admin-only at the route.
func (s *Service) ListUsers(ctx context.Context, page pagination.Params) ([]*User, int64, error) {
	return s.users.List(ctx, page)
}

// AdminUpdateInput carries the fields only an admin may change on another
// account. Nil leaves a field untouched.
type AdminUpdateInput struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (in *AdminUpdateInput) Validate() error {
	fields := apperror.FieldErrors{}
	if in.Role != nil && *in.Role != auth.RoleAdmin && *in.Role != auth.RoleDoctor {
		fields.Add("role", "role must be admin or doctor")
	}
	return fields.Err()
}

// AdminUpdate changes another account's role or active flag. An admin
// cannot deactivate or demote their own account, which would lock the
// system if it held the last admin.
func (s *Service) AdminUpdate(ctx context.Context, actor auth.Principal, userID int64, in *AdminUpdateInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		if (in.IsActive != nil && !*in.IsActive) || (in.Role != nil && *in.Role != auth.RoleAdmin) {
			return nil, apperror.Forbidden("cannot demote or deactivate your own account")
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("user_id", u.ID).
		Str("role", u.Role).
		Bool("is_active", u.IsActive).
		Int64("updated_by", actor.ID).
		Msg("user account updated")
	return u, nil
}

// UpdateMe changes the caller's own profile.
func (s *Service) UpdateMe(ctx context.Context, actor auth.Principal, in *UpdateMeInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if in.Specialization != nil {
		u.Specialization = in.Specialization
	}
	if in.LicenseNumber != nil {
		u.LicenseNumber = in.LicenseNumber
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
