package users

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtauto/dtauto/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	InsertUser(ctx context.Context, u User) (*User, error)
	UpdateUser(ctx context.Context, u User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages accounts.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateInput describes a new account.
type CreateInput struct {
	Email    string
	Name     string
	Partner  string
	Password string
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

// Create registers an account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	existing, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.InsertUser(ctx, User{
		Email:        input.Email,
		Name:         input.Name,
		Partner:      input.Partner,
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "user.create", created.ID, map[string]any{"email": created.Email})
	return created, nil
}

// UpdateProfile edits the display name.
func (s *Service) UpdateProfile(ctx context.Context, id int64, name string) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = name
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "user.update", id, nil)
	return u, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.change_password", id, nil)
	return nil
}

// SetActive toggles whether the account may log in.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.set_active", id, map[string]any{"active": active})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
