package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtauto/dtauto/internal/shared"
	"github.com/dtauto/dtauto/internal/users"
)

// UserSource resolves accounts for login.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Limiter throttles login attempts per email+IP key.
type Limiter interface {
	Allowed(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Service wraps authentication rules.
type Service struct {
	source  UserSource
	limiter Limiter
	logger  *slog.Logger
}

// NewService constructs a new Service.
func NewService(source UserSource, limiter Limiter, logger *slog.Logger) *Service {
	return &Service{source: source, limiter: limiter, logger: logger}
}

// Authenticate validates credentials. Failures count against the attempt
// window; a success clears it.
func (s *Service) Authenticate(ctx context.Context, email, password, clientIP string) (*users.User, error) {
	key := email + "|" + clientIP
	if s.limiter != nil {
		allowed, err := s.limiter.Allowed(ctx, key)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, shared.ErrTooManyAttempts
		}
	}

	user, err := s.source.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.recordFailure(ctx, key)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, key)
		return nil, shared.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil && s.logger != nil {
			s.logger.Warn("reset login attempts", slog.Any("error", err))
		}
	}
	return user, nil
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Record(ctx, key); err != nil && s.logger != nil {
		s.logger.Warn("record login attempt", slog.Any("error", err))
	}
}
