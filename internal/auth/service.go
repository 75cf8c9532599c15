package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const entityUser = "user"

// SessionStore issues and revokes session tokens.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (shared.Session, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// Service wraps authentication business rules.
type Service struct {
	repo     RepositoryPort
	sessions SessionStore
	emitter  *notify.Emitter
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, sessions SessionStore, emitter *notify.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		emitter:  emitter,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func invalidCredentials() error {
	return &shared.Error{Kind: shared.KindUnauthenticated, Message: "invalid email or password", Cause: shared.ErrInvalidCredentials}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return User{}, invalidCredentials()
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, invalidCredentials()
	}
	return user, nil
}

// Login authenticates and issues a session. The durable session row, the
// last-login stamp and the audit entry commit together; the Redis entry is
// revoked if they do not.
func (s *Service) Login(ctx context.Context, in LoginInput, meta ClientMeta) (shared.Session, User, error) {
	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return shared.Session{}, User{}, err
	}
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return shared.Session{}, User{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.TouchLogin(ctx, user.ID, sess.IssuedAt); err != nil {
			return err
		}
		if err := tx.CreateSession(ctx, sess.Token, user.ID, sess.IssuedAt.Add(s.sessions.TTL()), meta); err != nil {
			return err
		}
		return audit.Record(ctx, tx, user.ID, audit.ActionLogin, entityUser, audit.ID(user.ID), nil,
			map[string]any{"ip": meta.IP, "userAgent": meta.UserAgent})
	})
	if err != nil {
		if derr := s.sessions.Destroy(ctx, sess.Token); derr != nil {
			s.logger.Warn("revoke session after failed login", slog.Any("error", derr))
		}
		return shared.Session{}, User{}, err
	}
	user.LastLoginAt = &sess.IssuedAt
	return sess, user, nil
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteSession(ctx, token)
	})
}

// UpdateProfile changes the acting user's name and email.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (Profile, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return Profile{}, shared.FieldError("name", "is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.UpdateProfile(ctx, userID, name, email); err != nil {
			return err
		}
		after := before.Profile()
		after.Name, after.Email = name, email
		return audit.Record(ctx, tx, userID, audit.ActionUpdate, entityUser, audit.ID(userID), before.Profile(), after)
	})
	if err != nil {
		return Profile{}, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// ChangePassword replaces the acting user's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if len(in.NewPassword) < 8 {
		return shared.FieldError("newPassword", "must be at least 8 characters")
	}
	var note notify.Notification
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
			return shared.FieldError("currentPassword", "is incorrect")
		}
		if in.NewPassword == in.CurrentPassword {
			return shared.FieldError("newPassword", "must differ from the current password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.hashCost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return shared.FieldError("newPassword", "must be at most 72 bytes")
			}
			return err
		}
		if err := tx.UpdatePassword(ctx, userID, string(hash)); err != nil {
			return err
		}
		changedAt := s.now().UTC()
		if err := audit.Record(ctx, tx, userID, audit.ActionPassword, entityUser, audit.ID(userID), nil,
			map[string]any{"changedAt": changedAt}); err != nil {
			return err
		}
		note, err = s.emitter.Emit(ctx, tx, userID, notify.TypeSecurity, "Password changed",
			"Your password was changed. If this was not you, contact an administrator.", "/profile")
		return err
	})
	if err != nil {
		return err
	}
	s.emitter.Dispatch(ctx, note)
	return nil
}
