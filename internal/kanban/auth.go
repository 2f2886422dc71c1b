package kanban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/authmw"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/store"
)

type Register struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *Register) Validate() error {
	const op = "Register"
	var err error
	if r.Email, err = validEmail(op, r.Email); err != nil {
		return err
	}
	if r.Username, err = requireLine(op, "userName", r.Username, maxNameLen); err != nil {
		return err
	}
	if n := len(r.Password); n < minPasswordLn || n > maxPasswordLn {
		return apperr.Validation(op, "password must be %d to %d bytes long", minPasswordLn, maxPasswordLn)
	}
	return nil
}

type Login struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Refresh struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthResult struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	UserName     string          `json:"userName"`
	Email        string          `json:"email"`
	Role         models.UserRole `json:"role"`
}

func authResult(u *models.User, pair authmw.TokenPair) *AuthResult {
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		UserName:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
	}
}

func (s *Service) Register(ctx context.Context, req *Register) (*AuthResult, error) {
	const op = "Register"
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.creds.hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if s.adminEmails[u.Email] {
		u.Role = models.RoleAdmin
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Users().GetByEmail(ctx, u.Email)
		if err == nil {
			return apperr.Conflict(op, "email %s is already registered", u.Email)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := tx.Users().Add(ctx, u); err != nil {
			return storeErr(op, "user", err)
		}
		if err := s.creds.enrol(ctx, u, req.Password); err != nil {
			if errors.Is(err, errDuplicateIdentity) {
				return apperr.Conflict(op, "email %s is already registered", u.Email)
			}
			return fmt.Errorf("%s: failed to enrol user: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.creds.login(ctx, u, req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to issue tokens: %w", op, err)
	}
	return authResult(u, pair), nil
}

func (s *Service) Login(ctx context.Context, req *Login) (*AuthResult, error) {
	const op = "Login"

	var u *models.User
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		u, err = tx.Users().GetByEmail(ctx, models.NormalizeEmail(req.Email))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(op, "invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.creds.login(ctx, u, req.Password)
	if errors.Is(err, errBadCredentials) {
		return nil, apperr.Unauthorized(op, "invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return authResult(u, pair), nil
}

func (s *Service) Refresh(ctx context.Context, req *Refresh) (*AuthResult, error) {
	const op = "Refresh"

	u, pair, err := s.creds.refresh(ctx, req.RefreshToken, s.lookupUser)
	if errors.Is(err, errBadCredentials) || errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(op, "invalid refresh token")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return authResult(u, pair), nil
}

func (s *Service) lookupUser(ctx context.Context, userID int64, email string) (*models.User, error) {
	var u *models.User
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if userID > 0 {
			u, err = tx.Users().Get(ctx, userID)
		} else {
			u, err = tx.Users().GetByEmail(ctx, email)
		}
		return err
	})
	return u, err
}

// Principal resolves a Keycloak identity to the local user and its system role.
func (s *Service) Principal(ctx context.Context, email string) (authmw.Principal, error) {
	u, err := s.lookupUser(ctx, 0, email)
	if err != nil {
		return authmw.Principal{}, err
	}
	return authmw.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}
