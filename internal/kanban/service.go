// Package kanban implements the board operations and serves them over HTTP.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/notify"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

// Service runs every operation through the request pipeline.
type Service struct {
	store       store.Store
	pipe        *pipeline.Pipeline
	creds       credentials
	mailer      notify.Mailer
	adminEmails map[string]bool
}

type Option func(*Service)

func WithMailer(m notify.Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithAdminEmails(emails ...string) Option {
	return func(s *Service) {
		for _, e := range emails {
			s.adminEmails[models.NormalizeEmail(e)] = true
		}
	}
}

// WithPipeline replaces the default behavior chain.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(s *Service) { s.pipe = p }
}

func NewService(st store.Store, creds credentials, opts ...Option) *Service {
	s := &Service{
		store:       st,
		pipe:        pipeline.Default(st),
		creds:       creds,
		mailer:      &notify.LogMailer{},
		adminEmails: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(ctx context.Context, msgs ...notify.Message) {
	notify.Deliver(context.WithoutCancel(ctx), s.mailer, msgs...)
}

// --- helpers ---

const (
	maxNameLen    = 100
	maxTitleLen   = 200
	maxTextLen    = 4000
	minPasswordLn = 8
	maxPasswordLn = 72 // bcrypt limit
)

// storeErr converts backend sentinels into the error kinds callers see.
func storeErr(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(op, "%s not found", what)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(op, "%s already exists", what)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func requireText(op, field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Validation(op, "%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return "", apperr.Validation(op, "%s must be at most %d characters", field, max)
	}
	return value, nil
}

// requireLine is requireText for single line values such as names and titles, which
// end up in mail headers and must not carry control characters.
func requireLine(op, field, value string, max int) (string, error) {
	value, err := requireText(op, field, value, max)
	if err != nil {
		return "", err
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return "", apperr.Validation(op, "%s must not contain control characters", field)
	}
	return value, nil
}

func validEmail(op, email string) (string, error) {
	email = models.NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation(op, "invalid email address")
	}
	return email, nil
}

func validID(op, field string, id int64) error {
	if id <= 0 {
		return apperr.Validation(op, "%s must be a positive id", field)
	}
	return nil
}

func optionalText(op, field string, value *string, max int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > max {
		return nil, apperr.Validation(op, "%s must be at most %d characters", field, max)
	}
	return &v, nil
}

// boardOfColumn resolves the board a column belongs to.
func boardOfColumn(ctx context.Context, tx store.Tx, op string, columnID int64) (int64, error) {
	col, err := tx.Columns().Get(ctx, columnID)
	if err != nil {
		return 0, storeErr(op, "column", err)
	}
	return col.BoardID, nil
}

// boardOfTask resolves the board a task belongs to through its column.
func boardOfTask(ctx context.Context, tx store.Tx, op string, taskID int64) (int64, error) {
	task, err := tx.Tasks().Get(ctx, taskID)
	if err != nil {
		return 0, storeErr(op, "task", err)
	}
	return boardOfColumn(ctx, tx, op, task.ColumnID)
}
