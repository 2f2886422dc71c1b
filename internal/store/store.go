// Package store declares the persistence capability used by the board service.
// Backends live in the postgres (pgx) and sqlite (gorm) sub packages.
package store

import (
	"context"
	"errors"

	"kyri56xcaesar/kanban/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key violation")
)

// Store hands out units of work. Every change made through the Tx passed to fn is
// committed when fn returns nil and rolled back otherwise.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is one unit of work. Repository accessors are created lazily and reused for the
// lifetime of the unit.
type Tx interface {
	Users() UserRepository
	Boards() BoardRepository
	Columns() ColumnRepository
	Tasks() TaskRepository
	Comments() CommentRepository
	Members() MemberRepository
}

type UserRepository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Add(ctx context.Context, u *models.User) error
}

type BoardRepository interface {
	Get(ctx context.Context, id int64) (*models.Board, error)
	// ListVisible returns public boards and the boards userID is a member of.
	ListVisible(ctx context.Context, userID int64) ([]*models.Board, error)
	Add(ctx context.Context, b *models.Board) error
	Update(ctx context.Context, b *models.Board) error
	Remove(ctx context.Context, id int64) error
}

type ColumnRepository interface {
	Get(ctx context.Context, id int64) (*models.Column, error)
	// ListByBoard returns the columns of a board ordered by position.
	ListByBoard(ctx context.Context, boardID int64) ([]*models.Column, error)
	CountByBoard(ctx context.Context, boardID int64) (int, error)
	Add(ctx context.Context, c *models.Column) error
	Update(ctx context.Context, c *models.Column) error
	Remove(ctx context.Context, id int64) error
}

type TaskRepository interface {
	Get(ctx context.Context, id int64) (*models.TaskItem, error)
	// ListByColumn returns the tasks of a column ordered by position.
	ListByColumn(ctx context.Context, columnID int64) ([]*models.TaskItem, error)
	CountByColumn(ctx context.Context, columnID int64) (int, error)
	Add(ctx context.Context, t *models.TaskItem) error
	Update(ctx context.Context, t *models.TaskItem) error
	Remove(ctx context.Context, id int64) error
}

type CommentRepository interface {
	Get(ctx context.Context, id int64) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID int64) ([]*models.Comment, error)
	Add(ctx context.Context, c *models.Comment) error
	Update(ctx context.Context, c *models.Comment) error
	Remove(ctx context.Context, id int64) error
}

type MemberRepository interface {
	Get(ctx context.Context, userID, boardID int64) (*models.UserBoard, error)
	ListByBoard(ctx context.Context, boardID int64) ([]*models.UserBoard, error)
	Add(ctx context.Context, m *models.UserBoard) error
	Update(ctx context.Context, m *models.UserBoard) error
	Remove(ctx context.Context, userID, boardID int64) error
}
