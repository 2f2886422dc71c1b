// Package sqlite implements the store with gorm on an embedded sqlite database.
// It backs single node deployments and the test suites.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/store"
)

type Store struct {
	db *gorm.DB
}

// Open connects to the database file at path, creating its directory when needed,
// and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.Column{},
		&models.TaskItem{},
		&models.Comment{},
		&models.UserBoard{},
	)
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &unit{db: tx})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type unit struct {
	db *gorm.DB

	users    *userRepo
	boards   *boardRepo
	columns  *columnRepo
	tasks    *taskRepo
	comments *commentRepo
	members  *memberRepo
}

func (u *unit) Users() store.UserRepository {
	if u.users == nil {
		u.users = &userRepo{db: u.db}
	}
	return u.users
}

func (u *unit) Boards() store.BoardRepository {
	if u.boards == nil {
		u.boards = &boardRepo{db: u.db}
	}
	return u.boards
}

func (u *unit) Columns() store.ColumnRepository {
	if u.columns == nil {
		u.columns = &columnRepo{db: u.db}
	}
	return u.columns
}

func (u *unit) Tasks() store.TaskRepository {
	if u.tasks == nil {
		u.tasks = &taskRepo{db: u.db}
	}
	return u.tasks
}

func (u *unit) Comments() store.CommentRepository {
	if u.comments == nil {
		u.comments = &commentRepo{db: u.db}
	}
	return u.comments
}

func (u *unit) Members() store.MemberRepository {
	if u.members == nil {
		u.members = &memberRepo{db: u.db}
	}
	return u.members
}

// --- helpers ---

func first[T any](db *gorm.DB, conds ...any) (*T, error) {
	var out T
	if err := db.First(&out, conds...).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// affected reports store.ErrNotFound when a mutation matched no row.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return err
	}
}
