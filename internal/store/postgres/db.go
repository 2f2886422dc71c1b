// Package postgres implements the store on a pgx connection pool. Statements are
// built with squirrel using dollar placeholders.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kyri56xcaesar/kanban/internal/store"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Config struct {
	Address  string
	User     string
	Password string
	Name     string
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Address,
		c.Name,
	)
}

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping the db: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate executes the schema script at initSQLPath. The script is idempotent.
func (s *Store) Migrate(ctx context.Context, initSQLPath string) error {
	b, err := os.ReadFile(initSQLPath)
	if err != nil {
		return fmt.Errorf("failed to open and read the init sql file: %w", err)
	}

	log.Printf("executing initialization script %s...", initSQLPath)
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to execute init sql: %w", err)
	}
	return nil
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &unit{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// unit caches one repository per entity type for the duration of a transaction.
type unit struct {
	q querier

	users    *userRepo
	boards   *boardRepo
	columns  *columnRepo
	tasks    *taskRepo
	comments *commentRepo
	members  *memberRepo
}

func (u *unit) Users() store.UserRepository {
	if u.users == nil {
		u.users = &userRepo{q: u.q}
	}
	return u.users
}

func (u *unit) Boards() store.BoardRepository {
	if u.boards == nil {
		u.boards = &boardRepo{q: u.q}
	}
	return u.boards
}

func (u *unit) Columns() store.ColumnRepository {
	if u.columns == nil {
		u.columns = &columnRepo{q: u.q}
	}
	return u.columns
}

func (u *unit) Tasks() store.TaskRepository {
	if u.tasks == nil {
		u.tasks = &taskRepo{q: u.q}
	}
	return u.tasks
}

func (u *unit) Comments() store.CommentRepository {
	if u.comments == nil {
		u.comments = &commentRepo{q: u.q}
	}
	return u.comments
}

func (u *unit) Members() store.MemberRepository {
	if u.members == nil {
		u.members = &memberRepo{q: u.q}
	}
	return u.members
}

// --- helpers ---

func getOne[T any](ctx context.Context, q querier, b sq.SelectBuilder) (*T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return out, err
}

func getMany[T any](ctx context.Context, q querier, b sq.SelectBuilder) ([]*T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
}

func count(ctx context.Context, q querier, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func insert(ctx context.Context, q querier, b sq.InsertBuilder, id *int64) error {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return err
	}
	return translate(q.QueryRow(ctx, query, args...).Scan(id))
}

// exec runs a mutating statement and reports store.ErrNotFound when no row matched.
func exec(ctx context.Context, q querier, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	ct, err := q.Exec(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
