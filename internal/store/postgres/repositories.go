package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"kyri56xcaesar/kanban/internal/models"
)

var (
	userColumns    = []string{"id", "email", "username", "password_hash", "role", "created_at"}
	boardColumns   = []string{"id", "name", "is_public", "created_at"}
	columnColumns  = []string{"id", "name", "position", "board_id"}
	taskColumns    = []string{"id", "title", "description", "position", "status", "column_id", "assigned_user_id", "created_at"}
	commentColumns = []string{"id", "content", "task_id", "author_id", "created_at"}
	memberColumns  = []string{"user_id", "board_id", "role", "joined_at"}
)

type userRepo struct{ q querier }

func (r *userRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	return getOne[models.User](ctx, r.q,
		psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return getOne[models.User](ctx, r.q,
		psql.Select(userColumns...).From("users").Where(sq.Eq{"email": email}))
}

func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	return getMany[models.User](ctx, r.q,
		psql.Select(userColumns...).From("users").OrderBy("id"))
}

func (r *userRepo) Add(ctx context.Context, u *models.User) error {
	return insert(ctx, r.q, psql.Insert("users").
		Columns("email", "username", "password_hash", "role", "created_at").
		Values(u.Email, u.Username, u.PasswordHash, u.Role, u.CreatedAt), &u.ID)
}

type boardRepo struct{ q querier }

func (r *boardRepo) Get(ctx context.Context, id int64) (*models.Board, error) {
	return getOne[models.Board](ctx, r.q,
		psql.Select(boardColumns...).From("boards").Where(sq.Eq{"id": id}))
}

func (r *boardRepo) ListVisible(ctx context.Context, userID int64) ([]*models.Board, error) {
	return getMany[models.Board](ctx, r.q,
		psql.Select(boardColumns...).From("boards").
			Where(sq.Or{
				sq.Eq{"is_public": true},
				sq.Expr("id IN (SELECT board_id FROM user_boards WHERE user_id = ?)", userID),
			}).
			OrderBy("id"))
}

func (r *boardRepo) Add(ctx context.Context, b *models.Board) error {
	return insert(ctx, r.q, psql.Insert("boards").
		Columns("name", "is_public", "created_at").
		Values(b.Name, b.IsPublic, b.CreatedAt), &b.ID)
}

func (r *boardRepo) Update(ctx context.Context, b *models.Board) error {
	return exec(ctx, r.q, psql.Update("boards").
		SetMap(map[string]any{"name": b.Name, "is_public": b.IsPublic}).
		Where(sq.Eq{"id": b.ID}))
}

func (r *boardRepo) Remove(ctx context.Context, id int64) error {
	return exec(ctx, r.q, psql.Delete("boards").Where(sq.Eq{"id": id}))
}

type columnRepo struct{ q querier }

func (r *columnRepo) Get(ctx context.Context, id int64) (*models.Column, error) {
	return getOne[models.Column](ctx, r.q,
		psql.Select(columnColumns...).From("board_columns").Where(sq.Eq{"id": id}))
}

func (r *columnRepo) ListByBoard(ctx context.Context, boardID int64) ([]*models.Column, error) {
	return getMany[models.Column](ctx, r.q,
		psql.Select(columnColumns...).From("board_columns").
			Where(sq.Eq{"board_id": boardID}).
			OrderBy("position", "id"))
}

func (r *columnRepo) CountByBoard(ctx context.Context, boardID int64) (int, error) {
	return count(ctx, r.q,
		psql.Select("COUNT(*)").From("board_columns").Where(sq.Eq{"board_id": boardID}))
}

func (r *columnRepo) Add(ctx context.Context, c *models.Column) error {
	return insert(ctx, r.q, psql.Insert("board_columns").
		Columns("name", "position", "board_id").
		Values(c.Name, c.Position, c.BoardID), &c.ID)
}

func (r *columnRepo) Update(ctx context.Context, c *models.Column) error {
	return exec(ctx, r.q, psql.Update("board_columns").
		SetMap(map[string]any{"name": c.Name, "position": c.Position, "board_id": c.BoardID}).
		Where(sq.Eq{"id": c.ID}))
}

func (r *columnRepo) Remove(ctx context.Context, id int64) error {
	return exec(ctx, r.q, psql.Delete("board_columns").Where(sq.Eq{"id": id}))
}

type taskRepo struct{ q querier }

func (r *taskRepo) Get(ctx context.Context, id int64) (*models.TaskItem, error) {
	return getOne[models.TaskItem](ctx, r.q,
		psql.Select(taskColumns...).From("task_items").Where(sq.Eq{"id": id}))
}

func (r *taskRepo) ListByColumn(ctx context.Context, columnID int64) ([]*models.TaskItem, error) {
	return getMany[models.TaskItem](ctx, r.q,
		psql.Select(taskColumns...).From("task_items").
			Where(sq.Eq{"column_id": columnID}).
			OrderBy("position", "id"))
}

func (r *taskRepo) CountByColumn(ctx context.Context, columnID int64) (int, error) {
	return count(ctx, r.q,
		psql.Select("COUNT(*)").From("task_items").Where(sq.Eq{"column_id": columnID}))
}

func (r *taskRepo) Add(ctx context.Context, t *models.TaskItem) error {
	return insert(ctx, r.q, psql.Insert("task_items").
		Columns("title", "description", "position", "status", "column_id", "assigned_user_id", "created_at").
		Values(t.Title, t.Description, t.Position, t.Status, t.ColumnID, t.AssignedUserID, t.CreatedAt), &t.ID)
}

func (r *taskRepo) Update(ctx context.Context, t *models.TaskItem) error {
	return exec(ctx, r.q, psql.Update("task_items").
		SetMap(map[string]any{
			"title":            t.Title,
			"description":      t.Description,
			"position":         t.Position,
			"status":           t.Status,
			"column_id":        t.ColumnID,
			"assigned_user_id": t.AssignedUserID,
		}).
		Where(sq.Eq{"id": t.ID}))
}

func (r *taskRepo) Remove(ctx context.Context, id int64) error {
	return exec(ctx, r.q, psql.Delete("task_items").Where(sq.Eq{"id": id}))
}

type commentRepo struct{ q querier }

func (r *commentRepo) Get(ctx context.Context, id int64) (*models.Comment, error) {
	return getOne[models.Comment](ctx, r.q,
		psql.Select(commentColumns...).From("comments").Where(sq.Eq{"id": id}))
}

func (r *commentRepo) ListByTask(ctx context.Context, taskID int64) ([]*models.Comment, error) {
	return getMany[models.Comment](ctx, r.q,
		psql.Select(commentColumns...).From("comments").
			Where(sq.Eq{"task_id": taskID}).
			OrderBy("created_at ASC", "id"))
}

func (r *commentRepo) Add(ctx context.Context, c *models.Comment) error {
	return insert(ctx, r.q, psql.Insert("comments").
		Columns("content", "task_id", "author_id", "created_at").
		Values(c.Content, c.TaskID, c.AuthorID, c.CreatedAt), &c.ID)
}

func (r *commentRepo) Update(ctx context.Context, c *models.Comment) error {
	return exec(ctx, r.q, psql.Update("comments").
		Set("content", c.Content).
		Where(sq.Eq{"id": c.ID}))
}

func (r *commentRepo) Remove(ctx context.Context, id int64) error {
	return exec(ctx, r.q, psql.Delete("comments").Where(sq.Eq{"id": id}))
}

type memberRepo struct{ q querier }

func (r *memberRepo) Get(ctx context.Context, userID, boardID int64) (*models.UserBoard, error) {
	return getOne[models.UserBoard](ctx, r.q,
		psql.Select(memberColumns...).From("user_boards").
			Where(sq.Eq{"user_id": userID, "board_id": boardID}))
}

func (r *memberRepo) ListByBoard(ctx context.Context, boardID int64) ([]*models.UserBoard, error) {
	return getMany[models.UserBoard](ctx, r.q,
		psql.Select(memberColumns...).From("user_boards").
			Where(sq.Eq{"board_id": boardID}).
			OrderBy("joined_at", "user_id"))
}

func (r *memberRepo) Add(ctx context.Context, m *models.UserBoard) error {
	query, args, err := psql.Insert("user_boards").
		Columns(memberColumns...).
		Values(m.UserID, m.BoardID, m.Role, m.JoinedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, query, args...)
	return translate(err)
}

func (r *memberRepo) Update(ctx context.Context, m *models.UserBoard) error {
	return exec(ctx, r.q, psql.Update("user_boards").
		Set("role", m.Role).
		Where(sq.Eq{"user_id": m.UserID, "board_id": m.BoardID}))
}

func (r *memberRepo) Remove(ctx context.Context, userID, boardID int64) error {
	return exec(ctx, r.q, psql.Delete("user_boards").
		Where(sq.Eq{"user_id": userID, "board_id": boardID}))
}
