package sqlite

import (
	"context"

	"gorm.io/gorm"

	"kyri56xcaesar/kanban/internal/models"
)

type userRepo struct{ db *gorm.DB }

func (r *userRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	return first[models.User](r.db.WithContext(ctx), id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *userRepo) Add(ctx context.Context, u *models.User) error {
	return translateNil(r.db.WithContext(ctx).Create(u).Error)
}

type boardRepo struct{ db *gorm.DB }

func (r *boardRepo) Get(ctx context.Context, id int64) (*models.Board, error) {
	return first[models.Board](r.db.WithContext(ctx), id)
}

func (r *boardRepo) ListVisible(ctx context.Context, userID int64) ([]*models.Board, error) {
	member := r.db.Model(&models.UserBoard{}).Select("board_id").Where("user_id = ?", userID)

	var out []*models.Board
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Or("id IN (?)", member).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *boardRepo) Add(ctx context.Context, b *models.Board) error {
	return translateNil(r.db.WithContext(ctx).Create(b).Error)
}

func (r *boardRepo) Update(ctx context.Context, b *models.Board) error {
	return affected(r.db.WithContext(ctx).Model(&models.Board{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{"name": b.Name, "is_public": b.IsPublic}))
}

func (r *boardRepo) Remove(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Board{}, id))
}

type columnRepo struct{ db *gorm.DB }

func (r *columnRepo) Get(ctx context.Context, id int64) (*models.Column, error) {
	return first[models.Column](r.db.WithContext(ctx), id)
}

func (r *columnRepo) ListByBoard(ctx context.Context, boardID int64) ([]*models.Column, error) {
	var out []*models.Column
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position").Order("id").
		Find(&out).Error
	return out, err
}

func (r *columnRepo) CountByBoard(ctx context.Context, boardID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Column{}).Where("board_id = ?", boardID).Count(&n).Error
	return int(n), err
}

func (r *columnRepo) Add(ctx context.Context, c *models.Column) error {
	return translateNil(r.db.WithContext(ctx).Create(c).Error)
}

func (r *columnRepo) Update(ctx context.Context, c *models.Column) error {
	return affected(r.db.WithContext(ctx).Model(&models.Column{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{"name": c.Name, "position": c.Position, "board_id": c.BoardID}))
}

func (r *columnRepo) Remove(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Column{}, id))
}

type taskRepo struct{ db *gorm.DB }

func (r *taskRepo) Get(ctx context.Context, id int64) (*models.TaskItem, error) {
	return first[models.TaskItem](r.db.WithContext(ctx), id)
}

func (r *taskRepo) ListByColumn(ctx context.Context, columnID int64) ([]*models.TaskItem, error) {
	var out []*models.TaskItem
	err := r.db.WithContext(ctx).
		Where("column_id = ?", columnID).
		Order("position").Order("id").
		Find(&out).Error
	return out, err
}

func (r *taskRepo) CountByColumn(ctx context.Context, columnID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TaskItem{}).Where("column_id = ?", columnID).Count(&n).Error
	return int(n), err
}

func (r *taskRepo) Add(ctx context.Context, t *models.TaskItem) error {
	return translateNil(r.db.WithContext(ctx).Create(t).Error)
}

func (r *taskRepo) Update(ctx context.Context, t *models.TaskItem) error {
	return affected(r.db.WithContext(ctx).Model(&models.TaskItem{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"title":            t.Title,
			"description":      t.Description,
			"position":         t.Position,
			"status":           t.Status,
			"column_id":        t.ColumnID,
			"assigned_user_id": t.AssignedUserID,
		}))
}

func (r *taskRepo) Remove(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&models.TaskItem{}, id))
}

type commentRepo struct{ db *gorm.DB }

func (r *commentRepo) Get(ctx context.Context, id int64) (*models.Comment, error) {
	return first[models.Comment](r.db.WithContext(ctx), id)
}

func (r *commentRepo) ListByTask(ctx context.Context, taskID int64) ([]*models.Comment, error) {
	var out []*models.Comment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at").Order("id").
		Find(&out).Error
	return out, err
}

func (r *commentRepo) Add(ctx context.Context, c *models.Comment) error {
	return translateNil(r.db.WithContext(ctx).Create(c).Error)
}

func (r *commentRepo) Update(ctx context.Context, c *models.Comment) error {
	return affected(r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", c.ID).
		Update("content", c.Content))
}

func (r *commentRepo) Remove(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Comment{}, id))
}

type memberRepo struct{ db *gorm.DB }

func (r *memberRepo) Get(ctx context.Context, userID, boardID int64) (*models.UserBoard, error) {
	return first[models.UserBoard](r.db.WithContext(ctx).
		Where("user_id = ? AND board_id = ?", userID, boardID))
}

func (r *memberRepo) ListByBoard(ctx context.Context, boardID int64) ([]*models.UserBoard, error) {
	var out []*models.UserBoard
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("joined_at").Order("user_id").
		Find(&out).Error
	return out, err
}

func (r *memberRepo) Add(ctx context.Context, m *models.UserBoard) error {
	return translateNil(r.db.WithContext(ctx).Create(m).Error)
}

func (r *memberRepo) Update(ctx context.Context, m *models.UserBoard) error {
	return affected(r.db.WithContext(ctx).Model(&models.UserBoard{}).
		Where("user_id = ? AND board_id = ?", m.UserID, m.BoardID).
		Update("role", m.Role))
}

func (r *memberRepo) Remove(ctx context.Context, userID, boardID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("user_id = ? AND board_id = ?", userID, boardID).
		Delete(&models.UserBoard{}))
}

func translateNil(err error) error {
	if err == nil {
		return nil
	}
	return translate(err)
}
