package kanban

import (
	"context"
	"fmt"
	"slices"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/ordering"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

type columnBody struct {
	Name string `json:"name"`
}

type moveBody struct {
	ColumnID int64 `json:"columnId"`
	Position *int  `json:"position" binding:"required"`
}

type CreateColumn struct {
	pipeline.Actor
	boardRef
	Name string
}

func NewCreateColumn(userID, boardID int64, body columnBody) *CreateColumn {
	return &CreateColumn{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}, Name: body.Name}
}

func (c *CreateColumn) Validate() (err error) {
	c.Name, err = requireLine("CreateColumn", "name", c.Name, maxNameLen)
	return err
}

func (c *CreateColumn) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(c.BoardID, access.Editors), nil
}

// CreateColumn appends a column after the board's last one.
func (s *Service) CreateColumn(ctx context.Context, cmd *CreateColumn) (*models.Column, error) {
	return pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *CreateColumn) (*models.Column, error) {
		n, err := tx.Columns().CountByBoard(ctx, cmd.BoardID)
		if err != nil {
			return nil, fmt.Errorf("CreateColumn: %w", err)
		}

		col := &models.Column{Name: cmd.Name, BoardID: cmd.BoardID, Position: ordering.Append(n)}
		if err := tx.Columns().Add(ctx, col); err != nil {
			return nil, storeErr("CreateColumn", "column", err)
		}
		return col, nil
	})
}

type ListColumns struct {
	pipeline.Actor
	boardRef
}

func NewListColumns(userID, boardID int64) *ListColumns {
	return &ListColumns{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}}
}

func (q *ListColumns) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(q.BoardID, access.Readers), nil
}

func (s *Service) ListColumns(ctx context.Context, q *ListColumns) ([]*models.Column, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListColumns) ([]*models.Column, error) {
		cols, err := tx.Columns().ListByBoard(ctx, q.BoardID)
		if err != nil {
			return nil, fmt.Errorf("ListColumns: %w", err)
		}
		return cols, nil
	})
}

// columnRef is embedded by requests addressed at a column. Authorization uses the
// board of the loaded column.
type columnRef struct {
	ColumnID int64

	column *models.Column
}

func (r *columnRef) Target() pipeline.Target {
	return pipeline.Entity(r.ColumnID, pipeline.Columns, func(c *models.Column) { r.column = c })
}

func (r *columnRef) require(roles []models.BoardRole) (access.Requirement, error) {
	return access.Require(r.column.BoardID, roles), nil
}

type GetColumn struct {
	pipeline.Actor
	columnRef
}

func NewGetColumn(userID, columnID int64) *GetColumn {
	return &GetColumn{Actor: pipeline.As(userID), columnRef: columnRef{ColumnID: columnID}}
}

func (q *GetColumn) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return q.require(access.Readers)
}

func (s *Service) GetColumn(ctx context.Context, q *GetColumn) (*models.Column, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *GetColumn) (*models.Column, error) {
		return q.column, nil
	})
}

type UpdateColumn struct {
	pipeline.Actor
	columnRef
	Name string
}

func NewUpdateColumn(userID, columnID int64, body columnBody) *UpdateColumn {
	return &UpdateColumn{Actor: pipeline.As(userID), columnRef: columnRef{ColumnID: columnID}, Name: body.Name}
}

func (c *UpdateColumn) Validate() (err error) {
	c.Name, err = requireLine("UpdateColumn", "name", c.Name, maxNameLen)
	return err
}

func (c *UpdateColumn) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return c.require(access.Editors)
}

func (s *Service) UpdateColumn(ctx context.Context, cmd *UpdateColumn) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *UpdateColumn) (struct{}, error) {
		cmd.column.Name = cmd.Name
		return struct{}{}, storeErr("UpdateColumn", "column", tx.Columns().Update(ctx, cmd.column))
	})
	return err
}

type MoveColumn struct {
	pipeline.Actor
	columnRef
	Position int
}

func NewMoveColumn(userID, columnID int64, body moveBody) *MoveColumn {
	cmd := &MoveColumn{Actor: pipeline.As(userID), columnRef: columnRef{ColumnID: columnID}}
	if body.Position != nil {
		cmd.Position = *body.Position
	}
	return cmd
}

func (c *MoveColumn) Validate() error {
	if c.Position < 0 {
		return apperr.Validation("MoveColumn", "position must not be negative")
	}
	return nil
}

func (c *MoveColumn) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return c.require(access.Editors)
}

// MoveColumn places the column at Position, shifting its siblings. Positions past the
// end move it to the last slot.
func (s *Service) MoveColumn(ctx context.Context, cmd *MoveColumn) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *MoveColumn) (struct{}, error) {
		const op = "MoveColumn"
		cols, err := tx.Columns().ListByBoard(ctx, cmd.column.BoardID)
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		ordering.Sort(cols)

		from := slices.IndexFunc(cols, func(c *models.Column) bool { return c.ID == cmd.ColumnID })
		_, changed := ordering.Move(cols, from, cmd.Position)
		return struct{}{}, saveColumns(ctx, tx, op, changed)
	})
	return err
}

type DeleteColumn struct {
	pipeline.Actor
	columnRef
}

func NewDeleteColumn(userID, columnID int64) *DeleteColumn {
	return &DeleteColumn{Actor: pipeline.As(userID), columnRef: columnRef{ColumnID: columnID}}
}

func (c *DeleteColumn) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return c.require(access.Editors)
}

// DeleteColumn removes the column with its tasks and closes the gap it leaves.
func (s *Service) DeleteColumn(ctx context.Context, cmd *DeleteColumn) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *DeleteColumn) (struct{}, error) {
		const op = "DeleteColumn"
		if err := tx.Columns().Remove(ctx, cmd.ColumnID); err != nil {
			return struct{}{}, storeErr(op, "column", err)
		}

		rest, err := tx.Columns().ListByBoard(ctx, cmd.column.BoardID)
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		return struct{}{}, saveColumns(ctx, tx, op, ordering.Repack(rest))
	})
	return err
}

func saveColumns(ctx context.Context, tx store.Tx, op string, cols []*models.Column) error {
	for _, c := range cols {
		if err := tx.Columns().Update(ctx, c); err != nil {
			return storeErr(op, "column", err)
		}
	}
	return nil
}
