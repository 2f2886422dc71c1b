package kanban

import (
	"context"
	"fmt"
	"time"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

type boardBody struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"isPublic"`
}

type CreateBoard struct {
	pipeline.Actor
	Name     string
	IsPublic bool
}

func NewCreateBoard(userID int64, body boardBody) *CreateBoard {
	return &CreateBoard{Actor: pipeline.As(userID), Name: body.Name, IsPublic: body.IsPublic}
}

func (c *CreateBoard) Validate() (err error) {
	c.Name, err = requireLine("CreateBoard", "name", c.Name, maxNameLen)
	return err
}

// CreateBoard stores a board and makes the caller its Owner.
func (s *Service) CreateBoard(ctx context.Context, cmd *CreateBoard) (*models.Board, error) {
	return pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *CreateBoard) (*models.Board, error) {
		now := time.Now().UTC()
		b := &models.Board{Name: cmd.Name, IsPublic: cmd.IsPublic, CreatedAt: now}
		if err := tx.Boards().Add(ctx, b); err != nil {
			return nil, storeErr("CreateBoard", "board", err)
		}

		owner := &models.UserBoard{UserID: cmd.ActorID(), BoardID: b.ID, Role: models.BoardOwner, JoinedAt: now}
		if err := tx.Members().Add(ctx, owner); err != nil {
			return nil, storeErr("CreateBoard", "membership", err)
		}
		return b, nil
	})
}

type ListBoards struct {
	pipeline.Actor
}

// ListBoards returns public boards and the boards the caller belongs to.
func (s *Service) ListBoards(ctx context.Context, q *ListBoards) ([]*models.Board, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListBoards) ([]*models.Board, error) {
		boards, err := tx.Boards().ListVisible(ctx, q.ActorID())
		if err != nil {
			return nil, fmt.Errorf("ListBoards: %w", err)
		}
		return boards, nil
	})
}

// boardRef is embedded by requests addressed at a board by id.
type boardRef struct {
	BoardID int64

	board *models.Board
}

func (r *boardRef) Target() pipeline.Target {
	return pipeline.Entity(r.BoardID, pipeline.Boards, func(b *models.Board) { r.board = b })
}

type GetBoard struct {
	pipeline.Actor
	boardRef
}

func NewGetBoard(userID, boardID int64) *GetBoard {
	return &GetBoard{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}}
}

func (q *GetBoard) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(q.BoardID, access.Readers), nil
}

func (s *Service) GetBoard(ctx context.Context, q *GetBoard) (*models.Board, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *GetBoard) (*models.Board, error) {
		return q.board, nil
	})
}

type UpdateBoard struct {
	pipeline.Actor
	boardRef
	Name     string
	IsPublic bool
}

func NewUpdateBoard(userID, boardID int64, body boardBody) *UpdateBoard {
	return &UpdateBoard{
		Actor:    pipeline.As(userID),
		boardRef: boardRef{BoardID: boardID},
		Name:     body.Name,
		IsPublic: body.IsPublic,
	}
}

func (c *UpdateBoard) Validate() (err error) {
	c.Name, err = requireLine("UpdateBoard", "name", c.Name, maxNameLen)
	return err
}

func (c *UpdateBoard) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(c.BoardID, access.Owners), nil
}

func (s *Service) UpdateBoard(ctx context.Context, cmd *UpdateBoard) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *UpdateBoard) (struct{}, error) {
		if !access.IsOwner(cmd.Membership()) {
			return struct{}{}, apperr.Forbidden("UpdateBoard", "only the board owner may update it")
		}
		cmd.board.Name = cmd.Name
		cmd.board.IsPublic = cmd.IsPublic
		return struct{}{}, storeErr("UpdateBoard", "board", tx.Boards().Update(ctx, cmd.board))
	})
	return err
}

type DeleteBoard struct {
	pipeline.Actor
	boardRef
}

func NewDeleteBoard(userID, boardID int64) *DeleteBoard {
	return &DeleteBoard{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}}
}

func (c *DeleteBoard) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(c.BoardID, access.Owners), nil
}

// DeleteBoard removes the board with its columns, tasks, comments and memberships.
func (s *Service) DeleteBoard(ctx context.Context, cmd *DeleteBoard) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *DeleteBoard) (struct{}, error) {
		if !access.IsOwner(cmd.Membership()) {
			return struct{}{}, apperr.Forbidden("DeleteBoard", "only the board owner may delete it")
		}
		return struct{}{}, storeErr("DeleteBoard", "board", tx.Boards().Remove(ctx, cmd.BoardID))
	})
	return err
}
