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

type commentBody struct {
	Content string `json:"content"`
}

type CreateComment struct {
	pipeline.Actor
	taskRef
	Content string
}

func NewCreateComment(userID, taskID int64, body commentBody) *CreateComment {
	return &CreateComment{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}, Content: body.Content}
}

func (c *CreateComment) Validate() (err error) {
	c.Content, err = requireText("CreateComment", "content", c.Content, maxTextLen)
	return err
}

func (c *CreateComment) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "CreateComment", access.Commenters)
}

func (s *Service) CreateComment(ctx context.Context, cmd *CreateComment) (*models.Comment, error) {
	return pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *CreateComment) (*models.Comment, error) {
		c := &models.Comment{
			Content:   cmd.Content,
			TaskID:    cmd.TaskID,
			AuthorID:  cmd.ActorID(),
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Comments().Add(ctx, c); err != nil {
			return nil, storeErr("CreateComment", "comment", err)
		}
		return c, nil
	})
}

type ListComments struct {
	pipeline.Actor
	taskRef
}

func NewListComments(userID, taskID int64) *ListComments {
	return &ListComments{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}}
}

func (q *ListComments) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return q.require(ctx, tx, "ListComments", access.Readers)
}

func (s *Service) ListComments(ctx context.Context, q *ListComments) ([]*models.Comment, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListComments) ([]*models.Comment, error) {
		comments, err := tx.Comments().ListByTask(ctx, q.TaskID)
		if err != nil {
			return nil, fmt.Errorf("ListComments: %w", err)
		}
		return comments, nil
	})
}

// commentRef is embedded by requests addressed at a comment.
type commentRef struct {
	CommentID int64

	comment *models.Comment
}

func (r *commentRef) Target() pipeline.Target {
	return pipeline.Entity(r.CommentID, pipeline.Comments, func(c *models.Comment) { r.comment = c })
}

func (r *commentRef) require(ctx context.Context, tx store.Tx, op string, roles []models.BoardRole) (access.Requirement, error) {
	boardID, err := boardOfTask(ctx, tx, op, r.comment.TaskID)
	if err != nil {
		return access.Requirement{}, err
	}
	return access.Require(boardID, roles), nil
}

type GetComment struct {
	pipeline.Actor
	commentRef
}

func NewGetComment(userID, commentID int64) *GetComment {
	return &GetComment{Actor: pipeline.As(userID), commentRef: commentRef{CommentID: commentID}}
}

func (q *GetComment) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return q.require(ctx, tx, "GetComment", access.Readers)
}

func (s *Service) GetComment(ctx context.Context, q *GetComment) (*models.Comment, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *GetComment) (*models.Comment, error) {
		return q.comment, nil
	})
}

type UpdateComment struct {
	pipeline.Actor
	commentRef
	Content string
}

func NewUpdateComment(userID, commentID int64, body commentBody) *UpdateComment {
	return &UpdateComment{Actor: pipeline.As(userID), commentRef: commentRef{CommentID: commentID}, Content: body.Content}
}

func (c *UpdateComment) Validate() (err error) {
	c.Content, err = requireText("UpdateComment", "content", c.Content, maxTextLen)
	return err
}

func (c *UpdateComment) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "UpdateComment", access.Readers)
}

// UpdateComment lets the author edit the comment's content.
func (s *Service) UpdateComment(ctx context.Context, cmd *UpdateComment) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *UpdateComment) (struct{}, error) {
		if cmd.comment.AuthorID != cmd.ActorID() {
			return struct{}{}, apperr.Forbidden("UpdateComment", "only the author may edit a comment")
		}
		cmd.comment.Content = cmd.Content
		return struct{}{}, storeErr("UpdateComment", "comment", tx.Comments().Update(ctx, cmd.comment))
	})
	return err
}

type DeleteComment struct {
	pipeline.Actor
	commentRef
}

func NewDeleteComment(userID, commentID int64) *DeleteComment {
	return &DeleteComment{Actor: pipeline.As(userID), commentRef: commentRef{CommentID: commentID}}
}

func (c *DeleteComment) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "DeleteComment", access.Readers)
}

// DeleteComment is allowed to the author and to the board owner.
func (s *Service) DeleteComment(ctx context.Context, cmd *DeleteComment) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *DeleteComment) (struct{}, error) {
		if cmd.comment.AuthorID != cmd.ActorID() && !access.IsOwner(cmd.Membership()) {
			return struct{}{}, apperr.Forbidden("DeleteComment", "only the author or the board owner may delete a comment")
		}
		return struct{}{}, storeErr("DeleteComment", "comment", tx.Comments().Remove(ctx, cmd.CommentID))
	})
	return err
}
