package kanban

import (
	"context"
	"fmt"

	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

// Admin role checks happen at the HTTP layer; these only need an existing caller.

type ListUsers struct {
	pipeline.Actor
}

func (s *Service) ListUsers(ctx context.Context, q *ListUsers) ([]*models.User, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListUsers) ([]*models.User, error) {
		users, err := tx.Users().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListUsers: %w", err)
		}
		return users, nil
	})
}

type GetUser struct {
	pipeline.Actor
	UserID int64

	user *models.User
}

func NewGetUser(actorID, userID int64) *GetUser {
	return &GetUser{Actor: pipeline.As(actorID), UserID: userID}
}

func (q *GetUser) Target() pipeline.Target {
	return pipeline.Entity(q.UserID, pipeline.Users, func(u *models.User) { q.user = u })
}

func (s *Service) GetUser(ctx context.Context, q *GetUser) (*models.User, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *GetUser) (*models.User, error) {
		return q.user, nil
	})
}
