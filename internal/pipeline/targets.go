package pipeline

import (
	"context"

	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/store"
)

// Loader fetches one kind of entity by id.
type Loader[T any] struct {
	Kind string
	Get  func(ctx context.Context, tx store.Tx, id int64) (*T, error)
}

var (
	Users = Loader[models.User]{Kind: "user", Get: func(ctx context.Context, tx store.Tx, id int64) (*models.User, error) {
		return tx.Users().Get(ctx, id)
	}}
	Boards = Loader[models.Board]{Kind: "board", Get: func(ctx context.Context, tx store.Tx, id int64) (*models.Board, error) {
		return tx.Boards().Get(ctx, id)
	}}
	Columns = Loader[models.Column]{Kind: "column", Get: func(ctx context.Context, tx store.Tx, id int64) (*models.Column, error) {
		return tx.Columns().Get(ctx, id)
	}}
	Tasks = Loader[models.TaskItem]{Kind: "task", Get: func(ctx context.Context, tx store.Tx, id int64) (*models.TaskItem, error) {
		return tx.Tasks().Get(ctx, id)
	}}
	Comments = Loader[models.Comment]{Kind: "comment", Get: func(ctx context.Context, tx store.Tx, id int64) (*models.Comment, error) {
		return tx.Comments().Get(ctx, id)
	}}
)

// Target is an entity reference a request depends on.
type Target struct {
	Kind string
	ID   int64

	load func(ctx context.Context, tx store.Tx) error
}

// Entity builds a Target for id using loader. attach receives the entity once found.
func Entity[T any](id int64, loader Loader[T], attach func(*T)) Target {
	return Target{
		Kind: loader.Kind,
		ID:   id,
		load: func(ctx context.Context, tx store.Tx) error {
			e, err := loader.Get(ctx, tx, id)
			if err != nil {
				return err
			}
			if attach != nil {
				attach(e)
			}
			return nil
		},
	}
}
