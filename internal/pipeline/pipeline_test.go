package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
	"kyri56xcaesar/kanban/internal/store/sqlite"
)

type fixture struct {
	store   *sqlite.Store
	owner   *models.User
	viewer  *models.User
	editor  *models.User
	outside *models.User
	private *models.Board
	public  *models.Board
	column  *models.Column
}

func setup(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s}
	err = s.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for i, u := range []**models.User{&f.owner, &f.viewer, &f.editor, &f.outside} {
			*u = &models.User{Email: fmt.Sprintf("user%d@example.com", i), Username: "u", PasswordHash: "x", Role: models.RoleUser}
			if err := tx.Users().Add(ctx, *u); err != nil {
				return err
			}
		}
		f.private = &models.Board{Name: "private"}
		f.public = &models.Board{Name: "public", IsPublic: true}
		for _, b := range []*models.Board{f.private, f.public} {
			if err := tx.Boards().Add(ctx, b); err != nil {
				return err
			}
		}
		f.column = &models.Column{Name: "todo", BoardID: f.private.ID}
		if err := tx.Columns().Add(ctx, f.column); err != nil {
			return err
		}
		now := time.Now()
		for _, m := range []*models.UserBoard{
			{UserID: f.owner.ID, BoardID: f.private.ID, Role: models.BoardOwner, JoinedAt: now},
			{UserID: f.viewer.ID, BoardID: f.private.ID, Role: models.BoardViewer, JoinedAt: now},
			{UserID: f.editor.ID, BoardID: f.private.ID, Role: models.BoardEditor, JoinedAt: now},
		} {
			if err := tx.Members().Add(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// editColumn is a column scoped command requiring Editors.
type editColumn struct {
	pipeline.Actor
	ColumnID int64

	column *models.Column
}

func (c *editColumn) Target() pipeline.Target {
	return pipeline.Entity(c.ColumnID, pipeline.Columns, func(col *models.Column) { c.column = col })
}

func (c *editColumn) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return access.Require(c.column.BoardID, access.Editors), nil
}

// readBoard is a board scoped query open to any member.
type readBoard struct {
	pipeline.Actor
	BoardID int64
}

func (q *readBoard) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return access.Require(q.BoardID, access.Readers), nil
}

func ok[Req any](ctx context.Context, tx store.Tx, req Req) (bool, error) {
	return true, nil
}

func TestSendRunsHandlerWhenAllowed(t *testing.T) {
	f := setup(t)
	p := pipeline.Default(f.store)

	cmd := &editColumn{Actor: pipeline.As(f.editor.ID), ColumnID: f.column.ID}
	ran, err := pipeline.Send(context.Background(), p, cmd, ok[*editColumn])

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, f.editor.ID, cmd.User().ID)
	assert.Equal(t, f.column.ID, cmd.column.ID)
	require.NotNil(t, cmd.Membership())
	assert.Equal(t, models.BoardEditor, cmd.Membership().Role)
}

func TestSendRejections(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		req      any
		wantErr  error
		wantStep string
	}{
		{
			name:     "unknown user",
			req:      &editColumn{Actor: pipeline.As(9999), ColumnID: f.column.ID},
			wantErr:  apperr.ErrUnauthorized,
			wantStep: "user_existence",
		},
		{
			name:     "missing column",
			req:      &editColumn{Actor: pipeline.As(f.editor.ID), ColumnID: 9999},
			wantErr:  apperr.ErrNotFound,
			wantStep: "entity_existence",
		},
		{
			name:     "viewer may not edit",
			req:      &editColumn{Actor: pipeline.As(f.viewer.ID), ColumnID: f.column.ID},
			wantErr:  apperr.ErrForbidden,
			wantStep: "board_authorization",
		},
		{
			name:     "non member on private board",
			req:      &readBoard{Actor: pipeline.As(f.outside.ID), BoardID: f.private.ID},
			wantErr:  apperr.ErrForbidden,
			wantStep: "board_authorization",
		},
		{
			name:     "missing board",
			req:      &readBoard{Actor: pipeline.As(f.owner.ID), BoardID: 9999},
			wantErr:  apperr.ErrNotFound,
			wantStep: "board_authorization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rejectedBy string
			p := pipeline.Default(f.store).WithObserver(func(step string, _ any, _ error) {
				rejectedBy = step
			})

			handled := false
			_, err := pipeline.Send(context.Background(), p, tt.req, func(ctx context.Context, tx store.Tx, req any) (struct{}, error) {
				handled = true
				return struct{}{}, nil
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, handled, "handler must not run")
			assert.Equal(t, tt.wantStep, rejectedBy)
		})
	}
}

func TestPublicBoardBypassesMembership(t *testing.T) {
	f := setup(t)
	p := pipeline.Default(f.store)

	q := &readBoard{Actor: pipeline.As(f.outside.ID), BoardID: f.public.ID}
	ran, err := pipeline.Send(context.Background(), p, q, ok[*readBoard])

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Nil(t, q.Membership())
}

func TestSendRollsBackOnHandlerError(t *testing.T) {
	f := setup(t)
	p := pipeline.Default(f.store)
	boom := errors.New("boom")

	cmd := &editColumn{Actor: pipeline.As(f.owner.ID), ColumnID: f.column.ID}
	_, err := pipeline.Send(context.Background(), p, cmd, func(ctx context.Context, tx store.Tx, c *editColumn) (struct{}, error) {
		c.column.Name = "renamed"
		if err := tx.Columns().Update(ctx, c.column); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, boom
	})
	require.ErrorIs(t, err, boom)

	err = f.store.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		col, err := tx.Columns().Get(ctx, f.column.ID)
		require.NoError(t, err)
		assert.Equal(t, "todo", col.Name)
		return nil
	})
	require.NoError(t, err)
}

type renameColumn struct {
	editColumn
	Name string
}

func (c *renameColumn) Validate() error {
	if c.Name == "" {
		return apperr.Validation("renameColumn", "name is required")
	}
	return nil
}

func TestValidationRunsFirst(t *testing.T) {
	f := setup(t)
	var rejectedBy string
	p := pipeline.Default(f.store).WithObserver(func(step string, _ any, _ error) { rejectedBy = step })

	// an unknown caller still gets the validation error
	cmd := &renameColumn{editColumn: editColumn{Actor: pipeline.As(9999), ColumnID: f.column.ID}}
	_, err := pipeline.Send(context.Background(), p, cmd, ok[*renameColumn])

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "validation", rejectedBy)
}

func TestOpName(t *testing.T) {
	assert.Equal(t, "editColumn", pipeline.OpName(&editColumn{}))
}
