package kanban

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/authmw"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/notify"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
	"kyri56xcaesar/kanban/internal/store/sqlite"
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	store  *sqlite.Store
	svc    *Service
	mailer *notify.LogMailer
	issuer *authmw.JWTIssuer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "kanban.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	issuer, err := authmw.NewJWTIssuer("test-secret-0123456789", "kanban", "kanban-api", time.Minute, time.Hour)
	require.NoError(t, err)

	mailer := &notify.LogMailer{}
	opts = append([]Option{WithMailer(mailer)}, opts...)
	return &harness{
		t:      t,
		ctx:    context.Background(),
		store:  st,
		svc:    NewService(st, LocalCredentials(issuer), opts...),
		mailer: mailer,
		issuer: issuer,
	}
}

// user stores a user directly, skipping password hashing.
func (h *harness) user(name string) *models.User {
	h.t.Helper()
	u := &models.User{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "x",
		Role:         models.RoleUser,
	}
	err := h.store.Atomic(h.ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Add(ctx, u)
	})
	require.NoError(h.t, err)
	return u
}

func (h *harness) board(owner *models.User, public bool) *models.Board {
	h.t.Helper()
	b, err := h.svc.CreateBoard(h.ctx, NewCreateBoard(owner.ID, boardBody{Name: "board", IsPublic: public}))
	require.NoError(h.t, err)
	return b
}

func (h *harness) column(actor *models.User, boardID int64, name string) *models.Column {
	h.t.Helper()
	c, err := h.svc.CreateColumn(h.ctx, NewCreateColumn(actor.ID, boardID, columnBody{Name: name}))
	require.NoError(h.t, err)
	return c
}

func (h *harness) task(actor *models.User, columnID int64, title string) *models.TaskItem {
	h.t.Helper()
	t, err := h.svc.CreateTask(h.ctx, NewCreateTask(actor.ID, columnID, taskBody{Title: title}))
	require.NoError(h.t, err)
	return t
}

func (h *harness) member(owner, u *models.User, boardID int64, role models.BoardRole) {
	h.t.Helper()
	_, err := h.svc.AddMember(h.ctx, NewAddMember(owner.ID, boardID, addMemberBody{Email: u.Email, Role: string(role)}))
	require.NoError(h.t, err)
}

func (h *harness) role(userID, boardID int64) models.BoardRole {
	h.t.Helper()
	var role models.BoardRole
	err := h.store.Atomic(h.ctx, func(ctx context.Context, tx store.Tx) error {
		m, err := tx.Members().Get(ctx, userID, boardID)
		if err != nil {
			return err
		}
		role = m.Role
		return nil
	})
	require.NoError(h.t, err)
	return role
}

func ptr[T any](v T) *T { return &v }

func actorOf(u *models.User) pipeline.Actor { return pipeline.As(u.ID) }

func titles(tasks []*models.TaskItem) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func names(cols []*models.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func assertDenseTasks(t *testing.T, tasks []*models.TaskItem) {
	t.Helper()
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, "task %q", task.Title)
	}
}

func assertDenseColumns(t *testing.T, cols []*models.Column) {
	t.Helper()
	for i, c := range cols {
		assert.Equal(t, i, c.Position, "column %q", c.Name)
	}
}

func TestOwnershipScenario(t *testing.T) {
	h := newHarness(t)
	u1, u2 := h.user("u1"), h.user("u2")

	b := h.board(u1, false)
	assert.Equal(t, models.BoardOwner, h.role(u1.ID, b.ID))

	h.member(u1, u2, b.ID, models.BoardEditor)
	members, err := h.svc.ListMembers(h.ctx, NewListMembers(u1.ID, b.ID))
	require.NoError(t, err)
	assert.Len(t, members, 2)

	err = h.svc.DeleteBoard(h.ctx, NewDeleteBoard(u2.ID, b.ID))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, h.svc.TransferOwnership(h.ctx, NewTransferOwnership(u1.ID, b.ID, u2.ID)))
	assert.Equal(t, models.BoardEditor, h.role(u1.ID, b.ID))
	assert.Equal(t, models.BoardOwner, h.role(u2.ID, b.ID))

	err = h.svc.DeleteBoard(h.ctx, NewDeleteBoard(u1.ID, b.ID))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, h.svc.DeleteBoard(h.ctx, NewDeleteBoard(u2.ID, b.ID)))
	_, err = h.svc.GetBoard(h.ctx, NewGetBoard(u2.ID, b.ID))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMembershipRules(t *testing.T) {
	h := newHarness(t)
	owner, editor, stranger := h.user("owner"), h.user("editor"), h.user("stranger")
	b := h.board(owner, false)
	h.member(owner, editor, b.ID, models.BoardEditor)

	t.Run("owner role is never granted by add", func(t *testing.T) {
		for _, actor := range []*models.User{owner, editor, stranger} {
			_, err := h.svc.AddMember(h.ctx, NewAddMember(actor.ID, b.ID, addMemberBody{Email: stranger.Email, Role: "Owner"}))
			assert.ErrorIs(t, err, apperr.ErrValidation, "actor %s", actor.Username)
		}
	})

	t.Run("owner role is never granted by change role", func(t *testing.T) {
		err := h.svc.ChangeMemberRole(h.ctx, NewChangeMemberRole(owner.ID, b.ID, editor.ID, roleBody{Role: "owner"}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := h.svc.AddMember(h.ctx, NewAddMember(owner.ID, b.ID, addMemberBody{Email: stranger.Email, Role: "Boss"}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.svc.AddMember(h.ctx, NewAddMember(owner.ID, b.ID, addMemberBody{Email: "nobody@example.com", Role: "Viewer"}))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("already a member", func(t *testing.T) {
		_, err := h.svc.AddMember(h.ctx, NewAddMember(owner.ID, b.ID, addMemberBody{Email: editor.Email, Role: "Viewer"}))
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("editor may not manage members", func(t *testing.T) {
		_, err := h.svc.AddMember(h.ctx, NewAddMember(editor.ID, b.ID, addMemberBody{Email: stranger.Email, Role: "Viewer"}))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("self targeting", func(t *testing.T) {
		assert.ErrorIs(t, h.svc.RemoveMember(h.ctx, NewRemoveMember(owner.ID, b.ID, owner.ID)), apperr.ErrValidation)
		assert.ErrorIs(t, h.svc.ChangeMemberRole(h.ctx, NewChangeMemberRole(owner.ID, b.ID, owner.ID, roleBody{Role: "Editor"})), apperr.ErrValidation)
		assert.ErrorIs(t, h.svc.TransferOwnership(h.ctx, NewTransferOwnership(owner.ID, b.ID, owner.ID)), apperr.ErrValidation)
	})

	t.Run("transfer needs a member", func(t *testing.T) {
		err := h.svc.TransferOwnership(h.ctx, NewTransferOwnership(owner.ID, b.ID, stranger.ID))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, models.BoardOwner, h.role(owner.ID, b.ID))
	})

	t.Run("change role and remove", func(t *testing.T) {
		require.NoError(t, h.svc.ChangeMemberRole(h.ctx, NewChangeMemberRole(owner.ID, b.ID, editor.ID, roleBody{Role: "viewer"})))
		assert.Equal(t, models.BoardViewer, h.role(editor.ID, b.ID))

		require.NoError(t, h.svc.RemoveMember(h.ctx, NewRemoveMember(owner.ID, b.ID, editor.ID)))
		err := h.svc.RemoveMember(h.ctx, NewRemoveMember(owner.ID, b.ID, editor.ID))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestMembershipNotifications(t *testing.T) {
	h := newHarness(t)
	owner, u := h.user("owner"), h.user("ada")
	b := h.board(owner, false)

	h.member(owner, u, b.ID, models.BoardMember)
	require.NoError(t, h.svc.ChangeMemberRole(h.ctx, NewChangeMemberRole(owner.ID, b.ID, u.ID, roleBody{Role: "Editor"})))
	require.NoError(t, h.svc.TransferOwnership(h.ctx, NewTransferOwnership(owner.ID, b.ID, u.ID)))

	sent := h.mailer.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, u.Email, sent[0].To)
	assert.Contains(t, sent[0].Body, "Member")
	assert.Contains(t, sent[1].Body, "Editor")
	assert.Equal(t, u.Email, sent[2].To)
	assert.Equal(t, owner.Email, sent[3].To)

	// a rejected operation sends nothing
	_, err := h.svc.AddMember(h.ctx, NewAddMember(owner.ID, b.ID, addMemberBody{Email: u.Email, Role: "Viewer"}))
	require.Error(t, err)
	assert.Len(t, h.mailer.Sent(), 4)
}

func TestNamesAreSingleLine(t *testing.T) {
	h := newHarness(t)
	owner := h.user("owner")
	b := h.board(owner, false)
	col := h.column(owner, b.ID, "todo")
	injected := "x\r\nBcc: evil@example.com"

	tests := []struct {
		name string
		run  func() error
	}{
		{"create board", func() error {
			_, err := h.svc.CreateBoard(h.ctx, NewCreateBoard(owner.ID, boardBody{Name: injected}))
			return err
		}},
		{"update board", func() error {
			return h.svc.UpdateBoard(h.ctx, NewUpdateBoard(owner.ID, b.ID, boardBody{Name: injected}))
		}},
		{"column", func() error {
			_, err := h.svc.CreateColumn(h.ctx, NewCreateColumn(owner.ID, b.ID, columnBody{Name: "a\tb"}))
			return err
		}},
		{"task title", func() error {
			_, err := h.svc.CreateTask(h.ctx, NewCreateTask(owner.ID, col.ID, taskBody{Title: injected}))
			return err
		}},
		{"user name", func() error {
			_, err := h.svc.Register(h.ctx, &Register{Email: "eve@example.com", Username: "eve\nBcc: x", Password: "password123"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), apperr.ErrValidation)
		})
	}

	t.Run("multi line content is still allowed", func(t *testing.T) {
		task := h.task(owner, col.ID, "ship")
		_, err := h.svc.CreateComment(h.ctx, NewCreateComment(owner.ID, task.ID, commentBody{Content: "line one\nline two"}))
		assert.NoError(t, err)
	})

	t.Run("notification subjects stay on one line", func(t *testing.T) {
		h.member(owner, h.user("ada"), b.ID, models.BoardViewer)
		sent := h.mailer.Sent()
		require.NotEmpty(t, sent)
		assert.NotContains(t, sent[len(sent)-1].Subject, "\n")
		assert.NotContains(t, sent[len(sent)-1].Subject, "\r")
	})
}

func TestBoardAccess(t *testing.T) {
	h := newHarness(t)
	owner, viewer, editor, stranger := h.user("owner"), h.user("viewer"), h.user("editor"), h.user("stranger")
	private := h.board(owner, false)
	public := h.board(owner, true)
	h.member(owner, viewer, private.ID, models.BoardViewer)
	h.member(owner, editor, private.ID, models.BoardEditor)

	t.Run("private board without membership", func(t *testing.T) {
		_, err := h.svc.GetBoard(h.ctx, NewGetBoard(stranger.ID, private.ID))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("public board without membership", func(t *testing.T) {
		b, err := h.svc.GetBoard(h.ctx, NewGetBoard(stranger.ID, public.ID))
		require.NoError(t, err)
		assert.Equal(t, public.ID, b.ID)
	})

	t.Run("viewer may read but not edit", func(t *testing.T) {
		_, err := h.svc.ListColumns(h.ctx, NewListColumns(viewer.ID, private.ID))
		require.NoError(t, err)
		_, err = h.svc.CreateColumn(h.ctx, NewCreateColumn(viewer.ID, private.ID, columnBody{Name: "x"}))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("editor may edit", func(t *testing.T) {
		_, err := h.svc.CreateColumn(h.ctx, NewCreateColumn(editor.ID, private.ID, columnBody{Name: "x"}))
		assert.NoError(t, err)
	})

	t.Run("only the owner updates the board", func(t *testing.T) {
		err := h.svc.UpdateBoard(h.ctx, NewUpdateBoard(editor.ID, private.ID, boardBody{Name: "renamed"}))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		err = h.svc.UpdateBoard(h.ctx, NewUpdateBoard(stranger.ID, public.ID, boardBody{Name: "renamed", IsPublic: true}))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		require.NoError(t, h.svc.UpdateBoard(h.ctx, NewUpdateBoard(owner.ID, private.ID, boardBody{Name: "renamed"})))
	})

	t.Run("public boards are open except for ownership operations", func(t *testing.T) {
		_, err := h.svc.CreateColumn(h.ctx, NewCreateColumn(stranger.ID, public.ID, columnBody{Name: "open"}))
		require.NoError(t, err)

		err = h.svc.DeleteBoard(h.ctx, NewDeleteBoard(stranger.ID, public.ID))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		err = h.svc.RemoveMember(h.ctx, NewRemoveMember(stranger.ID, public.ID, owner.ID))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		err = h.svc.TransferOwnership(h.ctx, NewTransferOwnership(stranger.ID, public.ID, owner.ID))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		_, err = h.svc.AddMember(h.ctx, NewAddMember(stranger.ID, public.ID, addMemberBody{Email: stranger.Email, Role: "Editor"}))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Equal(t, models.BoardOwner, h.role(owner.ID, public.ID))
	})

	t.Run("list shows public and joined boards", func(t *testing.T) {
		boards, err := h.svc.ListBoards(h.ctx, &ListBoards{Actor: actorOf(stranger)})
		require.NoError(t, err)
		require.Len(t, boards, 1)
		assert.Equal(t, public.ID, boards[0].ID)

		boards, err = h.svc.ListBoards(h.ctx, &ListBoards{Actor: actorOf(viewer)})
		require.NoError(t, err)
		assert.Len(t, boards, 2)
	})

	t.Run("unknown caller", func(t *testing.T) {
		_, err := h.svc.GetBoard(h.ctx, NewGetBoard(9999, public.ID))
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("missing board", func(t *testing.T) {
		_, err := h.svc.GetBoard(h.ctx, NewGetBoard(owner.ID, 9999))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestColumnOrdering(t *testing.T) {
	h := newHarness(t)
	owner := h.user("owner")
	b := h.board(owner, false)

	var cols []*models.Column
	for _, n := range []string{"a", "b", "c", "d"} {
		cols = append(cols, h.column(owner, b.ID, n))
	}
	for i, c := range cols {
		assert.Equal(t, i, c.Position)
	}

	list := func() []*models.Column {
		out, err := h.svc.ListColumns(h.ctx, NewListColumns(owner.ID, b.ID))
		require.NoError(t, err)
		return out
	}

	require.NoError(t, h.svc.MoveColumn(h.ctx, NewMoveColumn(owner.ID, cols[0].ID, moveBody{Position: ptr(2)})))
	assert.Equal(t, []string{"b", "c", "a", "d"}, names(list()))

	require.NoError(t, h.svc.MoveColumn(h.ctx, NewMoveColumn(owner.ID, cols[3].ID, moveBody{Position: ptr(50)})))
	assert.Equal(t, []string{"b", "c", "a", "d"}, names(list()))

	require.NoError(t, h.svc.DeleteColumn(h.ctx, NewDeleteColumn(owner.ID, cols[2].ID)))
	got := list()
	assert.Equal(t, []string{"b", "a", "d"}, names(got))
	assertDenseColumns(t, got)

	assert.Equal(t, 3, h.column(owner, b.ID, "e").Position)
	assertDenseColumns(t, list())

	err := h.svc.MoveColumn(h.ctx, NewMoveColumn(owner.ID, cols[1].ID, moveBody{Position: ptr(-1)}))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	t.Run("rename keeps the position", func(t *testing.T) {
		require.NoError(t, h.svc.UpdateColumn(h.ctx, NewUpdateColumn(owner.ID, cols[1].ID, columnBody{Name: "  doing "})))
		got, err := h.svc.GetColumn(h.ctx, NewGetColumn(owner.ID, cols[1].ID))
		require.NoError(t, err)
		assert.Equal(t, "doing", got.Name)
		assert.Equal(t, 0, got.Position)

		err = h.svc.UpdateColumn(h.ctx, NewUpdateColumn(owner.ID, cols[1].ID, columnBody{Name: " "}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestTaskOrdering(t *testing.T) {
	h := newHarness(t)
	owner := h.user("owner")
	b := h.board(owner, false)
	todo := h.column(owner, b.ID, "todo")
	doing := h.column(owner, b.ID, "doing")

	t0 := h.task(owner, todo.ID, "t0")
	t1 := h.task(owner, todo.ID, "t1")
	t2 := h.task(owner, todo.ID, "t2")
	var t3 *models.TaskItem
	assert.Equal(t, []int{0, 1, 2}, []int{t0.Position, t1.Position, t2.Position})
	assert.Equal(t, models.StatusToDo, t0.Status)

	list := func(columnID int64) []*models.TaskItem {
		out, err := h.svc.ListTasks(h.ctx, NewListTasks(owner.ID, columnID))
		require.NoError(t, err)
		return out
	}

	t.Run("delete closes the gap", func(t *testing.T) {
		require.NoError(t, h.svc.DeleteTask(h.ctx, NewDeleteTask(owner.ID, t1.ID)))
		got := list(todo.ID)
		assert.Equal(t, []string{"t0", "t2"}, titles(got))
		assertDenseTasks(t, got)
	})

	t.Run("move within a column", func(t *testing.T) {
		t3 = h.task(owner, todo.ID, "t3")
		require.NoError(t, h.svc.MoveTask(h.ctx, NewMoveTask(owner.ID, t0.ID, moveBody{Position: ptr(9)})))
		got := list(todo.ID)
		assert.Equal(t, []string{"t2", "t3", "t0"}, titles(got))
		assertDenseTasks(t, got)
	})

	t.Run("move across columns", func(t *testing.T) {
		h.task(owner, doing.ID, "d0")
		h.task(owner, doing.ID, "d1")

		require.NoError(t, h.svc.MoveTask(h.ctx, NewMoveTask(owner.ID, t2.ID, moveBody{ColumnID: doing.ID, Position: ptr(1)})))

		src, dst := list(todo.ID), list(doing.ID)
		assert.Equal(t, []string{"t3", "t0"}, titles(src))
		assert.Equal(t, []string{"d0", "t2", "d1"}, titles(dst))
		assertDenseTasks(t, src)
		assertDenseTasks(t, dst)
	})

	t.Run("move to the end of another column", func(t *testing.T) {
		require.NoError(t, h.svc.MoveTask(h.ctx, NewMoveTask(owner.ID, t3.ID, moveBody{ColumnID: doing.ID, Position: ptr(100)})))
		dst := list(doing.ID)
		assert.Equal(t, []string{"d0", "t2", "d1", "t3"}, titles(dst))
		assertDenseTasks(t, dst)
		assertDenseTasks(t, list(todo.ID))
	})

	t.Run("move to a column of another board", func(t *testing.T) {
		other := h.board(owner, false)
		foreign := h.column(owner, other.ID, "foreign")
		err := h.svc.MoveTask(h.ctx, NewMoveTask(owner.ID, t0.ID, moveBody{ColumnID: foreign.ID, Position: ptr(0)}))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("move to a missing column", func(t *testing.T) {
		err := h.svc.MoveTask(h.ctx, NewMoveTask(owner.ID, t0.ID, moveBody{ColumnID: 9999, Position: ptr(0)}))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("deleting a column removes its tasks", func(t *testing.T) {
		require.NoError(t, h.svc.DeleteColumn(h.ctx, NewDeleteColumn(owner.ID, todo.ID)))
		_, err := h.svc.GetTask(h.ctx, NewGetTask(owner.ID, t0.ID))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
