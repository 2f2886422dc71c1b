package kanban

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- auth ---

func (a *API) register(c *gin.Context) {
	var req Register
	if !bind(c, &req) {
		return
	}
	res, err := a.svc.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (a *API) login(c *gin.Context) {
	var req Login
	if !bind(c, &req) {
		return
	}
	res, err := a.svc.Login(c.Request.Context(), &req)
	reply(c, res, err)
}

func (a *API) refresh(c *gin.Context) {
	var req Refresh
	if !bind(c, &req) {
		return
	}
	res, err := a.svc.Refresh(c.Request.Context(), &req)
	reply(c, res, err)
}

// --- users ---

func (a *API) listUsers(c *gin.Context) {
	users, err := a.svc.ListUsers(c.Request.Context(), &ListUsers{Actor: actor(c)})
	reply(c, users, err)
}

func (a *API) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := a.svc.GetUser(c.Request.Context(), NewGetUser(caller(c), id))
	reply(c, u, err)
}

// --- boards ---

func (a *API) listBoards(c *gin.Context) {
	boards, err := a.svc.ListBoards(c.Request.Context(), &ListBoards{Actor: actor(c)})
	reply(c, boards, err)
}

func (a *API) createBoard(c *gin.Context) {
	var body boardBody
	if !bind(c, &body) {
		return
	}
	b, err := a.svc.CreateBoard(c.Request.Context(), NewCreateBoard(caller(c), body))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fmt.Sprintf("/boards/%d", b.ID), b)
}

func (a *API) getBoard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := a.svc.GetBoard(c.Request.Context(), NewGetBoard(caller(c), id))
	reply(c, b, err)
}

func (a *API) updateBoard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body boardBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.UpdateBoard(c.Request.Context(), NewUpdateBoard(caller(c), id, body)))
}

func (a *API) deleteBoard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	noContent(c, a.svc.DeleteBoard(c.Request.Context(), NewDeleteBoard(caller(c), id)))
}

// --- columns ---

func (a *API) listColumns(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cols, err := a.svc.ListColumns(c.Request.Context(), NewListColumns(caller(c), id))
	reply(c, cols, err)
}

func (a *API) createColumn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body columnBody
	if !bind(c, &body) {
		return
	}
	col, err := a.svc.CreateColumn(c.Request.Context(), NewCreateColumn(caller(c), id, body))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fmt.Sprintf("/columns/%d", col.ID), col)
}

func (a *API) getColumn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	col, err := a.svc.GetColumn(c.Request.Context(), NewGetColumn(caller(c), id))
	reply(c, col, err)
}

func (a *API) updateColumn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body columnBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.UpdateColumn(c.Request.Context(), NewUpdateColumn(caller(c), id, body)))
}

func (a *API) moveColumn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body moveBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.MoveColumn(c.Request.Context(), NewMoveColumn(caller(c), id, body)))
}

func (a *API) deleteColumn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	noContent(c, a.svc.DeleteColumn(c.Request.Context(), NewDeleteColumn(caller(c), id)))
}

// --- tasks ---

func (a *API) listTasks(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tasks, err := a.svc.ListTasks(c.Request.Context(), NewListTasks(caller(c), id))
	reply(c, tasks, err)
}

func (a *API) createTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body taskBody
	if !bind(c, &body) {
		return
	}
	t, err := a.svc.CreateTask(c.Request.Context(), NewCreateTask(caller(c), id, body))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fmt.Sprintf("/taskitems/%d", t.ID), t)
}

func (a *API) getTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := a.svc.GetTask(c.Request.Context(), NewGetTask(caller(c), id))
	reply(c, t, err)
}

func (a *API) updateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body taskBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.UpdateTask(c.Request.Context(), NewUpdateTask(caller(c), id, body)))
}

func (a *API) moveTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body moveBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.MoveTask(c.Request.Context(), NewMoveTask(caller(c), id, body)))
}

func (a *API) changeTaskStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.ChangeTaskStatus(c.Request.Context(), NewChangeTaskStatus(caller(c), id, body)))
}

func (a *API) deleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	noContent(c, a.svc.DeleteTask(c.Request.Context(), NewDeleteTask(caller(c), id)))
}

// --- comments ---

func (a *API) listComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	comments, err := a.svc.ListComments(c.Request.Context(), NewListComments(caller(c), id))
	reply(c, comments, err)
}

func (a *API) createComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body commentBody
	if !bind(c, &body) {
		return
	}
	cm, err := a.svc.CreateComment(c.Request.Context(), NewCreateComment(caller(c), id, body))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fmt.Sprintf("/comments/%d", cm.ID), cm)
}

func (a *API) getComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cm, err := a.svc.GetComment(c.Request.Context(), NewGetComment(caller(c), id))
	reply(c, cm, err)
}

func (a *API) updateComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body commentBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.UpdateComment(c.Request.Context(), NewUpdateComment(caller(c), id, body)))
}

func (a *API) deleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	noContent(c, a.svc.DeleteComment(c.Request.Context(), NewDeleteComment(caller(c), id)))
}

// --- members ---

func (a *API) listMembers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ms, err := a.svc.ListMembers(c.Request.Context(), NewListMembers(caller(c), id))
	reply(c, ms, err)
}

func (a *API) addMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body addMemberBody
	if !bind(c, &body) {
		return
	}
	m, err := a.svc.AddMember(c.Request.Context(), NewAddMember(caller(c), id, body))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, fmt.Sprintf("/boards/%d/users/%d", id, m.UserID), m)
}

func (a *API) removeMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	noContent(c, a.svc.RemoveMember(c.Request.Context(), NewRemoveMember(caller(c), id, userID)))
}

func (a *API) changeMemberRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var body roleBody
	if !bind(c, &body) {
		return
	}
	noContent(c, a.svc.ChangeMemberRole(c.Request.Context(), NewChangeMemberRole(caller(c), id, userID, body)))
}

func (a *API) transferOwnership(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	noContent(c, a.svc.TransferOwnership(c.Request.Context(), NewTransferOwnership(caller(c), id, userID)))
}
