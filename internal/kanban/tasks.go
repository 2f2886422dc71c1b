package kanban

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/ordering"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

type taskBody struct {
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	AssignedUserID *int64  `json:"assignedUserId"`
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

type CreateTask struct {
	pipeline.Actor
	columnRef
	Title          string
	Description    *string
	AssignedUserID *int64
}

func NewCreateTask(userID, columnID int64, body taskBody) *CreateTask {
	return &CreateTask{
		Actor:          pipeline.As(userID),
		columnRef:      columnRef{ColumnID: columnID},
		Title:          body.Title,
		Description:    body.Description,
		AssignedUserID: body.AssignedUserID,
	}
}

func (c *CreateTask) Validate() (err error) {
	c.Title, c.Description, err = validTask("CreateTask", c.Title, c.Description, c.AssignedUserID)
	return err
}

func (c *CreateTask) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return c.require(access.Editors)
}

// CreateTask appends a ToDo task at the end of the column.
func (s *Service) CreateTask(ctx context.Context, cmd *CreateTask) (*models.TaskItem, error) {
	return pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *CreateTask) (*models.TaskItem, error) {
		const op = "CreateTask"
		if err := assigneeExists(ctx, tx, op, cmd.AssignedUserID); err != nil {
			return nil, err
		}

		n, err := tx.Tasks().CountByColumn(ctx, cmd.ColumnID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		task := &models.TaskItem{
			Title:          cmd.Title,
			Description:    cmd.Description,
			Position:       ordering.Append(n),
			Status:         models.StatusToDo,
			ColumnID:       cmd.ColumnID,
			AssignedUserID: cmd.AssignedUserID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.Tasks().Add(ctx, task); err != nil {
			return nil, storeErr(op, "task", err)
		}
		return task, nil
	})
}

type ListTasks struct {
	pipeline.Actor
	columnRef
}

func NewListTasks(userID, columnID int64) *ListTasks {
	return &ListTasks{Actor: pipeline.As(userID), columnRef: columnRef{ColumnID: columnID}}
}

func (q *ListTasks) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return q.require(access.Readers)
}

func (s *Service) ListTasks(ctx context.Context, q *ListTasks) ([]*models.TaskItem, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListTasks) ([]*models.TaskItem, error) {
		tasks, err := tx.Tasks().ListByColumn(ctx, q.ColumnID)
		if err != nil {
			return nil, fmt.Errorf("ListTasks: %w", err)
		}
		return tasks, nil
	})
}

// taskRef is embedded by requests addressed at a task.
type taskRef struct {
	TaskID int64

	task *models.TaskItem
}

func (r *taskRef) Target() pipeline.Target {
	return pipeline.Entity(r.TaskID, pipeline.Tasks, func(t *models.TaskItem) { r.task = t })
}

func (r *taskRef) require(ctx context.Context, tx store.Tx, op string, roles []models.BoardRole) (access.Requirement, error) {
	boardID, err := boardOfColumn(ctx, tx, op, r.task.ColumnID)
	if err != nil {
		return access.Requirement{}, err
	}
	return access.Require(boardID, roles), nil
}

type GetTask struct {
	pipeline.Actor
	taskRef
}

func NewGetTask(userID, taskID int64) *GetTask {
	return &GetTask{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}}
}

func (q *GetTask) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return q.require(ctx, tx, "GetTask", access.Readers)
}

func (s *Service) GetTask(ctx context.Context, q *GetTask) (*models.TaskItem, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *GetTask) (*models.TaskItem, error) {
		return q.task, nil
	})
}

type UpdateTask struct {
	pipeline.Actor
	taskRef
	Title          string
	Description    *string
	AssignedUserID *int64
}

func NewUpdateTask(userID, taskID int64, body taskBody) *UpdateTask {
	return &UpdateTask{
		Actor:          pipeline.As(userID),
		taskRef:        taskRef{TaskID: taskID},
		Title:          body.Title,
		Description:    body.Description,
		AssignedUserID: body.AssignedUserID,
	}
}

func (c *UpdateTask) Validate() (err error) {
	c.Title, c.Description, err = validTask("UpdateTask", c.Title, c.Description, c.AssignedUserID)
	return err
}

func (c *UpdateTask) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "UpdateTask", access.Editors)
}

// UpdateTask replaces the title, description and assignee of a task.
func (s *Service) UpdateTask(ctx context.Context, cmd *UpdateTask) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *UpdateTask) (struct{}, error) {
		const op = "UpdateTask"
		if err := assigneeExists(ctx, tx, op, cmd.AssignedUserID); err != nil {
			return struct{}{}, err
		}

		cmd.task.Title = cmd.Title
		cmd.task.Description = cmd.Description
		cmd.task.AssignedUserID = cmd.AssignedUserID
		return struct{}{}, storeErr(op, "task", tx.Tasks().Update(ctx, cmd.task))
	})
	return err
}

type MoveTask struct {
	pipeline.Actor
	taskRef
	// ColumnID is the destination column, zero keeps the current one.
	ColumnID int64
	Position int
}

func NewMoveTask(userID, taskID int64, body moveBody) *MoveTask {
	cmd := &MoveTask{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}, ColumnID: body.ColumnID}
	if body.Position != nil {
		cmd.Position = *body.Position
	}
	return cmd
}

func (c *MoveTask) Validate() error {
	if c.Position < 0 {
		return apperr.Validation("MoveTask", "position must not be negative")
	}
	if c.ColumnID < 0 {
		return apperr.Validation("MoveTask", "columnId must be a positive id")
	}
	return nil
}

func (c *MoveTask) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "MoveTask", access.Editors)
}

// MoveTask reorders a task inside its column or moves it to another column of the
// same board. Both columns stay densely numbered.
func (s *Service) MoveTask(ctx context.Context, cmd *MoveTask) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *MoveTask) (struct{}, error) {
		const op = "MoveTask"
		task := cmd.task
		srcID := task.ColumnID
		dstID := cmd.ColumnID
		if dstID == 0 {
			dstID = srcID
		}

		src, err := tx.Tasks().ListByColumn(ctx, srcID)
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		ordering.Sort(src)
		from := slices.IndexFunc(src, func(t *models.TaskItem) bool { return t.ID == task.ID })
		if from < 0 {
			return struct{}{}, apperr.NotFound(op, "task %d not found", task.ID)
		}
		// work on the loaded instance so its final position is the one written
		src[from] = task

		if dstID == srcID {
			_, changed := ordering.Move(src, from, cmd.Position)
			return struct{}{}, saveTasks(ctx, tx, op, appendMissing(changed, task))
		}

		if err := sameBoard(ctx, tx, op, srcID, dstID); err != nil {
			return struct{}{}, err
		}

		_, srcChanged := ordering.Remove(src, from)
		dst, err := tx.Tasks().ListByColumn(ctx, dstID)
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		ordering.Sort(dst)

		task.ColumnID = dstID
		_, dstChanged := ordering.Insert(dst, task, cmd.Position)
		return struct{}{}, saveTasks(ctx, tx, op, appendMissing(append(srcChanged, dstChanged...), task))
	})
	return err
}

type ChangeTaskStatus struct {
	pipeline.Actor
	taskRef
	Status string

	status models.TaskStatus
}

func NewChangeTaskStatus(userID, taskID int64, body statusBody) *ChangeTaskStatus {
	return &ChangeTaskStatus{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}, Status: body.Status}
}

func (c *ChangeTaskStatus) Validate() error {
	st, ok := models.ParseTaskStatus(c.Status)
	if !ok {
		return apperr.Validation("ChangeTaskStatus", "unknown status %q", c.Status)
	}
	c.status = st
	return nil
}

func (c *ChangeTaskStatus) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "ChangeTaskStatus", access.Editors)
}

func (s *Service) ChangeTaskStatus(ctx context.Context, cmd *ChangeTaskStatus) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *ChangeTaskStatus) (struct{}, error) {
		cmd.task.Status = cmd.status
		return struct{}{}, storeErr("ChangeTaskStatus", "task", tx.Tasks().Update(ctx, cmd.task))
	})
	return err
}

type DeleteTask struct {
	pipeline.Actor
	taskRef
}

func NewDeleteTask(userID, taskID int64) *DeleteTask {
	return &DeleteTask{Actor: pipeline.As(userID), taskRef: taskRef{TaskID: taskID}}
}

func (c *DeleteTask) Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error) {
	return c.require(ctx, tx, "DeleteTask", access.Editors)
}

// DeleteTask removes the task with its comments and closes the gap in its column.
func (s *Service) DeleteTask(ctx context.Context, cmd *DeleteTask) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *DeleteTask) (struct{}, error) {
		const op = "DeleteTask"
		if err := tx.Tasks().Remove(ctx, cmd.TaskID); err != nil {
			return struct{}{}, storeErr(op, "task", err)
		}

		rest, err := tx.Tasks().ListByColumn(ctx, cmd.task.ColumnID)
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		return struct{}{}, saveTasks(ctx, tx, op, ordering.Repack(rest))
	})
	return err
}

// --- helpers ---

func validTask(op, title string, description *string, assignee *int64) (string, *string, error) {
	title, err := requireLine(op, "title", title, maxTitleLen)
	if err != nil {
		return "", nil, err
	}
	description, err = optionalText(op, "description", description, maxTextLen)
	if err != nil {
		return "", nil, err
	}
	if assignee != nil {
		if err := validID(op, "assignedUserId", *assignee); err != nil {
			return "", nil, err
		}
	}
	return title, description, nil
}

func assigneeExists(ctx context.Context, tx store.Tx, op string, userID *int64) error {
	if userID == nil {
		return nil
	}
	_, err := tx.Users().Get(ctx, *userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "assigned user %d not found", *userID)
	}
	return err
}

// sameBoard checks that the destination column exists and shares the board of the
// source column.
func sameBoard(ctx context.Context, tx store.Tx, op string, srcID, dstID int64) error {
	srcBoard, err := boardOfColumn(ctx, tx, op, srcID)
	if err != nil {
		return err
	}
	dst, err := tx.Columns().Get(ctx, dstID)
	if err != nil {
		return storeErr(op, "destination column", err)
	}
	if dst.BoardID != srcBoard {
		return apperr.Validation(op, "destination column belongs to another board")
	}
	return nil
}

// appendMissing adds t to tasks unless it is already listed.
func appendMissing(tasks []*models.TaskItem, t *models.TaskItem) []*models.TaskItem {
	if slices.Contains(tasks, t) {
		return tasks
	}
	return append(tasks, t)
}

func saveTasks(ctx context.Context, tx store.Tx, op string, tasks []*models.TaskItem) error {
	for _, t := range tasks {
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return storeErr(op, "task", err)
		}
	}
	return nil
}
