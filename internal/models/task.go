package models

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "ToDo"
	StatusInProgress TaskStatus = "InProgress"
	StatusDone       TaskStatus = "Done"
)

var taskStatuses = []TaskStatus{StatusToDo, StatusInProgress, StatusDone}

// ParseTaskStatus matches s against the status names, ignoring case.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range taskStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// TaskItem is a unit of work inside a column. Position is dense and zero based per column.
type TaskItem struct {
	ID             int64      `gorm:"primaryKey" json:"id" db:"id"`
	Title          string     `gorm:"not null" json:"title" db:"title"`
	Description    *string    `json:"description,omitempty" db:"description"`
	Position       int        `gorm:"not null" json:"position" db:"position"`
	Status         TaskStatus `gorm:"type:varchar(16);not null" json:"status" db:"status"`
	ColumnID       int64      `gorm:"not null;index" json:"columnId" db:"column_id"`
	AssignedUserID *int64     `gorm:"index" json:"assignedUserId,omitempty" db:"assigned_user_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`

	Column       *Column `gorm:"constraint:OnDelete:CASCADE" json:"-" db:"-"`
	AssignedUser *User   `gorm:"foreignKey:AssignedUserID;constraint:OnDelete:SET NULL" json:"-" db:"-"`
}

func (TaskItem) TableName() string { return "task_items" }

func (t *TaskItem) GetPosition() int  { return t.Position }
func (t *TaskItem) SetPosition(p int) { t.Position = p }

type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id" db:"id"`
	Content   string    `gorm:"not null" json:"content" db:"content"`
	TaskID    int64     `gorm:"not null;index" json:"taskId" db:"task_id"`
	AuthorID  int64     `gorm:"not null;index" json:"authorId" db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Task   *TaskItem `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-" db:"-"`
	Author *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-" db:"-"`
}

func (Comment) TableName() string { return "comments" }
