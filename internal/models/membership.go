package models

import (
	"strings"
	"time"
)

// BoardRole is the access level a user holds on one board.
type BoardRole string

const (
	BoardOwner  BoardRole = "Owner"
	BoardEditor BoardRole = "Editor"
	BoardMember BoardRole = "Member"
	BoardViewer BoardRole = "Viewer"
)

var boardRoles = []BoardRole{BoardOwner, BoardEditor, BoardMember, BoardViewer}

func ParseBoardRole(s string) (BoardRole, bool) {
	s = strings.TrimSpace(s)
	for _, r := range boardRoles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// UserBoard binds a user to a board. The pair (UserID, BoardID) is the key.
type UserBoard struct {
	UserID   int64     `gorm:"primaryKey;autoIncrement:false" json:"userId" db:"user_id"`
	BoardID  int64     `gorm:"primaryKey;autoIncrement:false;index" json:"boardId" db:"board_id"`
	Role     BoardRole `gorm:"type:varchar(16);not null" json:"role" db:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joinedAt" db:"joined_at"`

	User  *User  `gorm:"constraint:OnDelete:CASCADE" json:"-" db:"-"`
	Board *Board `gorm:"constraint:OnDelete:CASCADE" json:"-" db:"-"`
}

func (UserBoard) TableName() string { return "user_boards" }
