// Package access holds the board role sets operations require.
package access

import (
	"slices"

	"kyri56xcaesar/kanban/internal/models"
)

// Role sets. An empty set admits any membership role.
var (
	Readers    = []models.BoardRole{}
	Commenters = []models.BoardRole{models.BoardOwner, models.BoardEditor, models.BoardMember}
	Editors    = []models.BoardRole{models.BoardOwner, models.BoardEditor}
	Owners     = []models.BoardRole{models.BoardOwner}
)

// Requirement names the board an operation touches and the roles allowed to perform it.
type Requirement struct {
	BoardID int64
	Roles   []models.BoardRole
}

func Require(boardID int64, roles []models.BoardRole) Requirement {
	return Requirement{BoardID: boardID, Roles: roles}
}

func (r Requirement) Allows(role models.BoardRole) bool {
	if len(r.Roles) == 0 {
		return true
	}
	return slices.Contains(r.Roles, role)
}

// IsOwner reports whether m is the owning membership. A nil membership is not.
func IsOwner(m *models.UserBoard) bool {
	return m != nil && m.Role == models.BoardOwner
}
