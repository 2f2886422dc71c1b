package pipeline

import (
	"context"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/store"
)

// Validatable requests check their own input. Validate should return apperr errors.
type Validatable interface {
	Validate() error
}

// UserScoped requests are issued by an authenticated user that must still exist.
type UserScoped interface {
	ActorID() int64
	SetActor(u *models.User)
}

// EntityScoped requests address one entity that must exist before the handler runs.
type EntityScoped interface {
	Target() Target
}

// BoardScoped requests touch a board and resolve the roles they require on it.
// Authorize runs after the entity stage, so it may use the attached entity.
type BoardScoped interface {
	ActorID() int64
	Authorize(ctx context.Context, tx store.Tx) (access.Requirement, error)
}

// MembershipAware requests receive the caller's membership on the board when one exists.
type MembershipAware interface {
	SetMembership(m *models.UserBoard)
}

// Actor is embedded by commands issued on behalf of a user.
type Actor struct {
	UserID int64 `json:"-"`

	user       *models.User
	membership *models.UserBoard
}

func As(userID int64) Actor {
	return Actor{UserID: userID}
}

func (a *Actor) ActorID() int64                    { return a.UserID }
func (a *Actor) SetActor(u *models.User)           { a.user = u }
func (a *Actor) SetMembership(m *models.UserBoard) { a.membership = m }

// User is the resolved caller, set by the user existence stage.
func (a *Actor) User() *models.User { return a.user }

// Membership is the caller's membership on the addressed board, nil when the caller
// reaches a public board without one.
func (a *Actor) Membership() *models.UserBoard { return a.membership }
