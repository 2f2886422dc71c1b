package kanban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kyri56xcaesar/kanban/internal/access"
	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/notify"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
)

type addMemberBody struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type roleBody struct {
	Role string `json:"role" binding:"required"`
}

// Member is a membership joined with the user it belongs to.
type Member struct {
	UserID   int64            `json:"userId"`
	UserName string           `json:"userName"`
	Email    string           `json:"email"`
	Role     models.BoardRole `json:"role"`
	JoinedAt time.Time        `json:"joinedAt"`
}

// ownerOnly is embedded by the membership management commands. They require the
// Owners role set and, since public boards skip role checks, an owning membership.
type ownerOnly struct {
	pipeline.Actor
	boardRef

	notices []notify.Message
}

func (o *ownerOnly) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(o.BoardID, access.Owners), nil
}

func (o *ownerOnly) checkOwner(op string) error {
	if !access.IsOwner(o.Membership()) {
		return apperr.Forbidden(op, "only the board owner may manage members")
	}
	return nil
}

func (o *ownerOnly) notice(to, subject, format string, args ...any) {
	o.notices = append(o.notices, notify.Message{To: to, Subject: subject, Body: fmt.Sprintf(format, args...)})
}

func (o *ownerOnly) notSelf(op string, userID int64) error {
	if userID == o.ActorID() {
		return apperr.Validation(op, "this operation cannot target yourself")
	}
	return nil
}

type ListMembers struct {
	pipeline.Actor
	boardRef
}

func NewListMembers(userID, boardID int64) *ListMembers {
	return &ListMembers{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}}
}

func (q *ListMembers) Authorize(context.Context, store.Tx) (access.Requirement, error) {
	return access.Require(q.BoardID, access.Readers), nil
}

func (s *Service) ListMembers(ctx context.Context, q *ListMembers) ([]Member, error) {
	return pipeline.Send(ctx, s.pipe, q, func(ctx context.Context, tx store.Tx, q *ListMembers) ([]Member, error) {
		ms, err := tx.Members().ListByBoard(ctx, q.BoardID)
		if err != nil {
			return nil, fmt.Errorf("ListMembers: %w", err)
		}

		out := make([]Member, 0, len(ms))
		for _, m := range ms {
			u, err := tx.Users().Get(ctx, m.UserID)
			if err != nil {
				return nil, storeErr("ListMembers", "user", err)
			}
			out = append(out, Member{UserID: u.ID, UserName: u.Username, Email: u.Email, Role: m.Role, JoinedAt: m.JoinedAt})
		}
		return out, nil
	})
}

type AddMember struct {
	ownerOnly
	Email string
	Role  string

	role models.BoardRole
}

func NewAddMember(userID, boardID int64, body addMemberBody) *AddMember {
	return &AddMember{
		ownerOnly: ownerOnly{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}},
		Email:     body.Email,
		Role:      body.Role,
	}
}

func (c *AddMember) Validate() (err error) {
	const op = "AddMember"
	if c.Email, err = validEmail(op, c.Email); err != nil {
		return err
	}
	c.role, err = assignableRole(op, c.Role)
	return err
}

// AddMember grants an existing user a role on the board.
func (s *Service) AddMember(ctx context.Context, cmd *AddMember) (*Member, error) {
	m, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *AddMember) (*Member, error) {
		const op = "AddMember"
		if err := cmd.checkOwner(op); err != nil {
			return nil, err
		}

		u, err := tx.Users().GetByEmail(ctx, cmd.Email)
		if err != nil {
			return nil, storeErr(op, "user "+cmd.Email, err)
		}

		_, err = tx.Members().Get(ctx, u.ID, cmd.BoardID)
		if err == nil {
			return nil, apperr.Conflict(op, "%s is already a member of this board", u.Email)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		ub := &models.UserBoard{UserID: u.ID, BoardID: cmd.BoardID, Role: cmd.role, JoinedAt: time.Now().UTC()}
		if err := tx.Members().Add(ctx, ub); err != nil {
			return nil, storeErr(op, "membership", err)
		}

		cmd.notice(u.Email, "You were added to "+cmd.board.Name,
			"Hi %s,\n\nyou were added to the board %q as %s.\n", u.Username, cmd.board.Name, ub.Role)
		return &Member{UserID: u.ID, UserName: u.Username, Email: u.Email, Role: ub.Role, JoinedAt: ub.JoinedAt}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, cmd.notices...)
	return m, nil
}

type RemoveMember struct {
	ownerOnly
	UserID int64
}

func NewRemoveMember(userID, boardID, memberID int64) *RemoveMember {
	return &RemoveMember{
		ownerOnly: ownerOnly{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}},
		UserID:    memberID,
	}
}

func (c *RemoveMember) Validate() error {
	if err := validID("RemoveMember", "userId", c.UserID); err != nil {
		return err
	}
	return c.notSelf("RemoveMember", c.UserID)
}

func (s *Service) RemoveMember(ctx context.Context, cmd *RemoveMember) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *RemoveMember) (struct{}, error) {
		const op = "RemoveMember"
		if err := cmd.checkOwner(op); err != nil {
			return struct{}{}, err
		}

		u, err := tx.Users().Get(ctx, cmd.UserID)
		if err != nil {
			return struct{}{}, storeErr(op, "user", err)
		}
		if err := tx.Members().Remove(ctx, cmd.UserID, cmd.BoardID); err != nil {
			return struct{}{}, storeErr(op, "membership", err)
		}

		cmd.notice(u.Email, "You were removed from "+cmd.board.Name,
			"Hi %s,\n\nyou are no longer a member of the board %q.\n", u.Username, cmd.board.Name)
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, cmd.notices...)
	return nil
}

type ChangeMemberRole struct {
	ownerOnly
	UserID int64
	Role   string

	role models.BoardRole
}

func NewChangeMemberRole(userID, boardID, memberID int64, body roleBody) *ChangeMemberRole {
	return &ChangeMemberRole{
		ownerOnly: ownerOnly{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}},
		UserID:    memberID,
		Role:      body.Role,
	}
}

func (c *ChangeMemberRole) Validate() (err error) {
	const op = "ChangeMemberRole"
	if err := validID(op, "userId", c.UserID); err != nil {
		return err
	}
	if c.role, err = assignableRole(op, c.Role); err != nil {
		return err
	}
	return c.notSelf(op, c.UserID)
}

func (s *Service) ChangeMemberRole(ctx context.Context, cmd *ChangeMemberRole) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *ChangeMemberRole) (struct{}, error) {
		const op = "ChangeMemberRole"
		if err := cmd.checkOwner(op); err != nil {
			return struct{}{}, err
		}

		m, err := tx.Members().Get(ctx, cmd.UserID, cmd.BoardID)
		if err != nil {
			return struct{}{}, storeErr(op, "membership", err)
		}
		u, err := tx.Users().Get(ctx, cmd.UserID)
		if err != nil {
			return struct{}{}, storeErr(op, "user", err)
		}

		m.Role = cmd.role
		if err := tx.Members().Update(ctx, m); err != nil {
			return struct{}{}, storeErr(op, "membership", err)
		}

		cmd.notice(u.Email, "Your role on "+cmd.board.Name+" changed",
			"Hi %s,\n\nyour role on the board %q is now %s.\n", u.Username, cmd.board.Name, m.Role)
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, cmd.notices...)
	return nil
}

type TransferOwnership struct {
	ownerOnly
	UserID int64
}

func NewTransferOwnership(userID, boardID, memberID int64) *TransferOwnership {
	return &TransferOwnership{
		ownerOnly: ownerOnly{Actor: pipeline.As(userID), boardRef: boardRef{BoardID: boardID}},
		UserID:    memberID,
	}
}

func (c *TransferOwnership) Validate() error {
	if err := validID("TransferOwnership", "userId", c.UserID); err != nil {
		return err
	}
	return c.notSelf("TransferOwnership", c.UserID)
}

// TransferOwnership makes another member the Owner and the current owner an Editor,
// in one transaction.
func (s *Service) TransferOwnership(ctx context.Context, cmd *TransferOwnership) error {
	_, err := pipeline.Send(ctx, s.pipe, cmd, func(ctx context.Context, tx store.Tx, cmd *TransferOwnership) (struct{}, error) {
		const op = "TransferOwnership"
		if err := cmd.checkOwner(op); err != nil {
			return struct{}{}, err
		}

		target, err := tx.Members().Get(ctx, cmd.UserID, cmd.BoardID)
		if errors.Is(err, store.ErrNotFound) {
			return struct{}{}, apperr.NotFound(op, "user %d is not a member of this board", cmd.UserID)
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", op, err)
		}
		u, err := tx.Users().Get(ctx, cmd.UserID)
		if err != nil {
			return struct{}{}, storeErr(op, "user", err)
		}

		old := cmd.Membership()
		old.Role = models.BoardEditor
		if err := tx.Members().Update(ctx, old); err != nil {
			return struct{}{}, storeErr(op, "membership", err)
		}
		target.Role = models.BoardOwner
		if err := tx.Members().Update(ctx, target); err != nil {
			return struct{}{}, storeErr(op, "membership", err)
		}

		cmd.notice(u.Email, "You now own "+cmd.board.Name,
			"Hi %s,\n\nownership of the board %q was transferred to you.\n", u.Username, cmd.board.Name)
		cmd.notice(cmd.User().Email, "You transferred "+cmd.board.Name,
			"Hi %s,\n\nyou transferred the board %q to %s. You remain an Editor.\n", cmd.User().Username, cmd.board.Name, u.Username)
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, cmd.notices...)
	return nil
}

// assignableRole parses a role that may be granted through membership management.
// Owner is only reachable through an ownership transfer.
func assignableRole(op, s string) (models.BoardRole, error) {
	role, ok := models.ParseBoardRole(s)
	if !ok {
		return "", apperr.Validation(op, "unknown role %q", s)
	}
	if role == models.BoardOwner {
		return "", apperr.Validation(op, "the Owner role can only be granted by transferring ownership")
	}
	return role, nil
}
