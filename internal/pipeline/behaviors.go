package pipeline

import (
	"context"
	"errors"
	"fmt"

	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/store"
)

// InputValidation runs the request's own Validate method before any lookup, so
// malformed input is reported the same way whoever sends it.
type InputValidation struct{}

func (InputValidation) Name() string { return "validation" }

func (InputValidation) Handle(ctx context.Context, tx store.Tx, req any, next Next) error {
	if r, ok := req.(Validatable); ok {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return next(ctx)
}

// UserExistence rejects requests whose caller no longer exists.
type UserExistence struct{}

func (UserExistence) Name() string { return "user_existence" }

func (UserExistence) Handle(ctx context.Context, tx store.Tx, req any, next Next) error {
	r, ok := req.(UserScoped)
	if !ok {
		return next(ctx)
	}

	u, err := tx.Users().Get(ctx, r.ActorID())
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Unauthorized(OpName(req), "user %d does not exist", r.ActorID())
	}
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", r.ActorID(), err)
	}

	r.SetActor(u)
	return next(ctx)
}

// EntityExistence resolves the entity a request addresses.
type EntityExistence struct{}

func (EntityExistence) Name() string { return "entity_existence" }

func (EntityExistence) Handle(ctx context.Context, tx store.Tx, req any, next Next) error {
	r, ok := req.(EntityScoped)
	if !ok {
		return next(ctx)
	}

	t := r.Target()
	if t.load == nil {
		return next(ctx)
	}
	err := t.load(ctx, tx)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(OpName(req), "%s %d not found", t.Kind, t.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %d: %w", t.Kind, t.ID, err)
	}
	return next(ctx)
}

// BoardAuthorization checks the caller's role on the board the request touches.
// Public boards admit everyone.
type BoardAuthorization struct{}

func (BoardAuthorization) Name() string { return "board_authorization" }

func (BoardAuthorization) Handle(ctx context.Context, tx store.Tx, req any, next Next) error {
	r, ok := req.(BoardScoped)
	if !ok {
		return next(ctx)
	}
	op := OpName(req)

	need, err := r.Authorize(ctx, tx)
	if err != nil {
		return err
	}

	board, err := tx.Boards().Get(ctx, need.BoardID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "board %d not found", need.BoardID)
	}
	if err != nil {
		return fmt.Errorf("failed to load board %d: %w", need.BoardID, err)
	}

	m, err := tx.Members().Get(ctx, r.ActorID(), board.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if aware, ok := req.(MembershipAware); ok && m != nil {
		aware.SetMembership(m)
	}

	if board.IsPublic {
		return next(ctx)
	}
	if m == nil {
		return apperr.Forbidden(op, "not a member of board %d", board.ID)
	}
	if !need.Allows(m.Role) {
		return apperr.Forbidden(op, "role %s may not perform this operation", m.Role)
	}
	return next(ctx)
}
