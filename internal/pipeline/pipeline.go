// Package pipeline runs board operations through an ordered chain of checks inside a
// single store transaction before their handler executes.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"kyri56xcaesar/kanban/internal/store"
)

// Next continues the chain with the following behavior, or the handler.
type Next func(ctx context.Context) error

// Behavior is one stage of the chain. A behavior that does not apply to req just
// calls next.
type Behavior interface {
	Name() string
	Handle(ctx context.Context, tx store.Tx, req any, next Next) error
}

// Handler carries out an operation once every behavior has passed.
type Handler[Req, Res any] func(ctx context.Context, tx store.Tx, req Req) (Res, error)

// Observer is told which behavior rejected a request and why.
type Observer func(behavior string, req any, err error)

type Pipeline struct {
	store     store.Store
	behaviors []Behavior
	observer  Observer
}

// New builds a pipeline that runs behaviors in the given order.
func New(s store.Store, behaviors ...Behavior) *Pipeline {
	return &Pipeline{store: s, behaviors: behaviors}
}

// Default builds the standard chain: input validation, user existence, entity existence
// and board authorization.
func Default(s store.Store) *Pipeline {
	return New(s, InputValidation{}, UserExistence{}, EntityExistence{}, BoardAuthorization{})
}

func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	p.observer = o
	return p
}

func (p *Pipeline) Store() store.Store {
	return p.store
}

// Send dispatches req through the behaviors and then h, all inside one transaction.
// Any error stops the chain and rolls the transaction back.
func Send[Req, Res any](ctx context.Context, p *Pipeline, req Req, h Handler[Req, Res]) (Res, error) {
	var res Res
	err := p.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		chain := Next(func(ctx context.Context) error {
			var err error
			res, err = h(ctx, tx, req)
			return err
		})
		for i := len(p.behaviors) - 1; i >= 0; i-- {
			chain = p.wrap(p.behaviors[i], tx, req, chain)
		}
		return chain(ctx)
	})
	if err != nil {
		var zero Res
		return zero, err
	}
	return res, nil
}

func (p *Pipeline) wrap(b Behavior, tx store.Tx, req any, next Next) Next {
	return func(ctx context.Context) error {
		passed := false
		err := b.Handle(ctx, tx, req, func(ctx context.Context) error {
			passed = true
			return next(ctx)
		})
		if err != nil && !passed && p.observer != nil {
			p.observer(b.Name(), req, err)
		}
		return err
	}
}

// OpName is the operation name used in errors raised for req, e.g. "MoveTask".
func OpName(req any) string {
	name := fmt.Sprintf("%T", req)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
