package uow

import (
	"context"

	"github.com/kirinyoku/vastore/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW runs a unit of work against a repository.Store and defers side effects
// such as cache invalidation until the work has committed.
type UoW struct {
	store repository.Store
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction. Hooks registered through after run in
// order once the commit succeeded and are dropped when fn fails. A replayed
// transaction starts with an empty hook list.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		hooks = hooks[:0]
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
