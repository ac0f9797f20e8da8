package repository

import (
	"context"

	"github.com/uptrace/bun"
)

// Store groups the repositories that share one database handle so that
// multi-table writes can run in a single transaction.
type Store struct {
	db         *bun.DB
	Jobs       IJobRepository
	Media      IMediaRepository
	Characters ICharacterRepository
	Events     IJobEventRepository
	Plans      IContentPlanRepository
}

func NewStore(db *bun.DB) *Store {
	return &Store{
		db:         db,
		Jobs:       NewJobRepository(db),
		Media:      NewMediaRepository(db),
		Characters: NewCharacterRepository(db),
		Events:     NewJobEventRepository(db),
		Plans:      NewContentPlanRepository(db),
	}
}

func (s *Store) DB() *bun.DB {
	return s.db
}

// RunInTx calls fn with a Store whose repositories are bound to one
// transaction. fn must not use the outer Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{
			db:         s.db,
			Jobs:       s.Jobs.WithTx(&tx),
			Media:      s.Media.WithTx(&tx),
			Characters: s.Characters.WithTx(&tx),
			Events:     s.Events.WithTx(&tx),
			Plans:      s.Plans.WithTx(&tx),
		})
	})
}

// DeleteCharacter removes a character together with everything that refers to it.
func (s *Store) DeleteCharacter(ctx context.Context, id, ownerID string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		if _, err := tx.Characters.GetByID(ctx, id, ownerID); err != nil {
			return err
		}
		if err := tx.Media.DeleteByCharacter(ctx, id, ownerID); err != nil {
			return err
		}
		if err := tx.Events.DeleteBySubject(ctx, id, ownerID); err != nil {
			return err
		}
		if err := tx.Jobs.DeleteBySubject(ctx, id, ownerID); err != nil {
			return err
		}
		if err := tx.Plans.DeleteByCharacter(ctx, id, ownerID); err != nil {
			return err
		}
		return tx.Characters.DeleteByID(ctx, id, ownerID)
	})
}
