package repository

import (
	"context"
	"fmt"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/uptrace/bun"
)

type IContentPlanRepository interface {
	Repository[models.ContentPlan]
	WithTx(tx *bun.Tx) IContentPlanRepository
	WithDB(db *bun.DB) IContentPlanRepository
	// List returns the owner's plans newest first; an empty characterID lists all of them.
	List(ctx context.Context, ownerID, characterID string) ([]models.ContentPlan, error)
	DeleteByCharacter(ctx context.Context, characterID, ownerID string) error
}

type ContentPlanRepository struct {
	db bun.IDB
}

func NewContentPlanRepository(db *bun.DB) IContentPlanRepository {
	return &ContentPlanRepository{db: db}
}

func (r *ContentPlanRepository) Create(ctx context.Context, plan *models.ContentPlan) (*models.ContentPlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("content plan model is nil")
	}

	if _, err := r.db.NewInsert().Model(plan).Exec(ctx); err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *ContentPlanRepository) GetByID(ctx context.Context, id, ownerID string) (*models.ContentPlan, error) {
	var plan models.ContentPlan
	err := r.db.NewSelect().
		Model(&plan).
		Where("cp.id = ?", id).
		Where("cp.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "content plan")
	}

	return &plan, nil
}

func (r *ContentPlanRepository) List(ctx context.Context, ownerID, characterID string) ([]models.ContentPlan, error) {
	plans := make([]models.ContentPlan, 0)
	q := r.db.NewSelect().
		Model(&plans).
		Where("cp.owner_id = ?", ownerID)
	if characterID != "" {
		q = q.Where("cp.character_id = ?", characterID)
	}

	if err := q.Order("cp.created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *ContentPlanRepository) DeleteByID(ctx context.Context, id, ownerID string) error {
	res, err := r.db.NewDelete().
		Model((*models.ContentPlan)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return err
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return types.NotFound("content plan")
	}

	return nil
}

func (r *ContentPlanRepository) DeleteByCharacter(ctx context.Context, characterID, ownerID string) error {
	_, err := r.db.NewDelete().
		Model((*models.ContentPlan)(nil)).
		Where("character_id = ?", characterID).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	return err
}

func (r *ContentPlanRepository) WithTx(tx *bun.Tx) IContentPlanRepository {
	return &ContentPlanRepository{db: tx}
}

func (r *ContentPlanRepository) WithDB(db *bun.DB) IContentPlanRepository {
	return &ContentPlanRepository{db: db}
}
