package repository

import (
	"context"
	"fmt"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/uptrace/bun"
)

type MediaFilter struct {
	CharacterID string
	MediaType   models.MediaType
	IsPortfolio *bool
	Limit       int
}

type IMediaRepository interface {
	Repository[models.Media]
	WithTx(tx *bun.Tx) IMediaRepository
	WithDB(db *bun.DB) IMediaRepository
	GetByJobID(ctx context.Context, jobID string) (*models.Media, error)
	CountByJob(ctx context.Context, jobID string) (int, error)
	List(ctx context.Context, ownerID string, filter MediaFilter) ([]models.Media, error)
	SetPortfolio(ctx context.Context, id, ownerID string, isPortfolio bool) error
	DeleteByCharacter(ctx context.Context, characterID, ownerID string) error
}

type MediaRepository struct {
	db bun.IDB
}

func NewMediaRepository(db *bun.DB) IMediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if media == nil {
		return nil, fmt.Errorf("media model is nil")
	}

	if _, err := r.db.NewInsert().Model(media).Exec(ctx); err != nil {
		return nil, err
	}

	return media, nil
}

func (r *MediaRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Media, error) {
	var media models.Media
	err := r.db.NewSelect().
		Model(&media).
		Where("m.id = ?", id).
		Where("m.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "media")
	}

	return &media, nil
}

func (r *MediaRepository) GetByJobID(ctx context.Context, jobID string) (*models.Media, error) {
	var media models.Media
	if err := r.db.NewSelect().Model(&media).Where("m.job_id = ?", jobID).Scan(ctx); err != nil {
		return nil, notFound(err, "media")
	}

	return &media, nil
}

func (r *MediaRepository) CountByJob(ctx context.Context, jobID string) (int, error) {
	return r.db.NewSelect().Model((*models.Media)(nil)).Where("job_id = ?", jobID).Count(ctx)
}

func (r *MediaRepository) List(ctx context.Context, ownerID string, filter MediaFilter) ([]models.Media, error) {
	media := make([]models.Media, 0)
	q := r.db.NewSelect().
		Model(&media).
		Relation("Character").
		Where("m.owner_id = ?", ownerID).
		Order("m.created_at DESC")

	if filter.CharacterID != "" {
		q = q.Where("m.character_id = ?", filter.CharacterID)
	}
	if filter.MediaType != "" {
		q = q.Where("m.media_type = ?", filter.MediaType)
	}
	if filter.IsPortfolio != nil {
		q = q.Where("m.is_portfolio = ?", *filter.IsPortfolio)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return media, nil
}

func (r *MediaRepository) SetPortfolio(ctx context.Context, id, ownerID string, isPortfolio bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.Media)(nil)).
		Set("is_portfolio = ?", isPortfolio).
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
		return types.NotFound("media")
	}

	return nil
}

func (r *MediaRepository) DeleteByID(ctx context.Context, id, ownerID string) error {
	res, err := r.db.NewDelete().
		Model((*models.Media)(nil)).
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
		return types.NotFound("media")
	}

	return nil
}

func (r *MediaRepository) DeleteByCharacter(ctx context.Context, characterID, ownerID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Media)(nil)).
		Where("character_id = ?", characterID).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	return err
}

func (r *MediaRepository) WithTx(tx *bun.Tx) IMediaRepository {
	return &MediaRepository{db: tx}
}

func (r *MediaRepository) WithDB(db *bun.DB) IMediaRepository {
	return &MediaRepository{db: db}
}
