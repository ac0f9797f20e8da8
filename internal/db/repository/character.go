package repository

import (
	"context"
	"fmt"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/uptrace/bun"
)

type ICharacterRepository interface {
	Repository[models.Character]
	WithTx(tx *bun.Tx) ICharacterRepository
	WithDB(db *bun.DB) ICharacterRepository
	List(ctx context.Context, ownerID string) ([]models.Character, error)
	UpdateImagePath(ctx context.Context, id, ownerID, imagePath string) error
}

type CharacterRepository struct {
	db bun.IDB
}

func NewCharacterRepository(db *bun.DB) ICharacterRepository {
	return &CharacterRepository{db: db}
}

func (r *CharacterRepository) Create(ctx context.Context, character *models.Character) (*models.Character, error) {
	if character == nil {
		return nil, fmt.Errorf("character model is nil")
	}

	if _, err := r.db.NewInsert().Model(character).Exec(ctx); err != nil {
		return nil, err
	}

	return character, nil
}

func (r *CharacterRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Character, error) {
	var character models.Character
	err := r.db.NewSelect().
		Model(&character).
		Where("c.id = ?", id).
		Where("c.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "character")
	}

	return &character, nil
}

func (r *CharacterRepository) List(ctx context.Context, ownerID string) ([]models.Character, error) {
	characters := make([]models.Character, 0)
	err := r.db.NewSelect().
		Model(&characters).
		Where("c.owner_id = ?", ownerID).
		Order("c.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return characters, nil
}

func (r *CharacterRepository) UpdateImagePath(ctx context.Context, id, ownerID, imagePath string) error {
	res, err := r.db.NewUpdate().
		Model((*models.Character)(nil)).
		Set("image_path = ?", imagePath).
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
		return types.NotFound("character")
	}

	return nil
}

func (r *CharacterRepository) DeleteByID(ctx context.Context, id, ownerID string) error {
	res, err := r.db.NewDelete().
		Model((*models.Character)(nil)).
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
		return types.NotFound("character")
	}

	return nil
}

func (r *CharacterRepository) WithTx(tx *bun.Tx) ICharacterRepository {
	return &CharacterRepository{db: tx}
}

func (r *CharacterRepository) WithDB(db *bun.DB) ICharacterRepository {
	return &CharacterRepository{db: db}
}
