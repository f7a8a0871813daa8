package db

import (
	"context"
	"errors"
	"time"

	"echodeed/internal/domain"

	"gorm.io/gorm"
)

type ClaimCodeRepository struct {
	db *gorm.DB
}

func NewClaimCodeRepository(db *gorm.DB) *ClaimCodeRepository {
	return &ClaimCodeRepository{db: db}
}

func (r *ClaimCodeRepository) Create(ctx context.Context, code domain.ClaimCode) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ClaimCodeModel{
		ID:        code.ID,
		OfferID:   code.OfferID,
		CodeHash:  code.CodeHash,
		CreatedAt: code.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ClaimCodeRepository) GetByHash(ctx context.Context, codeHash string) (*domain.ClaimCode, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ClaimCodeModel
	err := r.db.WithContext(ctx).First(&model, "code_hash = ?", codeHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return claimCodeFromModel(model), nil
}

func (r *ClaimCodeRepository) MarkRedeemed(ctx context.Context, id, userID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&ClaimCodeModel{}).
		Where("id = ? AND redeemed_at IS NULL", id).
		Updates(map[string]any{"redeemed_by": userID, "redeemed_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrClaimCodeRedeemed
	}
	return nil
}

func claimCodeFromModel(model ClaimCodeModel) *domain.ClaimCode {
	return &domain.ClaimCode{
		ID:         model.ID,
		OfferID:    model.OfferID,
		CodeHash:   model.CodeHash,
		RedeemedBy: model.RedeemedBy,
		RedeemedAt: model.RedeemedAt,
		CreatedAt:  model.CreatedAt,
	}
}
