package db

import (
	"context"
	"errors"
	"time"

	"echodeed/internal/domain"

	"gorm.io/gorm"
)

type RewardPartnerRepository struct {
	db *gorm.DB
}

func NewRewardPartnerRepository(db *gorm.DB) *RewardPartnerRepository {
	return &RewardPartnerRepository{db: db}
}

func (r *RewardPartnerRepository) GetByID(ctx context.Context, id string) (*domain.RewardPartner, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RewardPartnerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return partnerFromModel(model), nil
}

func (r *RewardPartnerRepository) GetByName(ctx context.Context, name string) (*domain.RewardPartner, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RewardPartnerModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return partnerFromModel(model), nil
}

type RewardOfferRepository struct {
	db *gorm.DB
}

func NewRewardOfferRepository(db *gorm.DB) *RewardOfferRepository {
	return &RewardOfferRepository{db: db}
}

func (r *RewardOfferRepository) GetByID(ctx context.Context, id string) (*domain.RewardOffer, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RewardOfferModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &domain.RewardOffer{
		ID:         model.ID,
		PartnerID:  model.PartnerID,
		Title:      model.Title,
		OfferType:  model.OfferType,
		OfferValue: model.OfferValue,
		EchoCost:   model.EchoCost,
	}, nil
}

type RewardRedemptionRepository struct {
	db *gorm.DB
}

func NewRewardRedemptionRepository(db *gorm.DB) *RewardRedemptionRepository {
	return &RewardRedemptionRepository{db: db}
}

func (r *RewardRedemptionRepository) GetByID(ctx context.Context, id string) (*domain.RewardRedemption, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RewardRedemptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &domain.RewardRedemption{
		ID:          model.ID,
		OfferID:     model.OfferID,
		UserID:      model.UserID,
		EchoesSpent: model.EchoesSpent,
		Status:      model.Status,
		CreatedAt:   model.CreatedAt,
	}, nil
}

// RecordResult persists one fulfillment attempt's outcome. Partner error
// strings stay internal; handlers surface a generic message instead.
func (r *RewardRedemptionRepository) RecordResult(ctx context.Context, id string, result domain.FulfillmentResult, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{"last_error": result.Error}
	if result.Success {
		updates["status"] = "fulfilled"
		updates["external_id"] = result.ExternalID
		updates["redemption_code"] = result.RedemptionCode
		updates["fulfilled_at"] = at
	} else if result.RetryAfter > 0 {
		updates["status"] = "retrying"
	} else {
		updates["status"] = "failed"
	}
	return r.db.WithContext(ctx).
		Model(&RewardRedemptionModel{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func partnerFromModel(model RewardPartnerModel) *domain.RewardPartner {
	return &domain.RewardPartner{
		ID:          model.ID,
		Name:        model.Name,
		PartnerType: model.PartnerType,
		APIKey:      model.APIKey,
		APIEndpoint: model.APIEndpoint,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
