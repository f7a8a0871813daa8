package db

import (
	"context"
	"time"

	"echodeed/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupportPostRepository struct {
	db *gorm.DB
}

func NewSupportPostRepository(db *gorm.DB) *SupportPostRepository {
	return &SupportPostRepository{db: db}
}

func (r *SupportPostRepository) Create(ctx context.Context, post domain.SupportPost) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	model := SupportPostModel{
		ID:        post.ID,
		SchoolID:  post.SchoolID,
		UserID:    post.UserID,
		Body:      post.Body,
		Severity:  post.Severity,
		Flagged:   post.Flagged,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return post.ID, nil
}

// ListFlagged returns the counselor review queue, most recent first.
func (r *SupportPostRepository) ListFlagged(ctx context.Context, limit int) ([]domain.SupportPost, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	var models []SupportPostModel
	err := r.db.WithContext(ctx).
		Where("flagged = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	posts := make([]domain.SupportPost, 0, len(models))
	for _, model := range models {
		posts = append(posts, domain.SupportPost{
			ID:       model.ID,
			SchoolID: model.SchoolID,
			UserID:   model.UserID,
			Body:     model.Body,
			Severity: model.Severity,
			Flagged:  model.Flagged,
		})
	}
	return posts, nil
}

type EmergencyContactRepository struct {
	db *gorm.DB
}

func NewEmergencyContactRepository(db *gorm.DB) *EmergencyContactRepository {
	return &EmergencyContactRepository{db: db}
}

func (r *EmergencyContactRepository) GetByStudent(ctx context.Context, studentID string) (*domain.EmergencyContact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model EmergencyContactModel
	if err := r.db.WithContext(ctx).First(&model, "student_id = ?", studentID).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &domain.EmergencyContact{
		StudentID: model.StudentID,
		Name:      model.Name,
		Phone:     model.Phone,
		Relation:  model.Relation,
	}, nil
}
