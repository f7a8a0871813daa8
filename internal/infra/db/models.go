package db

import "time"

type ClaimCodeModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	OfferID    string `gorm:"type:uuid;index;not null"`
	CodeHash   string `gorm:"uniqueIndex;not null"`
	RedeemedBy string
	RedeemedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (ClaimCodeModel) TableName() string { return "claim_codes" }

type RewardPartnerModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	PartnerType string    `gorm:"not null"`
	APIKey      string    `gorm:"column:api_key"`
	APIEndpoint string    `gorm:"column:api_endpoint"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (RewardPartnerModel) TableName() string { return "reward_partners" }

type RewardOfferModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	PartnerID  string    `gorm:"type:uuid;index;not null"`
	Title      string    `gorm:"not null"`
	OfferType  string    `gorm:"index;not null"`
	OfferValue string    `gorm:"not null"`
	EchoCost   int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (RewardOfferModel) TableName() string { return "reward_offers" }

type RewardRedemptionModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	OfferID        string    `gorm:"type:uuid;index;not null"`
	UserID         string    `gorm:"type:uuid;index;not null"`
	EchoesSpent    int64     `gorm:"not null"`
	Status         string    `gorm:"index;not null"`
	ExternalID     string    `gorm:"column:external_id"`
	RedemptionCode string
	LastError      string
	CreatedAt      time.Time `gorm:"not null"`
	FulfilledAt    *time.Time
}

func (RewardRedemptionModel) TableName() string { return "reward_redemptions" }

type SupportPostModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	SchoolID  string    `gorm:"index;not null"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Body      string    `gorm:"not null"`
	Severity  string    `gorm:"index;not null"`
	Flagged   bool      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SupportPostModel) TableName() string { return "support_posts" }

type EmergencyContactModel struct {
	StudentID string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"not null"`
	Relation  string
	CreatedAt time.Time `gorm:"not null"`
}

func (EmergencyContactModel) TableName() string { return "emergency_contacts" }
