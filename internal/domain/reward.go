package domain

import (
	"context"
	"time"
)

// RewardOffer is a partner-backed reward a student can spend echoes on.
type RewardOffer struct {
	ID         string
	PartnerID  string
	Title      string
	OfferType  string // "cashback", "gift_card", "freebie", "discount", ...
	OfferValue string // display value, e.g. "20%", "$5"
	EchoCost   int64
}

// RewardPartner carries the external integration credentials for an offer.
// APIKey and APIEndpoint are secrets and must never be logged.
type RewardPartner struct {
	ID          string
	Name        string
	PartnerType string // "cashback", "retail", "food", "wellness", ...
	APIKey      string
	APIEndpoint string
}

// RewardRedemption is an approved spend of echoes awaiting delivery.
type RewardRedemption struct {
	ID          string
	OfferID     string
	UserID      string
	EchoesSpent int64
	Status      string
	CreatedAt   time.Time
}

// FulfillmentResult is the synchronous outcome of one provider attempt.
// RetryAfter is non-zero only when Success is false and the failure is
// considered transient.
type FulfillmentResult struct {
	Success        bool
	ExternalID     string
	RedemptionCode string
	Error          string
	RetryAfter     time.Duration
}

// RedemptionStatus reports the partner-side state of a delivered reward.
type RedemptionStatus struct {
	Status string // "pending", "delivered", "failed", "unknown"
	Error  string
}

// WebhookResult is the outcome of processing an inbound partner callback.
type WebhookResult struct {
	Handled      bool
	RedemptionID string
	Status       string
	Error        string
}

// FulfillmentProvider abstracts one external delivery integration.
// Implementations never return a raised error: every failure is folded
// into the result value so handlers can call providers without recover
// scaffolding.
type FulfillmentProvider interface {
	ProcessRedemption(ctx context.Context, offer RewardOffer, partner RewardPartner, redemption RewardRedemption) FulfillmentResult
	CheckRedemptionStatus(ctx context.Context, partner RewardPartner, redemptionID, externalID string) RedemptionStatus
	HandleWebhook(ctx context.Context, payload map[string]any, partner RewardPartner) WebhookResult
}

// RetryQueueEntry tracks the next retry eligibility for one redemption.
// It is a schedule, not a ledger: concurrent updates are last-write-wins.
type RetryQueueEntry struct {
	RedemptionID string
	RetryAt      time.Time
	Attempts     int
}

// RetryQueue schedules transiently failed redemptions for another attempt.
// Entries are unique by redemption id.
type RetryQueue interface {
	// Schedule upserts the entry for redemptionID: a new entry starts at
	// one attempt, an existing one has retryAt bumped and attempts
	// incremented. Returns the stored entry.
	Schedule(ctx context.Context, redemptionID string, retryAt time.Time) (RetryQueueEntry, error)

	// Due returns entries whose retryAt has elapsed and whose attempts
	// are below maxAttempts.
	Due(ctx context.Context, now time.Time, maxAttempts int) ([]RetryQueueEntry, error)

	// Prune removes entries that are both elapsed and at or above
	// maxAttempts, returning how many were dropped. Entries whose retryAt
	// is still in the future are never pruned.
	Prune(ctx context.Context, now time.Time, maxAttempts int) (int, error)

	// Remove drops the entry for redemptionID if present.
	Remove(ctx context.Context, redemptionID string) error
}

// ClaimCode is a one-time reward claim credential. Only the salted hash is
// stored; the plaintext exists client-side only.
type ClaimCode struct {
	ID         string
	OfferID    string
	CodeHash   string
	RedeemedBy string
	RedeemedAt *time.Time
	CreatedAt  time.Time
}
