package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"echodeed/internal/domain"
)

const (
	DefaultRetryInterval = 30 * time.Second
	DefaultMaxAttempts   = 5
)

// RetryHook is called by the retry scanner for each redemption whose
// entry has come due. Re-invoking the provider is the integrator's call:
// a direct re-entrant FulfillRedemption needs the offer and partner rows,
// which live with the caller.
type RetryHook func(ctx context.Context, entry domain.RetryQueueEntry)

type FulfillmentConfig struct {
	RetryInterval time.Duration
	MaxAttempts   int
	Now           func() time.Time
	OnRetryDue    RetryHook
}

// RewardFulfillmentService converts approved echo redemptions into
// external rewards by dispatching across pluggable providers, and keeps a
// retry schedule for transiently failed attempts.
type RewardFulfillmentService struct {
	cashback domain.FulfillmentProvider
	giftCard domain.FulfillmentProvider
	discount domain.FulfillmentProvider
	queue    domain.RetryQueue

	retryInterval time.Duration
	maxAttempts   int
	now           func() time.Time
	onRetryDue    RetryHook

	mu   sync.Mutex
	done chan struct{}
}

func NewRewardFulfillmentService(cashback, giftCard, discount domain.FulfillmentProvider, queue domain.RetryQueue, cfg FulfillmentConfig) *RewardFulfillmentService {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RewardFulfillmentService{
		cashback:      cashback,
		giftCard:      giftCard,
		discount:      discount,
		queue:         queue,
		retryInterval: cfg.RetryInterval,
		maxAttempts:   cfg.MaxAttempts,
		now:           cfg.Now,
		onRetryDue:    cfg.OnRetryDue,
	}
}

// DetermineProvider routes on the declared offer type alone. The partner
// record plays no part here; webhook routing keys off the partner type
// instead, and the two tables need not coincide.
func (s *RewardFulfillmentService) DetermineProvider(offerType string) domain.FulfillmentProvider {
	switch offerType {
	case "cashback":
		return s.cashback
	case "gift_card", "freebie":
		return s.giftCard
	default:
		return s.discount
	}
}

// FulfillRedemption runs one synchronous provider attempt. A transient
// failure (result carries a retry delay) is scheduled into the retry
// queue; the result is returned either way and this method never panics
// through to the handler.
func (s *RewardFulfillmentService) FulfillRedemption(ctx context.Context, offer domain.RewardOffer, partner domain.RewardPartner, redemption domain.RewardRedemption) domain.FulfillmentResult {
	provider := s.DetermineProvider(offer.OfferType)
	result := provider.ProcessRedemption(ctx, offer, partner, redemption)
	if result.Success || result.RetryAfter <= 0 {
		return result
	}

	entry, err := s.queue.Schedule(ctx, redemption.ID, s.now().Add(result.RetryAfter))
	if err != nil {
		log.Printf("fulfillment: schedule retry for redemption %s failed: %v", redemption.ID, err)
		return result
	}
	log.Printf("fulfillment: redemption %s scheduled for retry (attempt %d)", redemption.ID, entry.Attempts)
	return result
}

// RedemptionStatus queries the partner-side state through the provider
// matching the offer type.
func (s *RewardFulfillmentService) RedemptionStatus(ctx context.Context, offer domain.RewardOffer, partner domain.RewardPartner, redemptionID, externalID string) domain.RedemptionStatus {
	return s.DetermineProvider(offer.OfferType).CheckRedemptionStatus(ctx, partner, redemptionID, externalID)
}

// HandleWebhook dispatches an inbound partner callback on the partner's
// general category, not the offer type.
func (s *RewardFulfillmentService) HandleWebhook(ctx context.Context, payload map[string]any, partner domain.RewardPartner) domain.WebhookResult {
	var provider domain.FulfillmentProvider
	switch partner.PartnerType {
	case "cashback":
		provider = s.cashback
	case "retail", "food", "wellness":
		provider = s.giftCard
	default:
		provider = s.discount
	}
	return provider.HandleWebhook(ctx, payload, partner)
}

// Start launches the retry scanner loop. Safe to call once; Stop tears
// the loop down.
func (s *RewardFulfillmentService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	go s.run(s.done)
}

func (s *RewardFulfillmentService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.done = nil
}

func (s *RewardFulfillmentService) run(done chan struct{}) {
	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.scanOnce(context.Background())
		}
	}
}

// scanOnce identifies due entries, hands them to the retry hook (or logs
// intent when no hook is wired), then prunes entries that are both
// elapsed and at the attempt cap so dead redemptions do not accumulate.
func (s *RewardFulfillmentService) scanOnce(ctx context.Context) {
	now := s.now()
	due, err := s.queue.Due(ctx, now, s.maxAttempts)
	if err != nil {
		log.Printf("fulfillment: retry scan failed: %v", err)
		return
	}
	for _, entry := range due {
		if s.onRetryDue != nil {
			s.onRetryDue(ctx, entry)
			continue
		}
		log.Printf("fulfillment: redemption %s ready for retry (attempt %d)", entry.RedemptionID, entry.Attempts)
	}
	pruned, err := s.queue.Prune(ctx, now, s.maxAttempts)
	if err != nil {
		log.Printf("fulfillment: retry prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("fulfillment: abandoned %d redemption(s) at attempt cap", pruned)
	}
}
