package fulfillment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"echodeed/internal/domain"
)

const (
	discountAPIRetry       = 120 * time.Second
	discountTransportRetry = 180 * time.Second
)

// DiscountCodeProvider issues discount codes. Partners without an API
// integration get a deterministic offline code; nothing leaves the
// process in that mode.
type DiscountCodeProvider struct {
	client *http.Client
}

func NewDiscountCodeProvider(timeout time.Duration) *DiscountCodeProvider {
	return &DiscountCodeProvider{client: newHTTPClient(timeout)}
}

// staticDiscountCode synthesizes {PCT|USD}{value}-{last6(id)}: an offer
// value of "15%" with a redemption id ending in "abc123" yields
// "PCT15-ABC123".
func staticDiscountCode(offerValue, redemptionID string) string {
	prefix := "USD"
	if strings.Contains(offerValue, "%") {
		prefix = "PCT"
	}
	return prefix + formatValue(numericValue(offerValue)) + "-" + idSuffix(redemptionID, 6)
}

func (p *DiscountCodeProvider) ProcessRedemption(ctx context.Context, offer domain.RewardOffer, partner domain.RewardPartner, redemption domain.RewardRedemption) domain.FulfillmentResult {
	if partner.APIEndpoint == "" || partner.APIKey == "" {
		return domain.FulfillmentResult{
			Success:        true,
			RedemptionCode: staticDiscountCode(offer.OfferValue, redemption.ID),
		}
	}

	payload := map[string]any{
		"offer_value": offer.OfferValue,
		"reference":   redemption.ID,
	}
	status, body, err := postJSON(ctx, p.client, partner.APIEndpoint+"/discount-codes", partner.APIKey, payload)
	if err != nil {
		return domain.FulfillmentResult{
			Error:      "discount code request failed: " + err.Error(),
			RetryAfter: discountTransportRetry,
		}
	}
	if status < 200 || status >= 300 {
		return domain.FulfillmentResult{
			Error:      apiError(body, status),
			RetryAfter: discountAPIRetry,
		}
	}

	return domain.FulfillmentResult{
		Success:        true,
		ExternalID:     stringField(body, "id"),
		RedemptionCode: stringField(body, "code", "discount_code"),
	}
}

func (p *DiscountCodeProvider) CheckRedemptionStatus(_ context.Context, partner domain.RewardPartner, redemptionID, externalID string) domain.RedemptionStatus {
	// Offline codes are delivered at issue time; the partner holds no
	// state to query.
	if partner.APIEndpoint == "" || externalID == "" {
		return domain.RedemptionStatus{Status: "delivered"}
	}
	return domain.RedemptionStatus{Status: "unknown"}
}

func (p *DiscountCodeProvider) HandleWebhook(_ context.Context, payload map[string]any, _ domain.RewardPartner) domain.WebhookResult {
	redemptionID := stringField(payload, "reference", "redemption_id")
	if redemptionID == "" {
		return domain.WebhookResult{Error: "webhook payload missing reference"}
	}
	state := stringField(payload, "status", "event")
	if state == "" {
		state = "pending"
	}
	return domain.WebhookResult{
		Handled:      true,
		RedemptionID: redemptionID,
		Status:       state,
	}
}
