package fulfillment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"echodeed/internal/domain"
)

const (
	giftCardAPIRetry       = 180 * time.Second
	giftCardTransportRetry = 300 * time.Second
)

// GiftCardProvider orders partner gift cards. Delivery is anonymized: the
// partner sees a generic recipient and the redemption reference, never the
// student's identity.
type GiftCardProvider struct {
	client *http.Client
}

func NewGiftCardProvider(timeout time.Duration) *GiftCardProvider {
	return &GiftCardProvider{client: newHTTPClient(timeout)}
}

// giftCardAmount computes the order amount in dollars. An offer value
// containing "%" is a percentage bonus on top of the base conversion:
// "20%" on 1000 echoes is $10.00 * 1.20 = $12.00.
func giftCardAmount(offerValue string, echoesSpent int64) float64 {
	amount := float64(echoesSpent) * echoDollarValue
	if strings.Contains(offerValue, "%") {
		amount *= 1 + numericValue(offerValue)/100
	}
	return roundCents(amount)
}

func (p *GiftCardProvider) ProcessRedemption(ctx context.Context, offer domain.RewardOffer, partner domain.RewardPartner, redemption domain.RewardRedemption) domain.FulfillmentResult {
	payload := map[string]any{
		"amount":    giftCardAmount(offer.OfferValue, redemption.EchoesSpent),
		"recipient": "EchoDeed Student",
		"reference": redemption.ID,
	}

	status, body, err := postJSON(ctx, p.client, partner.APIEndpoint+"/gift-cards", partner.APIKey, payload)
	if err != nil {
		return domain.FulfillmentResult{
			Error:      "gift card order failed: " + err.Error(),
			RetryAfter: giftCardTransportRetry,
		}
	}
	if status < 200 || status >= 300 {
		return domain.FulfillmentResult{
			Error:      apiError(body, status),
			RetryAfter: giftCardAPIRetry,
		}
	}

	return domain.FulfillmentResult{
		Success:        true,
		ExternalID:     stringField(body, "order_id", "id"),
		RedemptionCode: stringField(body, "card_code", "code"),
	}
}

func (p *GiftCardProvider) CheckRedemptionStatus(ctx context.Context, partner domain.RewardPartner, redemptionID, externalID string) domain.RedemptionStatus {
	if partner.APIEndpoint == "" || externalID == "" {
		return domain.RedemptionStatus{Status: "unknown"}
	}
	status, body, err := getJSON(ctx, p.client, partner.APIEndpoint+"/gift-cards/"+externalID, partner.APIKey)
	if err != nil {
		return domain.RedemptionStatus{Status: "unknown", Error: err.Error()}
	}
	if status < 200 || status >= 300 {
		return domain.RedemptionStatus{Status: "unknown", Error: apiError(body, status)}
	}
	state := stringField(body, "status", "state")
	if state == "" {
		state = "pending"
	}
	return domain.RedemptionStatus{Status: state}
}

func (p *GiftCardProvider) HandleWebhook(_ context.Context, payload map[string]any, _ domain.RewardPartner) domain.WebhookResult {
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
