package fulfillment

import (
	"context"
	"net/http"
	"time"

	"echodeed/internal/domain"
)

const (
	cashbackAPIRetry       = 300 * time.Second
	cashbackTransportRetry = 600 * time.Second
)

// CashbackProvider converts spent echoes into a payment transfer through
// the partner's payout API.
type CashbackProvider struct {
	client *http.Client
}

func NewCashbackProvider(timeout time.Duration) *CashbackProvider {
	return &CashbackProvider{client: newHTTPClient(timeout)}
}

func (p *CashbackProvider) ProcessRedemption(ctx context.Context, offer domain.RewardOffer, partner domain.RewardPartner, redemption domain.RewardRedemption) domain.FulfillmentResult {
	amount := roundCents(float64(redemption.EchoesSpent) * echoDollarValue)
	payload := map[string]any{
		"amount":    amount,
		"currency":  "USD",
		"reference": redemption.ID,
	}

	status, body, err := postJSON(ctx, p.client, partner.APIEndpoint+"/transfers", partner.APIKey, payload)
	if err != nil {
		// Transport failures and missing endpoint config funnel through
		// the same path; both get the longer retry delay.
		return domain.FulfillmentResult{
			Error:      "cashback transfer failed: " + err.Error(),
			RetryAfter: cashbackTransportRetry,
		}
	}
	if status < 200 || status >= 300 {
		return domain.FulfillmentResult{
			Error:      apiError(body, status),
			RetryAfter: cashbackAPIRetry,
		}
	}

	transferID := stringField(body, "transfer_id", "id")
	return domain.FulfillmentResult{
		Success:        true,
		ExternalID:     transferID,
		RedemptionCode: "CB-" + idSuffix(transferID, 8),
	}
}

func (p *CashbackProvider) CheckRedemptionStatus(ctx context.Context, partner domain.RewardPartner, redemptionID, externalID string) domain.RedemptionStatus {
	if partner.APIEndpoint == "" || externalID == "" {
		return domain.RedemptionStatus{Status: "unknown"}
	}
	status, body, err := getJSON(ctx, p.client, partner.APIEndpoint+"/transfers/"+externalID, partner.APIKey)
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

func (p *CashbackProvider) HandleWebhook(_ context.Context, payload map[string]any, _ domain.RewardPartner) domain.WebhookResult {
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
