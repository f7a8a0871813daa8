package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"echodeed/internal/domain"
)

func TestCashbackProcessRedemptionSuccess(t *testing.T) {
	var gotPayload map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{"transfer_id": "tr_123456789"})
	}))
	defer srv.Close()

	p := NewCashbackProvider(time.Second)
	result := p.ProcessRedemption(context.Background(),
		domain.RewardOffer{OfferType: "cashback"},
		domain.RewardPartner{APIKey: "sk_test", APIEndpoint: srv.URL},
		domain.RewardRedemption{ID: "red-1", EchoesSpent: 1000},
	)

	if !result.Success {
		t.Fatalf("result not successful: %s", result.Error)
	}
	if result.ExternalID != "tr_123456789" {
		t.Fatalf("external id = %q", result.ExternalID)
	}
	if result.RedemptionCode != "CB-23456789" {
		t.Fatalf("redemption code = %q, want CB-23456789", result.RedemptionCode)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPayload["amount"] != 10.0 {
		t.Fatalf("amount = %v, want 10 (1000 echoes at $0.01)", gotPayload["amount"])
	}
}

func TestCashbackProcessRedemptionAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"error": "upstream busy"})
	}))
	defer srv.Close()

	p := NewCashbackProvider(time.Second)
	result := p.ProcessRedemption(context.Background(),
		domain.RewardOffer{},
		domain.RewardPartner{APIKey: "k", APIEndpoint: srv.URL},
		domain.RewardRedemption{ID: "red-1", EchoesSpent: 100},
	)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.RetryAfter != 300*time.Second {
		t.Fatalf("retryAfter = %v, want 300s for an API-reported failure", result.RetryAfter)
	}
	if result.Error != "upstream busy" {
		t.Fatalf("error = %q", result.Error)
	}
}

func TestCashbackProcessRedemptionTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := NewCashbackProvider(time.Second)
	result := p.ProcessRedemption(context.Background(),
		domain.RewardOffer{},
		domain.RewardPartner{APIKey: "k", APIEndpoint: srv.URL},
		domain.RewardRedemption{ID: "red-1", EchoesSpent: 100},
	)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.RetryAfter != 600*time.Second {
		t.Fatalf("retryAfter = %v, want 600s for a transport failure", result.RetryAfter)
	}
}

func TestCashbackMisconfiguredPartnerFollowsTransportPath(t *testing.T) {
	p := NewCashbackProvider(time.Second)
	result := p.ProcessRedemption(context.Background(),
		domain.RewardOffer{},
		domain.RewardPartner{},
		domain.RewardRedemption{ID: "red-1", EchoesSpent: 100},
	)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.RetryAfter != 600*time.Second {
		t.Fatalf("retryAfter = %v, want 600s (misconfig funnels through the transport path)", result.RetryAfter)
	}
}

func TestCashbackHandleWebhook(t *testing.T) {
	p := NewCashbackProvider(time.Second)

	result := p.HandleWebhook(context.Background(), map[string]any{
		"reference": "red-1",
		"status":    "settled",
	}, domain.RewardPartner{})
	if !result.Handled || result.RedemptionID != "red-1" || result.Status != "settled" {
		t.Fatalf("result = %+v", result)
	}

	result = p.HandleWebhook(context.Background(), map[string]any{"status": "settled"}, domain.RewardPartner{})
	if result.Handled {
		t.Fatal("payload without reference should not be handled")
	}
}
