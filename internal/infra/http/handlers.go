package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"echodeed/internal/domain"

	"github.com/gin-gonic/gin"
)

type PartnerStore interface {
	GetByID(ctx context.Context, id string) (*domain.RewardPartner, error)
	GetByName(ctx context.Context, name string) (*domain.RewardPartner, error)
}

type OfferStore interface {
	GetByID(ctx context.Context, id string) (*domain.RewardOffer, error)
}

type RedemptionStore interface {
	GetByID(ctx context.Context, id string) (*domain.RewardRedemption, error)
	RecordResult(ctx context.Context, id string, result domain.FulfillmentResult, at time.Time) error
}

type SupportPostStore interface {
	Create(ctx context.Context, post domain.SupportPost) (string, error)
	ListFlagged(ctx context.Context, limit int) ([]domain.SupportPost, error)
}

type ContactStore interface {
	GetByStudent(ctx context.Context, studentID string) (*domain.EmergencyContact, error)
}

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Flagged  bool     `json:"flagged"`
	Crisis   bool     `json:"crisis"`
	Severity string   `json:"severity"`
	Matches  []string `json:"matches"`
}

type supportPostRequest struct {
	Text string `json:"text"`
}

type supportPostResponse struct {
	ID       string `json:"id,omitempty"`
	Flagged  bool   `json:"flagged"`
	Severity string `json:"severity"`
}

type queuedPostResponse struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

type claimRedeemRequest struct {
	Code string `json:"code"`
}

type claimRedeemResponse struct {
	OfferID    string `json:"offer_id"`
	RedeemedAt string `json:"redeemed_at"`
}

type fulfillResponse struct {
	Status         string `json:"status"`
	RedemptionCode string `json:"redemption_code,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

func (s *Server) handleSafetyAnalyze(c *gin.Context) {
	if s.moderation == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "MODERATION_UNAVAILABLE", "moderation engine not configured")
		return
	}
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.moderation.Evaluate(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analyzeResponse{
		Flagged:  result.Flagged,
		Crisis:   result.Crisis,
		Severity: result.Severity,
		Matches:  result.Matches,
	})
}

func (s *Server) handleCrisisQueue(c *gin.Context) {
	if s.posts == nil {
		c.JSON(http.StatusOK, gin.H{"posts": []queuedPostResponse{}})
		return
	}
	posts, err := s.posts.ListFlagged(c.Request.Context(), 50)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]queuedPostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, queuedPostResponse{
			ID:       post.ID,
			SchoolID: post.SchoolID,
			Body:     post.Body,
			Severity: post.Severity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"posts": out})
}

func (s *Server) handleRevealContact(c *gin.Context) {
	if s.contacts == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	studentID := c.Param("student_id")
	contact, err := s.contacts.GetByStudent(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return
	}
	// Identity unmask is audited; the counselor id comes from the
	// upstream gateway.
	log.Printf("emergency contact revealed for student %s by %s", studentID, callerIdentity(c))
	c.JSON(http.StatusOK, gin.H{
		"student_id": contact.StudentID,
		"name":       contact.Name,
		"phone":      contact.Phone,
		"relation":   contact.Relation,
	})
}

func (s *Server) handleSupportPost(c *gin.Context) {
	if s.moderation == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "MODERATION_UNAVAILABLE", "moderation engine not configured")
		return
	}
	var req supportPostRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "post text required")
		return
	}
	result, err := s.moderation.Evaluate(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := supportPostResponse{Flagged: result.Flagged, Severity: result.Severity}
	if s.posts != nil {
		id, err := s.posts.Create(c.Request.Context(), domain.SupportPost{
			SchoolID: c.GetHeader(headerSchoolID),
			UserID:   callerIdentity(c),
			Body:     req.Text,
			Severity: result.Severity,
			Flagged:  result.Flagged,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		resp.ID = id
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleClaimRedeem(c *gin.Context) {
	if s.claims == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req claimRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "claim code required")
		return
	}
	code, err := s.claims.Redeem(c.Request.Context(), req.Code, callerIdentity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimRedeemResponse{
		OfferID:    code.OfferID,
		RedeemedAt: code.RedeemedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleFulfillRedemption(c *gin.Context) {
	if s.redemptions == nil || s.offers == nil || s.partners == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	redemption, err := s.redemptions.GetByID(ctx, c.Param("redemption_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	// Re-fulfilling a delivered reward would double-spend with the partner.
	if redemption.Status == "fulfilled" {
		writeError(c, domain.ErrRedemptionNotReady)
		return
	}
	offer, err := s.offers.GetByID(ctx, redemption.OfferID)
	if err != nil {
		writeError(c, err)
		return
	}
	partner, err := s.partners.GetByID(ctx, offer.PartnerID)
	if err != nil {
		writeError(c, err)
		return
	}

	result := s.fulfillment.FulfillRedemption(ctx, *offer, *partner, *redemption)
	if err := s.redemptions.RecordResult(ctx, redemption.ID, result, time.Now()); err != nil {
		log.Printf("record fulfillment result for %s failed: %v", redemption.ID, err)
	}

	if result.Success {
		c.JSON(http.StatusOK, fulfillResponse{
			Status:         "fulfilled",
			RedemptionCode: result.RedemptionCode,
			ExternalID:     result.ExternalID,
		})
		return
	}
	// Partner error strings stay server-side.
	c.JSON(http.StatusAccepted, fulfillResponse{
		Status:  "processing",
		Message: "We're processing your reward. Check back shortly.",
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.partners == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	partner, err := s.partners.GetByName(c.Request.Context(), c.Param("partner_name"))
	if err != nil {
		writeError(c, err)
		return
	}
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result := s.fulfillment.HandleWebhook(c.Request.Context(), payload, *partner)
	if !result.Handled {
		writeErrorCode(c, http.StatusBadRequest, "WEBHOOK_INVALID", "webhook payload not recognized")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"redemption_id": result.RedemptionID,
		"status":        result.Status,
	})
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrClaimCodeInvalid):
		status, code = http.StatusBadRequest, "CLAIM_CODE_INVALID"
	case errors.Is(err, domain.ErrClaimCodeRedeemed):
		status, code = http.StatusConflict, "CLAIM_CODE_REDEEMED"
	case errors.Is(err, domain.ErrRedemptionNotReady):
		status, code = http.StatusConflict, "REDEMPTION_NOT_READY"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
