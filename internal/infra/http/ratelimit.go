package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerUserID   = "X-User-ID"
	headerSchoolID = "X-School-ID"
)

// RateLimitRule is one immutable window/budget policy. One rule backs one
// middleware instance.
type RateLimitRule struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	Message     string
	Key         func(*gin.Context) string

	// Declared per rule for parity with the policy table. Counters
	// advance on entry, before the handler outcome is known, so these
	// flags are carried as rule metadata rather than enforced post-hoc.
	SkipSuccessful bool
	SkipFailed     bool
}

// callerIdentity is the default key: authenticated user id when the
// upstream gateway supplied one, else client IP.
func callerIdentity(c *gin.Context) string {
	if id := c.GetHeader(headerUserID); id != "" {
		return id
	}
	return c.ClientIP()
}

// SafetyAnalysisRule protects the crisis-detection endpoint from flooding.
func SafetyAnalysisRule() RateLimitRule {
	return RateLimitRule{
		Name:        "safety_analysis",
		Window:      60 * time.Second,
		MaxRequests: 10,
		Message:     "Too many safety analyses. Please wait a moment before trying again.",
		Key:         callerIdentity,
	}
}

// CrisisQueueRule budgets counselor queue polling.
func CrisisQueueRule() RateLimitRule {
	return RateLimitRule{
		Name:        "crisis_queue",
		Window:      60 * time.Second,
		MaxRequests: 30,
		Message:     "Too many queue refreshes. The queue updates automatically.",
		Key: func(c *gin.Context) string {
			return "crisis_queue:" + callerIdentity(c)
		},
		SkipFailed: true,
	}
}

// EmergencyContactRule guards the identity-unmask action. Very strict,
// and failed attempts always count.
func EmergencyContactRule() RateLimitRule {
	return RateLimitRule{
		Name:        "emergency_contact",
		Window:      3600 * time.Second,
		MaxRequests: 5,
		Message:     "Emergency contact reveals are limited. Contact an administrator if you need more.",
		Key: func(c *gin.Context) string {
			return "emergency_contact:" + callerIdentity(c)
		},
	}
}

// SupportPostRule is the anti-spam budget on crisis-adjacent submissions.
func SupportPostRule() RateLimitRule {
	return RateLimitRule{
		Name:        "support_post",
		Window:      300 * time.Second,
		MaxRequests: 3,
		Message:     "You're posting too quickly. Take a moment before sharing again.",
		Key: func(c *gin.Context) string {
			return "support_post:" + c.GetHeader(headerSchoolID) + ":" + callerIdentity(c)
		},
		SkipFailed: true,
	}
}

// NewRateLimitRule builds an ad-hoc rule for endpoints outside the policy
// table, such as claim-code attempts.
func NewRateLimitRule(name string, window time.Duration, maxRequests int, message string, key func(*gin.Context) string) RateLimitRule {
	if key == nil {
		key = callerIdentity
	}
	return RateLimitRule{
		Name:        name,
		Window:      window,
		MaxRequests: maxRequests,
		Message:     message,
		Key:         key,
	}
}

type rateLimitedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// rateLimit wraps a handler chain with one rule. Every pass stamps the
// X-RateLimit headers; an exhausted budget short-circuits with 429 and
// never reaches the handler.
func (s *Server) rateLimit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limits == nil || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		rec, err := s.limits.Take(c.Request.Context(), rule.Key(c), rule.Window)
		if err != nil {
			if s.limitFailClosed {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
					Code:    "RATE_LIMIT_UNAVAILABLE",
					Message: "rate limiter unavailable",
				})
				return
			}
			c.Next()
			return
		}

		remaining := rule.MaxRequests - rec.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(rec.WindowEnd(rule.Window).UnixMilli(), 10))

		if rec.Count > rule.MaxRequests {
			retryAfter := int(math.Ceil(rule.Window.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, rateLimitedResponse{
				Error:      "RATE_LIMIT_EXCEEDED",
				Message:    rule.Message,
				RetryAfter: retryAfter,
			})
			return
		}
		c.Next()
	}
}
