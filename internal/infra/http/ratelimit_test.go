package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"echodeed/internal/config"
	"echodeed/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newRateLimitedServer(clock *testClock) *Server {
	gin.SetMode(gin.TestMode)
	limits := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{Now: clock.Now})
	return NewServerWithDeps(config.Config{}, ServerDeps{RateLimits: limits})
}

func queueRequest(s *Server, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/safety/queue", nil)
	req.Header.Set(headerUserID, userID)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func TestRateLimitHeadersAndExhaustion(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newRateLimitedServer(clock)
	windowEnd := strconv.FormatInt(clock.Now().Add(60*time.Second).UnixMilli(), 10)

	// Crisis queue budget is 30 per minute.
	for i := 1; i <= 30; i++ {
		w := queueRequest(s, "counselor-1")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "30" {
			t.Fatalf("request %d: limit header = %q", i, got)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(30-i) {
			t.Fatalf("request %d: remaining = %q, want %d", i, got, 30-i)
		}
		if got := w.Header().Get("X-RateLimit-Reset"); got != windowEnd {
			t.Fatalf("request %d: reset = %q, want %q", i, got, windowEnd)
		}
	}

	w := queueRequest(s, "counselor-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status after budget = %d, want 429", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining on 429 = %q, want 0", got)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("retry-after = %q, want 60", got)
	}

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body.Error != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("body error = %q", body.Error)
	}
	if body.Message == "" {
		t.Fatal("429 body missing rule message")
	}
	if body.RetryAfter != 60 {
		t.Fatalf("body retryAfter = %d, want 60", body.RetryAfter)
	}
}

func TestRateLimitWindowRollover(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newRateLimitedServer(clock)

	for i := 0; i < 31; i++ {
		queueRequest(s, "counselor-1")
	}
	if w := queueRequest(s, "counselor-1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while window open, got %d", w.Code)
	}

	clock.Advance(61 * time.Second)
	w := queueRequest(s, "counselor-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status after rollover = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "29" {
		t.Fatalf("remaining after rollover = %q, want 29 (counter reset to 1)", got)
	}
}

func TestRateLimitKeyIsolation(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newRateLimitedServer(clock)

	for i := 0; i < 31; i++ {
		queueRequest(s, "counselor-1")
	}
	if w := queueRequest(s, "counselor-1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("counselor-1 should be limited, got %d", w.Code)
	}

	w := queueRequest(s, "counselor-2")
	if w.Code != http.StatusOK {
		t.Fatalf("counselor-2 status = %d, want 200 (keys are isolated)", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "29" {
		t.Fatalf("counselor-2 remaining = %q, want 29", got)
	}
}

func TestRateLimitRuleKeyScopes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	makeCtx := func(user, school string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			c.Request.Header.Set(headerUserID, user)
		}
		if school != "" {
			c.Request.Header.Set(headerSchoolID, school)
		}
		return c
	}

	if got := CrisisQueueRule().Key(makeCtx("u1", "")); got != "crisis_queue:u1" {
		t.Fatalf("crisis queue key = %q", got)
	}
	if got := EmergencyContactRule().Key(makeCtx("u1", "")); got != "emergency_contact:u1" {
		t.Fatalf("emergency contact key = %q", got)
	}
	if got := SupportPostRule().Key(makeCtx("u1", "school-9")); got != "support_post:school-9:u1" {
		t.Fatalf("support post key = %q", got)
	}
	if got := SafetyAnalysisRule().Key(makeCtx("u1", "")); got != "u1" {
		t.Fatalf("safety analysis key = %q", got)
	}
	// Anonymous callers fall back to client IP.
	if got := SafetyAnalysisRule().Key(makeCtx("", "")); got == "" {
		t.Fatal("anonymous key must not be empty")
	}
}
