package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"echodeed/internal/config"
	"echodeed/internal/domain"
	"echodeed/internal/infra/db"
	"echodeed/internal/infra/fulfillment"
	"echodeed/internal/infra/moderation"
	"echodeed/internal/infra/ratelimit"
	"echodeed/internal/infra/retryq"
	"echodeed/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	limits          domain.RateLimitStore
	limitFailClosed bool
	sweeper         *ratelimit.Sweeper

	claims      *usecase.ClaimService
	fulfillment *usecase.RewardFulfillmentService
	moderation  *moderation.Engine

	partners    PartnerStore
	offers      OfferStore
	redemptions RedemptionStore
	posts       SupportPostStore
	contacts    ContactStore
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	RateLimits      domain.RateLimitStore
	RetryQueue      domain.RetryQueue
	Claims          *usecase.ClaimService
	Fulfillment     *usecase.RewardFulfillmentService
	Moderation      *moderation.Engine
	Partners        PartnerStore
	Offers          OfferStore
	Redemptions     RedemptionStore
	Posts           SupportPostStore
	Contacts        ContactStore
	LimitFailClosed bool
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:             cfg,
		r:               r,
		limits:          deps.RateLimits,
		limitFailClosed: deps.LimitFailClosed,
		claims:          deps.Claims,
		fulfillment:     deps.Fulfillment,
		moderation:      deps.Moderation,
		partners:        deps.Partners,
		offers:          deps.Offers,
		redemptions:     deps.Redemptions,
		posts:           deps.Posts,
		contacts:        deps.Contacts,
	}
	if s.fulfillment == nil {
		queue := deps.RetryQueue
		if queue == nil {
			queue = retryq.NewMemoryQueue()
		}
		s.fulfillment = newFulfillmentService(cfg, queue)
	}
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.limitFailClosed = s.cfg.RateLimitFailClosed

	if s.cfg.RedisAddr != "" {
		if limits, err := ratelimit.NewRedisStore(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
			s.limits = limits
		}
	}
	if s.limits == nil {
		s.limits = ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{
			MaxKeys: s.cfg.RateLimitMaxKeys,
		})
	}
	s.sweeper = ratelimit.NewSweeper(s.limits, s.cfg.SweepInterval(), s.cfg.SweepMaxIdle(), nil)

	var queue domain.RetryQueue
	if s.cfg.RedisAddr != "" {
		if q, err := retryq.NewRedisQueue(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB); err == nil {
			queue = q
		}
	}
	if queue == nil {
		queue = retryq.NewMemoryQueue()
	}
	s.fulfillment = newFulfillmentService(s.cfg, queue)

	engine, err := newModerationEngine(s.cfg)
	if err != nil {
		log.Printf("moderation engine unavailable: %v", err)
	}
	s.moderation = engine

	if s.store != nil && s.store.DB != nil {
		codeRepo := db.NewClaimCodeRepository(s.store.DB)
		s.claims = usecase.NewClaimService(codeRepo, s.cfg.ClaimCodeSalt)
		s.partners = db.NewRewardPartnerRepository(s.store.DB)
		s.offers = db.NewRewardOfferRepository(s.store.DB)
		s.redemptions = db.NewRewardRedemptionRepository(s.store.DB)
		s.posts = db.NewSupportPostRepository(s.store.DB)
		s.contacts = db.NewEmergencyContactRepository(s.store.DB)
	}
}

func newFulfillmentService(cfg config.Config, queue domain.RetryQueue) *usecase.RewardFulfillmentService {
	timeout := cfg.FulfillmentTimeout()
	return usecase.NewRewardFulfillmentService(
		fulfillment.NewCashbackProvider(timeout),
		fulfillment.NewGiftCardProvider(timeout),
		fulfillment.NewDiscountCodeProvider(timeout),
		queue,
		usecase.FulfillmentConfig{
			RetryInterval: cfg.FulfillmentRetryInterval(),
			MaxAttempts:   cfg.FulfillmentMaxAttempts,
		},
	)
}

func newModerationEngine(cfg config.Config) (*moderation.Engine, error) {
	ctx := context.Background()
	if cfg.ModerationBundlePath != "" {
		return moderation.NewEngineFromBundlePath(ctx, cfg.ModerationBundlePath)
	}
	return moderation.NewEngine(ctx)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	claimRule := NewRateLimitRule("claim_redeem", 300*time.Second, 10,
		"Too many claim attempts. Please wait before trying another code.", nil)

	v1 := s.r.Group("/v1")
	{
		v1.POST("/safety/analyze", s.rateLimit(SafetyAnalysisRule()), s.handleSafetyAnalyze)
		v1.GET("/safety/queue", s.rateLimit(CrisisQueueRule()), s.handleCrisisQueue)
		v1.POST("/safety/contacts/:student_id/reveal", s.rateLimit(EmergencyContactRule()), s.handleRevealContact)
		v1.POST("/support/posts", s.rateLimit(SupportPostRule()), s.handleSupportPost)

		v1.POST("/claims/redeem", s.rateLimit(claimRule), s.handleClaimRedeem)
		v1.POST("/redemptions/:redemption_id/fulfill", s.handleFulfillRedemption)
		v1.POST("/webhooks/:partner_name", s.handleWebhook)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	if s.sweeper != nil {
		s.sweeper.Start()
		defer s.sweeper.Stop()
	}
	if s.fulfillment != nil {
		s.fulfillment.Start()
		defer s.fulfillment.Stop()
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
