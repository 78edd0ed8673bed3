package bootstrap

import (
	"context"
	"fmt"
	"log"

	"resume-qa-be/internal/config"
	"resume-qa-be/internal/controller"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/internal/pkg/mailer"
	"resume-qa-be/internal/repository/unitofwork"
	"resume-qa-be/internal/service"
	"resume-qa-be/pkg/embedding"
	"resume-qa-be/pkg/escalation"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/llm"
	"resume-qa-be/pkg/llm/factory"
	"resume-qa-be/pkg/metrics"
	"resume-qa-be/pkg/rag/admission"
	"resume-qa-be/pkg/rag/draft"
	"resume-qa-be/pkg/rag/evaluate"
	"resume-qa-be/pkg/rag/resolve"
	"resume-qa-be/pkg/rag/retrieval"
	"resume-qa-be/pkg/rag/semcache"
	"resume-qa-be/pkg/retry"

	pktNats "resume-qa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResolveController controller.IResolveController
	AdminController   controller.IAdminController

	// Background work (run by main.go)
	Orchestrator      *resolve.Orchestrator
	AdmissionConsumer *admission.Consumer
	ConsumerService   service.IConsumerService // nil when NATS is unreachable
	Janitor           *semcache.Janitor

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}
	res := cfg.Resolution

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger
	c.Metrics = metrics.New()

	// 2. Event Bus (in-process admission queue)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := admission.NewBus(watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmBaseURL := cfg.Ai.LLMBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	baseProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, cfg.Keys.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	var llmProvider llm.LLMProvider = baseProvider
	if cfg.Ai.RequestsPerSecond > 0 {
		llmProvider = llm.NewRateLimitedProvider(baseProvider, cfg.Ai.RequestsPerSecond, cfg.Ai.Burst)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	}

	// 5. Pipeline
	idx := index.NewPgVectorIndex(uowFactory)
	embedRetry := retry.Config{MaxRetries: res.MaxRetries, Delay: res.RetryDelay, AttemptTimeout: res.EmbedTimeout}
	indexRetry := retry.Config{MaxRetries: res.MaxRetries, Delay: res.RetryDelay, AttemptTimeout: res.IndexTimeout}
	snapshots := index.NewSnapshotProvider(idx, res.CorpusCollection, res.SnapshotTTL, indexRetry)

	retriever := retrieval.NewRetriever(embeddingProvider, idx, retrieval.Config{
		Collection:      res.CorpusCollection,
		SimilarityFloor: res.RetrievalSimilarityFloor,
		Retry:           indexRetry,
	}, sysLogger)

	drafter := draft.NewDrafter(llmProvider, draft.Config{
		RelevanceFloor: res.RelevanceFloor,
		Temperature:    res.DraftTemperature,
		MaxTokens:      res.DraftMaxTokens,
		Timeout:        res.CompletionTimeout,
	}, sysLogger)

	evaluator := evaluate.NewEvaluator(llmProvider, evaluate.Config{
		SupportFloor:       res.SupportFloor,
		LowConfidenceFloor: res.LowConfidenceFloor,
		VerifyMaxTokens:    res.VerifyMaxTokens,
		Timeout:            res.CompletionTimeout,
	}, sysLogger)

	answerCache := semcache.NewCache(embeddingProvider, idx, semcache.Config{
		Collection:         res.CacheCollection,
		TopK:               res.CacheTopK,
		HitSimilarityFloor: res.HitSimilarityFloor,
		HitScoreFloor:      res.HitScoreFloor,
		WriteThreshold:     res.WriteThreshold,
		HalfLife:           res.HalfLife,
		TTL:                res.TTL,
		EmbedRetry:         embedRetry,
		IndexRetry:         indexRetry,
	}, sysLogger)

	c.Janitor = semcache.NewJanitor(answerCache, snapshots, res.JanitorInterval, sysLogger).WithMetrics(c.Metrics)
	c.AdmissionConsumer = admission.NewConsumer(pubSub, res.AdmissionTopic, answerCache, c.Metrics, sysLogger)

	var eventPublisher escalation.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	escalationService := escalation.NewService(
		uowFactory,
		escalation.NewRedisGuard(rdb),
		eventPublisher,
		emailService,
		escalation.Config{OwnerEmail: cfg.Escalation.OwnerEmail, GuardTTL: cfg.Escalation.GuardTTL, DeliveryTimeout: cfg.Escalation.Timeout},
		sysLogger,
	)
	// runs before the NATS publisher closes
	c.closers = append(c.closers, escalationService.Wait)

	c.Orchestrator = resolve.NewOrchestrator(resolve.Dependencies{
		Retriever: retriever,
		Drafter:   drafter,
		Evaluator: evaluator,
		Cache:     answerCache,
		Snapshots: snapshots,
		Admitter:  admission.NewPublisher(pubSub, res.AdmissionTopic),
		Escalator: escalationService,
		Metrics:   c.Metrics,
		Logger:    sysLogger,
	}, resolve.Config{
		RetrievalTopK:     res.RetrievalTopK,
		ModelId:           cfg.Ai.LLMModel,
		PromptVersion:     cfg.Ai.PromptVersion,
		DedupTTL:          res.DedupTTL,
		EscalationTimeout: cfg.Escalation.Timeout,
	})

	// 6. Services
	if natsSub != nil {
		c.ConsumerService = service.NewConsumerService(natsSub, c.Janitor, sysLogger)
	}
	resolveService := service.NewResolveService(c.Orchestrator)
	adminService := service.NewAdminService(uowFactory, c.Janitor, answerCache)

	// 7. Controllers
	c.ResolveController = controller.NewResolveController(resolveService)
	c.AdminController = controller.NewAdminController(adminService)

	return c, nil
}

// Close releases broker and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
