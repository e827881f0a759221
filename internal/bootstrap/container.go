package bootstrap

import (
	"context"
	"log"
	"time"

	"postlens-be/internal/config"
	"postlens-be/internal/controller"
	"postlens-be/internal/handler"
	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/pkg/mailer"
	"postlens-be/internal/repository/implementation"
	"postlens-be/internal/repository/memory"
	"postlens-be/internal/service"
	"postlens-be/internal/signal"
	"postlens-be/internal/websocket"
	pkgNats "postlens-be/pkg/nats"
	"postlens-be/pkg/upstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	OAuthController    controller.IOAuthController
	AnalysisController controller.IAnalysisController
	ChatController     controller.IChatController
	PaymentController  controller.IPaymentController
	AccountController  controller.IAccountController
	EmbedController    controller.IEmbedController

	// WebSocket stream
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	// Background services (run from main)
	ConsumerService *service.ConsumerService
	SignalForwarder *service.SignalForwarder

	SignalBus *signal.Bus
	Logger    logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// Repositories
	userRepo := implementation.NewUserRepository(db)
	analysisRepo := implementation.NewAnalysisRepository(db)
	statusRepo := implementation.NewStatusEventRepository(db)
	sessionRepo := implementation.NewChatSessionRepository(db)
	messageRepo := implementation.NewChatMessageRepository(db)
	billingRepo := implementation.NewBillingRepository(db)
	streamStates := memory.NewStreamStateRepository()

	// Signal bus
	watermillLogger := watermill.NewStdLogger(false, false)
	bus := signal.NewBus(watermillLogger)

	// NATS
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis for cross-instance frame fanout
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Upstream clients
	analysisBackend := upstream.NewAnalysisClient(cfg.Upstream.AnalysisBaseURL, cfg.Upstream.APIKey)
	chatBackend := upstream.NewChatClient(cfg.Upstream.ChatBaseURL, cfg.Upstream.APIKey)

	// Services
	authService := service.NewAuthService(userRepo, emailService, natsPub)
	oauthService := service.NewOAuthService(cfg.OAuth, userRepo, natsPub)
	analysisService := service.NewAnalysisService(analysisRepo, statusRepo, billingRepo, analysisBackend, wsHub, natsPub, sysLogger)
	streamService := service.NewStreamService(analysisRepo, wsHub, bus, cfg.Reveal, sysLogger)
	chatService := service.NewChatService(sessionRepo, messageRepo, analysisRepo, streamStates, chatBackend, bus, wsHub, sysLogger)
	paymentService := service.NewPaymentService(billingRepo, userRepo, cfg.Billing, cfg.App.ClientURL, natsPub, sysLogger)
	accountService := service.NewAccountService(userRepo, analysisRepo, billingRepo)
	embedService := service.NewEmbedService(time.Duration(cfg.Embed.LoadTimeoutSeconds)*time.Second, sysLogger)

	var consumerService *service.ConsumerService
	if natsSub != nil {
		consumerService = service.NewConsumerService(natsSub, userRepo, analysisRepo, emailService, cfg.App.ClientURL, sysLogger)
	}
	signalForwarder := service.NewSignalForwarder(bus, wsHub, sysLogger)

	return &Container{
		AuthController:     controller.NewAuthController(authService),
		OAuthController:    controller.NewOAuthController(oauthService, cfg.App.ClientURL),
		AnalysisController: controller.NewAnalysisController(analysisService, streamService),
		ChatController:     controller.NewChatController(chatService),
		PaymentController:  controller.NewPaymentController(paymentService),
		AccountController:  controller.NewAccountController(accountService),
		EmbedController:    controller.NewEmbedController(embedService),

		StreamHandler: handler.NewStreamHandler(wsHub, wsLogger),
		WebSocketHub:  wsHub,

		ConsumerService: consumerService,
		SignalForwarder: signalForwarder,

		SignalBus: bus,
		Logger:    sysLogger,
	}
}
