package main

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/config"
	"github.com/Hephaestack/pnoh-eshop/controllers"
	"github.com/Hephaestack/pnoh-eshop/database"
	"github.com/Hephaestack/pnoh-eshop/kafka"
	"github.com/Hephaestack/pnoh-eshop/logger"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/repository"
	"github.com/Hephaestack/pnoh-eshop/routes"
	"github.com/Hephaestack/pnoh-eshop/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatal("Failed to connect to DB:", err)
	}
	if err := database.DB.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Admin{},
	); err != nil {
		log.Fatal("Failed to migrate models:", err)
	}

	cartRepo := repository.NewGormCartRepository(database.DB)
	productRepo := repository.NewGormProductRepository(database.DB)
	orderRepo := repository.NewGormOrderRepository(database.DB)
	adminRepo := repository.NewGormAdminRepository(database.DB)

	var sessionCache repository.SessionCache
	if redisClient, err := database.NewRedisClient(cfg); err != nil {
		logger.Log.Warn("redis unavailable, checkout session reuse disabled", zap.Error(err))
	} else {
		sessionCache = repository.NewRedisSessionCache(redisClient)
	}

	var events services.OrderEventPublisher
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaOrderTopic, logger.Log)
		defer producer.Close()
		events = producer
	} else {
		logger.Log.Warn("kafka brokers not configured, order events disabled")
	}

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if !stripeSvc.WebhookVerificationEnabled() {
		logger.Log.Warn("webhook secret not set; accepting unsigned webhooks (development only)")
	}

	quoter := services.DefaultShippingQuoter()
	identityVerifier := services.NewIdentityClient(cfg.AuthVerifyURL, cfg.AuthAPIKey)

	cartSvc := services.NewCartService(cartRepo, productRepo, quoter, logger.Log)
	checkoutSvc := services.NewCheckoutService(cartRepo, stripeSvc, sessionCache, quoter, cfg.FrontendURL, "eur", logger.Log)
	orderSvc := services.NewOrderService(orderRepo, cartRepo, stripeSvc, events, logger.Log)
	adminAuth := services.NewAdminAuthService(adminRepo, cfg.AdminJWTSecret, logger.Log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	routes.Register(r, identityVerifier, cfg.AdminJWTSecret,
		controllers.NewCartController(cartSvc, logger.Log),
		controllers.NewCheckoutController(checkoutSvc, orderSvc, stripeSvc, logger.Log),
		controllers.NewOrderController(orderSvc, logger.Log),
		controllers.NewAdminController(adminAuth, logger.Log),
	)

	logger.Log.Info("server starting on port " + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed:", err)
	}
}
