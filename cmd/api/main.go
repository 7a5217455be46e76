package main

import (
	"os"

	"retail-backend/internal/database"
	"retail-backend/internal/handler"
	"retail-backend/internal/middleware"
	"retail-backend/internal/repository"
	"retail-backend/internal/service"
	"retail-backend/internal/websocket"
	"retail-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Retail Inventory API
// @version         1.0
// @description     Multi-tenant retail inventory and restocking backend.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info().Msg("no configs/.env file found, using environment")
	}
	logger.Init()

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	productRepo := repository.NewProductRepository(db)
	invRepo := repository.NewShopInventoryRepository(db)
	restockRepo := repository.NewRestockRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	notifier := service.NewNotifier(notificationRepo, userRepo, wsHub)
	ledger := service.NewStockLedger(productRepo, invRepo, movementRepo, restockRepo, auditRepo)

	userService := service.NewUserService(userRepo)
	shopService := service.NewShopService(shopRepo, userRepo, auditRepo, txManager, notifier)
	productService := service.NewProductService(productRepo, restockRepo, movementRepo, auditRepo, ledger, txManager, notifier)
	inventoryService := service.NewShopInventoryService(invRepo, shopRepo, auditRepo, ledger, txManager, notifier)
	restockService := service.NewRestockService(restockRepo, productRepo, shopRepo, auditRepo, ledger, txManager, notifier)
	notificationService := service.NewNotificationService(notificationRepo)
	auditService := service.NewAuditService(auditRepo, shopRepo)
	dashboardService := service.NewDashboardService(dashboardRepo, shopRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	shopHandler := handler.NewShopHandler(shopService)
	productHandler := handler.NewProductHandler(productService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	restockHandler := handler.NewRestockHandler(restockService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Set up Gin Router
	router := gin.New()
	router.Use(logger.RequestLogger(), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Rate limiting across the API surface
	limiter := middleware.NewIPLimiter(20, 40)
	router.Use(middleware.RateLimit(limiter))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	api := router.Group("/api")
	shopHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api)
	inventoryHandler.RegisterRoutes(api)
	restockHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
