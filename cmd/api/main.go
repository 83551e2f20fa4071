package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wayride/wayride-backend/internal/database"
	"github.com/wayride/wayride-backend/internal/handlers"
	"github.com/wayride/wayride-backend/internal/middleware"
	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/rides"
	"github.com/wayride/wayride-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Matching/rating engine on top of the ledger and the hub
	engine := rides.NewEngine(db, hub)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connections (token accepted via query parameter)
		ws := api.Group("/ws")
		ws.Use(middleware.AuthMiddleware())
		{
			ws.GET("/driver", middleware.RequireRole(models.RoleDriver), handlers.DriverWebSocket(hub, engine))
			ws.GET("/rider/:rideRequestId", middleware.RequireRole(models.RoleRider), handlers.RiderWebSocket(hub))
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			ridesGroup := protected.Group("/rides")
			{
				ridesGroup.GET("", handlers.ListRideRequests(db))
				ridesGroup.POST("", middleware.RequireRole(models.RoleRider), handlers.CreateRideRequest(engine))
				ridesGroup.GET("/active", handlers.ActiveRide(db))
				ridesGroup.GET("/history", handlers.RideHistory(db))
				ridesGroup.POST("/rate", middleware.RequireRole(models.RoleRider), handlers.RateRide(engine))
				ridesGroup.GET("/pending-ratings", middleware.RequireRole(models.RoleRider), handlers.PendingRatings(engine))
				ridesGroup.GET("/:id", handlers.GetRideRequest(db))
				ridesGroup.POST("/:id/cancel", middleware.RequireRole(models.RoleRider), handlers.CancelRideRequest(engine))
				ridesGroup.POST("/:id/start", middleware.RequireRole(models.RoleDriver), handlers.StartRide(engine))
				ridesGroup.POST("/:id/complete", middleware.RequireRole(models.RoleDriver), handlers.CompleteRide(engine))
			}

			offers := protected.Group("/offers")
			{
				offers.POST("", middleware.RequireRole(models.RoleDriver), handlers.CreateOffer(engine))
				offers.GET("", handlers.ListOffers(db))
				offers.POST("/accept", middleware.RequireRole(models.RoleRider), handlers.AcceptOffer(engine))
				offers.POST("/:id/withdraw", middleware.RequireRole(models.RoleDriver), handlers.WithdrawOffer(engine))
			}

			locations := protected.Group("/locations")
			{
				locations.GET("/cities", handlers.CityAutocomplete(db))
				locations.GET("/distance", handlers.Distance())
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/rides", handlers.AdminListRides(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
