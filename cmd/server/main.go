package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/config"
	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/database"
	"github.com/yukikurage/teamtask-api/internal/handlers"
	"github.com/yukikurage/teamtask-api/internal/middleware"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"github.com/yukikurage/teamtask-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()
	r.Use(middleware.RequestID())

	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Wire repositories and services
	db := database.GetDB()
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	aggregator := services.NewCompletionRateAggregator(taskRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, userRepo, aggregator, aiService)
	authService := services.NewAuthService(userRepo, cfg.AdminCode)
	userService := services.NewUserService(userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, handlers.AdminBootstrap{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
	})
	taskHandler := handlers.NewTaskHandler(taskService)
	userHandler := handlers.NewUserHandler(userService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
		}

		api.POST("/admin/init", authHandler.InitAdmin)

		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("/me", authHandler.GetCurrentUser)
			users.GET("", middleware.RequireRole(models.RoleAdmin), userHandler.ListEmployees)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", middleware.RequireRole(models.RoleAdmin), taskHandler.CreateTask)
			tasks.POST("/generate", middleware.RequireRole(models.RoleAdmin), taskHandler.GenerateTasks)

			task := tasks.Group("/:id")
			task.Use(middleware.RequireTaskID())
			{
				task.GET("", taskHandler.GetTask)
				task.PUT("", taskHandler.UpdateTask)
				task.PATCH("", taskHandler.UpdateTask)
				task.DELETE("", taskHandler.DeleteTask)
				task.POST("/todos/:index/toggle", taskHandler.ToggleTodoItem)
				task.POST("/assign", taskHandler.AssignTask)
				task.POST("/unassign", taskHandler.UnassignTask)
				task.POST("/comments", taskHandler.AddComment)
			}
		}
	}

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newSessionStore builds the session backend named by SESSION_STORE: Redis in
// deployments, signed cookies for single-process setups.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	default:
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		rs, err := redisStore.NewStore(
			10,                        // Redis pool size
			"tcp",                     // network type
			redisAddr,                 // Redis address from config
			"",                        // username (empty for default user)
			"",                        // password (empty = no password)
			[]byte(cfg.SessionSecret), // authentication key
		)
		if err != nil {
			return nil, err
		}
		store = rs
	}

	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
