package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pennywise/internal/config"
	apperrors "pennywise/internal/errors"
	"pennywise/internal/handlers"
	"pennywise/internal/middleware"
)

// NewRouter builds the HTTP API over app.
func NewRouter(cfg *config.Config, app *App) *gin.Engine {
	accountHandler := handlers.NewAccountHandler(app.Accounts, app.Audit)
	categoryHandler := handlers.NewCategoryHandler(app.Categories, app.Audit)
	transactionHandler := handlers.NewTransactionHandler(app.Transactions, app.Audit)
	budgetHandler := handlers.NewBudgetHandler(app.Budgets, app.Audit)
	importHandler := handlers.NewImportHandler(app.Imports, app.Audit, cfg.MaxUploadBytes)
	reviewHandler := handlers.NewReviewHandler(app.Review, app.Audit)
	exportHandler := handlers.NewExportHandler(app.Export)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.WithMessage(apperrors.ErrNotFound, "Route not found"))
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Machine-to-machine statement sync
	sync := v1.Group("/sync")
	sync.Use(middleware.SyncAuthMiddleware(cfg.SyncAPIKey))
	sync.POST("/imports", importHandler.ImportStatement)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Secret: cfg.AuthJWTSecret,
		Issuer: cfg.AuthJWTIssuer,
	}))

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.GET("/:id/reconcile", accountHandler.Reconcile)
	accounts.GET("/:id/flags", accountHandler.GetFlags)

	protected.POST("/flags/:id/resolve", accountHandler.ResolveFlag)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/export", exportHandler.ExportCSV)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	protected.POST("/imports", importHandler.ImportStatement)

	review := protected.Group("/review")
	review.POST("", reviewHandler.Review)
	review.POST("/apply", reviewHandler.ApplySuggestions)
	review.POST("/receipt", reviewHandler.ScanReceipt)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-User-ID, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
