package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cafepass/config"
	"cafepass/controllers"
	"cafepass/middleware"
	"cafepass/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	cafeController := controllers.NewCafeController(db)
	reviewController := controllers.NewReviewController(db)
	bookmarkController := controllers.NewBookmarkController(db)
	stampController := controllers.NewStampController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public discovery endpoints
	cafesGroup := api.Group("/cafes")
	cafesGroup.GET("", cafeController.ListCafes)
	cafesGroup.GET("/nearby", cafeController.NearbyCafes)
	cafesGroup.GET("/:id", cafeController.GetCafe)
	cafesGroup.GET("/:id/reviews", reviewController.ListCafeReviews)
	cafesGroup.GET("/:id/stats", statsController.CafeStats)

	api.GET("/stats", statsController.SiteStats)
	api.GET("/users/:id", authController.GetUserPublic)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/cafes", cafeController.CreateCafe)
	protected.PUT("/cafes/:id", cafeController.UpdateCafe)
	protected.DELETE("/cafes/:id", cafeController.DeleteCafe)
	protected.POST("/upload", cafeController.UploadPhoto)
	protected.POST("/cafes/:id/reviews", reviewController.CreateReview)
	protected.DELETE("/reviews/:id", reviewController.DeleteReview)
	protected.POST("/cafes/:id/bookmark", bookmarkController.AddBookmark)
	protected.DELETE("/cafes/:id/bookmark", bookmarkController.RemoveBookmark)
	protected.GET("/users/me/bookmarks", bookmarkController.ListMyBookmarks)
	protected.POST("/cafes/:id/stamps", stampController.ClaimStamp)
	protected.GET("/users/me/stamps", stampController.StampHistory)
	protected.GET("/users/me/passport", stampController.Passport)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		ctx.Status(http.StatusNotFound)
	})

	return r
}
