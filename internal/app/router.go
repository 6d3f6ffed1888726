package app

import (
	"strconv"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/docs"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/middleware"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// 兑换接口按用户限流
const redeemPerMinute = 20

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerGamificationRoutes(authGroup, c)
		a.registerRewardRoutes(authGroup, c)
	}

	// 3. 内容服务上报行为
	internal := router.Group("/api/internal")
	internal.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Service))
	{
		internal.POST("/gamification/events", c.gamification.RecordEvent)
	}

	// 4. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Admin))
	{
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerGamificationRoutes(rg *gin.RouterGroup, c *controllers) {
	g := rg.Group("/gamification")
	{
		g.GET("/profile", c.gamification.GetProfile)
		g.GET("/leaderboard", c.gamification.GetLeaderboard)
		g.GET("/points/history", c.gamification.GetPointsHistory)
		g.GET("/badges/mine", c.gamification.GetMyBadges)
		g.GET("/badges", c.gamification.ListBadges)
		g.GET("/challenges", c.gamification.GetMyChallenges)
		g.POST("/streak/touch", c.gamification.TouchStreak)
	}
}

func (a *App) registerRewardRoutes(rg *gin.RouterGroup, c *controllers) {
	rewards := rg.Group("/rewards")
	{
		rewards.GET("", c.reward.ListRewards)
		rewards.GET("/:id", c.reward.GetReward)
		rewards.POST("/:id/redeem", security.RateLimiterByKey(redeemPerMinute, time.Minute, userKey), c.reward.Redeem)
		rewards.GET("/redemptions", c.reward.ListMyRedemptions)
		rewards.GET("/redemptions/verify/:code", c.reward.VerifyCode)
		rewards.POST("/redemptions/:id/use", middleware.RoleMiddleware(model.Admin), c.reward.MarkUsed)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	g := rg.Group("/gamification")
	{
		g.GET("/badges", c.badge.ListBadges)
		g.POST("/badges", c.badge.CreateBadge)
		g.PUT("/badges/:id", c.badge.UpdateBadge)
		g.DELETE("/badges/:id", c.badge.DeleteBadge)
		g.POST("/badges/:id/award", c.badge.AwardBadge)

		g.POST("/points", c.gamification.AwardPoints)
		g.POST("/users/:id/init", c.gamification.InitializeUser)
		g.POST("/leaderboard/rebuild", c.gamification.RebuildLeaderboard)

		g.GET("/challenges", c.challenge.ListChallenges)
		g.GET("/challenges/:id", c.challenge.GetChallenge)
		g.POST("/challenges", c.challenge.CreateChallenge)
		g.PUT("/challenges/:id", c.challenge.UpdateChallenge)
		g.DELETE("/challenges/:id", c.challenge.DeleteChallenge)
	}

	rewards := rg.Group("/rewards")
	{
		rewards.POST("", c.reward.CreateReward)
		rewards.PUT("/:id", c.reward.UpdateReward)
		rewards.DELETE("/:id", c.reward.DeleteReward)
	}
}

func userKey(c *gin.Context) string {
	if user := util.GetUserFromContext(c); user != nil {
		return "user:" + strconv.FormatUint(uint64(user.UserID), 10)
	}
	return c.ClientIP()
}
