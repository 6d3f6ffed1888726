package controller

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	ProfileService    *service.ProfileService
	PointsService     *service.PointsService
	StreakService     *service.StreakService
	BadgeService      *service.BadgeService
	ChallengeService  *service.ChallengeService
	ActivityService   *service.ActivityService
	OnboardingService *service.OnboardingService
}

func NewGamificationController(
	profileService *service.ProfileService,
	pointsService *service.PointsService,
	streakService *service.StreakService,
	badgeService *service.BadgeService,
	challengeService *service.ChallengeService,
	activityService *service.ActivityService,
	onboardingService *service.OnboardingService,
) *GamificationController {
	return &GamificationController{
		ProfileService:    profileService,
		PointsService:     pointsService,
		StreakService:     streakService,
		BadgeService:      badgeService,
		ChallengeService:  challengeService,
		ActivityService:   activityService,
		OnboardingService: onboardingService,
	}
}

// @Summary 获取游戏化档案
// @Description 积分账户、徽章、连续打卡、进行中的挑战、最近积分记录和排名
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/gamification/profile [get]
func (c *GamificationController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.ProfileService.GetProfile(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, profile)
}

// @Summary 获取排行榜
// @Description 按总积分、等级倒序分页
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/gamification/leaderboard [get]
func (c *GamificationController) GetLeaderboard(ctx *gin.Context) {
	page, limit := util.ParsePagination(ctx)

	entries, total, err := c.ProfileService.Leaderboard(ctx.Request.Context(), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: entries, Total: total, Page: page, Limit: limit})
}

// @Summary 积分明细
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/gamification/points/history [get]
func (c *GamificationController) GetPointsHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := util.ParsePagination(ctx)

	txs, total, err := c.PointsService.History(ctx.Request.Context(), user.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: txs, Total: total, Page: page, Limit: limit})
}

// @Summary 我的徽章
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.BadgeAward}
// @Router /api/gamification/badges/mine [get]
func (c *GamificationController) GetMyBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	awards, err := c.BadgeService.ListUserBadges(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, awards)
}

// @Summary 徽章目录
// @Description 隐藏徽章不会出现在目录中
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/gamification/badges [get]
func (c *GamificationController) ListBadges(ctx *gin.Context) {
	badges, err := c.BadgeService.ListBadges(ctx.Request.Context(), false)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, badges)
}

// @Summary 我的挑战
// @Tags 游戏化
// @Produce json
// @Security BearerAuth
// @Param all query bool false "包含已结束的挑战"
// @Success 200 {object} util.Response{data=[]model.ChallengeProgress}
// @Router /api/gamification/challenges [get]
func (c *GamificationController) GetMyChallenges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	openOnly := ctx.Query("all") != "true"
	progress, err := c.ChallengeService.ListUserChallenges(ctx.Request.Context(), user.UserID, openOnly)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 上报学习行为
// @Description 内容服务在用户完成操作后调用，积分、连续打卡、挑战和徽章在一个事务内结算。结算失败只记录日志，不影响调用方
// @Tags 游戏化
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body service.ActivityEvent true "行为"
// @Success 200 {object} util.Response{data=service.AwardResult}
// @Router /api/internal/gamification/events [post]
func (c *GamificationController) RecordEvent(ctx *gin.Context) {
	var ev service.ActivityEvent
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, c.ActivityService.Notify(ctx.Request.Context(), ev))
}

type touchStreakRequest struct {
	Activities []string `json:"activities"`
}

// @Summary 连续打卡
// @Tags 游戏化
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body touchStreakRequest false "今日活动类型"
// @Success 200 {object} util.Response{data=model.Streak}
// @Router /api/gamification/streak/touch [post]
func (c *GamificationController) TouchStreak(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req touchStreakRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	if len(req.Activities) == 0 {
		req.Activities = []string{"login"}
	}

	streak, err := c.StreakService.Touch(ctx.Request.Context(), user.UserID, req.Activities)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, streak)
}

// @Summary 发放积分（管理员）
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AwardPointsRequest true "积分"
// @Success 200 {object} util.Response{data=service.AwardResult}
// @Router /api/admin/gamification/points [post]
func (c *GamificationController) AwardPoints(ctx *gin.Context) {
	var req service.AwardPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.PointsService.AwardPoints(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 初始化用户游戏化数据（管理员）
// @Description 注册流程调用：积分账户、连续打卡、进行中挑战和欢迎徽章
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.AwardResult}
// @Router /api/admin/gamification/users/{id}/init [post]
func (c *GamificationController) InitializeUser(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	result, err := c.OnboardingService.InitializeUser(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 重建排行榜缓存（管理员）
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/gamification/leaderboard/rebuild [post]
func (c *GamificationController) RebuildLeaderboard(ctx *gin.Context) {
	if err := c.ProfileService.RebuildLeaderboard(ctx.Request.Context()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
