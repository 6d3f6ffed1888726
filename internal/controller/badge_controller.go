package controller

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
}

func NewBadgeController(badgeService *service.BadgeService) *BadgeController {
	return &BadgeController{BadgeService: badgeService}
}

// @Summary 徽章列表（管理员，含隐藏徽章）
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/admin/gamification/badges [get]
func (c *BadgeController) ListBadges(ctx *gin.Context) {
	badges, err := c.BadgeService.ListBadges(ctx.Request.Context(), true)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 创建徽章
// @Description criteria 取值: level:<n>、streak:<n>、<activity>:<verb>:<n>、manual
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param badge body service.BadgeRequest true "徽章"
// @Success 201 {object} util.Response{data=model.Badge}
// @Router /api/admin/gamification/badges [post]
func (c *BadgeController) CreateBadge(ctx *gin.Context) {
	var req service.BadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	badge, err := c.BadgeService.CreateBadge(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, badge)
}

// @Summary 更新徽章
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "徽章ID"
// @Param badge body service.BadgeRequest true "徽章"
// @Success 200 {object} util.Response{data=model.Badge}
// @Router /api/admin/gamification/badges/{id} [put]
func (c *BadgeController) UpdateBadge(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	var req service.BadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	badge, err := c.BadgeService.UpdateBadge(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, badge)
}

// @Summary 删除徽章
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "徽章ID"
// @Success 200 {object} util.Response
// @Router /api/admin/gamification/badges/{id} [delete]
func (c *BadgeController) DeleteBadge(ctx *gin.Context) {
	if err := c.BadgeService.DeleteBadge(ctx.Request.Context(), util.MustParseUint(ctx.Param("id"))); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type awardBadgeRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

// @Summary 手动颁发徽章
// @Description 已拥有该徽章时 alreadyAwarded 为 true，不会重复发放
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "徽章ID"
// @Param body body awardBadgeRequest true "用户"
// @Success 200 {object} util.Response{data=service.AwardResult}
// @Router /api/admin/gamification/badges/{id}/award [post]
func (c *BadgeController) AwardBadge(ctx *gin.Context) {
	var req awardBadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.BadgeService.AwardBadge(ctx.Request.Context(), req.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
