package controller

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/gin-gonic/gin"
)

type RewardController struct {
	RewardService *service.RewardService
}

func NewRewardController(rewardService *service.RewardService) *RewardController {
	return &RewardController{RewardService: rewardService}
}

// @Summary 奖励商城
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param category query string false "分类"
// @Param all query bool false "包含当前不可兑换的奖励"
// @Success 200 {object} util.Response{data=[]model.Reward}
// @Router /api/rewards [get]
func (c *RewardController) ListRewards(ctx *gin.Context) {
	availableOnly := ctx.Query("all") != "true"
	rewards, err := c.RewardService.ListRewards(ctx.Request.Context(), ctx.Query("category"), availableOnly)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}

// @Summary 奖励详情
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param id path int true "奖励ID"
// @Success 200 {object} util.Response{data=model.Reward}
// @Router /api/rewards/{id} [get]
func (c *RewardController) GetReward(ctx *gin.Context) {
	reward, err := c.RewardService.GetReward(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reward)
}

// @Summary 兑换奖励
// @Description 扣除积分并生成兑换码
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param id path int true "奖励ID"
// @Success 201 {object} util.Response{data=model.Redemption}
// @Failure 400 {object} util.Response "积分不足"
// @Failure 409 {object} util.Response "未上架、不在有效期或库存不足"
// @Router /api/rewards/{id}/redeem [post]
func (c *RewardController) Redeem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	redemption, err := c.RewardService.Redeem(ctx.Request.Context(), user.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, redemption)
}

// @Summary 我的兑换记录
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/rewards/redemptions [get]
func (c *RewardController) ListMyRedemptions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := util.ParsePagination(ctx)

	redemptions, total, err := c.RewardService.ListUserRedemptions(ctx.Request.Context(), user.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: redemptions, Total: total, Page: page, Limit: limit})
}

// @Summary 校验兑换码
// @Description 只有兑换人本人或管理员可以查看
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param code path string true "兑换码"
// @Success 200 {object} util.Response{data=model.Redemption}
// @Router /api/rewards/redemptions/verify/{code} [get]
func (c *RewardController) VerifyCode(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	redemption, err := c.RewardService.VerifyByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if redemption.UserID != user.UserID && !isAdmin(user) {
		util.HandleError(ctx, util.ErrPermissionDenied)
		return
	}

	util.Success(ctx, redemption)
}

// @Summary 核销兑换码（管理员）
// @Tags 奖励
// @Produce json
// @Security BearerAuth
// @Param id path int true "兑换记录ID"
// @Success 200 {object} util.Response{data=model.Redemption}
// @Failure 409 {object} util.Response "已使用"
// @Router /api/rewards/redemptions/{id}/use [post]
func (c *RewardController) MarkUsed(ctx *gin.Context) {
	redemption, err := c.RewardService.MarkUsed(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, redemption)
}

// @Summary 创建奖励
// @Description quantity 为 -1 表示不限库存
// @Tags 奖励管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reward body service.RewardRequest true "奖励"
// @Success 201 {object} util.Response{data=model.Reward}
// @Router /api/admin/rewards [post]
func (c *RewardController) CreateReward(ctx *gin.Context) {
	var req service.RewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reward, err := c.RewardService.CreateReward(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, reward)
}

// @Summary 更新奖励
// @Tags 奖励管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "奖励ID"
// @Param reward body service.RewardRequest true "奖励"
// @Success 200 {object} util.Response{data=model.Reward}
// @Router /api/admin/rewards/{id} [put]
func (c *RewardController) UpdateReward(ctx *gin.Context) {
	var req service.RewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reward, err := c.RewardService.UpdateReward(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, reward)
}

// @Summary 删除奖励
// @Tags 奖励管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "奖励ID"
// @Success 200 {object} util.Response
// @Router /api/admin/rewards/{id} [delete]
func (c *RewardController) DeleteReward(ctx *gin.Context) {
	if err := c.RewardService.DeleteReward(ctx.Request.Context(), util.MustParseUint(ctx.Param("id"))); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func isAdmin(user *util.Claims) bool {
	return user.Role == model.Admin
}
