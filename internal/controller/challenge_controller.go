package controller

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/gin-gonic/gin"
)

type ChallengeController struct {
	ChallengeService *service.ChallengeService
}

func NewChallengeController(challengeService *service.ChallengeService) *ChallengeController {
	return &ChallengeController{ChallengeService: challengeService}
}

// @Summary 挑战列表（管理员）
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Param type query string false "挑战类型" Enums(daily, weekly, monthly, special)
// @Param active query bool false "只返回启用的挑战"
// @Success 200 {object} util.Response{data=[]model.Challenge}
// @Router /api/admin/gamification/challenges [get]
func (c *ChallengeController) ListChallenges(ctx *gin.Context) {
	filter := repository.ChallengeFilter{
		Type:       model.ChallengeType(ctx.Query("type")),
		ActiveOnly: ctx.Query("active") == "true",
	}

	challenges, err := c.ChallengeService.ListChallenges(ctx.Request.Context(), filter)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, challenges)
}

// @Summary 挑战详情
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "挑战ID"
// @Success 200 {object} util.Response{data=model.Challenge}
// @Router /api/admin/gamification/challenges/{id} [get]
func (c *ChallengeController) GetChallenge(ctx *gin.Context) {
	challenge, err := c.ChallengeService.GetChallenge(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, challenge)
}

// @Summary 创建挑战
// @Description 启用的挑战会为所有现有用户生成进度记录
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param challenge body service.ChallengeRequest true "挑战"
// @Success 201 {object} util.Response{data=model.Challenge}
// @Router /api/admin/gamification/challenges [post]
func (c *ChallengeController) CreateChallenge(ctx *gin.Context) {
	var req service.ChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.CreateChallenge(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, challenge)
}

// @Summary 更新挑战
// @Tags 游戏化管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "挑战ID"
// @Param challenge body service.ChallengeRequest true "挑战"
// @Success 200 {object} util.Response{data=model.Challenge}
// @Router /api/admin/gamification/challenges/{id} [put]
func (c *ChallengeController) UpdateChallenge(ctx *gin.Context) {
	var req service.ChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.UpdateChallenge(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, challenge)
}

// @Summary 删除挑战
// @Tags 游戏化管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "挑战ID"
// @Success 200 {object} util.Response
// @Router /api/admin/gamification/challenges/{id} [delete]
func (c *ChallengeController) DeleteChallenge(ctx *gin.Context) {
	if err := c.ChallengeService.DeleteChallenge(ctx.Request.Context(), util.MustParseUint(ctx.Param("id"))); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
