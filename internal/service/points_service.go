package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"gorm.io/gorm"
)

type PointsService struct {
	Engine *Engine
}

func NewPointsService(engine *Engine) *PointsService {
	return &PointsService{Engine: engine}
}

type AwardPointsRequest struct {
	UserID      uint                `json:"userId" binding:"required"`
	Amount      int                 `json:"amount" binding:"required"`
	Category    model.PointCategory `json:"category" binding:"required" example:"video"`
	Description string              `json:"description"`
	RelatedItem *model.ItemRef      `json:"relatedItem"`
}

func (r *AwardPointsRequest) validate() error {
	if r.Amount <= 0 {
		return util.ErrInvalidAmount
	}
	r.Category = model.PointCategory(strings.ToLower(string(r.Category)))
	if !r.Category.Valid() {
		return util.ErrInvalidCategory
	}
	if r.RelatedItem != nil && (r.RelatedItem.ItemID == "" || r.RelatedItem.ItemType == "") {
		r.RelatedItem = nil
	}
	return nil
}

// AwardPoints 发放积分。升级徽章、连续打卡和同类别挑战进度在同一事务中结算。
func (s *PointsService) AwardPoints(ctx context.Context, req AwardPointsRequest) (result *AwardResult, err error) {
	ctx, span := startSpan(ctx, "PointsService.AwardPoints", req.UserID)
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.Engine.run(ctx, req.UserID, func(u *awardTx) error {
		return s.Engine.awardPoints(u, req)
	})
}

// GetAccount 账户不存在时返回初始状态，不会写库
func (s *PointsService) GetAccount(ctx context.Context, userID uint) (*model.PointsAccount, error) {
	account, err := s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).FindAccount(userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &model.PointsAccount{
		UserID:            userID,
		Level:             1,
		PointsToNextLevel: levelThreshold(s.Engine.Rules(), 1),
	}, nil
}

func (s *PointsService) History(ctx context.Context, userID uint, page, limit int) ([]model.PointTransaction, int64, error) {
	return s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).ListTransactions(userID, (page-1)*limit, limit)
}
