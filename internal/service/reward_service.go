package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codePlaceholder   = "{code}"
	maxCodeAttempts   = 5
	maxCodeTemplate   = 40
	redeemDescription = "Redeemed reward: %s"
)

type RewardService struct {
	Engine *Engine
}

func NewRewardService(engine *Engine) *RewardService {
	return &RewardService{Engine: engine}
}

type RewardRequest struct {
	Name         string     `json:"name" binding:"required"`
	Description  string     `json:"description"`
	PointsCost   int        `json:"pointsCost" binding:"required"`
	Category     string     `json:"category"`
	Image        string     `json:"image"`
	CodeTemplate string     `json:"codeTemplate" example:"EDU-{code}"`
	ValidFrom    *time.Time `json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil"`
	Quantity     *int       `json:"quantity"`
	IsActive     *bool      `json:"isActive"`
}

func (r RewardRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return util.NewKindError(util.ErrValidation, "reward name is required")
	case r.PointsCost < 1:
		return util.NewKindError(util.ErrValidation, "pointsCost must be at least 1")
	case r.Quantity != nil && *r.Quantity < model.UnlimitedQuantity:
		return util.NewKindError(util.ErrValidation, "quantity must be -1 (unlimited) or >= 0")
	case len(r.CodeTemplate) > maxCodeTemplate:
		return util.NewKindError(util.ErrValidation, "codeTemplate is too long")
	case r.ValidFrom != nil && r.ValidUntil != nil && r.ValidUntil.Before(*r.ValidFrom):
		return util.NewKindError(util.ErrValidation, "validUntil must not be before validFrom")
	}
	return nil
}

func (r RewardRequest) apply(reward *model.Reward, now time.Time) {
	reward.Name = strings.TrimSpace(r.Name)
	reward.Slug = slug.Make(reward.Name)
	reward.Description = r.Description
	reward.PointsCost = r.PointsCost
	reward.Category = r.Category
	reward.Image = r.Image
	reward.CodeTemplate = r.CodeTemplate
	if r.ValidFrom != nil {
		reward.ValidFrom = r.ValidFrom.UTC()
	} else if reward.ValidFrom.IsZero() {
		reward.ValidFrom = now
	}
	if r.ValidUntil != nil {
		until := r.ValidUntil.UTC()
		reward.ValidUntil = &until
	} else {
		reward.ValidUntil = nil
	}
	if r.Quantity != nil {
		reward.Quantity = *r.Quantity
	}
	if r.IsActive != nil {
		reward.IsActive = *r.IsActive
	}
}

// Redeem 校验顺序: 上架 → 有效期 → 库存 → 余额。扣分、扣库存和生成兑换码在同一事务内完成。
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID uint) (redemption *model.Redemption, err error) {
	ctx, span := startSpan(ctx, "RewardService.Redeem", userID)
	defer func() {
		result := "success"
		if err != nil {
			result = redeemFailureLabel(err)
		}
		monitoring.Redemptions.WithLabelValues(result).Inc()
		endSpan(span, err)
	}()

	_, err = s.Engine.run(ctx, userID, func(u *awardTx) error {
		var err error
		redemption, err = s.Engine.redeem(u, rewardID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Reward redeemed",
		zap.Uint("userID", userID),
		zap.Uint("rewardID", rewardID),
		zap.String("code", redemption.RedemptionCode),
	)
	return redemption, nil
}

func (e *Engine) redeem(u *awardTx, rewardID uint) (*model.Redemption, error) {
	rewards := e.Rewards.WithTx(u.tx)

	reward, err := rewards.FindByID(rewardID)
	if err != nil {
		return nil, translateNotFound(err, util.ErrRewardNotFound)
	}
	switch {
	case !reward.IsActive:
		return nil, util.ErrRewardInactive
	case !reward.Available(u.now):
		return nil, util.ErrRewardNotAvailable
	case !reward.Unlimited() && reward.Quantity <= 0:
		return nil, util.ErrRewardOutOfStock
	case u.account.TotalPoints < reward.PointsCost:
		return nil, util.ErrInsufficientPoints
	}

	debited, err := e.Points.WithTx(u.tx).DebitIfSufficient(u.userID, reward.PointsCost)
	if err != nil {
		return nil, err
	}
	if !debited {
		return nil, util.ErrInsufficientPoints
	}
	u.account.TotalPoints -= reward.PointsCost
	u.rankChanged = true

	err = e.Points.WithTx(u.tx).CreateTransaction(&model.PointTransaction{
		UserID:      u.userID,
		Amount:      -reward.PointsCost,
		Type:        model.TransactionSpent,
		Category:    model.CategoryOther,
		Description: fmt.Sprintf(redeemDescription, reward.Name),
		CreatedAt:   u.now,
	})
	if err != nil {
		return nil, err
	}

	if !reward.Unlimited() {
		ok, err := rewards.DecrementStock(reward.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrRewardOutOfStock
		}
		reward.Quantity--
	}

	code, err := e.uniqueCode(rewards, reward.CodeTemplate, u)
	if err != nil {
		return nil, err
	}

	redemption := &model.Redemption{
		UserID:         u.userID,
		RewardID:       reward.ID,
		PointsSpent:    reward.PointsCost,
		RedemptionCode: code,
		ExpiresAt:      u.now.AddDate(0, 0, u.rules.RedemptionValidDays),
		Status:         model.RedemptionCompleted,
		CreatedAt:      u.now,
	}
	if err := rewards.CreateRedemption(redemption); err != nil {
		return nil, err
	}
	redemption.Reward = *reward
	return redemption, nil
}

func (e *Engine) uniqueCode(rewards *repository.RewardRepository, template string, u *awardTx) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := RedemptionCode(template, u.rules.CodeLength, u.now)
		exists, err := rewards.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique redemption code")
}

// RedemptionCode 随机段 + "-" + 36 进制时间戳，模板中的 {code} 会被替换
func RedemptionCode(template string, length int, now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if length > len(random) {
		length = len(random)
	}
	code := random[:length] + "-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	switch {
	case template == "":
		return code
	case strings.Contains(template, codePlaceholder):
		return strings.ReplaceAll(template, codePlaceholder, code)
	default:
		return template + "-" + code
	}
}

func redeemFailureLabel(err error) string {
	switch {
	case errors.Is(err, util.ErrRewardOutOfStock):
		return "out_of_stock"
	case errors.Is(err, util.ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, util.ErrRewardInactive), errors.Is(err, util.ErrRewardNotAvailable):
		return "unavailable"
	case errors.Is(err, util.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// MarkUsed 核销兑换码，只能从未使用变为已使用
func (s *RewardService) MarkUsed(ctx context.Context, redemptionID uint) (redemption *model.Redemption, err error) {
	ctx, span := startSpan(ctx, "RewardService.MarkUsed", 0)
	defer func() { endSpan(span, err) }()

	err = s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Rewards.WithTx(tx)
		found, err := repo.FindRedemptionByID(redemptionID)
		if err != nil {
			return translateNotFound(err, util.ErrRedemptionNotFound)
		}
		if found.IsUsed {
			return util.ErrRedemptionUsed
		}

		now := s.Engine.Now()
		ok, err := repo.MarkUsed(found.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrRedemptionUsed
		}
		found.IsUsed = true
		found.UsedAt = &now
		redemption = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

// VerifyByCode 只读查询，是否已使用或过期由调用方判断
func (s *RewardService) VerifyByCode(ctx context.Context, code string) (*model.Redemption, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, util.ErrRedemptionNotFound
	}
	redemption, err := s.Engine.Rewards.WithTx(s.Engine.DB.WithContext(ctx)).FindRedemptionByCode(code)
	if err != nil {
		return nil, translateNotFound(err, util.ErrRedemptionNotFound)
	}
	return redemption, nil
}

func (s *RewardService) ListUserRedemptions(ctx context.Context, userID uint, page, limit int) ([]model.Redemption, int64, error) {
	return s.Engine.Rewards.WithTx(s.Engine.DB.WithContext(ctx)).ListRedemptions(userID, (page-1)*limit, limit)
}

// ListRewards availableOnly 为 true 时只返回当前可兑换的奖励
func (s *RewardService) ListRewards(ctx context.Context, category string, availableOnly bool) ([]model.Reward, error) {
	filter := repository.RewardFilter{Category: category}
	if availableOnly {
		now := s.Engine.Now()
		filter.AvailableAt = &now
	}
	return s.Engine.Rewards.WithTx(s.Engine.DB.WithContext(ctx)).List(filter)
}

func (s *RewardService) GetReward(ctx context.Context, id uint) (*model.Reward, error) {
	reward, err := s.Engine.Rewards.WithTx(s.Engine.DB.WithContext(ctx)).FindByID(id)
	if err != nil {
		return nil, translateNotFound(err, util.ErrRewardNotFound)
	}
	return reward, nil
}

func (s *RewardService) CreateReward(ctx context.Context, req RewardRequest) (*model.Reward, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	reward := &model.Reward{Quantity: model.UnlimitedQuantity, IsActive: true}
	req.apply(reward, s.Engine.Now())

	err := s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Rewards.WithTx(tx)
		if taken, err := repo.NameTaken(reward.Name, reward.Slug, 0); err != nil {
			return err
		} else if taken {
			return util.ErrDuplicateRewardName
		}
		return translateDuplicate(repo.Create(reward), util.ErrDuplicateRewardName)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *RewardService) UpdateReward(ctx context.Context, id uint, req RewardRequest) (*model.Reward, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var reward *model.Reward
	err := s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Rewards.WithTx(tx)
		existing, err := repo.FindByID(id)
		if err != nil {
			return translateNotFound(err, util.ErrRewardNotFound)
		}
		name := strings.TrimSpace(req.Name)
		if name != existing.Name {
			if taken, err := repo.NameTaken(name, slug.Make(name), existing.ID); err != nil {
				return err
			} else if taken {
				return util.ErrDuplicateRewardName
			}
		}
		req.apply(existing, s.Engine.Now())
		if err := repo.Update(existing); err != nil {
			return translateDuplicate(err, util.ErrDuplicateRewardName)
		}
		reward = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *RewardService) DeleteReward(ctx context.Context, id uint) error {
	repo := s.Engine.Rewards.WithTx(s.Engine.DB.WithContext(ctx))
	if _, err := repo.FindByID(id); err != nil {
		return translateNotFound(err, util.ErrRewardNotFound)
	}
	return repo.Delete(id)
}
