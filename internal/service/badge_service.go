package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BadgeService struct {
	Engine *Engine
}

func NewBadgeService(engine *Engine) *BadgeService {
	return &BadgeService{Engine: engine}
}

type BadgeRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Category      string `json:"category"`
	Level         int    `json:"level"`
	PointsAwarded int    `json:"pointsAwarded"`
	Criteria      string `json:"criteria" binding:"required" example:"streak:7"`
	IsHidden      bool   `json:"isHidden"`
}

func (r BadgeRequest) toModel() (*model.Badge, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, util.NewKindError(util.ErrValidation, "badge name is required")
	}
	level := r.Level
	if level == 0 {
		level = 1
	}
	if level < 1 || level > 5 {
		return nil, util.NewKindError(util.ErrValidation, "badge level must be between 1 and 5")
	}
	if r.PointsAwarded < 0 {
		return nil, util.NewKindError(util.ErrValidation, "pointsAwarded must not be negative")
	}
	criteria, err := model.ParseCriteria(r.Criteria)
	if err != nil {
		return nil, util.NewKindError(util.ErrValidation, err.Error())
	}
	return &model.Badge{
		Name:          name,
		Description:   r.Description,
		Icon:          r.Icon,
		Category:      r.Category,
		Level:         level,
		PointsAwarded: r.PointsAwarded,
		Criteria:      criteria,
		IsHidden:      r.IsHidden,
	}, nil
}

// AwardBadge 手动或由其他流程颁发徽章，同一用户同一徽章只会颁发一次
func (s *BadgeService) AwardBadge(ctx context.Context, userID, badgeID uint) (result *AwardResult, err error) {
	ctx, span := startSpan(ctx, "BadgeService.AwardBadge", userID)
	defer func() { endSpan(span, err) }()

	badge, err := s.Engine.Badges.WithTx(s.Engine.DB.WithContext(ctx)).FindByID(badgeID)
	if err != nil {
		return nil, translateNotFound(err, util.ErrBadgeNotFound)
	}

	return s.Engine.run(ctx, userID, func(u *awardTx) error {
		awarded, err := s.Engine.grantBadge(u, badge)
		if err != nil {
			return err
		}
		u.result.AlreadyAwarded = !awarded
		return nil
	})
}

// grantBadge 插入获奖记录，新获得时处理展示位和奖励积分
func (e *Engine) grantBadge(u *awardTx, badge *model.Badge) (bool, error) {
	repo := e.Badges.WithTx(u.tx)

	award := &model.BadgeAward{
		UserID:   u.userID,
		BadgeID:  badge.ID,
		EarnedAt: u.now,
	}
	if !badge.IsHidden {
		displayed, err := repo.CountDisplayed(u.userID)
		if err != nil {
			return false, err
		}
		award.Displayed = displayed < int64(u.rules.MaxDisplayedBadges)
	}

	inserted, err := repo.InsertAward(award)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	u.grants++
	if u.grants > u.rules.MaxSettleSteps {
		logger.Log.Error("Badge cascade exceeded limit",
			zap.Uint("userID", u.userID),
			zap.Int("limit", u.rules.MaxSettleSteps),
		)
		return false, util.ErrSettleLimitExceeded
	}

	if badge.PointsAwarded > 0 {
		err := e.credit(u, creditEntry{
			amount:      badge.PointsAwarded,
			txType:      model.TransactionBonus,
			category:    model.CategoryOther,
			description: fmt.Sprintf("Earned badge: %s", badge.Name),
		})
		if err != nil {
			return false, err
		}
	}

	u.result.BadgesAwarded = append(u.result.BadgesAwarded, *badge)
	logger.Log.Info("Badge awarded",
		zap.Uint("userID", u.userID),
		zap.Uint("badgeID", badge.ID),
		zap.String("criteria", badge.Criteria.String()),
	)
	return true, nil
}

func (s *BadgeService) CreateBadge(ctx context.Context, req BadgeRequest) (*model.Badge, error) {
	badge, err := req.toModel()
	if err != nil {
		return nil, err
	}

	err = s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Badges.WithTx(tx)
		if taken, err := repo.NameTaken(badge.Name, 0); err != nil {
			return err
		} else if taken {
			return util.ErrDuplicateBadgeName
		}
		return translateDuplicate(repo.Create(badge), util.ErrDuplicateBadgeName)
	})
	if err != nil {
		return nil, err
	}
	return badge, nil
}

func (s *BadgeService) UpdateBadge(ctx context.Context, id uint, req BadgeRequest) (*model.Badge, error) {
	updated, err := req.toModel()
	if err != nil {
		return nil, err
	}

	var badge *model.Badge
	err = s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Badges.WithTx(tx)
		badge, err = repo.FindByID(id)
		if err != nil {
			return translateNotFound(err, util.ErrBadgeNotFound)
		}
		if updated.Name != badge.Name {
			if taken, err := repo.NameTaken(updated.Name, badge.ID); err != nil {
				return err
			} else if taken {
				return util.ErrDuplicateBadgeName
			}
		}

		badge.Name = updated.Name
		badge.Description = updated.Description
		badge.Icon = updated.Icon
		badge.Category = updated.Category
		badge.Level = updated.Level
		badge.PointsAwarded = updated.PointsAwarded
		badge.Criteria = updated.Criteria
		badge.IsHidden = updated.IsHidden
		return translateDuplicate(repo.Update(badge), util.ErrDuplicateBadgeName)
	})
	if err != nil {
		return nil, err
	}
	return badge, nil
}

func (s *BadgeService) DeleteBadge(ctx context.Context, id uint) error {
	repo := s.Engine.Badges.WithTx(s.Engine.DB.WithContext(ctx))
	if _, err := repo.FindByID(id); err != nil {
		return translateNotFound(err, util.ErrBadgeNotFound)
	}
	return repo.Delete(id)
}

func (s *BadgeService) GetBadge(ctx context.Context, id uint) (*model.Badge, error) {
	badge, err := s.Engine.Badges.WithTx(s.Engine.DB.WithContext(ctx)).FindByID(id)
	if err != nil {
		return nil, translateNotFound(err, util.ErrBadgeNotFound)
	}
	return badge, nil
}

// ListBadges 徽章目录，普通用户看不到隐藏徽章
func (s *BadgeService) ListBadges(ctx context.Context, includeHidden bool) ([]model.Badge, error) {
	return s.Engine.Badges.WithTx(s.Engine.DB.WithContext(ctx)).List(includeHidden)
}

func (s *BadgeService) ListUserBadges(ctx context.Context, userID uint) ([]model.BadgeAward, error) {
	return s.Engine.Badges.WithTx(s.Engine.DB.WithContext(ctx)).ListAwards(userID)
}
