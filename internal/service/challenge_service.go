package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ChallengeService struct {
	Engine *Engine
}

func NewChallengeService(engine *Engine) *ChallengeService {
	return &ChallengeService{Engine: engine}
}

type ChallengeRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Type          string          `json:"type" binding:"required" example:"weekly"`
	ActivityType  string          `json:"activityType" binding:"required" example:"video_watch"`
	TargetCount   int             `json:"targetCount" binding:"required"`
	SpecificItems []model.ItemRef `json:"specificItems"`
	RewardPoints  int             `json:"rewardPoints"`
	RewardBadgeID *uint           `json:"rewardBadgeId"`
	StartDate     time.Time       `json:"startDate" binding:"required"`
	EndDate       time.Time       `json:"endDate" binding:"required"`
	IsActive      *bool           `json:"isActive"`
}

func (r ChallengeRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return util.NewKindError(util.ErrValidation, "challenge title is required")
	case !model.ChallengeType(r.Type).Valid():
		return util.NewKindError(util.ErrValidation, fmt.Sprintf("unknown challenge type %q", r.Type))
	case strings.TrimSpace(r.ActivityType) == "":
		return util.NewKindError(util.ErrValidation, "activityType is required")
	case r.TargetCount < 1:
		return util.NewKindError(util.ErrValidation, "targetCount must be at least 1")
	case r.RewardPoints < 0:
		return util.NewKindError(util.ErrValidation, "rewardPoints must not be negative")
	case !r.EndDate.After(r.StartDate):
		return util.NewKindError(util.ErrValidation, "endDate must be after startDate")
	}
	for _, item := range r.SpecificItems {
		if item.ItemID == "" || item.ItemType == "" {
			return util.NewKindError(util.ErrValidation, "specific items need itemId and itemType")
		}
	}
	return nil
}

func (r ChallengeRequest) apply(c *model.Challenge) {
	c.Title = strings.TrimSpace(r.Title)
	c.Description = r.Description
	c.Type = model.ChallengeType(r.Type)
	c.ActivityType = strings.ToLower(strings.TrimSpace(r.ActivityType))
	c.TargetCount = r.TargetCount
	c.SpecificItems = r.SpecificItems
	c.RewardPoints = r.RewardPoints
	c.RewardBadgeID = r.RewardBadgeID
	c.StartDate = r.StartDate.UTC()
	c.EndDate = r.EndDate.UTC()
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}

// UpdateProgress 为匹配行为类型的进行中挑战增加进度，首次达到目标时发放奖励
func (s *ChallengeService) UpdateProgress(ctx context.Context, userID uint, activityType string, increment int, item *model.ItemRef) (result *AwardResult, err error) {
	ctx, span := startSpan(ctx, "ChallengeService.UpdateProgress", userID)
	defer func() { endSpan(span, err) }()

	if increment < 1 {
		return nil, util.NewKindError(util.ErrValidation, "increment must be positive")
	}
	return s.Engine.run(ctx, userID, func(u *awardTx) error {
		_, err := s.Engine.progressChallenges(u, activityType, increment, item)
		return err
	})
}

// progressChallenges 返回本次完成的挑战数
func (e *Engine) progressChallenges(u *awardTx, activityType string, increment int, item *model.ItemRef) (int, error) {
	activityType = strings.ToLower(strings.TrimSpace(activityType))
	if activityType == "" {
		return 0, nil
	}
	repo := e.Challenges.WithTx(u.tx)

	challenges, err := repo.ListOpenByActivity(activityType, u.now)
	if err != nil {
		return 0, err
	}
	byID := make(map[uint]*model.Challenge, len(challenges))
	ids := make([]uint, 0, len(challenges))
	seeds := make([]model.ChallengeProgress, 0, len(challenges))
	for i := range challenges {
		c := &challenges[i]
		if !c.InWindow(u.now) || !c.AcceptsItem(item) {
			continue
		}
		byID[c.ID] = c
		ids = append(ids, c.ID)
		seeds = append(seeds, model.ChallengeProgress{UserID: u.userID, ChallengeID: c.ID})
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// 挑战创建后注册的用户可能还没有进度行
	if err := repo.SeedProgress(seeds); err != nil {
		return 0, err
	}
	rows, err := repo.LockOpenProgress(u.userID, ids)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, row := range rows {
		challenge := byID[row.ChallengeID]
		progress := row.Progress + increment
		if progress < challenge.TargetCount {
			if err := repo.SetProgress(row.ID, progress); err != nil {
				return completed, err
			}
			continue
		}

		done, err := repo.MarkCompleted(row.ID, progress, u.now)
		if err != nil {
			return completed, err
		}
		if !done {
			continue
		}
		completed++
		if err := e.rewardChallenge(u, challenge); err != nil {
			return completed, err
		}
	}
	return completed, nil
}

func (e *Engine) rewardChallenge(u *awardTx, challenge *model.Challenge) error {
	if challenge.RewardPoints > 0 {
		err := e.credit(u, creditEntry{
			amount:      challenge.RewardPoints,
			txType:      model.TransactionBonus,
			category:    model.CategoryOther,
			description: fmt.Sprintf("Completed challenge: %s", challenge.Title),
		})
		if err != nil {
			return err
		}
	}

	if challenge.RewardBadgeID != nil {
		badge, err := e.Badges.WithTx(u.tx).FindByID(*challenge.RewardBadgeID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			logger.Log.Warn("Challenge reward badge missing",
				zap.Uint("challengeID", challenge.ID),
				zap.Uint("badgeID", *challenge.RewardBadgeID),
			)
		case err != nil:
			return err
		default:
			if _, err := e.grantBadge(u, badge); err != nil {
				return err
			}
		}
	}

	u.result.ChallengesCompleted = append(u.result.ChallengesCompleted, *challenge)
	logger.Log.Info("Challenge completed",
		zap.Uint("userID", u.userID),
		zap.Uint("challengeID", challenge.ID),
	)
	return nil
}

func (s *ChallengeService) checkRewardBadge(tx *gorm.DB, badgeID *uint) error {
	if badgeID == nil {
		return nil
	}
	_, err := s.Engine.Badges.WithTx(tx).FindByID(*badgeID)
	return translateNotFound(err, util.ErrBadgeNotFound)
}

// seedAllUsers 为全部未禁用用户补齐进度行
func (s *ChallengeService) seedAllUsers(tx *gorm.DB, challengeID uint) error {
	userIDs, err := s.Engine.Users.WithTx(tx).ListActiveIDs()
	if err != nil {
		return err
	}
	rows := make([]model.ChallengeProgress, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, model.ChallengeProgress{UserID: id, ChallengeID: challengeID})
	}
	return s.Engine.Challenges.WithTx(tx).SeedProgress(rows)
}

// CreateChallenge 新建挑战，启用状态下为所有用户创建零进度
func (s *ChallengeService) CreateChallenge(ctx context.Context, req ChallengeRequest) (challenge *model.Challenge, err error) {
	ctx, span := startSpan(ctx, "ChallengeService.CreateChallenge", 0)
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}
	challenge = &model.Challenge{IsActive: true}
	req.apply(challenge)

	err = s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRewardBadge(tx, challenge.RewardBadgeID); err != nil {
			return err
		}
		if err := s.Engine.Challenges.WithTx(tx).Create(challenge); err != nil {
			return err
		}
		if !challenge.IsActive {
			return nil
		}
		return s.seedAllUsers(tx, challenge.ID)
	})
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// UpdateChallenge 从停用切换为启用时只补齐缺失的进度行，已有进度保持不变
func (s *ChallengeService) UpdateChallenge(ctx context.Context, id uint, req ChallengeRequest) (challenge *model.Challenge, err error) {
	ctx, span := startSpan(ctx, "ChallengeService.UpdateChallenge", 0)
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}

	err = s.Engine.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Engine.Challenges.WithTx(tx)
		existing, err := repo.FindByID(id)
		if err != nil {
			return translateNotFound(err, util.ErrChallengeNotFound)
		}
		wasActive := existing.IsActive
		req.apply(existing)
		if err := s.checkRewardBadge(tx, existing.RewardBadgeID); err != nil {
			return err
		}
		if err := repo.Update(existing); err != nil {
			return err
		}
		challenge = existing
		if wasActive || !existing.IsActive {
			return nil
		}
		return s.seedAllUsers(tx, existing.ID)
	})
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, id uint) error {
	repo := s.Engine.Challenges.WithTx(s.Engine.DB.WithContext(ctx))
	if _, err := repo.FindByID(id); err != nil {
		return translateNotFound(err, util.ErrChallengeNotFound)
	}
	return repo.Delete(id)
}

func (s *ChallengeService) GetChallenge(ctx context.Context, id uint) (*model.Challenge, error) {
	challenge, err := s.Engine.Challenges.WithTx(s.Engine.DB.WithContext(ctx)).FindByID(id)
	if err != nil {
		return nil, translateNotFound(err, util.ErrChallengeNotFound)
	}
	return challenge, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context, filter repository.ChallengeFilter) ([]model.Challenge, error) {
	return s.Engine.Challenges.WithTx(s.Engine.DB.WithContext(ctx)).List(filter)
}

// ListUserChallenges 用户的挑战进度，openOnly 为 true 时只返回进行中的挑战
func (s *ChallengeService) ListUserChallenges(ctx context.Context, userID uint, openOnly bool) ([]model.ChallengeProgress, error) {
	var openAt *time.Time
	if openOnly {
		now := s.Engine.Now()
		openAt = &now
	}
	return s.Engine.Challenges.WithTx(s.Engine.DB.WithContext(ctx)).ListUserProgress(userID, openAt)
}

// RunLifecycle 定时任务: 关闭已过期的挑战
func (s *ChallengeService) RunLifecycle(ctx context.Context) error {
	n, err := s.Engine.Challenges.WithTx(s.Engine.DB.WithContext(ctx)).DeactivateExpired(s.Engine.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Log.Info("Expired challenges deactivated", zap.Int64("count", n))
	}
	return nil
}
