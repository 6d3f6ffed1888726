package service

import (
	"context"
	"errors"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OnboardingService struct {
	Engine *Engine
}

func NewOnboardingService(engine *Engine) *OnboardingService {
	return &OnboardingService{Engine: engine}
}

// InitializeUser 注册后调用: 创建账户和连续记录，分配启用的挑战，颁发欢迎徽章。重复调用是安全的。
func (s *OnboardingService) InitializeUser(ctx context.Context, userID uint) (result *AwardResult, err error) {
	ctx, span := startSpan(ctx, "OnboardingService.InitializeUser", userID)
	defer func() { endSpan(span, err) }()

	return s.Engine.run(ctx, userID, func(u *awardTx) error {
		u.accountDirty = true

		streaks := s.Engine.Streaks.WithTx(u.tx)
		if err := streaks.Ensure(userID); err != nil {
			return err
		}

		challenges := s.Engine.Challenges.WithTx(u.tx)
		active, err := challenges.List(repository.ChallengeFilter{ActiveOnly: true})
		if err != nil {
			return err
		}
		rows := make([]model.ChallengeProgress, 0, len(active))
		for _, c := range active {
			rows = append(rows, model.ChallengeProgress{UserID: userID, ChallengeID: c.ID})
		}
		if err := challenges.SeedProgress(rows); err != nil {
			return err
		}

		welcome, err := s.Engine.Badges.WithTx(u.tx).FindByName(u.rules.WelcomeBadge)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.Warn("Welcome badge not configured", zap.String("name", u.rules.WelcomeBadge))
			return nil
		}
		if err != nil {
			return err
		}
		_, err = s.Engine.grantBadge(u, welcome)
		return err
	})
}
