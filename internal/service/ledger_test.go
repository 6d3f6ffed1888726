package service

import (
	"context"
	"testing"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelThreshold(t *testing.T) {
	rules := config.DefaultGamification()

	assert.Equal(t, 100, levelThreshold(&rules, 1))
	assert.Equal(t, 283, levelThreshold(&rules, 2))
	assert.Equal(t, 520, levelThreshold(&rules, 3))
	assert.Equal(t, 800, levelThreshold(&rules, 4))

	rules.LevelBase = 0.001
	assert.Equal(t, 1, levelThreshold(&rules, 1))
}

func TestAwardPoints_LevelsUp(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")

	result := env.award(t, userID, 250)

	require.NotNil(t, result.Account)
	assert.Equal(t, 2, result.Account.Level)
	assert.Equal(t, 150, result.Account.CurrentLevelPoints)
	assert.Equal(t, 283, result.Account.PointsToNextLevel)
	assert.Equal(t, []int{2}, result.LevelsGained)

	account := env.account(t, userID)
	assert.Equal(t, 250, account.TotalPoints)
	assert.Equal(t, 250, account.CoursePoints)
	assert.Equal(t, 2, account.Level)
	assert.Equal(t, 150, account.CurrentLevelPoints)
	assert.Equal(t, 283, account.PointsToNextLevel)

	earned := env.transactions(t, userID, model.TransactionEarned)
	require.Len(t, earned, 1)
	assert.Equal(t, 250, earned[0].Amount)
	assert.Equal(t, model.CategoryCourse, earned[0].Category)
}

func TestAwardPoints_AccumulatesWithoutLevelUp(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "bob")

	env.award(t, userID, 40)
	result := env.award(t, userID, 50)

	assert.Empty(t, result.LevelsGained)
	account := env.account(t, userID)
	assert.Equal(t, 90, account.TotalPoints)
	assert.Equal(t, 1, account.Level)
	assert.Equal(t, 90, account.CurrentLevelPoints)
	assert.Less(t, account.CurrentLevelPoints, account.PointsToNextLevel)
}

func TestAwardPoints_OtherCategoryOnlyAffectsTotals(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "carol")

	_, err := env.points.AwardPoints(context.Background(), AwardPointsRequest{
		UserID:   userID,
		Amount:   30,
		Category: model.CategoryOther,
	})
	require.NoError(t, err)

	account := env.account(t, userID)
	assert.Equal(t, 30, account.TotalPoints)
	assert.Zero(t, account.CoursePoints+account.VideoPoints+account.QuizPoints+
		account.AttendancePoints+account.BlogPoints+account.CommentPoints+account.SocialPoints)
}

func TestAwardPoints_Validation(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "dave")
	ctx := context.Background()

	_, err := env.points.AwardPoints(ctx, AwardPointsRequest{UserID: userID, Amount: 0, Category: model.CategoryQuiz})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = env.points.AwardPoints(ctx, AwardPointsRequest{UserID: userID, Amount: 10, Category: "music"})
	assert.ErrorIs(t, err, util.ErrInvalidCategory)

	_, err = env.points.AwardPoints(ctx, AwardPointsRequest{UserID: 9999, Amount: 10, Category: model.CategoryQuiz})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestAwardPoints_LevelBadgeCascade(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "erin")
	env.createBadge(t, "Level 2", model.LevelCriteria(2), 300)
	env.createBadge(t, "Level 3", model.LevelCriteria(3), 0)

	result := env.award(t, userID, 250)

	// 250 → 2 级 (150/283)，徽章奖励 300 → 3 级 (167/520)
	assert.Equal(t, []int{2, 3}, result.LevelsGained)
	require.Len(t, result.BadgesAwarded, 2)
	assert.Equal(t, "Level 2", result.BadgesAwarded[0].Name)
	assert.Equal(t, "Level 3", result.BadgesAwarded[1].Name)
	assert.Equal(t, 550, result.PointsAwarded)

	account := env.account(t, userID)
	assert.Equal(t, 550, account.TotalPoints)
	assert.Equal(t, 3, account.Level)
	assert.Equal(t, 167, account.CurrentLevelPoints)
	assert.Equal(t, 520, account.PointsToNextLevel)

	bonus := env.transactions(t, userID, model.TransactionBonus)
	require.Len(t, bonus, 1)
	assert.Equal(t, 300, bonus[0].Amount)
	assert.Equal(t, model.CategoryOther, bonus[0].Category)
}

func TestAwardPoints_TouchesStreakOnce(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "frank")

	result := env.award(t, userID, 10)
	require.NotNil(t, result.Streak)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	require.Len(t, result.Streak.History, 1)
	assert.Equal(t, []string{"other"}, result.Streak.History[0].Activities)
}

func TestAwardPoints_RollsBackOnSettleLimit(t *testing.T) {
	env := newTestEnv(t)
	rules := config.DefaultGamification()
	rules.MaxSettleSteps = 1
	env.engine.SetRules(rules)

	userID := env.createUser(t, "grace")
	env.createBadge(t, "Level 2", model.LevelCriteria(2), 0)
	env.createBadge(t, "Level 3", model.LevelCriteria(3), 0)

	_, err := env.points.AwardPoints(context.Background(), AwardPointsRequest{
		UserID:   userID,
		Amount:   1000,
		Category: model.CategoryCourse,
	})
	require.ErrorIs(t, err, util.ErrSettleLimitExceeded)

	var count int64
	require.NoError(t, env.db.Model(&model.PointTransaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count)
}
