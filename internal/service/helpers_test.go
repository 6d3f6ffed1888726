package service

import (
	"context"
	"testing"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db  *gorm.DB
	now time.Time

	engine     *Engine
	points     *PointsService
	streaks    *StreakService
	badges     *BadgeService
	challenges *ChallengeService
	rewards    *RewardService
	activities *ActivityService
	onboarding *OnboardingService
	profile    *ProfileService
}

// newTestDB 内存 SQLite，只保留一个连接，事务之间串行执行
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, cache *repository.LeaderboardCache) *testEnv {
	t.Helper()
	env := &testEnv{
		db:  newTestDB(t),
		now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	env.engine = NewEngine(env.db, config.DefaultGamification(), cache)
	env.engine.SetClock(func() time.Time { return env.now })

	env.points = NewPointsService(env.engine)
	env.streaks = NewStreakService(env.engine)
	env.badges = NewBadgeService(env.engine)
	env.challenges = NewChallengeService(env.engine)
	env.rewards = NewRewardService(env.engine)
	env.activities = NewActivityService(env.engine)
	env.onboarding = NewOnboardingService(env.engine)
	env.profile = NewProfileService(env.engine, env.points, env.streaks, env.badges, env.challenges)
	return env
}

func (env *testEnv) createUser(t *testing.T, name string) uint {
	t.Helper()
	user := &model.User{Name: name, Email: name + "@example.com", Role: model.Student}
	require.NoError(t, env.db.Create(user).Error)
	return user.ID
}

func (env *testEnv) createBadge(t *testing.T, name string, criteria model.Criteria, points int) *model.Badge {
	t.Helper()
	badge := &model.Badge{
		Name:          name,
		Level:         1,
		PointsAwarded: points,
		Criteria:      criteria,
	}
	require.NoError(t, env.db.Create(badge).Error)
	return badge
}

func (env *testEnv) account(t *testing.T, userID uint) *model.PointsAccount {
	t.Helper()
	var account model.PointsAccount
	require.NoError(t, env.db.Where("user_id = ?", userID).First(&account).Error)
	return &account
}

func (env *testEnv) transactions(t *testing.T, userID uint, txType model.TransactionType) []model.PointTransaction {
	t.Helper()
	var txs []model.PointTransaction
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", userID, txType).Order("id ASC").Find(&txs).Error)
	return txs
}

func (env *testEnv) award(t *testing.T, userID uint, amount int) *AwardResult {
	t.Helper()
	result, err := env.points.AwardPoints(context.Background(), AwardPointsRequest{
		UserID:   userID,
		Amount:   amount,
		Category: model.CategoryCourse,
	})
	require.NoError(t, err)
	return result
}
