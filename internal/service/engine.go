package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AwardResult 一次调用产生的全部变化
type AwardResult struct {
	Account             *model.PointsAccount `json:"account,omitempty"`
	PointsAwarded       int                  `json:"pointsAwarded"`
	LevelsGained        []int                `json:"levelsGained,omitempty"`
	BadgesAwarded       []model.Badge        `json:"badgesAwarded,omitempty"`
	ChallengesCompleted []model.Challenge    `json:"challengesCompleted,omitempty"`
	Streak              *model.Streak        `json:"streak,omitempty"`
	AlreadyAwarded      bool                 `json:"alreadyAwarded,omitempty"`
	Skipped             bool                 `json:"skipped,omitempty"`
}

// awardTx 一次对外调用的工作单元，所有写操作共用同一个事务。
// pending 中的条件在提交前由 settle 逐个处理。
type awardTx struct {
	ctx    context.Context
	tx     *gorm.DB
	now    time.Time
	userID uint
	rules  *config.GamificationConfig

	account       *model.PointsAccount
	accountDirty  bool
	rankChanged   bool
	pending       []model.Criteria
	streakTouched bool
	grants        int

	credited map[model.PointCategory]int
	result   *AwardResult
}

func (u *awardTx) enqueue(c model.Criteria) {
	u.pending = append(u.pending, c)
}

// Engine 积分、连续打卡、徽章与挑战共用的核心
type Engine struct {
	DB          *gorm.DB
	Users       *repository.UserRepository
	Points      *repository.PointsRepository
	Streaks     *repository.StreakRepository
	Badges      *repository.BadgeRepository
	Challenges  *repository.ChallengeRepository
	Rewards     *repository.RewardRepository
	Activities  *repository.ActivityRepository
	Leaderboard *repository.LeaderboardCache

	rules atomic.Pointer[config.GamificationConfig]
	now   func() time.Time
}

func NewEngine(db *gorm.DB, rules config.GamificationConfig, cache *repository.LeaderboardCache) *Engine {
	e := &Engine{
		DB:          db,
		Users:       repository.NewUserRepository(db),
		Points:      repository.NewPointsRepository(db),
		Streaks:     repository.NewStreakRepository(db),
		Badges:      repository.NewBadgeRepository(db),
		Challenges:  repository.NewChallengeRepository(db),
		Rewards:     repository.NewRewardRepository(db),
		Activities:  repository.NewActivityRepository(db),
		Leaderboard: cache,
		now:         time.Now,
	}
	e.SetRules(rules)
	return e
}

// Rules 当前生效的规则快照
func (e *Engine) Rules() *config.GamificationConfig {
	return e.rules.Load()
}

func (e *Engine) SetRules(rules config.GamificationConfig) {
	normalized := rules.Normalize()
	e.rules.Store(&normalized)
}

// SetClock 替换时钟
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// run 在单个事务中执行 fn，并在提交前处理级联的徽章条件
func (e *Engine) run(ctx context.Context, userID uint, fn func(u *awardTx) error) (*AwardResult, error) {
	u := &awardTx{
		ctx:      ctx,
		now:      e.Now(),
		userID:   userID,
		rules:    e.Rules(),
		credited: make(map[model.PointCategory]int),
		result:   &AwardResult{},
	}

	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u.tx = tx
		exists, err := e.Users.WithTx(tx).Exists(userID)
		if err != nil {
			return err
		}
		if !exists {
			return util.ErrUserNotFound
		}
		if err := e.lockAccount(u); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		return e.settle(u)
	})
	if err != nil {
		return nil, err
	}

	e.afterCommit(u)
	return u.result, nil
}

// lockAccount 获取或创建积分账户并加行锁，同一用户的写操作由此串行
func (e *Engine) lockAccount(u *awardTx) error {
	repo := e.Points.WithTx(u.tx)
	initial := &model.PointsAccount{
		UserID:            u.userID,
		Level:             1,
		PointsToNextLevel: levelThreshold(u.rules, 1),
	}
	if err := repo.EnsureAccount(initial); err != nil {
		return err
	}
	account, err := repo.LockAccount(u.userID)
	if err != nil {
		return err
	}
	u.account = account
	return nil
}

// settle 逐个处理待评估的条件，徽章奖励积分可能继续产生等级条件
func (e *Engine) settle(u *awardTx) error {
	repo := e.Badges.WithTx(u.tx)
	for len(u.pending) > 0 {
		c := u.pending[0]
		u.pending = u.pending[1:]

		badges, err := repo.FindByCriteria(c)
		if err != nil {
			return err
		}
		for i := range badges {
			if _, err := e.grantBadge(u, &badges[i]); err != nil {
				return err
			}
		}
	}

	if u.accountDirty {
		if err := e.Points.WithTx(u.tx).SaveAccount(u.account); err != nil {
			return err
		}
	}
	snapshot := *u.account
	u.result.Account = &snapshot
	return nil
}

func (e *Engine) afterCommit(u *awardTx) {
	for category, amount := range u.credited {
		monitoring.PointsAwarded.WithLabelValues(string(category)).Add(float64(amount))
	}
	if n := len(u.result.BadgesAwarded); n > 0 {
		monitoring.BadgesAwarded.Add(float64(n))
	}

	if (u.accountDirty || u.rankChanged) && e.Leaderboard.Enabled() {
		if err := e.Leaderboard.Set(u.ctx, u.userID, u.account.TotalPoints, u.account.Level); err != nil {
			logger.Log.Warn("Failed to update leaderboard cache", zap.Uint("userID", u.userID), zap.Error(err))
		}
	}

	if u.result.PointsAwarded > 0 || len(u.result.BadgesAwarded) > 0 {
		logger.Log.Debug("Gamification unit committed",
			zap.Uint("userID", u.userID),
			zap.Int("points", u.result.PointsAwarded),
			zap.Ints("levels", u.result.LevelsGained),
			zap.Int("badges", len(u.result.BadgesAwarded)),
			zap.Int("challenges", len(u.result.ChallengesCompleted)),
		)
	}
}

func startSpan(ctx context.Context, name string, userID uint) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer.Start(ctx, name)
	if userID != 0 {
		span.SetAttributes(attribute.Int64("user.id", int64(userID)))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// translateNotFound 把 gorm 的记录不存在错误转换为领域错误
func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// translateDuplicate 并发创建时唯一索引冲突转为业务错误
func translateDuplicate(err, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicate
	}
	msg := err.Error()
	// sqlite / mysql / postgres 的唯一约束错误
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value") {
		return duplicate
	}
	return err
}
