package service

import (
	"context"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"

	"go.uber.org/zap"
)

const recentTransactions = 10

type ProfileService struct {
	Engine     *Engine
	Points     *PointsService
	Streaks    *StreakService
	Badges     *BadgeService
	Challenges *ChallengeService
}

func NewProfileService(engine *Engine, points *PointsService, streaks *StreakService, badges *BadgeService, challenges *ChallengeService) *ProfileService {
	return &ProfileService{
		Engine:     engine,
		Points:     points,
		Streaks:    streaks,
		Badges:     badges,
		Challenges: challenges,
	}
}

type Profile struct {
	Account            *model.PointsAccount      `json:"account"`
	Rank               int64                     `json:"rank"`
	Streak             *model.Streak             `json:"streak"`
	Badges             []model.BadgeAward        `json:"badges"`
	Challenges         []model.ChallengeProgress `json:"challenges"`
	RecentTransactions []model.PointTransaction  `json:"recentTransactions"`
}

type LeaderboardEntry struct {
	Rank        int64  `json:"rank"`
	UserID      uint   `json:"userId"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar,omitempty"`
	TotalPoints int    `json:"totalPoints"`
	Level       int    `json:"level"`
}

// GetProfile 汇总用户的积分、名次、连续打卡、徽章和进行中的挑战
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (profile *Profile, err error) {
	ctx, span := startSpan(ctx, "ProfileService.GetProfile", userID)
	defer func() { endSpan(span, err) }()

	exists, err := s.Engine.Users.WithTx(s.Engine.DB.WithContext(ctx)).Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrUserNotFound
	}

	account, err := s.Points.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.rankOf(ctx, account)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streaks.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Badges.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	challenges, err := s.Challenges.ListUserChallenges(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.Points.History(ctx, userID, 1, recentTransactions)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Account:            account,
		Rank:               rank,
		Streak:             streak,
		Badges:             badges,
		Challenges:         challenges,
		RecentTransactions: recent,
	}, nil
}

func (s *ProfileService) rankOf(ctx context.Context, account *model.PointsAccount) (int64, error) {
	if account.ID == 0 {
		return 0, nil
	}
	if rank, ok, err := s.Engine.Leaderboard.Rank(ctx, account.UserID); err == nil && ok {
		return rank, nil
	} else if err != nil {
		logger.Log.Warn("Leaderboard cache rank failed", zap.Error(err))
	}
	return s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).RankOf(account)
}

// Leaderboard 按总积分、等级排序，优先读缓存
func (s *ProfileService) Leaderboard(ctx context.Context, page, limit int) ([]LeaderboardEntry, int64, error) {
	offset := (page - 1) * limit
	if s.Engine.Leaderboard.Enabled() {
		entries, total, err := s.cachedLeaderboard(ctx, offset, limit)
		if err == nil && total > 0 {
			return entries, total, nil
		}
		if err != nil {
			logger.Log.Warn("Leaderboard cache read failed, falling back to database", zap.Error(err))
		}
	}

	rows, total, err := s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).TopAccounts(offset, limit)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{
			Rank:        int64(offset + i + 1),
			UserID:      row.UserID,
			Name:        row.Name,
			Avatar:      row.Avatar,
			TotalPoints: row.TotalPoints,
			Level:       row.Level,
		}
	}
	return entries, total, nil
}

func (s *ProfileService) cachedLeaderboard(ctx context.Context, offset, limit int) ([]LeaderboardEntry, int64, error) {
	ranks, total, err := s.Engine.Leaderboard.Page(ctx, offset, limit)
	if err != nil || total == 0 {
		return nil, total, err
	}

	ids := make([]uint, len(ranks))
	for i, r := range ranks {
		ids[i] = r.UserID
	}
	rows, err := s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).RowsForUsers(ids)
	if err != nil {
		return nil, 0, err
	}
	names := make(map[uint]repository.LeaderboardRow, len(rows))
	for _, row := range rows {
		names[row.UserID] = row
	}

	entries := make([]LeaderboardEntry, len(ranks))
	for i, r := range ranks {
		entries[i] = LeaderboardEntry{
			Rank:        r.Rank,
			UserID:      r.UserID,
			Name:        names[r.UserID].Name,
			Avatar:      names[r.UserID].Avatar,
			TotalPoints: r.TotalPoints,
			Level:       r.Level,
		}
	}
	return entries, total, nil
}

// RebuildLeaderboard 定时任务: 从数据库重建排行榜缓存
func (s *ProfileService) RebuildLeaderboard(ctx context.Context) error {
	if !s.Engine.Leaderboard.Enabled() {
		return nil
	}
	rows, err := s.Engine.Points.WithTx(s.Engine.DB.WithContext(ctx)).AllRows()
	if err != nil {
		return err
	}
	if err := s.Engine.Leaderboard.Rebuild(ctx, rows); err != nil {
		return err
	}
	logger.Log.Info("Leaderboard cache rebuilt", zap.Int("entries", len(rows)))
	return nil
}
