package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"gorm.io/gorm"
)

type StreakService struct {
	Engine *Engine
}

func NewStreakService(engine *Engine) *StreakService {
	return &StreakService{Engine: engine}
}

// Touch 记录用户今天的活动，更新连续天数并检查里程碑徽章
func (s *StreakService) Touch(ctx context.Context, userID uint, activities []string) (streak *model.Streak, err error) {
	ctx, span := startSpan(ctx, "StreakService.Touch", userID)
	defer func() { endSpan(span, err) }()

	result, err := s.Engine.run(ctx, userID, func(u *awardTx) error {
		return s.Engine.touchStreak(u, activities)
	})
	if err != nil {
		return nil, err
	}
	return result.Streak, nil
}

// Get 没有记录时返回空的连续记录
func (s *StreakService) Get(ctx context.Context, userID uint) (*model.Streak, error) {
	streak, err := s.Engine.Streaks.WithTx(s.Engine.DB.WithContext(ctx)).FindByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Streak{UserID: userID, History: []model.StreakDay{}}, nil
	}
	return streak, err
}

// touchStreak 每个工作单元最多执行一次
func (e *Engine) touchStreak(u *awardTx, activities []string) error {
	if u.streakTouched {
		return nil
	}
	u.streakTouched = true

	repo := e.Streaks.WithTx(u.tx)
	if err := repo.Ensure(u.userID); err != nil {
		return err
	}
	streak, err := repo.Lock(u.userID)
	if err != nil {
		return err
	}

	applyTouch(streak, u.now, u.rules.Location(), activities, u.rules.StreakHistoryDays)
	if err := repo.Save(streak); err != nil {
		return err
	}

	for _, m := range u.rules.StreakMilestones {
		if streak.CurrentStreak == m {
			u.enqueue(model.StreakCriteria(m))
		}
	}
	u.result.Streak = streak
	return nil
}

// applyTouch 按自然日更新连续记录:
// 同一天只合并活动标签，相邻的下一天加一，中断或首次记录重置为 1。
func applyTouch(streak *model.Streak, now time.Time, loc *time.Location, activities []string, historyDays int) {
	today := now.In(loc).Format(util.DateFormat)
	tags := normalizeTags(activities)

	lastDay := ""
	if streak.LastActivityDate != nil {
		lastDay = streak.LastActivityDate.In(loc).Format(util.DateFormat)
	}

	switch lastDay {
	case today:
		idx := len(streak.History) - 1
		if idx >= 0 && streak.History[idx].Day == today {
			streak.History[idx].Activities = mergeTags(streak.History[idx].Activities, tags)
		} else {
			streak.History = append(streak.History, model.StreakDay{Day: today, Activities: tags})
		}
	case previousDay(now, loc):
		streak.CurrentStreak++
		streak.History = append(streak.History, model.StreakDay{Day: today, Activities: tags})
	default:
		streak.CurrentStreak = 1
		streak.History = append(streak.History, model.StreakDay{Day: today, Activities: tags})
	}

	if streak.CurrentStreak == 0 && len(streak.History) > 0 {
		streak.CurrentStreak = 1
	}
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	if historyDays > 0 && len(streak.History) > historyDays {
		streak.History = append(streak.History[:0:0], streak.History[len(streak.History)-historyDays:]...)
	}

	t := now
	streak.LastActivityDate = &t
}

func previousDay(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, loc).Format(util.DateFormat)
}

func normalizeTags(tags []string) []string {
	return mergeTags(nil, tags)
}

// mergeTags 追加新标签并去重，保持首次出现的顺序
func mergeTags(existing, tags []string) []string {
	merged := make([]string, 0, len(existing)+len(tags))
	seen := make(map[string]struct{}, len(existing)+len(tags))
	for _, list := range [][]string{existing, tags} {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}
