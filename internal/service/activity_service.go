package service

import (
	"context"
	"strings"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"

	"go.uber.org/zap"
)

const loginActivity = "login"

// ActivityEvent 内容服务上报的用户行为
type ActivityEvent struct {
	UserID      uint           `json:"userId" binding:"required"`
	Activity    string         `json:"activity" binding:"required" example:"video"`
	Verb        string         `json:"verb" example:"watch_complete"`
	RelatedItem *model.ItemRef `json:"relatedItem"`
	// Progress 观看进度百分比，只有部分规则需要
	Progress *float64 `json:"progress"`
}

type ActivityService struct {
	Engine *Engine
}

func NewActivityService(engine *Engine) *ActivityService {
	return &ActivityService{Engine: engine}
}

// UpdateRules 热更新积分规则
func (s *ActivityService) UpdateRules(rules config.GamificationConfig) {
	s.Engine.SetRules(rules)
	logger.Log.Info("Gamification rules updated", zap.Int("activities", len(s.Engine.Rules().Activities)))
}

func (s *ActivityService) resolve(ev *ActivityEvent) (config.ActivityRule, error) {
	ev.Activity = strings.ToLower(strings.TrimSpace(ev.Activity))
	ev.Verb = strings.ToLower(strings.TrimSpace(ev.Verb))
	if ev.Activity == loginActivity && ev.Verb == "" {
		ev.Verb = loginActivity
	}
	if ev.RelatedItem != nil && (ev.RelatedItem.ItemID == "" || ev.RelatedItem.ItemType == "") {
		ev.RelatedItem = nil
	}

	rule, ok := s.Engine.Rules().Rule(ev.Activity, ev.Verb)
	if ok {
		return rule, nil
	}
	if ev.Activity == loginActivity {
		// 登录只记录连续打卡
		return config.ActivityRule{Activity: loginActivity, Verb: ev.Verb}, nil
	}
	return config.ActivityRule{}, util.ErrUnknownActivity
}

// Record 处理一次行为: 计数、连续打卡、积分、挑战进度和行为徽章，全部在一个事务中完成
func (s *ActivityService) Record(ctx context.Context, ev ActivityEvent) (result *AwardResult, err error) {
	ctx, span := startSpan(ctx, "ActivityService.Record", ev.UserID)
	defer func() { endSpan(span, err) }()

	rule, err := s.resolve(&ev)
	if err != nil {
		return nil, err
	}
	if rule.MinProgress > 0 && (ev.Progress == nil || *ev.Progress < rule.MinProgress) {
		return &AwardResult{Skipped: true}, nil
	}

	return s.Engine.run(ctx, ev.UserID, func(u *awardTx) error {
		count, err := s.Engine.Activities.WithTx(u.tx).Increment(u.userID, ev.Activity, ev.Verb)
		if err != nil {
			return err
		}

		if err := s.Engine.touchStreak(u, []string{ev.Activity}); err != nil {
			return err
		}

		if rule.Points > 0 {
			category := model.PointCategory(rule.Category)
			if !category.Valid() {
				category = model.CategoryOther
			}
			description := rule.Description
			if description == "" {
				description = ev.Activity + " " + ev.Verb
			}
			err := s.Engine.awardPoints(u, AwardPointsRequest{
				UserID:      u.userID,
				Amount:      rule.Points,
				Category:    category,
				Description: description,
				RelatedItem: ev.RelatedItem,
			})
			if err != nil {
				return err
			}
		}

		if rule.ChallengeType != "" {
			if _, err := s.Engine.progressChallenges(u, rule.ChallengeType, 1, ev.RelatedItem); err != nil {
				return err
			}
		}

		u.enqueue(model.ActivityCriteria(ev.Activity, ev.Verb, count))
		return nil
	})
}

// Notify 供内容服务调用的副作用入口，失败只记录日志和指标，不影响主流程
func (s *ActivityService) Notify(ctx context.Context, ev ActivityEvent) *AwardResult {
	result, err := s.Record(ctx, ev)
	if err != nil {
		monitoring.SideEffectFailures.WithLabelValues(ev.Activity).Inc()
		logger.Log.Error("Gamification side effect failed",
			zap.Uint("userID", ev.UserID),
			zap.String("activity", ev.Activity),
			zap.String("verb", ev.Verb),
			zap.Error(err),
		)
		return nil
	}
	return result
}
