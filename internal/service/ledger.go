package service

import (
	"math"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
)

// levelThreshold 升到下一级所需积分 round(base × level^exponent)
func levelThreshold(rules *config.GamificationConfig, level int) int {
	t := int(math.Round(rules.LevelBase * math.Pow(float64(level), rules.LevelExponent)))
	if t < 1 {
		return 1
	}
	return t
}

type creditEntry struct {
	amount      int
	txType      model.TransactionType
	category    model.PointCategory
	description string
	item        *model.ItemRef
}

// credit 增加积分并处理升级，每跨过一级就登记一个等级条件
func (e *Engine) credit(u *awardTx, entry creditEntry) error {
	acc := u.account
	acc.TotalPoints += entry.amount
	acc.CurrentLevelPoints += entry.amount
	acc.AddToCategory(entry.category, entry.amount)

	for acc.CurrentLevelPoints >= acc.PointsToNextLevel {
		acc.CurrentLevelPoints -= acc.PointsToNextLevel
		acc.Level++
		acc.PointsToNextLevel = levelThreshold(u.rules, acc.Level)
		u.result.LevelsGained = append(u.result.LevelsGained, acc.Level)
		u.enqueue(model.LevelCriteria(acc.Level))
	}
	u.accountDirty = true

	record := &model.PointTransaction{
		UserID:      u.userID,
		Amount:      entry.amount,
		Type:        entry.txType,
		Category:    entry.category,
		Description: entry.description,
		CreatedAt:   u.now,
	}
	if entry.item != nil {
		id, typ := entry.item.ItemID, entry.item.ItemType
		record.RelatedItemID = &id
		record.RelatedItemType = &typ
	}
	if err := e.Points.WithTx(u.tx).CreateTransaction(record); err != nil {
		return err
	}

	u.credited[entry.category] += entry.amount
	u.result.PointsAwarded += entry.amount
	return nil
}

// awardPoints 对外积分发放的完整流程: 入账、连续打卡、同类别挑战进度。
// 只由顶层调用使用，徽章和挑战奖励直接走 credit，不会再次触发这里。
func (e *Engine) awardPoints(u *awardTx, req AwardPointsRequest) error {
	err := e.credit(u, creditEntry{
		amount:      req.Amount,
		txType:      model.TransactionEarned,
		category:    req.Category,
		description: req.Description,
		item:        req.RelatedItem,
	})
	if err != nil {
		return err
	}

	if err := e.touchStreak(u, []string{string(model.CategoryOther)}); err != nil {
		return err
	}
	_, err = e.progressChallenges(u, string(req.Category), 1, req.RelatedItem)
	return err
}
