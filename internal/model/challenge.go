package model

import (
	"time"

	"gorm.io/datatypes"
)

type ChallengeType string

const (
	ChallengeDaily   ChallengeType = "daily"
	ChallengeWeekly  ChallengeType = "weekly"
	ChallengeMonthly ChallengeType = "monthly"
	ChallengeSpecial ChallengeType = "special"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeDaily, ChallengeWeekly, ChallengeMonthly, ChallengeSpecial:
		return true
	}
	return false
}

// Challenge 限时挑战
// swagger:model Challenge
type Challenge struct {
	BaseModel
	Title         string                       `gorm:"size:150;not null" json:"title"`
	Description   string                       `gorm:"type:text" json:"description"`
	Type          ChallengeType                `gorm:"size:20;not null" json:"type"`
	ActivityType  string                       `gorm:"size:50;index;not null" json:"activityType"`
	TargetCount   int                          `gorm:"not null" json:"targetCount"`
	SpecificItems datatypes.JSONSlice[ItemRef] `json:"specificItems"`
	RewardPoints  int                          `gorm:"not null;default:0" json:"rewardPoints"`
	RewardBadgeID *uint                        `json:"rewardBadgeId,omitempty"`
	StartDate     time.Time                    `gorm:"not null" json:"startDate"`
	EndDate       time.Time                    `gorm:"not null" json:"endDate"`
	IsActive      bool                         `gorm:"not null;index" json:"isActive"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// InWindow 判断时间是否在挑战有效期内
func (c *Challenge) InWindow(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// AcceptsItem 未配置指定内容时接受任意内容
func (c *Challenge) AcceptsItem(item *ItemRef) bool {
	if len(c.SpecificItems) == 0 {
		return true
	}
	if item == nil {
		return false
	}
	for _, it := range c.SpecificItems {
		if it.Matches(*item) {
			return true
		}
	}
	return false
}

// ChallengeProgress 用户在某个挑战上的进度
// swagger:model ChallengeProgress
type ChallengeProgress struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"uniqueIndex:idx_progress_user_challenge,priority:1;not null" json:"userId"`
	ChallengeID uint       `gorm:"uniqueIndex:idx_progress_user_challenge,priority:2;not null" json:"challengeId"`
	Challenge   Challenge  `gorm:"foreignKey:ChallengeID" json:"challenge"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool       `gorm:"default:false;index" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (ChallengeProgress) TableName() string {
	return "challenge_progresses"
}
