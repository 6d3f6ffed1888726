package model

import (
	"time"

	"gorm.io/datatypes"
)

// StreakDay 某一天的活动记录，Day 为配置时区下的日期 (2006-01-02)
type StreakDay struct {
	Day        string   `json:"day"`
	Activities []string `json:"activities"`
}

// Streak 连续活跃天数
// swagger:model Streak
type Streak struct {
	BaseModel
	UserID           uint                           `gorm:"uniqueIndex;not null" json:"userId"`
	CurrentStreak    int                            `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak    int                            `gorm:"not null;default:0" json:"longestStreak"`
	LastActivityDate *time.Time                     `json:"lastActivityDate"`
	History          datatypes.JSONSlice[StreakDay] `json:"history"`
}

func (Streak) TableName() string {
	return "streaks"
}
