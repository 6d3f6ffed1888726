package model

import "time"

// ActivityCounter 统计用户某类行为的次数，用于行为类徽章
type ActivityCounter struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_counter_user_activity,priority:1;not null" json:"userId"`
	Activity  string    `gorm:"size:50;uniqueIndex:idx_counter_user_activity,priority:2;not null" json:"activity"`
	Verb      string    `gorm:"size:50;uniqueIndex:idx_counter_user_activity,priority:3;not null" json:"verb"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ActivityCounter) TableName() string {
	return "activity_counters"
}
