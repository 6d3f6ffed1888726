package model

import (
	"time"
)

// Badge 徽章定义
// swagger:model Badge
type Badge struct {
	BaseModel
	Name          string   `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description   string   `gorm:"type:text" json:"description"`
	Icon          string   `gorm:"size:255" json:"icon"`
	Category      string   `gorm:"size:50;index" json:"category"`
	Level         int      `gorm:"not null;default:1" json:"level"`
	PointsAwarded int      `gorm:"not null;default:0" json:"pointsAwarded"`
	Criteria      Criteria `gorm:"size:100;index;not null" json:"criteria" swaggertype:"string"`
	IsHidden      bool     `gorm:"default:false" json:"isHidden"`
}

func (Badge) TableName() string {
	return "badges"
}

// BadgeAward 用户获得的徽章，(user_id, badge_id) 唯一
// swagger:model BadgeAward
type BadgeAward struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_award_user_badge,priority:1;not null" json:"userId"`
	BadgeID   uint      `gorm:"uniqueIndex:idx_award_user_badge,priority:2;not null" json:"badgeId"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	EarnedAt  time.Time `gorm:"not null" json:"earnedAt"`
	Displayed bool      `gorm:"default:false;index" json:"displayed"`
}

func (BadgeAward) TableName() string {
	return "badge_awards"
}
