package model

import (
	"time"
)

// UnlimitedQuantity 表示库存不限
const UnlimitedQuantity = -1

type RedemptionStatus string

const (
	RedemptionCompleted RedemptionStatus = "completed"
)

// Reward 积分商城中的奖励
// swagger:model Reward
type Reward struct {
	BaseModel
	Name         string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug         string     `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description  string     `gorm:"type:text" json:"description"`
	PointsCost   int        `gorm:"not null" json:"pointsCost"`
	Category     string     `gorm:"size:50;index" json:"category"`
	Image        string     `gorm:"size:255" json:"image"`
	CodeTemplate string     `gorm:"size:100" json:"codeTemplate,omitempty"`
	ValidFrom    time.Time  `gorm:"not null" json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	IsActive     bool       `gorm:"not null;index" json:"isActive"`
}

func (Reward) TableName() string {
	return "rewards"
}

func (r *Reward) Unlimited() bool {
	return r.Quantity == UnlimitedQuantity
}

// Available 判断时间是否在兑换窗口内，ValidUntil 为空表示无上限
func (r *Reward) Available(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || !t.After(*r.ValidUntil)
}

// Redemption 兑换记录，只有 IsUsed/UsedAt 可以单向变更
// swagger:model Redemption
type Redemption struct {
	ID             uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint             `gorm:"index;not null" json:"userId"`
	RewardID       uint             `gorm:"index;not null" json:"rewardId"`
	Reward         Reward           `gorm:"foreignKey:RewardID" json:"reward"`
	PointsSpent    int              `gorm:"not null" json:"pointsSpent"`
	RedemptionCode string           `gorm:"size:64;uniqueIndex;not null" json:"redemptionCode"`
	ExpiresAt      time.Time        `gorm:"not null" json:"expiresAt"`
	Status         RedemptionStatus `gorm:"size:20;not null" json:"status"`
	IsUsed         bool             `gorm:"default:false" json:"isUsed"`
	UsedAt         *time.Time       `json:"usedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
