package model

import (
	"time"
)

type PointCategory string

const (
	CategoryCourse     PointCategory = "course"
	CategoryVideo      PointCategory = "video"
	CategoryQuiz       PointCategory = "quiz"
	CategoryAttendance PointCategory = "attendance"
	CategoryBlog       PointCategory = "blog"
	CategoryComment    PointCategory = "comment"
	CategorySocial     PointCategory = "social"
	CategoryOther      PointCategory = "other"
)

func (c PointCategory) Valid() bool {
	switch c {
	case CategoryCourse, CategoryVideo, CategoryQuiz, CategoryAttendance,
		CategoryBlog, CategoryComment, CategorySocial, CategoryOther:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionEarned  TransactionType = "earned"
	TransactionSpent   TransactionType = "spent"
	TransactionBonus   TransactionType = "bonus"
	TransactionPenalty TransactionType = "penalty"
)

// ItemRef 关联的内容对象（课程、视频、博客等）
type ItemRef struct {
	ItemID   string `json:"itemId"`
	ItemType string `json:"itemType"`
}

func (r ItemRef) Matches(other ItemRef) bool {
	return r.ItemID == other.ItemID && r.ItemType == other.ItemType
}

// PointsAccount 每个用户一条，记录总积分、等级与分类积分
// swagger:model PointsAccount
type PointsAccount struct {
	BaseModel
	UserID             uint `gorm:"uniqueIndex;not null" json:"userId"`
	TotalPoints        int  `gorm:"not null;default:0;index:idx_points_rank,priority:1" json:"totalPoints"`
	Level              int  `gorm:"not null;default:1;index:idx_points_rank,priority:2" json:"level"`
	CurrentLevelPoints int  `gorm:"not null;default:0" json:"currentLevelPoints"`
	PointsToNextLevel  int  `gorm:"not null;default:100" json:"pointsToNextLevel"`

	CoursePoints     int `gorm:"not null;default:0" json:"coursePoints"`
	VideoPoints      int `gorm:"not null;default:0" json:"videoPoints"`
	QuizPoints       int `gorm:"not null;default:0" json:"quizPoints"`
	AttendancePoints int `gorm:"not null;default:0" json:"attendancePoints"`
	BlogPoints       int `gorm:"not null;default:0" json:"blogPoints"`
	CommentPoints    int `gorm:"not null;default:0" json:"commentPoints"`
	SocialPoints     int `gorm:"not null;default:0" json:"socialPoints"`
}

func (PointsAccount) TableName() string {
	return "points_accounts"
}

// AddToCategory 累加分类积分，other 只计入总分
func (a *PointsAccount) AddToCategory(category PointCategory, amount int) {
	switch category {
	case CategoryCourse:
		a.CoursePoints += amount
	case CategoryVideo:
		a.VideoPoints += amount
	case CategoryQuiz:
		a.QuizPoints += amount
	case CategoryAttendance:
		a.AttendancePoints += amount
	case CategoryBlog:
		a.BlogPoints += amount
	case CategoryComment:
		a.CommentPoints += amount
	case CategorySocial:
		a.SocialPoints += amount
	}
}

// PointTransaction 积分流水，写入后不可修改
// swagger:model PointTransaction
type PointTransaction struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint            `gorm:"index:idx_tx_user_time,priority:1;not null" json:"userId"`
	Amount          int             `gorm:"not null" json:"amount"`
	Type            TransactionType `gorm:"size:20;not null" json:"type"`
	Category        PointCategory   `gorm:"size:20;not null" json:"category"`
	Description     string          `gorm:"size:255" json:"description"`
	RelatedItemID   *string         `gorm:"size:64" json:"relatedItemId,omitempty"`
	RelatedItemType *string         `gorm:"size:32" json:"relatedItemType,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_tx_user_time,priority:2" json:"createdAt"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}
