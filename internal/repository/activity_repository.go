package repository

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: tx}
}

// Increment 计数加一并返回新值
func (r *ActivityRepository) Increment(userID uint, activity, verb string) (int, error) {
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity"}, {Name: "verb"}},
		DoNothing: true,
	}).Create(&model.ActivityCounter{UserID: userID, Activity: activity, Verb: verb}).Error
	if err != nil {
		return 0, err
	}

	err = r.DB.Model(&model.ActivityCounter{}).
		Where("user_id = ? AND activity = ? AND verb = ?", userID, activity, verb).
		Update("count", gorm.Expr("count + 1")).Error
	if err != nil {
		return 0, err
	}

	var counter model.ActivityCounter
	err = r.DB.Where("user_id = ? AND activity = ? AND verb = ?", userID, activity, verb).First(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

func (r *ActivityRepository) ListByUser(userID uint) ([]model.ActivityCounter, error) {
	var counters []model.ActivityCounter
	err := r.DB.Where("user_id = ?", userID).Order("activity ASC, verb ASC").Find(&counters).Error
	return counters, err
}
