package repository

import (
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const seedBatchSize = 500

type ChallengeRepository struct {
	DB *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: db}
}

func (r *ChallengeRepository) WithTx(tx *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: tx}
}

func (r *ChallengeRepository) Create(challenge *model.Challenge) error {
	return r.DB.Create(challenge).Error
}

func (r *ChallengeRepository) Update(challenge *model.Challenge) error {
	return r.DB.Save(challenge).Error
}

func (r *ChallengeRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Challenge{}, id).Error
}

func (r *ChallengeRepository) FindByID(id uint) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := r.DB.First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

// ChallengeFilter 挑战列表查询条件
type ChallengeFilter struct {
	Type       model.ChallengeType
	ActiveOnly bool
}

func (r *ChallengeRepository) List(filter ChallengeFilter) ([]model.Challenge, error) {
	var challenges []model.Challenge
	query := r.DB.Order("start_date DESC, id DESC")
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&challenges).Error
	return challenges, err
}

// ListOpenByActivity 匹配行为类型的进行中挑战
func (r *ChallengeRepository) ListOpenByActivity(activityType string, now time.Time) ([]model.Challenge, error) {
	var challenges []model.Challenge
	err := r.DB.Where("is_active = ? AND activity_type = ? AND start_date <= ? AND end_date >= ?", true, activityType, now, now).
		Order("id ASC").
		Find(&challenges).Error
	return challenges, err
}

// DeactivateExpired 关闭已过期的挑战，返回影响的行数
func (r *ChallengeRepository) DeactivateExpired(now time.Time) (int64, error) {
	result := r.DB.Model(&model.Challenge{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// SeedProgress 为用户和挑战批量插入零进度记录，已存在的跳过
func (r *ChallengeRepository) SeedProgress(rows []model.ChallengeProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
		DoNothing: true,
	}).Omit("Challenge").CreateInBatches(rows, seedBatchSize).Error
}

// LockOpenProgress 锁定用户在指定挑战上未完成的进度行
func (r *ChallengeRepository) LockOpenProgress(userID uint, challengeIDs []uint) ([]model.ChallengeProgress, error) {
	var rows []model.ChallengeProgress
	if len(challengeIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND challenge_id IN ? AND is_completed = ?", userID, challengeIDs, false).
		Order("challenge_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ChallengeRepository) SetProgress(progressID uint, progress int) error {
	return r.DB.Model(&model.ChallengeProgress{}).
		Where("id = ?", progressID).
		Update("progress", progress).Error
}

// MarkCompleted 仅当尚未完成时标记完成，返回是否由本次调用完成
func (r *ChallengeRepository) MarkCompleted(progressID uint, progress int, at time.Time) (bool, error) {
	result := r.DB.Model(&model.ChallengeProgress{}).
		Where("id = ? AND is_completed = ?", progressID, false).
		Updates(map[string]interface{}{
			"progress":     progress,
			"is_completed": true,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListUserProgress 用户的挑战进度，openAt 非空时只返回进行中的挑战
func (r *ChallengeRepository) ListUserProgress(userID uint, openAt *time.Time) ([]model.ChallengeProgress, error) {
	var rows []model.ChallengeProgress
	query := r.DB.Preload("Challenge").
		Joins("JOIN challenges ON challenges.id = challenge_progresses.challenge_id AND challenges.deleted_at IS NULL").
		Where("challenge_progresses.user_id = ?", userID)
	if openAt != nil {
		query = query.Where("challenges.is_active = ? AND challenges.start_date <= ? AND challenges.end_date >= ?", true, *openAt, *openAt)
	}
	err := query.Order("challenges.end_date ASC, challenge_progresses.id ASC").Find(&rows).Error
	return rows, err
}
