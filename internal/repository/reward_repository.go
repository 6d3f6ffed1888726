package repository

import (
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
)

type RewardRepository struct {
	DB *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: db}
}

func (r *RewardRepository) WithTx(tx *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: tx}
}

func (r *RewardRepository) Create(reward *model.Reward) error {
	return r.DB.Create(reward).Error
}

func (r *RewardRepository) Update(reward *model.Reward) error {
	return r.DB.Save(reward).Error
}

func (r *RewardRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Reward{}, id).Error
}

func (r *RewardRepository) FindByID(id uint) (*model.Reward, error) {
	var reward model.Reward
	if err := r.DB.First(&reward, id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// NameTaken 名称或 slug 是否已被占用，包括软删除的奖励
func (r *RewardRepository) NameTaken(name, slug string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Unscoped().Model(&model.Reward{}).
		Where("(name = ? OR slug = ?) AND id <> ?", name, slug, excludeID).
		Count(&count).Error
	return count > 0, err
}

// RewardFilter 商城列表查询条件
type RewardFilter struct {
	Category string
	// AvailableAt 非空时只返回已上架、在有效期内且有库存的奖励
	AvailableAt *time.Time
}

func (r *RewardRepository) List(filter RewardFilter) ([]model.Reward, error) {
	var rewards []model.Reward
	query := r.DB.Order("points_cost ASC, id ASC")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.AvailableAt != nil {
		t := *filter.AvailableAt
		query = query.Where("is_active = ? AND valid_from <= ? AND (valid_until IS NULL OR valid_until >= ?) AND quantity <> 0", true, t, t)
	}
	err := query.Find(&rewards).Error
	return rewards, err
}

// DecrementStock 有限库存时扣减一件，库存为 0 时返回 false
func (r *RewardRepository) DecrementStock(rewardID uint) (bool, error) {
	result := r.DB.Model(&model.Reward{}).
		Where("id = ? AND quantity > 0", rewardID).
		Update("quantity", gorm.Expr("quantity - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *RewardRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Redemption{}).Where("redemption_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *RewardRepository) CreateRedemption(redemption *model.Redemption) error {
	return r.DB.Omit("Reward").Create(redemption).Error
}

func (r *RewardRepository) FindRedemptionByID(id uint) (*model.Redemption, error) {
	var redemption model.Redemption
	if err := r.DB.Preload("Reward").First(&redemption, id).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *RewardRepository) FindRedemptionByCode(code string) (*model.Redemption, error) {
	var redemption model.Redemption
	err := r.DB.Preload("Reward").Where("redemption_code = ?", code).First(&redemption).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// MarkUsed 单向标记已使用，已使用时返回 false
func (r *RewardRepository) MarkUsed(redemptionID uint, at time.Time) (bool, error) {
	result := r.DB.Model(&model.Redemption{}).
		Where("id = ? AND is_used = ?", redemptionID, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *RewardRepository) ListRedemptions(userID uint, offset, limit int) ([]model.Redemption, int64, error) {
	var total int64
	err := r.DB.Model(&model.Redemption{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var redemptions []model.Redemption
	err = r.DB.Where("user_id = ?", userID).Preload("Reward").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&redemptions).Error
	if err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}
