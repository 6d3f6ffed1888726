package repository

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) WithTx(tx *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: tx}
}

func (r *BadgeRepository) Create(badge *model.Badge) error {
	return r.DB.Create(badge).Error
}

func (r *BadgeRepository) Update(badge *model.Badge) error {
	return r.DB.Save(badge).Error
}

func (r *BadgeRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Badge{}, id).Error
}

func (r *BadgeRepository) FindByID(id uint) (*model.Badge, error) {
	var badge model.Badge
	if err := r.DB.First(&badge, id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) FindByName(name string) (*model.Badge, error) {
	var badge model.Badge
	if err := r.DB.Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// NameTaken 名称是否已被占用，软删除的徽章仍占用唯一索引
func (r *BadgeRepository) NameTaken(name string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Unscoped().Model(&model.Badge{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	return count > 0, err
}

// FindByCriteria 按条件精确匹配徽章
func (r *BadgeRepository) FindByCriteria(c model.Criteria) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("criteria = ?", c).Order("id ASC").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) List(includeHidden bool) ([]model.Badge, error) {
	var badges []model.Badge
	query := r.DB.Order("category ASC, level ASC, id ASC")
	if !includeHidden {
		query = query.Where("is_hidden = ?", false)
	}
	err := query.Find(&badges).Error
	return badges, err
}

// InsertAward 插入获奖记录，(user_id, badge_id) 已存在时返回 false
func (r *BadgeRepository) InsertAward(award *model.BadgeAward) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Omit("Badge").Create(award)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *BadgeRepository) CountDisplayed(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.BadgeAward{}).
		Where("user_id = ? AND displayed = ?", userID, true).
		Count(&count).Error
	return count, err
}

// ListAwards 用户获得的徽章，按获得时间倒序
func (r *BadgeRepository) ListAwards(userID uint) ([]model.BadgeAward, error) {
	var awards []model.BadgeAward
	err := r.DB.Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC, id DESC").
		Find(&awards).Error
	return awards, err
}
