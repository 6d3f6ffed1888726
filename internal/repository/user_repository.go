package repository

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户由认证服务写入，这里只读
type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListActiveIDs 未禁用的全部用户 ID
func (r *UserRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.User{}).Where("disabled = ?", false).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
