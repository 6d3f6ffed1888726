package repository

import (
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointsRepository struct {
	DB *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *PointsRepository) WithTx(tx *gorm.DB) *PointsRepository {
	return &PointsRepository{DB: tx}
}

// EnsureAccount 账户不存在时按初始值创建，已存在则不做任何修改
func (r *PointsRepository) EnsureAccount(initial *model.PointsAccount) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(initial).Error
}

// LockAccount 读取并锁定账户行 (SELECT ... FOR UPDATE)
func (r *PointsRepository) LockAccount(userID uint) (*model.PointsAccount, error) {
	var account model.PointsAccount
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *PointsRepository) FindAccount(userID uint) (*model.PointsAccount, error) {
	var account model.PointsAccount
	err := r.DB.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *PointsRepository) SaveAccount(account *model.PointsAccount) error {
	return r.DB.Save(account).Error
}

// DebitIfSufficient 余额足够时扣减总积分，返回是否扣减成功
func (r *PointsRepository) DebitIfSufficient(userID uint, amount int) (bool, error) {
	result := r.DB.Model(&model.PointsAccount{}).
		Where("user_id = ? AND total_points >= ?", userID, amount).
		Update("total_points", gorm.Expr("total_points - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PointsRepository) CreateTransaction(t *model.PointTransaction) error {
	return r.DB.Create(t).Error
}

// ListTransactions 按时间倒序分页查询积分流水
func (r *PointsRepository) ListTransactions(userID uint, offset, limit int) ([]model.PointTransaction, int64, error) {
	var total int64
	err := r.DB.Model(&model.PointTransaction{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var txs []model.PointTransaction
	err = r.DB.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// LeaderboardRow 排行榜查询结果
type LeaderboardRow struct {
	UserID      uint
	Name        string
	Avatar      string
	TotalPoints int
	Level       int
}

const leaderboardOrder = "points_accounts.total_points DESC, points_accounts.level DESC, points_accounts.user_id ASC"

func (r *PointsRepository) leaderboardQuery() *gorm.DB {
	return r.DB.Table("points_accounts").
		Select("points_accounts.user_id, users.name, users.avatar, points_accounts.total_points, points_accounts.level").
		Joins("LEFT JOIN users ON users.id = points_accounts.user_id").
		Where("points_accounts.deleted_at IS NULL")
}

// TopAccounts 按总积分、等级排序分页
func (r *PointsRepository) TopAccounts(offset, limit int) ([]LeaderboardRow, int64, error) {
	var total int64
	if err := r.DB.Model(&model.PointsAccount{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []LeaderboardRow
	err := r.leaderboardQuery().Order(leaderboardOrder).Offset(offset).Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// RowsForUsers 查询指定用户的排行信息
func (r *PointsRepository) RowsForUsers(userIDs []uint) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if len(userIDs) == 0 {
		return rows, nil
	}
	err := r.leaderboardQuery().Where("points_accounts.user_id IN ?", userIDs).Scan(&rows).Error
	return rows, err
}

// AllRows 全量读取，用于重建排行榜缓存
func (r *PointsRepository) AllRows() ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.leaderboardQuery().Order(leaderboardOrder).Scan(&rows).Error
	return rows, err
}

// RankOf 计算名次，与 TopAccounts 的排序一致
func (r *PointsRepository) RankOf(account *model.PointsAccount) (int64, error) {
	var ahead int64
	err := r.DB.Model(&model.PointsAccount{}).
		Where("total_points > ? OR (total_points = ? AND level > ?) OR (total_points = ? AND level = ? AND user_id < ?)",
			account.TotalPoints,
			account.TotalPoints, account.Level,
			account.TotalPoints, account.Level, account.UserID,
		).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}
