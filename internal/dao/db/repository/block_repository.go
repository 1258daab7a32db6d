package repository

import (
	"context"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates the block repository.
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Insert(ctx context.Context, block *model.Block) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(block)
	if res.Error != nil {
		return false, wrapDBError(res.Error, "block user")
	}
	return res.RowsAffected > 0, nil
}

func (r *blockRepository) Delete(ctx context.Context, blockerID, blockedID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{})
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "unblock user")
	}
	return res.RowsAffected, nil
}

func (r *blockRepository) Between(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error; err != nil {
		return false, wrapDBError(err, "check block")
	}
	return count > 0, nil
}

func (r *blockRepository) BlockedAmong(ctx context.Context, userID int64, others []int64) (map[int64]bool, error) {
	result := make(map[int64]bool)
	if len(others) == 0 {
		return result, nil
	}
	var rows []model.Block
	if err := r.db.WithContext(ctx).
		Where("(blocker_id = ? AND blocked_id IN ?) OR (blocked_id = ? AND blocker_id IN ?)", userID, others, userID, others).
		Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "check blocks")
	}
	for _, b := range rows {
		if b.BlockerID == userID {
			result[b.BlockedID] = true
		} else {
			result[b.BlockerID] = true
		}
	}
	return result, nil
}

func (r *blockRepository) ListByBlocker(ctx context.Context, blockerID int64) ([]model.Block, error) {
	var list []model.Block
	if err := r.db.WithContext(ctx).Where("blocker_id = ?", blockerID).
		Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, wrapDBError(err, "list blocked users")
	}
	return list, nil
}
