package repository

import (
	"context"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type readMarkRepository struct {
	db *gorm.DB
}

// NewReadMarkRepository creates the read mark repository.
func NewReadMarkRepository(db *gorm.DB) ReadMarkRepository {
	return &readMarkRepository{db: db}
}

func (r *readMarkRepository) InsertBatch(ctx context.Context, marks []*model.ReadMark) (int64, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(marks, 200)
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "insert read marks")
	}
	return res.RowsAffected, nil
}

func (r *readMarkRepository) ReadCounts(ctx context.Context, messageIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(messageIDs))
	if len(messageIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		MessageID int64
		Total     int64
	}
	err := r.db.WithContext(ctx).Table("read_marks").
		Select("read_marks.message_id AS message_id, COUNT(*) AS total").
		Joins("JOIN messages ON messages.id = read_marks.message_id").
		Where("read_marks.message_id IN ?", messageIDs).
		Where("messages.sender_id IS NULL OR read_marks.user_id <> messages.sender_id").
		Group("read_marks.message_id").Scan(&rows).Error
	if err != nil {
		return nil, wrapDBError(err, "count reads")
	}
	for _, row := range rows {
		counts[row.MessageID] = row.Total
	}
	return counts, nil
}

func (r *readMarkRepository) ListByReader(ctx context.Context, conversationID, readerID int64) ([]model.ReadMark, error) {
	var list []model.ReadMark
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, readerID).
		Order("message_id").Find(&list).Error; err != nil {
		return nil, wrapDBError(err, "list read marks")
	}
	return list, nil
}

func (r *readMarkRepository) DeleteByConversation(ctx context.Context, conversationID int64) error {
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Delete(&model.ReadMark{}).Error; err != nil {
		return wrapDBErrorf(err, "delete read marks conversation=%d", conversationID)
	}
	return nil
}
