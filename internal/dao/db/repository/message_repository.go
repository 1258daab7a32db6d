package repository

import (
	"context"
	"time"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates the message repository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return wrapDBError(err, "create message")
	}
	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find message id=%d", id)
	}
	return &msg, nil
}

func (r *messageRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Message, error) {
	var list []model.Message
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, wrapDBError(err, "find messages")
	}
	return list, nil
}

// EditBody the deleted_at check lives in the statement itself, so a delete that commits first
// always wins over a concurrent edit.
func (r *messageRepository) EditBody(ctx context.Context, id int64, body string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"body": body, "edited_at": at})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "edit message id=%d", id)
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).Update("deleted_at", at)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "delete message id=%d", id)
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepository) Page(ctx context.Context, conversationID int64, after *time.Time, cursor *model.Message, limit int) ([]model.Message, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if after != nil {
		q = q.Where("created_at > ?", *after)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var list []model.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "page messages conversation=%d", conversationID)
	}
	return list, nil
}

func (r *messageRepository) Latest(ctx context.Context, conversationID int64) (*model.Message, error) {
	var list []model.Message
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").Limit(1).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "latest message conversation=%d", conversationID)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *messageRepository) LatestByConversations(ctx context.Context, conversationIDs []int64) (map[int64]*model.Message, error) {
	latest := make(map[int64]*model.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}
	// a message is the latest when no message of its conversation sorts after it
	var list []model.Message
	if err := r.db.WithContext(ctx).Table("messages AS m").Select("m.*").
		Where("m.conversation_id IN ?", conversationIDs).
		Where(`NOT EXISTS (SELECT 1 FROM messages n WHERE n.conversation_id = m.conversation_id
			AND (n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id)))`).
		Find(&list).Error; err != nil {
		return nil, wrapDBError(err, "latest messages")
	}
	for i := range list {
		latest[list[i].ConversationID] = &list[i]
	}
	return latest, nil
}

func (r *messageRepository) unreadScope(readerID int64) *gorm.DB {
	return r.db.Model(&model.Message{}).
		Where("messages.sender_id IS NOT NULL AND messages.sender_id <> ?", readerID).
		Where("NOT EXISTS (SELECT 1 FROM read_marks WHERE read_marks.message_id = messages.id AND read_marks.user_id = ?)", readerID)
}

func (r *messageRepository) UnreadIDs(ctx context.Context, conversationID, readerID int64) ([]int64, error) {
	var ids []int64
	if err := r.unreadScope(readerID).WithContext(ctx).
		Where("messages.conversation_id = ?", conversationID).
		Order("messages.created_at, messages.id").
		Pluck("messages.id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "unread messages conversation=%d", conversationID)
	}
	return ids, nil
}

func (r *messageRepository) UnreadCounts(ctx context.Context, readerID int64, conversationIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ConversationID int64
		Total          int64
	}
	if err := r.unreadScope(readerID).WithContext(ctx).
		Select("messages.conversation_id AS conversation_id, COUNT(*) AS total").
		Where("messages.conversation_id IN ? AND messages.deleted_at IS NULL", conversationIDs).
		Group("messages.conversation_id").Scan(&rows).Error; err != nil {
		return nil, wrapDBError(err, "count unread messages")
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}
	return counts, nil
}

func (r *messageRepository) CountByConversation(ctx context.Context, conversationID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		return 0, wrapDBError(err, "count messages")
	}
	return count, nil
}

func (r *messageRepository) DeleteByConversation(ctx context.Context, conversationID int64) error {
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Delete(&model.Message{}).Error; err != nil {
		return wrapDBErrorf(err, "delete messages conversation=%d", conversationID)
	}
	return nil
}
