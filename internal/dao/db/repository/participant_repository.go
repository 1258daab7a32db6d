package repository

import (
	"context"
	"time"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates the participant repository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Add(ctx context.Context, members []*model.Participant) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(members)
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "add participants")
	}
	return res.RowsAffected, nil
}

func (r *participantRepository) Find(ctx context.Context, conversationID, userID int64) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		First(&p, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "find participant conversation=%d user=%d", conversationID, userID)
	}
	return &p, nil
}

func (r *participantRepository) Exists(ctx context.Context, conversationID, userID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error; err != nil {
		return false, wrapDBError(err, "check participant")
	}
	return count > 0, nil
}

func (r *participantRepository) ListByConversation(ctx context.Context, conversationID int64) ([]model.Participant, error) {
	var list []model.Participant
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("joined_at, id").Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "list participants conversation=%d", conversationID)
	}
	return list, nil
}

func (r *participantRepository) ListByUser(ctx context.Context, userID int64) ([]model.Participant, error) {
	var list []model.Participant
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "list memberships user=%d", userID)
	}
	return list, nil
}

func (r *participantRepository) UserIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("conversation_id = ?", conversationID).
		Order("joined_at, id").Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list participant ids conversation=%d", conversationID)
	}
	return ids, nil
}

func (r *participantRepository) Counterparts(ctx context.Context, userID int64, conversationIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID int64
		UserID         int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Select("conversation_id, user_id").
		Where("conversation_id IN ? AND user_id <> ?", conversationIDs, userID).
		Order("joined_at, id").Scan(&rows).Error; err != nil {
		return nil, wrapDBError(err, "list counterparts")
	}
	for _, row := range rows {
		if _, seen := out[row.ConversationID]; !seen {
			out[row.ConversationID] = row.UserID
		}
	}
	return out, nil
}

func (r *participantRepository) CountByConversations(ctx context.Context, conversationIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ConversationID int64
		Total          int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Select("conversation_id, COUNT(*) AS total").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id").Scan(&rows).Error; err != nil {
		return nil, wrapDBError(err, "count participants")
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}
	return counts, nil
}

func (r *participantRepository) SetClearedAt(ctx context.Context, conversationID, userID int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("cleared_at", at)
	if res.Error != nil {
		return wrapDBError(res.Error, "clear conversation")
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "participant conversation=%d user=%d", conversationID, userID)
	}
	return nil
}

func (r *participantRepository) ResetClearedAt(ctx context.Context, conversationID int64) error {
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("conversation_id = ? AND cleared_at IS NOT NULL", conversationID).
		Update("cleared_at", nil).Error; err != nil {
		return wrapDBErrorf(err, "reopen conversation id=%d", conversationID)
	}
	return nil
}

func (r *participantRepository) SetRole(ctx context.Context, conversationID, userID int64, role model.ParticipantRole) error {
	if err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("role", role).Error; err != nil {
		return wrapDBError(err, "set participant role")
	}
	return nil
}

func (r *participantRepository) Remove(ctx context.Context, conversationID, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.Participant{})
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "remove participant")
	}
	return res.RowsAffected, nil
}

func (r *participantRepository) DeleteByConversation(ctx context.Context, conversationID int64) error {
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Delete(&model.Participant{}).Error; err != nil {
		return wrapDBErrorf(err, "delete participants conversation=%d", conversationID)
	}
	return nil
}
