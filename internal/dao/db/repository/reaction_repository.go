package repository

import (
	"context"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates the reaction repository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Insert(ctx context.Context, reaction *model.Reaction) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reaction)
	if res.Error != nil {
		return false, wrapDBError(res.Error, "add reaction")
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) Delete(ctx context.Context, messageID, userID int64, emoji string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&model.Reaction{})
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "remove reaction")
	}
	return res.RowsAffected, nil
}

func (r *reactionRepository) ListByMessages(ctx context.Context, messageIDs []int64) ([]model.Reaction, error) {
	var list []model.Reaction
	if len(messageIDs) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).
		Order("created_at, id").Find(&list).Error; err != nil {
		return nil, wrapDBError(err, "list reactions")
	}
	return list, nil
}

func (r *reactionRepository) DeleteByConversation(ctx context.Context, conversationID int64) error {
	sub := r.db.Model(&model.Message{}).Select("id").Where("conversation_id = ?", conversationID)
	if err := r.db.WithContext(ctx).Where("message_id IN (?)", sub).
		Delete(&model.Reaction{}).Error; err != nil {
		return wrapDBErrorf(err, "delete reactions conversation=%d", conversationID)
	}
	return nil
}
