package repository

import (
	"context"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates the conversation repository.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return wrapDBError(err, "create conversation")
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id int64) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find conversation id=%d", id)
	}
	return &conv, nil
}

func (r *conversationRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Conversation, error) {
	var convs []model.Conversation
	if len(ids) == 0 {
		return convs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&convs).Error; err != nil {
		return nil, wrapDBError(err, "find conversations")
	}
	return convs, nil
}

func (r *conversationRepository) FindByDirectKey(ctx context.Context, key string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "direct_key = ?", key).Error; err != nil {
		return nil, wrapDBErrorf(err, "find direct conversation %s", key)
	}
	return &conv, nil
}

func (r *conversationRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "update conversation id=%d", id)
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Conversation{}, "id = ?", id).Error; err != nil {
		return wrapDBErrorf(err, "delete conversation id=%d", id)
	}
	return nil
}
