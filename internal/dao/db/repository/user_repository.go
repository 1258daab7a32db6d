package repository

import (
	"context"
	"time"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapDBError(err, "create user")
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find user id=%d", id)
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "find users")
	}
	return users, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, wrapDBErrorf(err, "find user email=%s", email)
	}
	return &user, nil
}

func (r *userRepository) FindByHandle(ctx context.Context, nameKey, tag string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "name_key = ? AND tag = ?", nameKey, tag).Error; err != nil {
		return nil, wrapDBErrorf(err, "find user %s#%s", nameKey, tag)
	}
	return &user, nil
}

func (r *userRepository) HandleTaken(ctx context.Context, nameKey, tag string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("name_key = ? AND tag = ?", nameKey, tag).Count(&count).Error; err != nil {
		return false, wrapDBError(err, "check user tag")
	}
	return count > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if name, ok := updates["display_name"].(string); ok {
		updates["name_key"] = model.NameKeyOf(name)
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "update user id=%d", id)
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "update user id=%d", id)
	}
	return nil
}

func (r *userRepository) SetPresence(ctx context.Context, id int64, online bool, connectionRef string, at time.Time) error {
	updates := map[string]any{
		"is_online":      online,
		"connection_ref": connectionRef,
		"last_seen_at":   at,
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "update presence user id=%d", id)
	}
	return nil
}

func (r *userRepository) OnlineIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("is_online = ?", true).
		Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, wrapDBError(err, "list online users")
	}
	return ids, nil
}
