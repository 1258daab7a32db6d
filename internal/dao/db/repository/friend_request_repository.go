package repository

import (
	"context"

	"evo_chat_server/internal/model"

	"gorm.io/gorm"
)

type friendRequestRepository struct {
	db *gorm.DB
}

// NewFriendRequestRepository creates the friend request repository.
func NewFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &friendRequestRepository{db: db}
}

// Create inserts a pending request. A live request for the same pair violates the active_pair
// unique index and surfaces as CodeConflict.
func (r *friendRequestRepository) Create(ctx context.Context, req *model.FriendRequest) error {
	key := model.PairKey(req.SenderID, req.ReceiverID)
	req.ActivePair = &key
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return wrapDBError(err, "create friend request")
	}
	return nil
}

func (r *friendRequestRepository) FindByID(ctx context.Context, id int64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find friend request id=%d", id)
	}
	return &req, nil
}

func (r *friendRequestRepository) FindActive(ctx context.Context, a, b int64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).First(&req, "active_pair = ?", model.PairKey(a, b)).Error; err != nil {
		return nil, wrapDBError(err, "find friend request between users")
	}
	return &req, nil
}

// SetStatus moves a request; rejection releases the pair so a new request can be sent later.
func (r *friendRequestRepository) SetStatus(ctx context.Context, id int64, status model.FriendRequestStatus) error {
	updates := map[string]any{"status": status}
	if status == model.FriendRejected {
		updates["active_pair"] = nil
	}
	if err := r.db.WithContext(ctx).Model(&model.FriendRequest{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "update friend request id=%d", id)
	}
	return nil
}

func (r *friendRequestRepository) listByStatus(ctx context.Context, userID int64, status model.FriendRequestStatus) ([]model.FriendRequest, error) {
	var list []model.FriendRequest
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", status, userID, userID).
		Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "list %s friend requests user=%d", status, userID)
	}
	return list, nil
}

func (r *friendRequestRepository) ListPending(ctx context.Context, userID int64) ([]model.FriendRequest, error) {
	return r.listByStatus(ctx, userID, model.FriendPending)
}

func (r *friendRequestRepository) ListAccepted(ctx context.Context, userID int64) ([]model.FriendRequest, error) {
	return r.listByStatus(ctx, userID, model.FriendAccepted)
}

func (r *friendRequestRepository) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("active_pair = ? AND status = ?", model.PairKey(a, b), model.FriendAccepted).
		Count(&count).Error; err != nil {
		return false, wrapDBError(err, "check friendship")
	}
	return count > 0, nil
}

func (r *friendRequestRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.FriendRequest{}, "id = ?", id).Error; err != nil {
		return wrapDBErrorf(err, "delete friend request id=%d", id)
	}
	return nil
}
