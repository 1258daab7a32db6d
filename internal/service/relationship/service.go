// Package relationship handles friend requests, friendships and blocks, and owns the
// eligibility rule that gates direct messaging.
package relationship

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
	"evo_chat_server/pkg/errorx"
)

// Friend request event actions.
const (
	ActionCreated  = "created"
	ActionAccepted = "accepted"
	ActionRejected = "rejected"
	ActionRemoved  = "removed"
)

var tagPattern = regexp.MustCompile(`^[0-9]{4}$`)

// DirectOpener creates (or reopens) the direct conversation of two users.
type DirectOpener interface {
	CreateDirect(ctx context.Context, userA, userB int64) (*model.Conversation, error)
}

// CheckEligibility reports whether a and b may exchange direct messages: no block in either
// direction and an accepted friendship. Violations are CodeNotEligible, distinct from
// authorization failures.
func CheckEligibility(ctx context.Context, repos *repository.Repositories, a, b int64) error {
	blocked, err := repos.Block.Between(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return errorx.New(errorx.CodeNotEligible, "messaging is blocked between these users")
	}
	friends, err := repos.FriendRequest.AreFriends(ctx, a, b)
	if err != nil {
		return err
	}
	if !friends {
		return errorx.New(errorx.CodeNotEligible, "you must be friends to message this user")
	}
	return nil
}

// ParseHandle splits "Name#1234" at the last '#'.
func ParseHandle(identifier string) (name, tag string, err error) {
	i := strings.LastIndex(identifier, "#")
	if i <= 0 {
		return "", "", errorx.New(errorx.CodeInvalidParam, "identifier must look like Name#1234")
	}
	name = strings.TrimSpace(identifier[:i])
	tag = strings.TrimSpace(identifier[i+1:])
	if name == "" || !tagPattern.MatchString(tag) {
		return "", "", errorx.New(errorx.CodeInvalidParam, "identifier must look like Name#1234")
	}
	return name, tag, nil
}

type relationshipService struct {
	repos   *repository.Repositories
	emitter ws.Emitter
	opener  DirectOpener
}

// NewRelationshipService wires the service; opener is called when a request is accepted.
func NewRelationshipService(repos *repository.Repositories, emitter ws.Emitter, opener DirectOpener) *relationshipService {
	return &relationshipService{repos: repos, emitter: emitter, opener: opener}
}

// CheckEligibility see the package-level function.
func (s *relationshipService) CheckEligibility(ctx context.Context, a, b int64) error {
	return CheckEligibility(ctx, s.repos, a, b)
}

// SendFriendRequest addresses target by its "Name#1234" handle.
func (s *relationshipService) SendFriendRequest(ctx context.Context, senderID int64, identifier string) (*respond.FriendRequestInfo, error) {
	name, tag, err := ParseHandle(identifier)
	if err != nil {
		return nil, err
	}
	target, err := s.repos.User.FindByHandle(ctx, model.NameKeyOf(name), tag)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "no user named %s#%s", name, tag)
		}
		return nil, err
	}
	if target.ID == senderID {
		return nil, errorx.New(errorx.CodeInvalidParam, "you cannot befriend yourself")
	}
	blocked, err := s.repos.Block.Between(ctx, senderID, target.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errorx.New(errorx.CodeNotEligible, "you cannot send a request to this user")
	}

	existing, err := s.repos.FriendRequest.FindActive(ctx, senderID, target.ID)
	switch {
	case err == nil && existing.Status == model.FriendAccepted:
		return nil, errorx.New(errorx.CodeConflict, "you are already friends")
	case err == nil:
		return nil, errorx.New(errorx.CodeConflict, "a friend request is already pending")
	case !errorx.IsNotFound(err):
		return nil, err
	}

	req := &model.FriendRequest{SenderID: senderID, ReceiverID: target.ID, Status: model.FriendPending}
	if err := s.repos.FriendRequest.Create(ctx, req); err != nil {
		if errorx.IsConflict(err) {
			return nil, errorx.Wrap(err, errorx.CodeConflict, "a friend request is already pending")
		}
		return nil, err
	}

	sender, err := s.repos.User.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	info := requestInfo(req, senderID, sender, target)
	s.notify(ctx, req, ActionCreated, sender, target)
	return &info, nil
}

// ListFriendRequests pending requests split by direction, newest first.
func (s *relationshipService) ListFriendRequests(ctx context.Context, userID int64) (*respond.FriendRequestsRespond, error) {
	pending, err := s.repos.FriendRequest.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.usersOf(ctx, userID, pending)
	if err != nil {
		return nil, err
	}
	out := &respond.FriendRequestsRespond{
		Incoming: []respond.FriendRequestInfo{},
		Outgoing: []respond.FriendRequestInfo{},
	}
	for i := range pending {
		req := &pending[i]
		info := requestInfo(req, userID, users[req.SenderID], users[req.ReceiverID])
		if req.ReceiverID == userID {
			out.Incoming = append(out.Incoming, info)
		} else {
			out.Outgoing = append(out.Outgoing, info)
		}
	}
	return out, nil
}

// Respond lets the receiver accept or reject a request. Accepting is safe to retry: an
// already accepted request goes straight to opening the direct conversation again.
func (s *relationshipService) Respond(ctx context.Context, requestID, userID int64, status string) (*respond.FriendRequestInfo, error) {
	req, err := s.repos.FriendRequest.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, errorx.New(errorx.CodeForbidden, "only the receiver can answer this request")
	}

	var action string
	switch model.FriendRequestStatus(status) {
	case model.FriendAccepted:
		// pending -> accepted, then open the direct conversation; a retry skips the first step
		if req.Status == model.FriendRejected {
			return nil, errorx.New(errorx.CodeConflict, "this request was already rejected")
		}
		if req.Status == model.FriendPending {
			if err := s.repos.FriendRequest.SetStatus(ctx, req.ID, model.FriendAccepted); err != nil {
				return nil, err
			}
			req.Status = model.FriendAccepted
		}
		if _, err := s.opener.CreateDirect(ctx, req.SenderID, req.ReceiverID); err != nil {
			zap.L().Error("open direct conversation after acceptance",
				zap.Int64("request_id", req.ID), zap.Error(err))
			return nil, err
		}
		action = ActionAccepted
	case model.FriendRejected:
		if req.Status != model.FriendPending {
			return nil, errorx.Newf(errorx.CodeConflict, "this request is already %s", req.Status)
		}
		if err := s.repos.FriendRequest.SetStatus(ctx, req.ID, model.FriendRejected); err != nil {
			return nil, err
		}
		req.Status = model.FriendRejected
		action = ActionRejected
	default:
		return nil, errorx.New(errorx.CodeInvalidParam, "status must be accepted or rejected")
	}

	sender, receiver, err := s.pair(ctx, req.SenderID, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	info := requestInfo(req, userID, sender, receiver)
	s.notify(ctx, req, action, sender, receiver)
	return &info, nil
}

// ListFriends accepted relationships of userID; blocked friends are shown anonymized.
func (s *relationshipService) ListFriends(ctx context.Context, userID int64) ([]respond.FriendInfo, error) {
	accepted, err := s.repos.FriendRequest.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.usersOf(ctx, userID, accepted)
	if err != nil {
		return nil, err
	}
	others := make([]int64, 0, len(accepted))
	for _, req := range accepted {
		others = append(others, req.Counterpart(userID))
	}
	blocked, err := s.repos.Block.BlockedAmong(ctx, userID, others)
	if err != nil {
		return nil, err
	}

	out := make([]respond.FriendInfo, 0, len(accepted))
	for _, req := range accepted {
		otherID := req.Counterpart(userID)
		u, ok := users[otherID]
		if !ok {
			continue
		}
		profile := respond.FromUser(u)
		if blocked[otherID] {
			profile = respond.Anonymized(otherID)
		}
		out = append(out, respond.FriendInfo{UserInfo: profile, RequestID: req.ID, Since: req.UpdatedAt})
	}
	return out, nil
}

// RemoveFriend deletes the live request between the two users, accepted or still pending.
// The direct conversation and its history are kept.
func (s *relationshipService) RemoveFriend(ctx context.Context, userID, otherID int64) error {
	req, err := s.repos.FriendRequest.FindActive(ctx, userID, otherID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "no friendship with this user")
		}
		return err
	}
	if err := s.repos.FriendRequest.Delete(ctx, req.ID); err != nil {
		return err
	}
	sender, receiver, err := s.pair(ctx, req.SenderID, req.ReceiverID)
	if err != nil {
		// the relationship is gone either way, only the notification is lost
		zap.L().Warn("load users for friend removal event", zap.Int64("request_id", req.ID), zap.Error(err))
		return nil
	}
	s.notify(ctx, req, ActionRemoved, sender, receiver)
	return nil
}

// Block is idempotent; an existing direct conversation is signalled so both sides refresh.
func (s *relationshipService) Block(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return errorx.New(errorx.CodeInvalidParam, "you cannot block yourself")
	}
	if _, err := s.repos.User.FindByID(ctx, targetID); err != nil {
		return err
	}
	added, err := s.repos.Block.Insert(ctx, &model.Block{BlockerID: userID, BlockedID: targetID})
	if err != nil {
		return err
	}
	if added {
		s.signalDirect(ctx, userID, targetID)
	}
	return nil
}

// Unblock removes userID's block on targetID; a missing block is not an error.
func (s *relationshipService) Unblock(ctx context.Context, userID, targetID int64) error {
	removed, err := s.repos.Block.Delete(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.signalDirect(ctx, userID, targetID)
	}
	return nil
}

// ListBlocked users blocked by userID, most recent first.
func (s *relationshipService) ListBlocked(ctx context.Context, userID int64) ([]respond.BlockedInfo, error) {
	blocks, err := s.repos.Block.ListByBlocker(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.BlockedID)
	}
	list, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.User, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	out := make([]respond.BlockedInfo, 0, len(blocks))
	for _, b := range blocks {
		if u, ok := byID[b.BlockedID]; ok {
			out = append(out, respond.BlockedInfo{UserInfo: respond.FromUser(u), BlockedAt: b.CreatedAt})
		}
	}
	return out, nil
}

func (s *relationshipService) signalDirect(ctx context.Context, a, b int64) {
	conv, err := s.repos.Conversation.FindByDirectKey(ctx, model.PairKey(a, b))
	if err != nil {
		if !errorx.IsNotFound(err) {
			zap.L().Warn("lookup direct conversation", zap.Int64("user_a", a), zap.Int64("user_b", b), zap.Error(err))
		}
		return
	}
	signal := respond.ConversationSignal{ConversationID: conv.ID}
	s.emitter.Emit(ctx, ws.User(a), ws.EventConversationUpdated, signal)
	s.emitter.Emit(ctx, ws.User(b), ws.EventConversationUpdated, signal)
}

// notify sends the friend_request event to both parties, each seeing its own direction.
func (s *relationshipService) notify(ctx context.Context, req *model.FriendRequest, action string, sender, receiver *model.User) {
	for _, uid := range []int64{req.SenderID, req.ReceiverID} {
		s.emitter.Emit(ctx, ws.User(uid), ws.EventFriendRequest, respond.FriendRequestEvent{
			Action:  action,
			Request: requestInfo(req, uid, sender, receiver),
		})
	}
}

func (s *relationshipService) pair(ctx context.Context, senderID, receiverID int64) (*model.User, *model.User, error) {
	sender, err := s.repos.User.FindByID(ctx, senderID)
	if err != nil {
		return nil, nil, err
	}
	receiver, err := s.repos.User.FindByID(ctx, receiverID)
	if err != nil {
		return nil, nil, err
	}
	return sender, receiver, nil
}

// usersOf loads both parties of every request, keyed by id.
func (s *relationshipService) usersOf(ctx context.Context, userID int64, reqs []model.FriendRequest) (map[int64]*model.User, error) {
	ids := []int64{userID}
	for _, req := range reqs {
		ids = append(ids, req.Counterpart(userID))
	}
	list, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.User, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func requestInfo(req *model.FriendRequest, viewerID int64, sender, receiver *model.User) respond.FriendRequestInfo {
	direction := "outgoing"
	if req.ReceiverID == viewerID {
		direction = "incoming"
	}
	info := respond.FriendRequestInfo{
		ID:        req.ID,
		Status:    string(req.Status),
		Direction: direction,
		CreatedAt: req.CreatedAt,
	}
	if sender != nil {
		info.Sender = respond.FromUser(sender)
	}
	if receiver != nil {
		info.Receiver = respond.FromUser(receiver)
	}
	return info
}
