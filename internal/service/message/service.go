// Package message implements sending, editing, soft deletion, read tracking and history paging
// of conversation messages.
//
// Send path (Send and LogCall share it through deliver):
//  1. the sender must be a participant; direct conversations also need eligibility
//     (friends, no block either way)
//  2. one transaction stores the message, the sender's own read mark and resets every clear
//     marker of the conversation
//  3. after the commit: new_message to the room, conversation_updated to each participant
//
// Deleted messages keep their row. Their body is replaced by a placeholder on the way out and
// they can no longer be edited.
package message

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/relationship"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
)

// Aggregator supplies the reaction groups and read counts of a page of messages.
type Aggregator interface {
	Aggregate(ctx context.Context, messageIDs []int64) (map[int64][]respond.ReactionGroup, error)
	ReadCounts(ctx context.Context, messageIDs []int64) (map[int64]int64, error)
}

// SendInput a user-authored message.
type SendInput struct {
	ConversationID int64
	SenderID       int64
	Body           string
	Type           model.MessageType
	AttachmentURL  string
	ReplyToID      *int64
}

type messageService struct {
	repos      *repository.Repositories
	emitter    ws.Emitter
	aggregator Aggregator
}

// NewMessageService creates the message service.
func NewMessageService(repos *repository.Repositories, emitter ws.Emitter, aggregator Aggregator) *messageService {
	return &messageService{repos: repos, emitter: emitter, aggregator: aggregator}
}

// Send persists a user message and fans it out. Call log types are rejected here; they come in
// through LogCall.
func (s *messageService) Send(ctx context.Context, in SendInput) (*respond.MessageInfo, error) {
	if in.Type == "" {
		in.Type = model.TypeText
	}
	if in.Type.IsCallLog() {
		return nil, errorx.New(errorx.CodeInvalidParam, "call entries cannot be sent directly")
	}
	in.Body = strings.TrimSpace(in.Body)
	in.AttachmentURL = strings.TrimSpace(in.AttachmentURL)
	if err := in.Type.Validate(in.Body, in.AttachmentURL, nil); err != nil {
		return nil, errorx.New(errorx.CodeInvalidParam, err.Error())
	}
	msg := &model.Message{
		ConversationID: in.ConversationID,
		SenderID:       &in.SenderID,
		Body:           in.Body,
		Type:           in.Type,
		AttachmentURL:  in.AttachmentURL,
		ReplyToID:      in.ReplyToID,
	}
	return s.deliver(ctx, msg)
}

// LogCall records a call lifecycle entry on behalf of callerID and fans it out like any
// other message.
func (s *messageService) LogCall(ctx context.Context, conversationID, callerID int64, typ model.MessageType, duration *int) (*respond.MessageInfo, error) {
	if !typ.IsCallLog() {
		return nil, errorx.New(errorx.CodeInvalidParam, "type must be a call entry")
	}
	if err := typ.Validate("", "", duration); err != nil {
		return nil, errorx.New(errorx.CodeInvalidParam, err.Error())
	}
	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       &callerID,
		Type:           typ,
		CallDuration:   duration,
	}
	return s.deliver(ctx, msg)
}

// deliver runs the shared send path: membership and eligibility checks, persistence with the
// sender's read mark and the clear-marker reset, then the room and per-user fanout.
func (s *messageService) deliver(ctx context.Context, msg *model.Message) (*respond.MessageInfo, error) {
	// 1. membership and eligibility
	senderID := *msg.SenderID
	conv, err := s.repos.Conversation.FindByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	participants, err := s.repos.Participant.UserIDs(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if !containsID(participants, senderID) {
		return nil, errorx.New(errorx.CodeForbidden, "you are not a participant of this conversation")
	}
	if !conv.IsGroup {
		counterpart := int64(0)
		for _, id := range participants {
			if id != senderID {
				counterpart = id
			}
		}
		if counterpart == 0 {
			return nil, errorx.New(errorx.CodeNotEligible, "the other user is no longer in this conversation")
		}
		if err := relationship.CheckEligibility(ctx, s.repos, senderID, counterpart); err != nil {
			return nil, err
		}
	}

	// 2. a reply must point inside the same conversation
	var replyTarget *model.Message
	if msg.ReplyToID != nil {
		replyTarget, err = s.repos.Message.FindByID(ctx, *msg.ReplyToID)
		if err != nil {
			return nil, err
		}
		if replyTarget.ConversationID != conv.ID {
			return nil, errorx.New(errorx.CodeInvalidParam, "the replied message belongs to another conversation")
		}
	}

	// 3. store; the new message un-hides the conversation for everyone
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		msg.CreatedAt = now
		if err := tx.Message.Create(ctx, msg); err != nil {
			return err
		}
		if _, err := tx.ReadMark.InsertBatch(ctx, []*model.ReadMark{
			{MessageID: msg.ID, UserID: senderID, ConversationID: conv.ID, ReadAt: now},
		}); err != nil {
			return err
		}
		return tx.Participant.ResetClearedAt(ctx, conv.ID)
	})
	if err != nil {
		return nil, err
	}

	users, err := s.profiles(ctx, []int64{senderID}, replyTarget)
	if err != nil {
		// the message is stored; fall back to a payload without identities
		zap.L().Warn("load profiles for new message", zap.Int64("message_id", msg.ID), zap.Error(err))
		users = map[int64]*respond.UserInfo{}
	}
	var reply *respond.ReplyPreview
	if replyTarget != nil {
		reply = respond.FromReplyTarget(replyTarget, senderOf(replyTarget, users))
	}
	info := respond.FromMessage(msg, users[senderID], reply, nil, 0)

	// 4. fanout
	s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, info)
	signal := respond.ConversationSignal{ConversationID: conv.ID}
	for _, id := range participants {
		s.emitter.Emit(ctx, ws.User(id), ws.EventConversationUpdated, signal)
	}
	return &info, nil
}

// Edit replaces the body of a text message. Sender only, never on a deleted message.
func (s *messageService) Edit(ctx context.Context, messageID, requesterID int64, body string) (*respond.MessageInfo, error) {
	msg, err := s.repos.Message.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.IsSentBy(requesterID) {
		return nil, errorx.New(errorx.CodeForbidden, "only the sender can edit this message")
	}
	if msg.IsDeleted() {
		return nil, errorx.New(errorx.CodeInvalidParam, "a deleted message cannot be edited")
	}
	if !msg.Type.Editable() {
		return nil, errorx.New(errorx.CodeInvalidParam, "only text messages can be edited")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "message body cannot be empty")
	}
	now, err := s.repos.Now(ctx)
	if err != nil {
		return nil, err
	}
	edited, err := s.repos.Message.EditBody(ctx, msg.ID, body, now)
	if err != nil {
		return nil, err
	}
	if !edited {
		// deleted between the read above and this write
		return nil, errorx.New(errorx.CodeNotFound, "message not found")
	}
	msg.Body = body
	msg.EditedAt = &now

	info, err := s.hydrateOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, ws.Room(msg.ConversationID), ws.EventMessageUpdate, *info)
	return info, nil
}

// SoftDelete tombstones a message. Repeating it returns the current shape, keeps the
// original deletion time and emits nothing.
func (s *messageService) SoftDelete(ctx context.Context, messageID, requesterID int64) (*respond.MessageInfo, error) {
	msg, err := s.repos.Message.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.IsSentBy(requesterID) {
		return nil, errorx.New(errorx.CodeForbidden, "only the sender can delete this message")
	}
	changed := false
	if !msg.IsDeleted() {
		now, err := s.repos.Now(ctx)
		if err != nil {
			return nil, err
		}
		if changed, err = s.repos.Message.MarkDeleted(ctx, msg.ID, now); err != nil {
			return nil, err
		}
		if msg, err = s.repos.Message.FindByID(ctx, msg.ID); err != nil {
			return nil, err
		}
	}

	info, err := s.hydrateOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	if changed {
		s.emitter.Emit(ctx, ws.Room(msg.ConversationID), ws.EventMessageUpdate, *info)
	}
	return info, nil
}

// MarkRead marks everything other users wrote in the conversation as read by readerID and
// returns how many marks were new. One receipt event covers the whole batch.
func (s *messageService) MarkRead(ctx context.Context, conversationID, readerID int64) (int64, error) {
	if _, err := s.requireMember(ctx, conversationID, readerID); err != nil {
		return 0, err
	}
	ids, err := s.repos.Message.UnreadIDs(ctx, conversationID, readerID)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	now, err := s.repos.Now(ctx)
	if err != nil {
		return 0, err
	}
	// duplicates are skipped by the store, so count is what this call added
	marks := make([]*model.ReadMark, 0, len(ids))
	for _, id := range ids {
		marks = append(marks, &model.ReadMark{MessageID: id, UserID: readerID, ConversationID: conversationID, ReadAt: now})
	}
	count, err := s.repos.ReadMark.InsertBatch(ctx, marks)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.emitter.Emit(ctx, ws.Room(conversationID), ws.EventReadReceipt, respond.ReadReceiptEvent{
			ConversationID: conversationID,
			ReaderID:       readerID,
			Count:          count,
		})
	}
	return count, nil
}

// List pages history older than beforeID (newest page when nil) in ascending order. Messages
// the caller cleared stay hidden from them.
func (s *messageService) List(ctx context.Context, conversationID, userID int64, beforeID *int64, limit int) ([]respond.MessageInfo, error) {
	member, err := s.requireMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = constants.MESSAGE_PAGE_SIZE
	}
	if limit > constants.MESSAGE_PAGE_MAX {
		limit = constants.MESSAGE_PAGE_MAX
	}
	var cursor *model.Message
	if beforeID != nil {
		cursor, err = s.repos.Message.FindByID(ctx, *beforeID)
		if err != nil {
			return nil, err
		}
		if cursor.ConversationID != conversationID {
			return nil, errorx.New(errorx.CodeInvalidParam, "cursor message belongs to another conversation")
		}
	}
	page, err := s.repos.Message.Page(ctx, conversationID, member.ClearedAt, cursor, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return s.hydrate(ctx, page)
}

func (s *messageService) requireMember(ctx context.Context, conversationID, userID int64) (*model.Participant, error) {
	p, err := s.repos.Participant.Find(ctx, conversationID, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			if _, cerr := s.repos.Conversation.FindByID(ctx, conversationID); cerr != nil {
				return nil, cerr
			}
			return nil, errorx.New(errorx.CodeForbidden, "you are not a participant of this conversation")
		}
		return nil, err
	}
	return p, nil
}

func (s *messageService) hydrateOne(ctx context.Context, msg *model.Message) (*respond.MessageInfo, error) {
	list, err := s.hydrate(ctx, []model.Message{*msg})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// hydrate attaches senders, reply previews, reactions and read counts to a page, with one
// query per concern.
func (s *messageService) hydrate(ctx context.Context, page []model.Message) ([]respond.MessageInfo, error) {
	out := make([]respond.MessageInfo, 0, len(page))
	if len(page) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(page))
	var replyIDs []int64
	for _, m := range page {
		ids = append(ids, m.ID)
		if m.ReplyToID != nil {
			replyIDs = append(replyIDs, *m.ReplyToID)
		}
	}
	targets, err := s.repos.Message.FindByIDs(ctx, replyIDs)
	if err != nil {
		return nil, err
	}
	replies := make(map[int64]*model.Message, len(targets))
	for i := range targets {
		replies[targets[i].ID] = &targets[i]
	}

	var userIDs []int64
	for _, m := range page {
		if m.SenderID != nil {
			userIDs = append(userIDs, *m.SenderID)
		}
	}
	for _, t := range targets {
		if t.SenderID != nil {
			userIDs = append(userIDs, *t.SenderID)
		}
	}
	users, err := s.profiles(ctx, userIDs, nil)
	if err != nil {
		return nil, err
	}
	reactions, err := s.aggregator.Aggregate(ctx, ids)
	if err != nil {
		return nil, err
	}
	reads, err := s.aggregator.ReadCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range page {
		m := &page[i]
		var reply *respond.ReplyPreview
		if m.ReplyToID != nil {
			if t, ok := replies[*m.ReplyToID]; ok {
				reply = respond.FromReplyTarget(t, senderOf(t, users))
			}
		}
		out = append(out, respond.FromMessage(m, senderOf(m, users), reply, reactions[m.ID], reads[m.ID]))
	}
	return out, nil
}

// profiles loads public profiles for ids plus the author of target, if any.
func (s *messageService) profiles(ctx context.Context, ids []int64, target *model.Message) (map[int64]*respond.UserInfo, error) {
	if target != nil && target.SenderID != nil {
		ids = append(ids, *target.SenderID)
	}
	list, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*respond.UserInfo, len(list))
	for i := range list {
		info := respond.FromUser(&list[i])
		out[info.ID] = &info
	}
	return out, nil
}

func senderOf(m *model.Message, users map[int64]*respond.UserInfo) *respond.UserInfo {
	if m.SenderID == nil {
		return nil
	}
	return users[*m.SenderID]
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
