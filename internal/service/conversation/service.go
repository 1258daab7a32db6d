// Package conversation manages direct and group conversations, their participants and the
// per-user visibility of each conversation in its members' lists.
//
// Responsibilities:
//  1. direct conversations: one per pair, opened on friendship acceptance or on demand, and
//     reopened (rows restored, clear markers reset) instead of duplicated
//  2. groups: creation, rename and avatar, member add/remove, leave with admin promotion,
//     destroy; every membership change posts a sender-less system message
//  3. the conversation list: clear markers hide an entry until a newer message exists, direct
//     entries show the counterpart (anonymized when blocked)
//  4. room hygiene: a user who stops being a participant is evicted from the gateway room so
//     room fanout only reaches current participants
//
// Timestamps that are compared with each other (message creation, clear markers) all come
// from Repositories.Now.
package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/relationship"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
)

type conversationService struct {
	repos   *repository.Repositories
	emitter ws.Emitter
}

// NewConversationService creates the conversation service.
func NewConversationService(repos *repository.Repositories, emitter ws.Emitter) *conversationService {
	return &conversationService{repos: repos, emitter: emitter}
}

// Create is the POST /conversations entry point: one participant and no name opens the
// direct conversation (eligibility required), anything else creates a group.
func (s *conversationService) Create(ctx context.Context, creatorID int64, name string, participantIDs []int64) (*model.Conversation, error) {
	members := uniqueIDs(participantIDs, creatorID)
	if len(members) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "at least one other participant is required")
	}
	if len(members) == 1 && strings.TrimSpace(name) == "" {
		if err := relationship.CheckEligibility(ctx, s.repos, creatorID, members[0]); err != nil {
			return nil, err
		}
		return s.CreateDirect(ctx, creatorID, members[0])
	}
	return s.CreateGroup(ctx, creatorID, name, members)
}

// CreateDirect returns the direct conversation of the pair, creating it with a welcome
// message the first time. An existing conversation is reopened for both users: missing
// participant rows are restored and every clear marker is reset.
func (s *conversationService) CreateDirect(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	if userA == userB {
		return nil, errorx.New(errorx.CodeInvalidParam, "a direct conversation needs two different users")
	}
	users, err := s.repos.User.FindByIDs(ctx, []int64{userA, userB})
	if err != nil {
		return nil, err
	}
	if len(users) != 2 {
		return nil, errorx.New(errorx.CodeNotFound, "user not found")
	}

	conv, welcome, err := s.openDirect(ctx, userA, userB)
	if errorx.IsConflict(err) {
		// lost the race on direct_key: the winner's row is there now
		conv, welcome, err = s.openDirect(ctx, userA, userB)
	}
	if err != nil {
		return nil, err
	}

	signal := respond.ConversationSignal{ConversationID: conv.ID}
	if welcome != nil {
		s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, respond.FromMessage(welcome, nil, nil, nil, 0))
		s.emitter.Emit(ctx, ws.User(userA), ws.EventConversationAdded, signal)
		s.emitter.Emit(ctx, ws.User(userB), ws.EventConversationAdded, signal)
	} else {
		s.emitter.Emit(ctx, ws.User(userA), ws.EventConversationUpdated, signal)
		s.emitter.Emit(ctx, ws.User(userB), ws.EventConversationUpdated, signal)
	}
	return conv, nil
}

// openDirect returns the welcome message only when the conversation was created.
func (s *conversationService) openDirect(ctx context.Context, userA, userB int64) (*model.Conversation, *model.Message, error) {
	key := model.PairKey(userA, userB)
	var (
		conv    *model.Conversation
		welcome *model.Message
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		existing, err := tx.Conversation.FindByDirectKey(ctx, key)
		switch {
		case err == nil:
			conv = existing
			if _, err := tx.Participant.Add(ctx, []*model.Participant{
				{ConversationID: conv.ID, UserID: userA, Role: model.RoleMember, JoinedAt: now},
				{ConversationID: conv.ID, UserID: userB, Role: model.RoleMember, JoinedAt: now},
			}); err != nil {
				return err
			}
			return tx.Participant.ResetClearedAt(ctx, conv.ID)
		case !errorx.IsNotFound(err):
			return err
		}

		conv = &model.Conversation{DirectKey: &key, CreatedAt: now}
		if err := tx.Conversation.Create(ctx, conv); err != nil {
			return err
		}
		if _, err := tx.Participant.Add(ctx, []*model.Participant{
			{ConversationID: conv.ID, UserID: userA, Role: model.RoleMember, JoinedAt: now},
			{ConversationID: conv.ID, UserID: userB, Role: model.RoleMember, JoinedAt: now},
		}); err != nil {
			return err
		}
		welcome, err = postSystemMessage(ctx, tx, conv.ID, constants.WELCOME_MESSAGE, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return conv, welcome, nil
}

// CreateGroup creates a group with creatorID as admin. An empty name is derived from the
// first members' display names.
func (s *conversationService) CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (*model.Conversation, error) {
	members := uniqueIDs(memberIDs, creatorID)
	if len(members) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "a group needs at least one other member")
	}
	users, err := s.repos.User.FindByIDs(ctx, append([]int64{creatorID}, members...))
	if err != nil {
		return nil, err
	}
	if len(users) != len(members)+1 {
		return nil, errorx.New(errorx.CodeNotFound, "one of the members does not exist")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultGroupName(users)
	}
	if len([]rune(name)) > 64 {
		return nil, errorx.New(errorx.CodeInvalidParam, "group name is limited to 64 characters")
	}

	conv := &model.Conversation{Name: name, IsGroup: true}
	var created *model.Message
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		conv.CreatedAt = now
		if err := tx.Conversation.Create(ctx, conv); err != nil {
			return err
		}
		rows := []*model.Participant{{ConversationID: conv.ID, UserID: creatorID, Role: model.RoleAdmin, JoinedAt: now}}
		for _, id := range members {
			rows = append(rows, &model.Participant{ConversationID: conv.ID, UserID: id, Role: model.RoleMember, JoinedAt: now})
		}
		if _, err := tx.Participant.Add(ctx, rows); err != nil {
			return err
		}
		created, err = postSystemMessage(ctx, tx, conv.ID, fmt.Sprintf(constants.GROUP_CREATED_FORMAT, name), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, respond.FromMessage(created, nil, nil, nil, 0))
	signal := respond.ConversationSignal{ConversationID: conv.ID}
	for _, id := range append([]int64{creatorID}, members...) {
		s.emitter.Emit(ctx, ws.User(id), ws.EventConversationAdded, signal)
	}
	return conv, nil
}

// ListForUser every conversation of userID that its clear marker does not hide, most recent
// activity first.
func (s *conversationService) ListForUser(ctx context.Context, userID int64) ([]respond.ConversationItem, error) {
	memberships, err := s.repos.Participant.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []respond.ConversationItem{}, nil
	}
	convIDs := make([]int64, 0, len(memberships))
	for _, p := range memberships {
		convIDs = append(convIDs, p.ConversationID)
	}
	convs, err := s.repos.Conversation.FindByIDs(ctx, convIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Conversation, len(convs))
	for i := range convs {
		byID[convs[i].ID] = &convs[i]
	}

	// 1. newest message of every conversation in one query; it decides both the clear
	// marker check and the preview
	latestBy, err := s.repos.Message.LatestByConversations(ctx, convIDs)
	if err != nil {
		return nil, err
	}

	type entry struct {
		conv   *model.Conversation
		member model.Participant
		latest *model.Message
		other  int64
	}
	var (
		visible    []entry
		visibleIDs []int64
		directIDs  []int64
	)
	for _, p := range memberships {
		conv, ok := byID[p.ConversationID]
		if !ok {
			continue
		}
		latest := latestBy[conv.ID]
		lastActivity := conv.CreatedAt
		if latest != nil {
			lastActivity = latest.CreatedAt
		}
		if p.HiddenAfter(lastActivity) {
			continue
		}
		visible = append(visible, entry{conv: conv, member: p, latest: latest})
		visibleIDs = append(visibleIDs, conv.ID)
		if !conv.IsGroup {
			directIDs = append(directIDs, conv.ID)
		}
	}

	// 2. the other side of each direct conversation, then counts, profiles and blocks, all batched
	counterparts, err := s.repos.Participant.Counterparts(ctx, userID, directIDs)
	if err != nil {
		return nil, err
	}
	others := make([]int64, 0, len(counterparts))
	for i := range visible {
		if id, ok := counterparts[visible[i].conv.ID]; ok && !visible[i].conv.IsGroup {
			visible[i].other = id
			others = append(others, id)
		}
	}

	counts, err := s.repos.Participant.CountByConversations(ctx, visibleIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.repos.Message.UnreadCounts(ctx, userID, visibleIDs)
	if err != nil {
		return nil, err
	}
	otherUsers, err := s.repos.User.FindByIDs(ctx, others)
	if err != nil {
		return nil, err
	}
	profiles := make(map[int64]*model.User, len(otherUsers))
	for i := range otherUsers {
		profiles[otherUsers[i].ID] = &otherUsers[i]
	}
	blocked, err := s.repos.Block.BlockedAmong(ctx, userID, others)
	if err != nil {
		return nil, err
	}

	items := make([]respond.ConversationItem, 0, len(visible))
	for _, e := range visible {
		item := respond.ConversationItem{
			ID:             e.conv.ID,
			IsGroup:        e.conv.IsGroup,
			Name:           e.conv.Name,
			AvatarURL:      e.conv.AvatarURL,
			Role:           string(e.member.Role),
			MemberCount:    counts[e.conv.ID],
			UnreadCount:    unread[e.conv.ID],
			LastActivityAt: e.conv.CreatedAt,
			CreatedAt:      e.conv.CreatedAt,
		}
		if e.latest != nil {
			item.LastActivityAt = e.latest.CreatedAt
			item.LastMessage = lastMessage(e.latest)
		}
		if !e.conv.IsGroup && e.other != 0 {
			other := e.other
			item.OtherUserID = &other
			switch u, ok := profiles[other]; {
			case blocked[other]:
				anon := respond.Anonymized(other)
				item.Name, item.AvatarURL, item.IsOnline = anon.DisplayName, anon.AvatarURL, false
			case ok:
				item.Name, item.AvatarURL, item.IsOnline = u.DisplayName, u.AvatarURL, u.IsOnline
			}
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].LastActivityAt.Equal(items[j].LastActivityAt) {
			return items[i].LastActivityAt.After(items[j].LastActivityAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// Clear hides the conversation from userID's list until the next message.
func (s *conversationService) Clear(ctx context.Context, conversationID, userID int64) error {
	if _, err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	now, err := s.repos.Now(ctx)
	if err != nil {
		return err
	}
	if err := s.repos.Participant.SetClearedAt(ctx, conversationID, userID, now); err != nil {
		return err
	}
	// other devices of the same user drop it too
	s.emitter.Emit(ctx, ws.User(userID), ws.EventConversationRemoved, respond.ConversationSignal{ConversationID: conversationID})
	return nil
}

// Destroy hard-deletes a group and everything in it. Admin only.
func (s *conversationService) Destroy(ctx context.Context, conversationID, requesterID int64) error {
	conv, err := s.requireGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, conv.ID, requesterID); err != nil {
		return err
	}
	former, err := s.repos.Participant.UserIDs(ctx, conv.ID)
	if err != nil {
		return err
	}
	if err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return purge(ctx, tx, conv.ID)
	}); err != nil {
		return err
	}
	zap.L().Info("group destroyed", zap.Int64("conversation_id", conv.ID), zap.Int64("admin_id", requesterID))
	signal := respond.ConversationSignal{ConversationID: conv.ID}
	for _, id := range former {
		s.emitter.EvictUser(ctx, conv.ID, id)
		s.emitter.Emit(ctx, ws.User(id), ws.EventConversationRemoved, signal)
	}
	return nil
}

// AddMembers lets any participant add users to a group. Users already present are skipped;
// when nobody is new nothing is posted.
func (s *conversationService) AddMembers(ctx context.Context, conversationID, actorID int64, userIDs []int64) error {
	conv, err := s.requireGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, err := s.requireMember(ctx, conv.ID, actorID); err != nil {
		return err
	}
	candidates := uniqueIDs(userIDs, actorID)
	if len(candidates) == 0 {
		return errorx.New(errorx.CodeInvalidParam, "no users to add")
	}
	users, err := s.repos.User.FindByIDs(ctx, append([]int64{actorID}, candidates...))
	if err != nil {
		return err
	}
	if len(users) != len(candidates)+1 {
		return errorx.New(errorx.CodeNotFound, "one of the users does not exist")
	}
	names := displayNames(users)

	var (
		added []int64
		msg   *model.Message
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		var labels []string
		for _, id := range candidates {
			n, err := tx.Participant.Add(ctx, []*model.Participant{
				{ConversationID: conv.ID, UserID: id, Role: model.RoleMember, JoinedAt: now},
			})
			if err != nil {
				return err
			}
			if n > 0 {
				added = append(added, id)
				labels = append(labels, names[id])
			}
		}
		if len(added) == 0 {
			return nil
		}
		body := fmt.Sprintf(constants.MEMBERS_ADDED_FORMAT, names[actorID], strings.Join(labels, ", "))
		msg, err = postSystemMessage(ctx, tx, conv.ID, body, now)
		return err
	})
	if err != nil || len(added) == 0 {
		return err
	}

	s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, respond.FromMessage(msg, nil, nil, nil, 0))
	s.signalMembers(ctx, conv.ID, added)
	return nil
}

// RemoveMember admin removes another member; removing oneself is Leave.
func (s *conversationService) RemoveMember(ctx context.Context, conversationID, actorID, targetID int64) error {
	if actorID == targetID {
		return s.Leave(ctx, conversationID, actorID)
	}
	conv, err := s.requireGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, conv.ID, actorID); err != nil {
		return err
	}
	users, err := s.repos.User.FindByIDs(ctx, []int64{actorID, targetID})
	if err != nil {
		return err
	}
	names := displayNames(users)

	var msg *model.Message
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		n, err := tx.Participant.Remove(ctx, conv.ID, targetID)
		if err != nil {
			return err
		}
		if n == 0 {
			return errorx.New(errorx.CodeNotFound, "this user is not a member of the group")
		}
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		msg, err = postSystemMessage(ctx, tx, conv.ID, fmt.Sprintf(constants.MEMBER_REMOVED_FORMAT, names[actorID], names[targetID]), now)
		return err
	})
	if err != nil {
		return err
	}

	// out of the room before the notice goes to it
	s.emitter.EvictUser(ctx, conv.ID, targetID)
	s.emitter.Emit(ctx, ws.User(targetID), ws.EventConversationRemoved, respond.ConversationSignal{ConversationID: conv.ID})
	s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, respond.FromMessage(msg, nil, nil, nil, 0))
	s.signalMembers(ctx, conv.ID, nil)
	return nil
}

// Leave removes userID from a group. The earliest member is promoted when no admin is left,
// and a group left empty is deleted.
//
// Inside one transaction:
//  1. drop the membership row
//  2. nobody left: purge the group and its history, no system message
//  3. no admin left: promote the earliest remaining member
//  4. post "<name> left" so the remaining members see it
//
// Eviction and events are sent only after the commit.
func (s *conversationService) Leave(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.requireGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, err := s.requireMember(ctx, conv.ID, userID); err != nil {
		return err
	}
	leaver, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	var (
		msg   *model.Message
		empty bool
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Participant.Remove(ctx, conv.ID, userID); err != nil {
			return err
		}
		remaining, err := tx.Participant.ListByConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			empty = true
			return purge(ctx, tx, conv.ID)
		}
		if !hasAdmin(remaining) {
			if err := tx.Participant.SetRole(ctx, conv.ID, remaining[0].UserID, model.RoleAdmin); err != nil {
				return err
			}
		}
		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		msg, err = postSystemMessage(ctx, tx, conv.ID, fmt.Sprintf(constants.MEMBER_LEFT_FORMAT, leaver.DisplayName), now)
		return err
	})
	if err != nil {
		return err
	}

	s.emitter.EvictUser(ctx, conv.ID, userID)
	s.emitter.Emit(ctx, ws.User(userID), ws.EventConversationRemoved, respond.ConversationSignal{ConversationID: conv.ID})
	if empty {
		zap.L().Info("empty group deleted", zap.Int64("conversation_id", conv.ID))
		return nil
	}
	s.emitter.Emit(ctx, ws.Room(conv.ID), ws.EventNewMessage, respond.FromMessage(msg, nil, nil, nil, 0))
	s.signalMembers(ctx, conv.ID, nil)
	return nil
}

// UpdateGroup renames a group or changes its avatar. Admin only; nil fields are left as is.
func (s *conversationService) UpdateGroup(ctx context.Context, conversationID, actorID int64, name, avatarURL *string) error {
	conv, err := s.requireGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, conv.ID, actorID); err != nil {
		return err
	}
	updates := map[string]any{}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" || len([]rune(n)) > 64 {
			return errorx.New(errorx.CodeInvalidParam, "group name must be 1 to 64 characters")
		}
		updates["name"] = n
	}
	if avatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*avatarURL)
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repos.Conversation.Update(ctx, conv.ID, updates); err != nil {
		return err
	}
	s.signalMembers(ctx, conv.ID, nil)
	return nil
}

// IsParticipant backs the gateway's room join check.
func (s *conversationService) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.repos.Participant.Exists(ctx, conversationID, userID)
}

// signalMembers sends conversation_added to the newly added users and conversation_updated
// to everyone else still in the conversation.
func (s *conversationService) signalMembers(ctx context.Context, conversationID int64, added []int64) {
	ids, err := s.repos.Participant.UserIDs(ctx, conversationID)
	if err != nil {
		zap.L().Warn("load participants for signal", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return
	}
	isNew := make(map[int64]bool, len(added))
	for _, id := range added {
		isNew[id] = true
	}
	signal := respond.ConversationSignal{ConversationID: conversationID}
	for _, id := range ids {
		event := ws.EventConversationUpdated
		if isNew[id] {
			event = ws.EventConversationAdded
		}
		s.emitter.Emit(ctx, ws.User(id), event, signal)
	}
}

func (s *conversationService) requireGroup(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	conv, err := s.repos.Conversation.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, errorx.New(errorx.CodeInvalidParam, "this operation only applies to groups")
	}
	return conv, nil
}

func (s *conversationService) requireMember(ctx context.Context, conversationID, userID int64) (*model.Participant, error) {
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

func (s *conversationService) requireAdmin(ctx context.Context, conversationID, userID int64) error {
	p, err := s.requireMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if p.Role != model.RoleAdmin {
		return errorx.New(errorx.CodeForbidden, "only a group admin can do this")
	}
	return nil
}

// postSystemMessage writes a sender-less entry and, like any new message, un-hides the
// conversation for everyone.
func postSystemMessage(ctx context.Context, tx *repository.Repositories, conversationID int64, body string, now time.Time) (*model.Message, error) {
	msg := &model.Message{ConversationID: conversationID, Body: body, Type: model.TypeText, CreatedAt: now}
	if err := tx.Message.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := tx.Participant.ResetClearedAt(ctx, conversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

// purge deletes a conversation with its history; children first.
func purge(ctx context.Context, tx *repository.Repositories, conversationID int64) error {
	if err := tx.Reaction.DeleteByConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := tx.ReadMark.DeleteByConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := tx.Message.DeleteByConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := tx.Participant.DeleteByConversation(ctx, conversationID); err != nil {
		return err
	}
	return tx.Conversation.Delete(ctx, conversationID)
}

func lastMessage(m *model.Message) *respond.LastMessage {
	lm := &respond.LastMessage{
		ID:        m.ID,
		Body:      m.Body,
		Type:      string(m.Type),
		SenderID:  m.SenderID,
		IsDeleted: m.IsDeleted(),
		CreatedAt: m.CreatedAt,
	}
	if lm.IsDeleted {
		lm.Body = constants.MESSAGE_REMOVED_PLACEHOLDER
	}
	return lm
}

func hasAdmin(members []model.Participant) bool {
	for _, p := range members {
		if p.Role == model.RoleAdmin {
			return true
		}
	}
	return false
}

func displayNames(users []model.User) map[int64]string {
	out := make(map[int64]string, len(users))
	for _, u := range users {
		out[u.ID] = u.DisplayName
	}
	return out
}

func defaultGroupName(users []model.User) string {
	names := make([]string, 0, 3)
	for _, u := range users {
		if len(names) == 3 {
			break
		}
		names = append(names, u.DisplayName)
	}
	name := strings.Join(names, ", ")
	if r := []rune(name); len(r) > 64 {
		name = string(r[:64])
	}
	return name
}

// uniqueIDs drops duplicates, zero ids and self, keeping first-seen order.
func uniqueIDs(ids []int64, self int64) []int64 {
	seen := map[int64]bool{self: true, 0: true}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
