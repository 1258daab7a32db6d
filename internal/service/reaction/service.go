// Package reaction toggles emoji reactions and aggregates reactions and read counts for
// message payloads.
package reaction

import (
	"context"
	"sort"
	"strings"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
)

type reactionService struct {
	repos   *repository.Repositories
	emitter ws.Emitter
}

// NewReactionService creates the reaction service.
func NewReactionService(repos *repository.Repositories, emitter ws.Emitter) *reactionService {
	return &reactionService{repos: repos, emitter: emitter}
}

// Toggle removes the (message, user, emoji) triple when present and inserts it otherwise, then
// broadcasts the message's full aggregate to the room.
func (s *reactionService) Toggle(ctx context.Context, messageID, userID int64, emoji string) (*respond.ReactionsRespond, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > constants.EMOJI_MAX_BYTES {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "emoji must be 1 to %d bytes", constants.EMOJI_MAX_BYTES)
	}
	msg, err := s.repos.Message.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	member, err := s.repos.Participant.Exists(ctx, msg.ConversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errorx.New(errorx.CodeForbidden, "you are not a participant of this conversation")
	}
	if msg.IsDeleted() {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot react to a deleted message")
	}

	removed, err := s.repos.Reaction.Delete(ctx, msg.ID, userID, emoji)
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		// a concurrent toggle that already inserted the triple leaves it in place
		if _, err := s.repos.Reaction.Insert(ctx, &model.Reaction{MessageID: msg.ID, UserID: userID, Emoji: emoji}); err != nil {
			return nil, err
		}
	}

	groups, err := s.Aggregate(ctx, []int64{msg.ID})
	if err != nil {
		return nil, err
	}
	reactions := groups[msg.ID]
	if reactions == nil {
		reactions = []respond.ReactionGroup{}
	}
	s.emitter.Emit(ctx, ws.Room(msg.ConversationID), ws.EventReactionUpdate, respond.ReactionUpdateEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Reactions:      reactions,
	})
	return &respond.ReactionsRespond{MessageID: msg.ID, Reactions: reactions}, nil
}

// Aggregate groups the reactions of every message by emoji. Groups are ordered by count then
// emoji and voters by user id, so the result depends only on the stored triples.
func (s *reactionService) Aggregate(ctx context.Context, messageIDs []int64) (map[int64][]respond.ReactionGroup, error) {
	out := make(map[int64][]respond.ReactionGroup, len(messageIDs))
	rows, err := s.repos.Reaction.ListByMessages(ctx, messageIDs)
	if err != nil || len(rows) == 0 {
		return out, err
	}

	voterIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		voterIDs = append(voterIDs, r.UserID)
	}
	users, err := s.repos.User.FindByIDs(ctx, voterIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}

	type key struct {
		message int64
		emoji   string
	}
	voters := make(map[key][]respond.ReactionVoter)
	for _, r := range rows {
		k := key{r.MessageID, r.Emoji}
		voters[k] = append(voters[k], respond.ReactionVoter{UserID: r.UserID, DisplayName: names[r.UserID]})
	}
	for k, list := range voters {
		sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
		out[k.message] = append(out[k.message], respond.ReactionGroup{Emoji: k.emoji, Count: len(list), Users: list})
	}
	for _, groups := range out {
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].Count != groups[j].Count {
				return groups[i].Count > groups[j].Count
			}
			return groups[i].Emoji < groups[j].Emoji
		})
	}
	return out, nil
}

// ReadCounts distinct readers per message, the sender excluded.
func (s *reactionService) ReadCounts(ctx context.Context, messageIDs []int64) (map[int64]int64, error) {
	return s.repos.ReadMark.ReadCounts(ctx, messageIDs)
}
