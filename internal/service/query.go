package service

import (
	"context"
	"sort"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type QueryService struct {
	repo  repository.MessageRepository
	users repository.UserDirectory
	log   *zap.Logger
}

func NewQueryService(repo repository.MessageRepository, users repository.UserDirectory, log *zap.Logger) *QueryService {
	return &QueryService{repo: repo, users: users, log: log}
}

// Sidebar lists every other user with the last message and unread count of their conversation
// with viewerID. Users with a conversation come first, most recent first; the rest keep
// directory order.
func (q *QueryService) Sidebar(ctx context.Context, viewerID string) ([]domain.SidebarEntry, error) {
	if !domain.ValidID(viewerID) {
		return nil, domain.Validationf("invalid user id %q", viewerID)
	}
	users, err := q.users.ListUsersExcept(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	summaries, err := q.repo.ConversationSummaries(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	users = lo.Reject(users, func(u domain.User, _ int) bool { return u.ID == viewerID })
	entries := lo.Map(users, func(u domain.User, _ int) domain.SidebarEntry {
		s := summaries[u.ID]
		return domain.SidebarEntry{User: u, LastMessage: s.LastMessage, UnreadCount: s.UnreadCount}
	})
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].LastMessage, entries[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return entries, nil
}

// History returns the conversation between viewerID and counterpartID, oldest first.
func (q *QueryService) History(ctx context.Context, viewerID, counterpartID string) ([]*domain.Message, error) {
	if err := domain.CheckIDs(viewerID, counterpartID); err != nil {
		return nil, err
	}
	if viewerID == counterpartID {
		return nil, domain.Unauthorizedf("cannot open a conversation with yourself")
	}
	return q.repo.ConversationHistory(ctx, viewerID, counterpartID)
}

// UnreadCount is the number of messages from counterpartID that viewerID has not read.
func (q *QueryService) UnreadCount(ctx context.Context, viewerID, counterpartID string) (int64, error) {
	if err := domain.CheckPair(viewerID, counterpartID); err != nil {
		return 0, err
	}
	return q.repo.UnreadCountFrom(ctx, counterpartID, viewerID)
}

// LastMessage returns the latest message between the two users, or nil.
func (q *QueryService) LastMessage(ctx context.Context, viewerID, counterpartID string) (*domain.Message, error) {
	if err := domain.CheckPair(viewerID, counterpartID); err != nil {
		return nil, err
	}
	return q.repo.LastMessageBetween(ctx, viewerID, counterpartID)
}
