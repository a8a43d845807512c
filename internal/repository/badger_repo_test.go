package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/stretchr/testify/require"
)

const (
	alice = "aaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "bbbbbbbbbbbbbbbbbbbbbbbb"
	carol = "cccccccccccccccccccccccc"
)

func newBadgerRepo(t *testing.T) *BadgerRepository {
	t.Helper()
	req := require.New(t)
	db, err := OpenBadger(t.TempDir())
	req.NoError(err)
	repo, err := NewBadgerRepository(db)
	req.NoError(err)
	t.Cleanup(func() {
		_ = repo.Close()
		_ = db.Close()
	})
	return repo
}

func send(t *testing.T, repo MessageRepository, from, to, text string) *domain.Message {
	t.Helper()
	m, err := repo.Append(context.Background(), &domain.Message{SenderID: from, ReceiverID: to, Text: text})
	require.NoError(t, err)
	return m
}

func TestBadger_Append_AssignsIdentityAndUnread(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)

	m := send(t, repo, alice, bob, "hello")

	req.True(domain.ValidID(m.ID))
	req.False(m.Read)
	req.Equal(domain.KindText, m.Kind)
	req.False(m.CreatedAt.IsZero())
}

func TestBadger_Append_RejectsInvalid(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, &domain.Message{SenderID: alice, ReceiverID: alice, Text: "me"})
	req.ErrorIs(err, domain.ErrValidation)

	_, err = repo.Append(ctx, &domain.Message{SenderID: "x", ReceiverID: bob, Text: "hi"})
	req.ErrorIs(err, domain.ErrValidation)

	history, err := repo.ConversationHistory(ctx, alice, bob)
	req.NoError(err)
	req.Empty(history)
}

func TestBadger_History_OrderedAndSymmetric(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	ctx := context.Background()

	// Given three messages in both directions and one in another conversation
	m1 := send(t, repo, alice, bob, "one")
	m2 := send(t, repo, bob, alice, "two")
	m3 := send(t, repo, alice, bob, "three")
	send(t, repo, alice, carol, "elsewhere")

	// When fetching from each side
	ab, err := repo.ConversationHistory(ctx, alice, bob)
	req.NoError(err)
	ba, err := repo.ConversationHistory(ctx, bob, alice)
	req.NoError(err)

	// Then both views are the same sequence in creation order
	req.Equal(ab, ba)
	req.Len(ab, 3)
	req.Equal([]string{m1.ID, m2.ID, m3.ID}, []string{ab[0].ID, ab[1].ID, ab[2].ID})
	for i := 1; i < len(ab); i++ {
		req.False(ab[i].CreatedAt.Before(ab[i-1].CreatedAt))
	}
}

func TestBadger_History_EmptyConversation(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)

	history, err := repo.ConversationHistory(context.Background(), alice, bob)
	req.NoError(err)
	req.NotNil(history)
	req.Empty(history)

	last, err := repo.LastMessageBetween(context.Background(), alice, bob)
	req.NoError(err)
	req.Nil(last)
}

func TestBadger_UnreadAndMarkAllRead(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	ctx := context.Background()

	send(t, repo, alice, bob, "1")
	send(t, repo, alice, bob, "2")
	send(t, repo, bob, alice, "reply")

	n, err := repo.UnreadCountFrom(ctx, alice, bob)
	req.NoError(err)
	req.EqualValues(2, n)

	modified, err := repo.MarkAllRead(ctx, alice, bob)
	req.NoError(err)
	req.EqualValues(2, modified)

	n, err = repo.UnreadCountFrom(ctx, alice, bob)
	req.NoError(err)
	req.Zero(n)

	// The other direction is untouched
	n, err = repo.UnreadCountFrom(ctx, bob, alice)
	req.NoError(err)
	req.EqualValues(1, n)

	// Idempotent
	modified, err = repo.MarkAllRead(ctx, alice, bob)
	req.NoError(err)
	req.Zero(modified)

	history, err := repo.ConversationHistory(ctx, alice, bob)
	req.NoError(err)
	for _, m := range history {
		req.Equal(m.SenderID == alice, m.Read)
	}
}

func TestBadger_MarkAllRead_LeavesLaterMessagesUnread(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	ctx := context.Background()

	send(t, repo, alice, bob, "before")
	_, err := repo.MarkAllRead(ctx, alice, bob)
	req.NoError(err)
	send(t, repo, alice, bob, "after")

	n, err := repo.UnreadCountFrom(ctx, alice, bob)
	req.NoError(err)
	req.EqualValues(1, n)
}

func TestBadger_LastMessageBetween(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)

	send(t, repo, alice, bob, "first")
	last := send(t, repo, bob, alice, "second")

	got, err := repo.LastMessageBetween(context.Background(), alice, bob)
	req.NoError(err)
	req.Equal(last.ID, got.ID)
	req.Equal("second", got.Text)
}

func TestBadger_ConversationSummaries(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)

	send(t, repo, bob, alice, "hi alice")
	send(t, repo, bob, alice, "again")
	lastCarol := send(t, repo, alice, carol, "hi carol")

	got, err := repo.ConversationSummaries(context.Background(), alice)
	req.NoError(err)
	req.Len(got, 2)
	req.EqualValues(2, got[bob].UnreadCount)
	req.Equal("again", got[bob].LastMessage.Text)
	req.Zero(got[carol].UnreadCount)
	req.Equal(lastCarol.ID, got[carol].LastMessage.ID)

	none, err := repo.ConversationSummaries(context.Background(), "dddddddddddddddddddddddd")
	req.NoError(err)
	req.Empty(none)
}

func TestBadger_ConcurrentAppends(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			from, to := alice, bob
			if w%2 == 1 {
				from, to = bob, alice
			}
			for i := 0; i < perWriter; i++ {
				_, err := repo.Append(context.Background(), &domain.Message{SenderID: from, ReceiverID: to, Text: "x"})
				if err != nil {
					t.Error(err)
				}
			}
		}(w)
	}
	wg.Wait()

	history, err := repo.ConversationHistory(context.Background(), alice, bob)
	req.NoError(err)
	req.Len(history, writers*perWriter)

	seen := map[string]bool{}
	for _, m := range history {
		req.False(seen[m.ID])
		seen[m.ID] = true
	}
}

func TestBadger_Users(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	ctx := context.Background()

	req.NoError(repo.RememberUser(ctx, domain.User{ID: alice, FullName: "Alice"}))
	req.NoError(repo.RememberUser(ctx, domain.User{ID: bob, FullName: "Bob"}))
	req.NoError(repo.RememberUser(ctx, domain.User{ID: bob, FullName: "Bobby"}))
	req.ErrorIs(repo.RememberUser(ctx, domain.User{ID: "bad"}), domain.ErrValidation)

	users, err := repo.ListUsersExcept(ctx, alice)
	req.NoError(err)
	req.Equal([]domain.User{{ID: bob, FullName: "Bobby"}}, users)
}

func TestBadger_MarkAllRead_ConcurrentCallsCountOnce(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepo(t)
	for i := 0; i < 25; i++ {
		send(t, repo, alice, bob, "unread")
	}

	// When several readers mark the same conversation at once
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.MarkAllRead(context.Background(), alice, bob)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Then every message is flipped exactly once
	req.EqualValues(25, total)
	n, err := repo.UnreadCountFrom(context.Background(), alice, bob)
	req.NoError(err)
	req.Zero(n)
}

func TestBadger_CancelledContextIsStorageError(t *testing.T) {
	repo := newBadgerRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := map[string]func() error{
		"append": func() error {
			_, err := repo.Append(ctx, &domain.Message{SenderID: alice, ReceiverID: bob, Text: "x"})
			return err
		},
		"history": func() error { _, err := repo.ConversationHistory(ctx, alice, bob); return err },
		"unread":  func() error { _, err := repo.UnreadCountFrom(ctx, alice, bob); return err },
		"last":    func() error { _, err := repo.LastMessageBetween(ctx, alice, bob); return err },
		"read":    func() error { _, err := repo.MarkAllRead(ctx, alice, bob); return err },
		"summary": func() error { _, err := repo.ConversationSummaries(ctx, alice); return err },
		"users":   func() error { _, err := repo.ListUsersExcept(ctx, alice); return err },
		"remember": func() error {
			return repo.RememberUser(ctx, domain.User{ID: alice})
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.ErrorIs(t, err, domain.ErrStorage)
			require.ErrorIs(t, err, context.Canceled)
		})
	}
}
