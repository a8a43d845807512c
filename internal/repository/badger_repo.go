package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	messagePrefix = "msg:"
	convPrefix    = "conv:"
	userPrefix    = "user:"
	sequenceKey   = "seq:messages"

	maxConflictRetries = 10
)

// BadgerRepository is the embedded, single-node implementation of MessageRepository
// and UserDirectory.
type BadgerRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadger opens (or creates) a Badger database at path. An empty path keeps it in memory.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

func NewBadgerRepository(db *badger.DB) (*BadgerRepository, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), 1000)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &BadgerRepository{db: db, seq: seq}, nil
}

// Close releases the unused part of the leased sequence. The database itself is owned by the caller.
func (r *BadgerRepository) Close() error {
	return r.seq.Release()
}

// badgerMessage is the stored form of a message. Keys are
// "msg:{conversation}:{unixnano, 19 digits}:{sequence, 20 digits}" so that a prefix scan
// yields the conversation in creation order.
type badgerMessage struct {
	ID         string             `bson:"id"`
	SenderID   string             `bson:"sender_id"`
	ReceiverID string             `bson:"receiver_id"`
	Text       string             `bson:"text,omitempty"`
	Kind       domain.Kind        `bson:"kind"`
	Attachment *domain.Attachment `bson:"attachment,omitempty"`
	Read       bool               `bson:"read"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (b *badgerMessage) toDomain() *domain.Message {
	return &domain.Message{
		ID:         b.ID,
		SenderID:   b.SenderID,
		ReceiverID: b.ReceiverID,
		Text:       b.Text,
		Kind:       b.Kind,
		Attachment: b.Attachment,
		Read:       b.Read,
		CreatedAt:  b.CreatedAt.UTC(),
	}
}

func conversationPrefix(a, b string) []byte {
	return []byte(messagePrefix + domain.ConversationKey(a, b) + ":")
}

func messageKey(a, b string, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%020d", messagePrefix, domain.ConversationKey(a, b), at.UnixNano(), seq))
}

func convIndexKey(owner, counterpart string) []byte {
	return []byte(convPrefix + owner + ":" + counterpart)
}

func (r *BadgerRepository) Append(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("append message", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	seq, err := r.seq.Next()
	if err != nil {
		return nil, domain.Storage("next sequence", err)
	}
	rec := badgerMessage{
		ID:         primitive.NewObjectID().Hex(),
		SenderID:   strings.Clone(m.SenderID),
		ReceiverID: strings.Clone(m.ReceiverID),
		Text:       strings.Clone(m.Text),
		Kind:       domain.Kind(strings.Clone(string(m.Kind))),
		Attachment: cloneAttachment(m.Attachment),
		Read:       false,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	data, err := bson.Marshal(rec)
	if err != nil {
		return nil, domain.Storage("encode message", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(rec.SenderID, rec.ReceiverID, rec.CreatedAt, seq), data); err != nil {
			return err
		}
		if err := txn.Set(convIndexKey(rec.SenderID, rec.ReceiverID), nil); err != nil {
			return err
		}
		return txn.Set(convIndexKey(rec.ReceiverID, rec.SenderID), nil)
	})
	if err != nil {
		return nil, domain.Storage("append message", err)
	}
	return rec.toDomain(), nil
}

func cloneAttachment(a *domain.Attachment) *domain.Attachment {
	if a == nil {
		return nil
	}
	return &domain.Attachment{
		URL:          strings.Clone(a.URL),
		ThumbnailURL: strings.Clone(a.ThumbnailURL),
		FileName:     strings.Clone(a.FileName),
	}
}

// scanConversation walks the conversation in creation order.
func scanConversation(txn *badger.Txn, a, b string, fn func(key []byte, rec *badgerMessage) error) error {
	prefix := conversationPrefix(a, b)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var rec badgerMessage
		if err := item.Value(func(val []byte) error {
			return bson.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), &rec); err != nil {
			return err
		}
	}
	return nil
}

func lastInConversation(txn *badger.Txn, a, b string) (*badgerMessage, error) {
	prefix := conversationPrefix(a, b)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(append(bytes.Clone(prefix), 0xFF))
	if !it.ValidForPrefix(prefix) {
		return nil, nil
	}
	var rec badgerMessage
	if err := it.Item().Value(func(val []byte) error {
		return bson.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *BadgerRepository) ConversationHistory(ctx context.Context, a, b string) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("read conversation", err)
	}
	if err := domain.CheckIDs(a, b); err != nil {
		return nil, err
	}
	out := []*domain.Message{}
	err := r.db.View(func(txn *badger.Txn) error {
		return scanConversation(txn, a, b, func(_ []byte, rec *badgerMessage) error {
			out = append(out, rec.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, domain.Storage("read conversation", err)
	}
	return out, nil
}

func (r *BadgerRepository) UnreadCountFrom(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.Storage("count unread", err)
	}
	if err := domain.CheckIDs(senderID, receiverID); err != nil {
		return 0, err
	}
	var n int64
	err := r.db.View(func(txn *badger.Txn) error {
		return scanConversation(txn, senderID, receiverID, func(_ []byte, rec *badgerMessage) error {
			if rec.SenderID == senderID && rec.ReceiverID == receiverID && !rec.Read {
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, domain.Storage("count unread", err)
	}
	return n, nil
}

func (r *BadgerRepository) LastMessageBetween(ctx context.Context, a, b string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("read last message", err)
	}
	if err := domain.CheckIDs(a, b); err != nil {
		return nil, err
	}
	var last *badgerMessage
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		last, err = lastInConversation(txn, a, b)
		return err
	})
	if err != nil {
		return nil, domain.Storage("read last message", err)
	}
	if last == nil {
		return nil, nil
	}
	return last.toDomain(), nil
}

// MarkAllRead flips unread messages from senderID to receiverID inside one update transaction.
// Concurrent calls conflict and are retried, so each flipped message is counted once.
func (r *BadgerRepository) MarkAllRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.Storage("mark read", err)
	}
	if err := domain.CheckIDs(senderID, receiverID); err != nil {
		return 0, err
	}

	for attempt := 0; ; attempt++ {
		var n int64
		err := r.db.Update(func(txn *badger.Txn) error {
			n = 0
			type update struct {
				key  []byte
				data []byte
			}
			var updates []update
			err := scanConversation(txn, senderID, receiverID, func(key []byte, rec *badgerMessage) error {
				if rec.SenderID != senderID || rec.ReceiverID != receiverID || rec.Read {
					return nil
				}
				rec.Read = true
				data, err := bson.Marshal(rec)
				if err != nil {
					return err
				}
				updates = append(updates, update{key: key, data: data})
				return nil
			})
			if err != nil {
				return err
			}
			for _, u := range updates {
				if err := txn.Set(u.key, u.data); err != nil {
					return err
				}
			}
			n = int64(len(updates))
			return nil
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			if err := ctx.Err(); err != nil {
				return 0, domain.Storage("mark read", err)
			}
			continue
		}
		if err != nil {
			return 0, domain.Storage("mark read", err)
		}
		return n, nil
	}
}

func (r *BadgerRepository) ConversationSummaries(ctx context.Context, viewerID string) (map[string]domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("read summaries", err)
	}
	if !domain.ValidID(viewerID) {
		return nil, domain.Validationf("invalid user id %q", viewerID)
	}

	out := map[string]domain.Summary{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(convPrefix + viewerID + ":")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var counterparts []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			counterparts = append(counterparts, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}

		for _, other := range counterparts {
			var (
				last   *badgerMessage
				unread int64
			)
			err := scanConversation(txn, viewerID, other, func(_ []byte, rec *badgerMessage) error {
				last = rec
				if rec.ReceiverID == viewerID && !rec.Read {
					unread++
				}
				return nil
			})
			if err != nil {
				return err
			}
			if last == nil {
				continue
			}
			out[other] = domain.Summary{LastMessage: last.toDomain(), UnreadCount: unread}
		}
		return nil
	})
	if err != nil {
		return nil, domain.Storage("read summaries", err)
	}
	return out, nil
}

type badgerUser struct {
	ID         string `bson:"id"`
	FullName   string `bson:"full_name"`
	Email      string `bson:"email,omitempty"`
	ProfilePic string `bson:"profile_pic,omitempty"`
}

// RememberUser upserts a user record so the embedded store can serve the sidebar without
// an external user database.
func (r *BadgerRepository) RememberUser(ctx context.Context, u domain.User) error {
	if err := ctx.Err(); err != nil {
		return domain.Storage("store user", err)
	}
	if !domain.ValidID(u.ID) {
		return domain.Validationf("invalid user id %q", u.ID)
	}
	data, err := bson.Marshal(badgerUser{ID: u.ID, FullName: u.FullName, Email: u.Email, ProfilePic: u.ProfilePic})
	if err != nil {
		return domain.Storage("encode user", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userPrefix+u.ID), data)
	})
	return domain.Storage("store user", err)
}

func (r *BadgerRepository) ListUsersExcept(ctx context.Context, userID string) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("list users", err)
	}
	out := []domain.User{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var u badgerUser
			if err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &u)
			}); err != nil {
				return err
			}
			if u.ID == userID {
				continue
			}
			out = append(out, domain.User{ID: u.ID, FullName: u.FullName, Email: u.Email, ProfilePic: u.ProfilePic})
		}
		return nil
	})
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	return out, nil
}
