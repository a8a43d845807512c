package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/mocks"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	alice = "aaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "bbbbbbbbbbbbbbbbbbbbbbbb"
	carol = "cccccccccccccccccccccccc"
	msgID = "0123456789abcdef01234567"
)

type fixture struct {
	repo     *mocks.MockMessageRepository
	uploader *mocks.MockMediaUploader
	pub      *mocks.MockPublisher
	reg      *registry.Registry
	svc      *CommandService
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		repo:     mocks.NewMockMessageRepository(ctrl),
		uploader: mocks.NewMockMediaUploader(ctrl),
		pub:      mocks.NewMockPublisher(ctrl),
		reg:      registry.New(),
	}
	f.svc = NewCommandService(f.repo, f.uploader, f.reg, f.pub, "instance-a", zap.NewNop())
	return f
}

func stored(m *domain.Message) *domain.Message {
	out := *m
	out.ID = msgID
	out.CreatedAt = time.Now().UTC()
	return &out
}

func TestCommandService_Send(t *testing.T) {
	t.Run("should persist and push exactly once to the online receiver", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		conn := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(bob, conn)

		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *domain.Message) (*domain.Message, error) {
				return stored(m), nil
			}).Times(1)
		conn.EXPECT().Send(EventNewMessage, gomock.Any()).
			DoAndReturn(func(_ string, payload any) error {
				req.Equal(msgID, payload.(*domain.Message).ID)
				return nil
			}).Times(1)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev events.Event) error {
				req.Equal(events.MessageCreated, ev.Type)
				req.Equal("instance-a", ev.Origin)
				req.Equal(msgID, ev.Message.ID)
				return nil
			}).Times(1)

		m, err := f.svc.Send(context.Background(), SendCommand{SenderID: alice, ReceiverID: bob, Text: "hi"})

		req.NoError(err)
		req.Equal(msgID, m.ID)
		req.Equal(domain.KindText, m.Kind)
		req.False(m.Read)
	})

	t.Run("should succeed without push when the receiver is offline", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		other := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(carol, other)

		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *domain.Message) (*domain.Message, error) { return stored(m), nil })
		other.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		_, err := f.svc.Send(context.Background(), SendCommand{SenderID: alice, ReceiverID: bob, Text: "hi"})

		req.NoError(err)
	})

	t.Run("should ignore push and publish failures", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		conn := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(bob, conn)

		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *domain.Message) (*domain.Message, error) { return stored(m), nil })
		conn.EXPECT().Send(EventNewMessage, gomock.Any()).Return(errors.New("socket closed"))
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		m, err := f.svc.Send(context.Background(), SendCommand{SenderID: alice, ReceiverID: bob, Text: "hi"})

		req.NoError(err)
		req.Equal(msgID, m.ID)
	})

	t.Run("should reject a self send without touching the store", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.Send(context.Background(), SendCommand{SenderID: alice, ReceiverID: alice, Text: "me"})

		req.ErrorIs(err, domain.ErrValidation)
	})

	t.Run("should reject malformed ids and empty messages", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

		for _, cmd := range []SendCommand{
			{SenderID: "nope", ReceiverID: bob, Text: "hi"},
			{SenderID: alice, ReceiverID: "BBBBBBBBBBBBBBBBBBBBBBBB", Text: "hi"},
			{SenderID: alice, ReceiverID: bob},
			{SenderID: alice, ReceiverID: bob, Kind: domain.KindImage},
			{SenderID: alice, ReceiverID: bob, Attachment: &AttachmentUpload{Data: "x"}},
			{SenderID: alice, ReceiverID: bob, Kind: domain.KindText, Text: "t", Attachment: &AttachmentUpload{Data: "x"}},
		} {
			_, err := f.svc.Send(context.Background(), cmd)
			require.ErrorIs(t, err, domain.ErrValidation)
		}
	})

	t.Run("should upload media before persisting", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		att := &domain.Attachment{URL: "https://cdn/chat_images/x.png", ThumbnailURL: "https://cdn/chat_images/x.png_thumb.jpg"}

		gomock.InOrder(
			f.uploader.EXPECT().Upload(gomock.Any(), "data:image/png;base64,AAAA", domain.KindImage, "x.png").Return(att, nil),
			f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, m *domain.Message) (*domain.Message, error) {
					req.Equal(att, m.Attachment)
					return stored(m), nil
				}),
		)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		m, err := f.svc.Send(context.Background(), SendCommand{
			SenderID: alice, ReceiverID: bob, Kind: domain.KindImage,
			Attachment: &AttachmentUpload{Data: "data:image/png;base64,AAAA", FileName: "x.png"},
		})

		req.NoError(err)
		req.Equal(att.URL, m.Attachment.URL)
	})

	t.Run("should fail with a dependency error and persist nothing when upload fails", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.Send(context.Background(), SendCommand{
			SenderID: alice, ReceiverID: bob, Kind: domain.KindVideo,
			Attachment: &AttachmentUpload{Data: "AAAA"},
		})

		req.ErrorIs(err, domain.ErrDependency)
	})

	t.Run("should pass through upload validation errors", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.Validationf("not an image"))
		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.Send(context.Background(), SendCommand{
			SenderID: alice, ReceiverID: bob, Kind: domain.KindImage,
			Attachment: &AttachmentUpload{Data: "AAAA"},
		})

		req.ErrorIs(err, domain.ErrValidation)
	})

	t.Run("should report a dependency error when uploads are not configured", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockMessageRepository(ctrl)
		repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)
		svc := NewCommandService(repo, nil, registry.New(), nil, "i", zap.NewNop())

		_, err := svc.Send(context.Background(), SendCommand{
			SenderID: alice, ReceiverID: bob, Kind: domain.KindImage,
			Attachment: &AttachmentUpload{Data: "AAAA"},
		})

		req.ErrorIs(err, domain.ErrDependency)
	})

	t.Run("should surface storage errors and not push", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		conn := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(bob, conn)
		f.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, domain.Storage("insert", errors.New("down")))
		conn.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.Send(context.Background(), SendCommand{SenderID: alice, ReceiverID: bob, Text: "hi"})

		req.ErrorIs(err, domain.ErrStorage)
	})
}

func TestCommandService_MarkAllRead(t *testing.T) {
	t.Run("should mark and send a read receipt to the sender", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		senderConn := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(alice, senderConn)

		f.repo.EXPECT().MarkAllRead(gomock.Any(), alice, bob).Return(int64(3), nil)
		senderConn.EXPECT().Send(EventMessagesRead, gomock.Any()).
			DoAndReturn(func(_ string, payload any) error {
				r := payload.(ReadReceipt)
				req.Equal(bob, r.ReaderID)
				req.EqualValues(3, r.Count)
				return nil
			})
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev events.Event) error {
				req.Equal(events.MessagesRead, ev.Type)
				req.Equal(bob, ev.ReaderID)
				req.Equal(alice, ev.SenderID)
				return nil
			})

		n, err := f.svc.MarkAllRead(context.Background(), bob, alice)

		req.NoError(err)
		req.EqualValues(3, n)
	})

	t.Run("should stay quiet when nothing was unread", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		senderConn := mocks.NewMockConn(gomock.NewController(t))
		f.reg.Register(alice, senderConn)

		f.repo.EXPECT().MarkAllRead(gomock.Any(), alice, bob).Return(int64(0), nil)
		senderConn.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
		f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		n, err := f.svc.MarkAllRead(context.Background(), bob, alice)

		req.NoError(err)
		req.Zero(n)
	})

	t.Run("should reject self", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().MarkAllRead(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.MarkAllRead(context.Background(), bob, bob)

		require.ErrorIs(t, err, domain.ErrValidation)
	})
}
