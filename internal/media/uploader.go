//go:generate go run go.uber.org/mock/mockgen -source=uploader.go -destination=../mocks/mock_uploader.go -package=mocks
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/metrics"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// MediaUploader stores an attachment payload and returns where it can be fetched.
type MediaUploader interface {
	Upload(ctx context.Context, payload string, kind domain.Kind, fileName string) (*domain.Attachment, error)
}

var folders = map[domain.Kind]string{
	domain.KindImage: "chat_images",
	domain.KindVideo: "chat_videos",
}

type Options struct {
	MaxBytes        int64
	ThumbnailWidth  int
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Uploader struct {
	store ObjectStore
	cb    *gobreaker.CircuitBreaker
	opts  Options
	log   *zap.Logger
}

func NewUploader(store ObjectStore, opts Options, log *zap.Logger) *Uploader {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "object-store",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &Uploader{store: store, cb: cb, opts: opts, log: log}
}

// Upload accepts a data URL ("data:image/png;base64,...") or bare base64. Malformed or
// mismatched payloads are validation errors; object store failures are dependency errors.
func (u *Uploader) Upload(ctx context.Context, payload string, kind domain.Kind, fileName string) (*domain.Attachment, error) {
	folder, ok := folders[kind]
	if !ok {
		return nil, domain.Validationf("kind %q does not take an attachment", kind)
	}
	data, err := u.decode(payload)
	if err != nil {
		return nil, err
	}
	mt := mimetype.Detect(data)
	if !matchesKind(mt, kind) {
		return nil, domain.Validationf("attachment is %s, not %s", mt.String(), kind)
	}

	if u.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
	}

	key := folder + "/" + uuid.NewString() + mt.Extension()
	res, err := u.cb.Execute(func() (interface{}, error) {
		return u.store.Put(ctx, key, mt.String(), data)
	})
	if err != nil {
		metrics.UploadFailures.Inc()
		return nil, domain.Dependency("upload attachment", err)
	}

	att := &domain.Attachment{URL: res.(string), FileName: fileName}
	if kind == domain.KindImage {
		att.ThumbnailURL = u.thumbnail(ctx, key, data)
	}
	return att, nil
}

func (u *Uploader) decode(payload string) ([]byte, error) {
	raw := payload
	if strings.HasPrefix(raw, "data:") {
		header, body, found := strings.Cut(raw, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, domain.Validationf("attachment must be a base64 data URL")
		}
		raw = body
	}
	if raw == "" {
		return nil, domain.Validationf("attachment is empty")
	}
	if u.opts.MaxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(raw))) > u.opts.MaxBytes+2 {
		return nil, domain.Validationf("attachment exceeds %d bytes", u.opts.MaxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, domain.Validationf("attachment is not valid base64")
	}
	if u.opts.MaxBytes > 0 && int64(len(data)) > u.opts.MaxBytes {
		return nil, domain.Validationf("attachment exceeds %d bytes", u.opts.MaxBytes)
	}
	return data, nil
}

func matchesKind(mt *mimetype.MIME, kind domain.Kind) bool {
	prefix := string(kind) + "/"
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), prefix) {
			return true
		}
	}
	return false
}

// thumbnail is best effort: failures are logged and yield an empty URL.
func (u *Uploader) thumbnail(ctx context.Context, key string, data []byte) string {
	if u.opts.ThumbnailWidth <= 0 {
		return ""
	}
	thumb, err := generateThumbnail(data, u.opts.ThumbnailWidth)
	if err != nil {
		u.log.Debug("thumbnail skipped", zap.String("key", key), zap.Error(err))
		return ""
	}
	url, err := u.store.Put(ctx, key+"_thumb.jpg", "image/jpeg", thumb)
	if err != nil {
		u.log.Warn("thumbnail upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

func generateThumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
