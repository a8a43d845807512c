package domain

import (
	"strings"
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo:
		return true
	}
	return false
}

// Attachment points at media already stored by the object store.
type Attachment struct {
	URL          string `json:"url" bson:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty"`
	FileName     string `json:"file_name,omitempty" bson:"file_name,omitempty"`
}

type Message struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Text       string      `json:"text,omitempty"`
	Kind       Kind        `json:"kind"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Validate checks ids and the kind/attachment combination of a message about to be stored.
func (m *Message) Validate() error {
	if err := CheckPair(m.SenderID, m.ReceiverID); err != nil {
		return err
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	if !m.Kind.Valid() {
		return Validationf("unknown message kind %q", m.Kind)
	}
	hasAttachment := m.Attachment != nil && m.Attachment.URL != ""
	switch m.Kind {
	case KindText:
		if m.Attachment != nil {
			return Validationf("text message cannot carry an attachment")
		}
		if strings.TrimSpace(m.Text) == "" {
			return Validationf("message is empty")
		}
	case KindImage, KindVideo:
		if !hasAttachment {
			return Validationf("%s message requires an attachment", m.Kind)
		}
	}
	return nil
}

// ConversationKey is the canonical, order-independent key of the pair (a, b).
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
