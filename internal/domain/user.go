package domain

type User struct {
	ID         string `json:"id" bson:"-"`
	FullName   string `json:"full_name" bson:"full_name"`
	Email      string `json:"email,omitempty" bson:"email,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty" bson:"profile_pic,omitempty"`
}

// Summary is the per-counterpart state the sidebar needs.
type Summary struct {
	LastMessage *Message
	UnreadCount int64
}

type SidebarEntry struct {
	User
	LastMessage *Message `json:"last_message"`
	UnreadCount int64    `json:"unread_count"`
}
