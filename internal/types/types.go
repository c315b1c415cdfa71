package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id                int        `json:"id"`
	SenderUsername    string     `json:"sender_username"`
	RecipientUsername string     `json:"recipient_username"`
	Content           string     `json:"content"`
	SentAt            time.Time  `json:"sent_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
}

// Connection is one live channel connection for a user. A user may hold
// any number of them at once, one per device and channel.
type Connection struct {
	ConnectionId string `json:"connection_id"`
	Username     string `json:"username"`
}

// Group is the set of connections currently viewing a two-party
// conversation, keyed by the canonical pair name.
type Group struct {
	Name        string       `json:"name"`
	Connections []Connection `json:"connections"`
}

// HasUser reports whether any connection in the group belongs to username.
func (g *Group) HasUser(username string) bool {
	if g == nil {
		return false
	}

	for _, conn := range g.Connections {
		if conn.Username == username {
			return true
		}
	}

	return false
}
