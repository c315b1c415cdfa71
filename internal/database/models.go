package database

import "time"

type User struct {
	Id           int
	Username     string
	DisplayName  string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id                int
	SenderId          int
	SenderUsername    string
	RecipientId       int
	RecipientUsername string
	Content           string
	SentAt            time.Time
	// ReadAt is nil until the recipient has seen the message.
	ReadAt           *time.Time
	SenderDeleted    bool
	RecipientDeleted bool
}

type Connection struct {
	ConnectionId string
	Username     string
}

type Group struct {
	Name        string
	Connections []Connection
}

type CreateAccountParams struct {
	Username     string
	DisplayName  string
	EmailAddress string
	PasswordHash string
}

// Message containers for the history endpoint.
const (
	ContainerInbox  = "inbox"
	ContainerOutbox = "outbox"
	ContainerUnread = "unread"
)
