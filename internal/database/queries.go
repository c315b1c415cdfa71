package database

import (
	"database/sql"
	"fmt"
	"time"
)

const messageColumns = "id, sender_id, sender_username, recipient_id, recipient_username, " +
	"content, sent_at, read_at, sender_deleted, recipient_deleted"

func (db *PgMatchLinkRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, display_name, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, display_name, email",
		params.Username,
		params.DisplayName,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.DisplayName,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgMatchLinkRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgMatchLinkRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

func (db *PgMatchLinkRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, email FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgMatchLinkRepository) CreateMessage(msg *Message) error {
	res := db.conn.QueryRow(
		"INSERT INTO messages (sender_id, sender_username, recipient_id, recipient_username, "+
			"content, sent_at, read_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		msg.SenderId,
		msg.SenderUsername,
		msg.RecipientId,
		msg.RecipientUsername,
		msg.Content,
		msg.SentAt,
		msg.ReadAt,
	)

	return res.Scan(&msg.Id)
}

// GetMessageThread returns the conversation between the two users, excluding
// messages the current user has soft-deleted. Any unread messages addressed
// to the current user are marked read in the same transaction, so a
// concurrent thread fetch never observes a half-updated read state.
func (db *PgMatchLinkRepository) GetMessageThread(currentUsername, otherUsername string) ([]Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE (recipient_username = $1 AND recipient_deleted = false AND sender_username = $2) "+
			"OR (recipient_username = $2 AND sender_deleted = false AND sender_username = $1) "+
			"ORDER BY sent_at",
		currentUsername,
		otherUsername,
	)
	if err != nil {
		return nil, err
	}

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	readAt := time.Now().UTC()
	if _, err := tx.Exec(
		"UPDATE messages SET read_at = $1 "+
			"WHERE recipient_username = $2 AND sender_username = $3 AND read_at IS NULL",
		readAt,
		currentUsername,
		otherUsername,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	for i := range messages {
		if messages[i].ReadAt == nil && messages[i].RecipientUsername == currentUsername {
			messages[i].ReadAt = &readAt
		}
	}

	return messages, nil
}

func (db *PgMatchLinkRepository) GetMessagesForUser(username, container string) ([]Message, error) {
	var query string
	switch container {
	case ContainerInbox:
		query = "SELECT " + messageColumns + " FROM messages " +
			"WHERE recipient_username = $1 AND recipient_deleted = false " +
			"ORDER BY sent_at DESC"
	case ContainerOutbox:
		query = "SELECT " + messageColumns + " FROM messages " +
			"WHERE sender_username = $1 AND sender_deleted = false " +
			"ORDER BY sent_at DESC"
	default:
		query = "SELECT " + messageColumns + " FROM messages " +
			"WHERE recipient_username = $1 AND recipient_deleted = false AND read_at IS NULL " +
			"ORDER BY sent_at DESC"
	}

	rows, err := db.conn.Query(query, username)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

// DeleteMessage soft-deletes the message on the caller's side. The row is
// removed outright only once both sides have deleted it.
func (db *PgMatchLinkRepository) DeleteMessage(username string, messageId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		"SELECT sender_username, recipient_username, sender_deleted, recipient_deleted "+
			"FROM messages WHERE id = $1 FOR UPDATE",
		messageId,
	)

	var msg Message
	if err := row.Scan(
		&msg.SenderUsername,
		&msg.RecipientUsername,
		&msg.SenderDeleted,
		&msg.RecipientDeleted,
	); err != nil {
		return err
	}

	switch username {
	case msg.SenderUsername:
		msg.SenderDeleted = true
	case msg.RecipientUsername:
		msg.RecipientDeleted = true
	default:
		return fmt.Errorf("message %d does not belong to %q", messageId, username)
	}

	if msg.SenderDeleted && msg.RecipientDeleted {
		if _, err := tx.Exec("DELETE FROM messages WHERE id = $1", messageId); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(
			"UPDATE messages SET sender_deleted = $2, recipient_deleted = $3 WHERE id = $1",
			messageId,
			msg.SenderDeleted,
			msg.RecipientDeleted,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *PgMatchLinkRepository) GetMessageGroup(name string) (*Group, error) {
	row := db.conn.QueryRow("SELECT name FROM groups WHERE name = $1 LIMIT 1", name)

	var group Group
	if err := row.Scan(&group.Name); err != nil {
		return nil, err
	}

	conns, err := db.groupConnections(group.Name)
	if err != nil {
		return nil, err
	}
	group.Connections = conns

	return &group, nil
}

// AddGroupConnection adds the connection to the named group, creating the
// group on first join, and returns the updated membership.
func (db *PgMatchLinkRepository) AddGroupConnection(groupName string, conn Connection) (*Group, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING",
		groupName,
	); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		"INSERT INTO group_connections (connection_id, group_name, username) VALUES ($1, $2, $3)",
		conn.ConnectionId,
		groupName,
		conn.Username,
	); err != nil {
		return nil, err
	}

	group, err := groupWithConnections(tx, groupName)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return group, nil
}

// RemoveGroupConnection deletes the connection record and returns the group
// it belonged to with its remaining membership. Returns sql.ErrNoRows if the
// connection is in no group.
func (db *PgMatchLinkRepository) RemoveGroupConnection(connectionId string) (*Group, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		"DELETE FROM group_connections WHERE connection_id = $1 RETURNING group_name",
		connectionId,
	)

	var groupName string
	if err := row.Scan(&groupName); err != nil {
		return nil, err
	}

	group, err := groupWithConnections(tx, groupName)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return group, nil
}

func (db *PgMatchLinkRepository) GetGroupForConnection(connectionId string) (*Group, error) {
	row := db.conn.QueryRow(
		"SELECT group_name FROM group_connections WHERE connection_id = $1 LIMIT 1",
		connectionId,
	)

	var groupName string
	if err := row.Scan(&groupName); err != nil {
		return nil, err
	}

	return db.GetMessageGroup(groupName)
}

// ClearConnections drops all connection records. Run at process start: a
// restart cannot resurrect connections that died with the old process.
func (db *PgMatchLinkRepository) ClearConnections() error {
	_, err := db.conn.Exec("DELETE FROM group_connections")
	return err
}

func (db *PgMatchLinkRepository) groupConnections(groupName string) ([]Connection, error) {
	rows, err := db.conn.Query(
		"SELECT connection_id, username FROM group_connections WHERE group_name = $1",
		groupName,
	)
	if err != nil {
		return nil, err
	}

	return scanConnections(rows)
}

func groupWithConnections(tx *sql.Tx, groupName string) (*Group, error) {
	rows, err := tx.Query(
		"SELECT connection_id, username FROM group_connections WHERE group_name = $1",
		groupName,
	)
	if err != nil {
		return nil, err
	}

	conns, err := scanConnections(rows)
	if err != nil {
		return nil, err
	}

	return &Group{Name: groupName, Connections: conns}, nil
}

func scanConnections(rows *sql.Rows) ([]Connection, error) {
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(&conn.ConnectionId, &conn.Username); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var readAt sql.NullTime
		if err := rows.Scan(
			&msg.Id,
			&msg.SenderId,
			&msg.SenderUsername,
			&msg.RecipientId,
			&msg.RecipientUsername,
			&msg.Content,
			&msg.SentAt,
			&readAt,
			&msg.SenderDeleted,
			&msg.RecipientDeleted,
		); err != nil {
			return nil, err
		}

		if readAt.Valid {
			t := readAt.Time
			msg.ReadAt = &t
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
