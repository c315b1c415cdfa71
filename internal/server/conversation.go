package server

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/acormier/matchlink/internal/database"
	"github.com/acormier/matchlink/internal/types"
)

// JoinConversation runs the open-state path for a conversation connection:
// persist the group membership, announce the new membership to the group,
// then send the caller the message thread with read-on-join applied. Any
// persistence failure is fatal to the open and leaves no membership behind.
func (cs *ChatServer) JoinConversation(c *Client) error {
	groupName := GroupName(c.user.Username, c.otherUser)

	cs.groupLocks.Lock(groupName)
	group, err := cs.db.AddGroupConnection(groupName, database.Connection{
		ConnectionId: c.connectionId,
		Username:     c.user.Username,
	})
	cs.groupLocks.Unlock(groupName)
	if err != nil {
		return fmt.Errorf("join group %q: %w", groupName, err)
	}

	cs.addConversationClient(c)

	updated := typesGroup(group)
	cs.broadcastToGroup(&updated, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			UpdatedGroup: &updated,
		},
	})

	thread, err := cs.db.GetMessageThread(c.user.Username, c.otherUser)
	if err != nil {
		// undo the join so the group holds no record of a connection
		// that never finished opening
		cs.removeConversationClient(c)
		if _, rmErr := cs.db.RemoveGroupConnection(c.connectionId); rmErr != nil {
			cs.log.Printf("remove connection %q after failed open: %v", c.connectionId, rmErr)
		}
		return fmt.Errorf("fetch thread for %q: %w", groupName, err)
	}

	messages := make([]types.Message, 0, len(thread))
	for _, msg := range thread {
		messages = append(messages, typesMessage(msg))
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Thread:      &MessageThread{Messages: messages},
	})

	cs.stats.Incr(metricConversationConnections)
	return nil
}

// LeaveConversation runs the closed-state path: drop the connection record
// and announce the smaller membership to whoever remains. A connection with
// no group record is a benign no-op.
func (cs *ChatServer) LeaveConversation(c *Client) {
	cs.removeConversationClient(c)

	group, err := cs.db.RemoveGroupConnection(c.connectionId)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			cs.log.Printf("remove connection %q: %v", c.connectionId, err)
		}
		return
	}

	updated := typesGroup(group)
	cs.broadcastToGroup(&updated, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			UpdatedGroup: &updated,
		},
	})

	cs.stats.Decr(metricConversationConnections)
}

func (cs *ChatServer) handleSendMessage(c *Client, msg *ClientMessage) {
	req := msg.Send
	if req.RecipientUsername == c.user.Username {
		c.queueMessage(ErrBadRequest(msg.Id, "you cannot send messages to yourself"))
		return
	}

	sender, err := cs.db.GetAccountByUsername(c.user.Username)
	if err != nil {
		cs.log.Println("lookup sender:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	recipient, err := cs.db.GetAccountByUsername(req.RecipientUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrRecipientNotFound(msg.Id))
		} else {
			cs.log.Println("lookup recipient:", err)
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	message := &database.Message{
		SenderId:          sender.Id,
		SenderUsername:    sender.Username,
		RecipientId:       recipient.Id,
		RecipientUsername: recipient.Username,
		Content:           req.Content,
		SentAt:            msg.Timestamp,
	}

	groupName := GroupName(sender.Username, recipient.Username)
	group, err := cs.db.GetMessageGroup(groupName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		cs.log.Println("get group:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	updated := typesGroup(group)
	if updated.HasUser(recipient.Username) {
		// recipient is viewing this conversation, mark read at send time
		readAt := Now()
		message.ReadAt = &readAt
	} else if connectionIds := cs.registry.ConnectionsForUser(recipient.Username); len(connectionIds) > 0 {
		// online elsewhere, nudge every device; a fully offline recipient
		// gets nothing
		cs.bridge.NotifyConnections(connectionIds, &MessageAlert{
			Username:    sender.Username,
			DisplayName: sender.DisplayName,
		})
		cs.stats.Incr(metricNotificationsSent)
	}

	if err := cs.db.CreateMessage(message); err != nil {
		cs.log.Println("create message:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	cs.stats.Incr(metricMessagesSent)
	c.queueMessage(NoErrAccepted(msg.Id))

	newMsg := typesMessage(*message)
	cs.broadcastToGroup(&updated, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		NewMessage:  &newMsg,
	})
}

func typesGroup(group *database.Group) types.Group {
	if group == nil {
		return types.Group{}
	}

	g := types.Group{Name: group.Name}
	for _, conn := range group.Connections {
		g.Connections = append(g.Connections, types.Connection{
			ConnectionId: conn.ConnectionId,
			Username:     conn.Username,
		})
	}

	return g
}

func typesMessage(msg database.Message) types.Message {
	return types.Message{
		Id:                msg.Id,
		SenderUsername:    msg.SenderUsername,
		RecipientUsername: msg.RecipientUsername,
		Content:           msg.Content,
		SentAt:            msg.SentAt,
		ReadAt:            msg.ReadAt,
	}
}
