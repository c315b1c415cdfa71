package server

import (
	"net/http"
	"time"

	"github.com/acormier/matchlink/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Send   *SendMessage `json:"send_message,omitempty"`
	client *Client      `json:"-"`
}

type SendMessage struct {
	RecipientUsername string `json:"recipient_username"`
	Content           string `json:"content"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Thread       *MessageThread `json:"receive_message_thread,omitempty"`
	NewMessage   *types.Message `json:"new_message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	SkipClient   *Client        `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// MessageThread carries the full two-party conversation sent to a caller
// when it joins the group. Messages is never omitted, an empty thread
// serializes as an empty list.
type MessageThread struct {
	Messages []types.Message `json:"messages"`
}

type Notification struct {
	UserIsOnline       *PresenceEvent `json:"user_is_online,omitempty"`
	UserIsOffline      *PresenceEvent `json:"user_is_offline,omitempty"`
	OnlineUsers        *OnlineUsers   `json:"get_online_users,omitempty"`
	NewMessageReceived *MessageAlert  `json:"new_message_received,omitempty"`
	UpdatedGroup       *types.Group   `json:"updated_group,omitempty"`
}

type PresenceEvent struct {
	Username string `json:"username"`
}

type OnlineUsers struct {
	Usernames []string `json:"usernames"`
}

// MessageAlert tells a user connected to the presence channel that a message
// arrived in a conversation they are not currently viewing.
type MessageAlert struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrBadRequest(id int, reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}
}

func ErrRecipientNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "recipient not found",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
