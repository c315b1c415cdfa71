package api

import (
	"database/sql"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acormier/matchlink/internal/config"
	"github.com/acormier/matchlink/internal/database"
	"github.com/acormier/matchlink/internal/server"
	"github.com/acormier/matchlink/internal/stats"
	"github.com/acormier/matchlink/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Drives two users through both channels over real sockets: presence
// lifecycle events, a conversation join with its thread, a send that lands
// in the group, and the out-of-conversation alert on the recipient's
// presence connection.
func TestPresenceAndConversationEndToEnd(t *testing.T) {
	ann := database.User{Id: 1, Username: "ann", DisplayName: "Ann", EmailAddress: "ann@example.com"}
	bob := database.User{Id: 2, Username: "bob", DisplayName: "Bob", EmailAddress: "bob@example.com"}

	mockRepo := &database.MockMatchLinkRepository{}
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	cs, err := server.NewChatServer(log.Default(), mockRepo, su)
	if err != nil {
		t.Fatalf("failed to create chat server: %v", err)
	}

	mux := http.NewServeMux()
	app := NewMatchLinkApp(mux, log.Default(), cs, mockRepo, su, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})

	mockRepo.On("GetAccountById", ann.Id).Return(ann, nil)
	mockRepo.On("GetAccountById", bob.Id).Return(bob, nil)
	mockRepo.On("RemoveGroupConnection", mock.Anything).Return(nil, sql.ErrNoRows).Maybe()

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dial := func(t *testing.T, u database.User, path string) *websocket.Conn {
		t.Helper()

		token, err := app.createJwtForSession(types.User{Id: u.Id}, defaultExp)
		if err != nil {
			t.Fatalf("failed to create jwt token: %v", err)
		}

		header := http.Header{}
		header.Set("Cookie", tokenCookieKey+"="+token)
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err != nil {
			t.Fatalf("failed to dial %s: %v", path, err)
		}

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		return conn
	}

	readMessage := func(t *testing.T, conn *websocket.Conn) *server.ServerMessage {
		t.Helper()

		var msg server.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("failed to read message: %v", err)
		}
		return &msg
	}

	// ann connects to the presence channel and sees only herself online
	annPresence := dial(t, ann, "/ws/presence")
	defer annPresence.Close()

	msg := readMessage(t, annPresence)
	assert.NotNil(t, msg.Notification.OnlineUsers, "expected the online users snapshot")
	assert.Equal(t, []string{"ann"}, msg.Notification.OnlineUsers.Usernames)

	// bob connects, ann learns he came online, bob sees both in his snapshot
	bobPresence := dial(t, bob, "/ws/presence")
	defer bobPresence.Close()

	msg = readMessage(t, annPresence)
	assert.NotNil(t, msg.Notification.UserIsOnline, "expected an online event for bob")
	assert.Equal(t, "bob", msg.Notification.UserIsOnline.Username)

	msg = readMessage(t, bobPresence)
	assert.NotNil(t, msg.Notification.OnlineUsers)
	assert.Equal(t, []string{"ann", "bob"}, msg.Notification.OnlineUsers.Usernames)

	// ann opens the conversation with bob
	group := &database.Group{Name: "ann-bob"}
	mockRepo.On("AddGroupConnection", "ann-bob", mock.Anything).Run(func(args mock.Arguments) {
		group.Connections = append(group.Connections, args.Get(1).(database.Connection))
	}).Return(group, nil).Once()
	mockRepo.On("GetMessageThread", "ann", "bob").Return([]database.Message{}, nil).Once()

	annConv := dial(t, ann, "/ws/conversations?user=bob")
	defer annConv.Close()

	msg = readMessage(t, annConv)
	assert.NotNil(t, msg.Notification.UpdatedGroup, "expected the membership broadcast")
	assert.True(t, msg.Notification.UpdatedGroup.HasUser("ann"))
	assert.False(t, msg.Notification.UpdatedGroup.HasUser("bob"))

	msg = readMessage(t, annConv)
	assert.NotNil(t, msg.Thread, "expected the message thread")
	assert.Len(t, msg.Thread.Messages, 0)

	// ann sends a message; bob is online but not viewing the conversation,
	// so the alert goes to his presence connection
	mockRepo.On("GetAccountByUsername", "ann").Return(ann, nil).Once()
	mockRepo.On("GetAccountByUsername", "bob").Return(bob, nil).Once()
	mockRepo.On("GetMessageGroup", "ann-bob").Return(group, nil).Once()
	mockRepo.On("CreateMessage", mock.AnythingOfType("*database.Message")).Run(func(args mock.Arguments) {
		args.Get(0).(*database.Message).Id = 10
	}).Return(nil).Once()

	err = annConv.WriteJSON(&server.ClientMessage{
		BaseMessage: server.BaseMessage{Id: 1},
		Send: &server.SendMessage{
			RecipientUsername: "bob",
			Content:           "hi bob",
		},
	})
	assert.NoError(t, err, "failed to send message")

	msg = readMessage(t, annConv)
	assert.NotNil(t, msg.Response, "expected the accepted response first")
	assert.Equal(t, http.StatusAccepted, msg.Response.ResponseCode)

	msg = readMessage(t, annConv)
	assert.NotNil(t, msg.NewMessage, "expected the message broadcast to the group")
	assert.Equal(t, 10, msg.NewMessage.Id)
	assert.Equal(t, "hi bob", msg.NewMessage.Content)
	assert.Nil(t, msg.NewMessage.ReadAt, "expected the message to be unread, bob is not in the group")

	msg = readMessage(t, bobPresence)
	assert.NotNil(t, msg.Notification.NewMessageReceived, "expected an alert on bob's presence connection")
	assert.Equal(t, "ann", msg.Notification.NewMessageReceived.Username)
	assert.Equal(t, "Ann", msg.Notification.NewMessageReceived.DisplayName)

	// bob opens the conversation; his join marks ann's message read
	readAt := time.Now().UTC()
	mockRepo.On("AddGroupConnection", "ann-bob", mock.Anything).Run(func(args mock.Arguments) {
		group.Connections = append(group.Connections, args.Get(1).(database.Connection))
	}).Return(group, nil).Once()
	mockRepo.On("GetMessageThread", "bob", "ann").Return([]database.Message{
		{Id: 10, SenderUsername: "ann", RecipientUsername: "bob", Content: "hi bob", SentAt: readAt, ReadAt: &readAt},
	}, nil).Once()

	bobConv := dial(t, bob, "/ws/conversations?user=ann")
	defer bobConv.Close()

	// ann sees bob join the group
	msg = readMessage(t, annConv)
	assert.NotNil(t, msg.Notification.UpdatedGroup)
	assert.True(t, msg.Notification.UpdatedGroup.HasUser("bob"), "expected bob in the group")

	msg = readMessage(t, bobConv)
	assert.NotNil(t, msg.Notification.UpdatedGroup)

	msg = readMessage(t, bobConv)
	assert.NotNil(t, msg.Thread)
	assert.Len(t, msg.Thread.Messages, 1)
	assert.NotNil(t, msg.Thread.Messages[0].ReadAt, "expected the thread to come back read")
}
