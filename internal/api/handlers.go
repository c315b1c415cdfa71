package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/acormier/matchlink/internal/database"
	"github.com/acormier/matchlink/internal/server"
	"github.com/acormier/matchlink/internal/types"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (s *MatchLinkApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *MatchLinkApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *MatchLinkApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Username:     newUser.Username,
		DisplayName:  newUser.DisplayName,
		EmailAddress: newUser.EmailAddress,
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	})
}

func (s *MatchLinkApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		DisplayName:  dbUser.DisplayName,
		EmailAddress: dbUser.EmailAddress,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}

	token, err := s.createJwtForSession(u, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	s.writeJson(w, http.StatusOK, u)
}

func (s *MatchLinkApp) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.sessionUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		EmailAddress: user.EmailAddress,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *MatchLinkApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", 0))
	w.WriteHeader(http.StatusNoContent)
}

func (s *MatchLinkApp) getMessages(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.sessionUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	container := r.URL.Query().Get("container")
	if container == "" {
		container = database.ContainerUnread
	}

	dbMessages, err := s.db.GetMessagesForUser(user.Username, container)
	if err != nil {
		s.log.Println("get messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, types.Message{
			Id:                msg.Id,
			SenderUsername:    msg.SenderUsername,
			RecipientUsername: msg.RecipientUsername,
			Content:           msg.Content,
			SentAt:            msg.SentAt,
			ReadAt:            msg.ReadAt,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *MatchLinkApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.sessionUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteMessage(user.Username, messageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			s.log.Println("delete message:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// sessionUser resolves the authenticated account for the request.
func (s *MatchLinkApp) sessionUser(r *http.Request) (types.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewNotFoundError()
		}
		return types.User{}, NewInternalServerError(err)
	}

	return types.User{
		Id:           user.Id,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		EmailAddress: user.EmailAddress,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}, nil
}

func (s *MatchLinkApp) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	return upgrader.Upgrade(w, r, nil)
}

func (s *MatchLinkApp) serveWsPresence(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.sessionUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := s.upgrade(w, r)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connectionId := shortid.MustGenerate()
	client := server.NewPresenceClient(user, connectionId, conn, s.cs, s.log, s.stats)

	go client.Write()
	s.cs.JoinPresence(client)
	go client.Read()
}

func (s *MatchLinkApp) serveWsConversation(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.sessionUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherUser := r.URL.Query().Get("user")
	if otherUser == "" || otherUser == user.Username {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := s.upgrade(w, r)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connectionId := shortid.MustGenerate()
	client := server.NewConversationClient(user, otherUser, connectionId, conn, s.cs, s.log, s.stats)

	go client.Write()
	if err := s.cs.JoinConversation(client); err != nil {
		s.log.Println("join conversation:", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to join group"),
			time.Now().Add(time.Second))
		client.Close()
		return
	}
	go client.Read()
}
