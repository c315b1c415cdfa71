package database

import (
	"github.com/stretchr/testify/mock"
)

type MockMatchLinkRepository struct {
	mock.Mock
}

func (m *MockMatchLinkRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockMatchLinkRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMatchLinkRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMatchLinkRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMatchLinkRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMatchLinkRepository) CreateMessage(msg *Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockMatchLinkRepository) GetMessageThread(currentUsername, otherUsername string) ([]Message, error) {
	args := m.Called(currentUsername, otherUsername)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockMatchLinkRepository) GetMessagesForUser(username, container string) ([]Message, error) {
	args := m.Called(username, container)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockMatchLinkRepository) DeleteMessage(username string, messageId int) error {
	args := m.Called(username, messageId)
	return args.Error(0)
}
func (m *MockMatchLinkRepository) GetMessageGroup(name string) (*Group, error) {
	args := m.Called(name)
	if group, ok := args.Get(0).(*Group); ok {
		return group, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMatchLinkRepository) AddGroupConnection(groupName string, conn Connection) (*Group, error) {
	args := m.Called(groupName, conn)
	if group, ok := args.Get(0).(*Group); ok {
		return group, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMatchLinkRepository) RemoveGroupConnection(connectionId string) (*Group, error) {
	args := m.Called(connectionId)
	if group, ok := args.Get(0).(*Group); ok {
		return group, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMatchLinkRepository) GetGroupForConnection(connectionId string) (*Group, error) {
	args := m.Called(connectionId)
	if group, ok := args.Get(0).(*Group); ok {
		return group, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMatchLinkRepository) ClearConnections() error {
	args := m.Called()
	return args.Error(0)
}
