package server

import "github.com/stretchr/testify/mock"

type MockNotificationBridge struct {
	mock.Mock
}

func (m *MockNotificationBridge) NotifyConnections(connectionIds []string, alert *MessageAlert) {
	m.Called(connectionIds, alert)
}
