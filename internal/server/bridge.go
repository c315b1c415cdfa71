package server

// NotificationBridge routes a message alert from the conversation channel to
// a specific set of presence connections, the path used to reach a recipient
// who is online but not viewing the conversation.
type NotificationBridge interface {
	NotifyConnections(connectionIds []string, alert *MessageAlert)
}

// presenceNotifier delivers alerts over the server's presence connections.
// It holds no state of its own.
type presenceNotifier struct {
	cs *ChatServer
}

func (n *presenceNotifier) NotifyConnections(connectionIds []string, alert *MessageAlert) {
	n.cs.presenceLock.RLock()
	defer n.cs.presenceLock.RUnlock()

	for _, id := range connectionIds {
		client, ok := n.cs.presenceClients[id]
		if !ok {
			continue
		}

		client.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				NewMessageReceived: alert,
			},
		})
	}
}
