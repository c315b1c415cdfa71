package server

// JoinPresence runs the open-state path for a presence connection: register
// it, announce the user if this was their first connection, and send the
// caller the current online list.
func (cs *ChatServer) JoinPresence(c *Client) {
	cs.addPresenceClient(c)

	wasFirst := cs.registry.RegisterConnection(c.user.Username, c.connectionId)
	if wasFirst {
		cs.log.Printf("user %q is online", c.user.Username)
		cs.broadcastToPresence(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				UserIsOnline: &PresenceEvent{Username: c.user.Username},
			},
			SkipClient: c,
		})
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			OnlineUsers: &OnlineUsers{Usernames: cs.registry.ListOnlineUsers()},
		},
	})

	cs.stats.Incr(metricPresenceConnections)
}

// LeavePresence runs the closed-state path: deregister the connection and
// announce the user offline if it was their last one.
func (cs *ChatServer) LeavePresence(c *Client) {
	cs.removePresenceClient(c)

	wasLast := cs.registry.DeregisterConnection(c.user.Username, c.connectionId)
	if wasLast {
		cs.log.Printf("user %q is offline", c.user.Username)
		cs.broadcastToPresence(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				UserIsOffline: &PresenceEvent{Username: c.user.Username},
			},
			SkipClient: c,
		})
	}

	cs.stats.Decr(metricPresenceConnections)
}
