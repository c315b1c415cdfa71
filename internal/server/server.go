package server

import (
	"context"
	"log"
	"sync"

	"github.com/acormier/matchlink/internal/database"
	"github.com/acormier/matchlink/internal/stats"
	"github.com/acormier/matchlink/internal/types"
)

const (
	metricPresenceConnections     = "PresenceConnections"
	metricConversationConnections = "ConversationConnections"
	metricMessagesSent            = "MessagesSent"
	metricNotificationsSent       = "NotificationsSent"
)

type ChatServer struct {
	log      *log.Logger
	db       database.MatchLinkRepository
	stats    stats.StatsProvider
	registry *ConnectionRegistry
	bridge   NotificationBridge

	// presence connections by connection id, the delivery surface for
	// online/offline broadcasts and message alerts
	presenceClients map[string]*Client
	presenceLock    sync.RWMutex

	// conversation connections by connection id, the delivery surface for
	// group broadcasts
	convClients map[string]*Client
	convLock    sync.RWMutex

	groupLocks *keyedMutex
}

func NewChatServer(logger *log.Logger, db database.MatchLinkRepository, sp stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:             logger,
		db:              db,
		stats:           sp,
		registry:        NewConnectionRegistry(),
		presenceClients: make(map[string]*Client),
		convClients:     make(map[string]*Client),
		groupLocks:      newKeyedMutex(),
	}
	cs.bridge = &presenceNotifier{cs: cs}

	sp.RegisterMetric(metricPresenceConnections)
	sp.RegisterMetric(metricConversationConnections)
	sp.RegisterMetric(metricMessagesSent)
	sp.RegisterMetric(metricNotificationsSent)

	return cs, nil
}

func (cs *ChatServer) Registry() *ConnectionRegistry {
	return cs.registry
}

func (cs *ChatServer) addPresenceClient(c *Client) {
	cs.presenceLock.Lock()
	defer cs.presenceLock.Unlock()
	cs.presenceClients[c.connectionId] = c
}

func (cs *ChatServer) removePresenceClient(c *Client) {
	cs.presenceLock.Lock()
	defer cs.presenceLock.Unlock()
	delete(cs.presenceClients, c.connectionId)
}

func (cs *ChatServer) addConversationClient(c *Client) {
	cs.convLock.Lock()
	defer cs.convLock.Unlock()
	cs.convClients[c.connectionId] = c
}

func (cs *ChatServer) removeConversationClient(c *Client) {
	cs.convLock.Lock()
	defer cs.convLock.Unlock()
	delete(cs.convClients, c.connectionId)
}

// broadcastToPresence queues msg on every presence connection except
// msg.SkipClient.
func (cs *ChatServer) broadcastToPresence(msg *ServerMessage) {
	cs.presenceLock.RLock()
	defer cs.presenceLock.RUnlock()

	for _, client := range cs.presenceClients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

// broadcastToGroup queues msg on every conversation connection currently in
// the group.
func (cs *ChatServer) broadcastToGroup(group *types.Group, msg *ServerMessage) {
	cs.convLock.RLock()
	defer cs.convLock.RUnlock()

	for _, conn := range group.Connections {
		client, ok := cs.convClients[conn.ConnectionId]
		if !ok {
			continue
		}

		client.queueMessage(msg)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("closing client connections")

	cs.presenceLock.RLock()
	for _, c := range cs.presenceClients {
		c.conn.Close()
	}
	cs.presenceLock.RUnlock()

	cs.convLock.RLock()
	for _, c := range cs.convClients {
		c.conn.Close()
	}
	cs.convLock.RUnlock()

	return ctx.Err()
}

// GroupName derives the canonical conversation group key for a pair of
// usernames. Ordinal comparison keeps the key identical no matter which
// participant connects first.
func GroupName(caller, other string) string {
	if caller < other {
		return caller + "-" + other
	}
	return other + "-" + caller
}

// keyedMutex serializes joins to the same conversation group without making
// joins to different groups contend. Entries are never removed, the universe
// of keys is bounded by the user pairs that actually talk.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	k.mu.Unlock()

	l.Unlock()
}
