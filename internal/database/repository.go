package database

type MatchLinkRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountByUsername(username string) (User, error)
	CreateMessage(msg *Message) error
	GetMessageThread(currentUsername, otherUsername string) ([]Message, error)
	GetMessagesForUser(username, container string) ([]Message, error)
	DeleteMessage(username string, messageId int) error
	GetMessageGroup(name string) (*Group, error)
	AddGroupConnection(groupName string, conn Connection) (*Group, error)
	RemoveGroupConnection(connectionId string) (*Group, error)
	GetGroupForConnection(connectionId string) (*Group, error)
	ClearConnections() error
}
