package services

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// NotificationLevel classifies a user-facing message
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// maxInboxSize bounds undelivered notifications per client; the oldest are dropped first.
const maxInboxSize = 50

// Notifier surfaces transient messages to the shopper
type Notifier interface {
	Success(message string)
	Warning(message string)
	Error(message string)
}

// Notification is a single queued message
type Notification struct {
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// NotificationInbox queues notifications for one client until they are drained
type NotificationInbox struct {
	mu       sync.Mutex
	items    []Notification
	clientID string
	now      func() time.Time
	logger   *zap.Logger
}

// NewNotificationInbox creates an empty inbox for clientID
func NewNotificationInbox(clientID string, now func() time.Time, logger *zap.Logger) *NotificationInbox {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationInbox{
		clientID: clientID,
		now:      now,
		logger:   logger,
	}
}

func (n *NotificationInbox) Success(message string) { n.push(NotificationSuccess, message) }
func (n *NotificationInbox) Warning(message string) { n.push(NotificationWarning, message) }
func (n *NotificationInbox) Error(message string)   { n.push(NotificationError, message) }

func (n *NotificationInbox) push(level NotificationLevel, message string) {
	n.mu.Lock()
	n.items = append(n.items, Notification{Level: level, Message: message, CreatedAt: n.now()})
	if len(n.items) > maxInboxSize {
		n.items = n.items[len(n.items)-maxInboxSize:]
	}
	n.mu.Unlock()

	n.logger.Debug("notification queued",
		zap.String("client_id", n.clientID),
		zap.String("level", string(level)),
		zap.String("message", message),
	)
}

// Drain returns all pending notifications in arrival order and empties the inbox
func (n *NotificationInbox) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	drained := n.items
	n.items = nil
	if drained == nil {
		return []Notification{}
	}
	return drained
}

// Pending returns the number of undelivered notifications
func (n *NotificationInbox) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}
