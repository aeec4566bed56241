// Package events publishes account lifecycle events to the message queue.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/mq"
	"github.com/smartassist/apiserver/types"
)

// Type names an account event.
type Type string

const (
	UserRegistered  Type = "user.registered"
	UserLoggedIn    Type = "user.logged_in"
	UserUpdated     Type = "user.updated"
	UserDeleted     Type = "user.deleted"
	UserRoleChanged Type = "user.role_changed"
)

// AccountEvent is the JSON payload of every account event.
type AccountEvent struct {
	Type       Type       `json:"type"`
	UserID     int        `json:"user_id"`
	Email      string     `json:"email"`
	Role       types.Role `json:"role"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher is the subset of mq.MQ used to emit events.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Emitter publishes account events. A nil publisher turns it into a no-op.
// Publish failures are logged, never returned: events are best effort.
type Emitter struct {
	publisher Publisher
	channel   string
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, channel string, logger logrus.FieldLogger) *Emitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Emitter{publisher: publisher, channel: channel, logger: logger, now: time.Now}
}

// Emit publishes an event of the given type for user.
func (e *Emitter) Emit(ctx context.Context, eventType Type, user types.User) {
	if e == nil || e.publisher == nil {
		return
	}

	event := AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		OccurredAt: e.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).Error("failed to encode account event")
		return
	}

	// Events of one user share an ordering key.
	id, err := e.publisher.Publish(ctx, e.channel, data, map[string]string{
		mq.AttrType:        string(eventType),
		mq.AttrContentType: "application/json",
		mq.AttrOrderingKey: strconv.Itoa(user.ID),
	})
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"event":   eventType,
			"user_id": user.ID,
		}).Warn("failed to publish account event")
		return
	}
	e.logger.WithFields(logrus.Fields{"event": eventType, "message_id": id}).Debug("account event published")
}

// Decode parses a message produced by Emit.
func Decode(msg mq.Message) (AccountEvent, error) {
	var event AccountEvent
	err := json.Unmarshal(msg.Data, &event)
	return event, err
}
