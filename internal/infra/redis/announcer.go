package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	coursePrefix = "course:"
	userPrefix   = "user:"
)

// Announcer publishes announcements over Redis pub/sub so every
// instance's websocket hub can deliver them. Delivery is at-most-once;
// nobody listening means the message is gone.
type Announcer struct {
	client *redis.Client
}

func NewAnnouncer(client *redis.Client) *Announcer {
	return &Announcer{client: client}
}

func (a *Announcer) Publish(ctx context.Context, courseID uuid.UUID, announcement domain.Announcement) error {
	payload, err := json.Marshal(announcement)
	if err != nil {
		return fmt.Errorf("encode announcement: %w", err)
	}
	if err := a.client.Publish(ctx, coursePrefix+courseID.String(), payload).Err(); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}

func (a *Announcer) NotifyUser(ctx context.Context, userID, message string) error {
	payload, err := json.Marshal(notification{Message: message})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := a.client.Publish(ctx, userPrefix+userID, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type notification struct {
	Message string `json:"message"`
}

// Sink receives relayed messages; the websocket hub implements it.
type Sink interface {
	DeliverToUser(userID, messageType string, payload json.RawMessage)
}

// Relay subscribes to the course and user channels and fans messages
// out to the local hub. Course membership is resolved at delivery
// time, never captured at publish time.
type Relay struct {
	client *redis.Client
	dir    app.CourseDirectory
	sink   Sink
}

func NewRelay(client *redis.Client, dir app.CourseDirectory, sink Sink) *Relay {
	return &Relay{client: client, dir: dir, sink: sink}
}

// Run consumes the pub/sub channels until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, coursePrefix+"*", userPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg.Channel, json.RawMessage(msg.Payload))
		}
	}
}

func (r *Relay) deliver(ctx context.Context, channel string, payload json.RawMessage) {
	switch {
	case strings.HasPrefix(channel, coursePrefix):
		courseID, err := uuid.Parse(strings.TrimPrefix(channel, coursePrefix))
		if err != nil {
			log.Printf("relay: bad course channel %q: %v", channel, err)
			return
		}
		members, err := r.dir.Members(ctx, courseID)
		if err != nil {
			log.Printf("relay: resolve members of %s: %v", courseID, err)
			return
		}
		for _, member := range members {
			r.sink.DeliverToUser(member.UserID, "announcement", payload)
		}
	case strings.HasPrefix(channel, userPrefix):
		r.sink.DeliverToUser(strings.TrimPrefix(channel, userPrefix), "notification", payload)
	}
}
