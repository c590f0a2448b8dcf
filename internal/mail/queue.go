package mail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

// QueueProducer hands messages to the mail worker through a redis stream.
type QueueProducer struct {
	client *redis.Client
	stream string
}

func NewQueueProducer(client *redis.Client, stream string) *QueueProducer {
	return &QueueProducer{client: client, stream: stream}
}

func (q *QueueProducer) Send(ctx context.Context, msg Message) error {
	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: EncodeValues(ksuid.New().String(), msg),
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

// EncodeValues flattens a message into stream fields.
func EncodeValues(id string, msg Message) map[string]any {
	return map[string]any{
		"id":      id,
		"type":    "mail",
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTMLBody,
	}
}

// DecodeValues is the inverse of EncodeValues for the worker side.
func DecodeValues(values map[string]any) (string, Message, error) {
	get := func(key string) (string, error) {
		v, ok := values[key]
		if !ok {
			return "", fmt.Errorf("missing field %q", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %q is %T, want string", key, v)
		}
		return s, nil
	}

	id, err := get("id")
	if err != nil {
		return "", Message{}, err
	}
	var msg Message
	if msg.To, err = get("to"); err != nil {
		return "", Message{}, err
	}
	if msg.Subject, err = get("subject"); err != nil {
		return "", Message{}, err
	}
	if msg.HTMLBody, err = get("html"); err != nil {
		return "", Message{}, err
	}
	return id, msg, nil
}
