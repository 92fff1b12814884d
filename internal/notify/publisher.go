// Package notify публикует события уведомлений во внешний поток Redis.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"careTracker/internal/logger"
	"careTracker/internal/models/task"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultStream = "caretracker:notifications"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Event - сообщение в потоке; поле data содержит его JSON
type Event struct {
	NotificationID string    `json:"notification_id"`
	TaskID         string    `json:"task_id"`
	Recipient      string    `json:"recipient"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

func eventFrom(n *task.Notification) Event {
	return Event{
		NotificationID: n.ID.String(),
		TaskID:         n.TaskID.String(),
		Recipient:      n.Recipient.String(),
		Type:           string(n.Type),
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	}
}

type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *RedisPublisher) Publish(ctx context.Context, n *task.Notification) error {
	data, err := json.Marshal(eventFrom(n))
	if err != nil {
		return fmt.Errorf("сериализация уведомления: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("публикация в поток %s: %w", p.stream, err)
	}

	logger.Debug("Notify: событие опубликовано",
		zap.String("stream", p.stream),
		zap.String("entry_id", id),
		zap.String("notification_id", n.ID.String()),
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Noop используется, когда Redis отключён в конфигурации
type Noop struct{}

func (Noop) Publish(context.Context, *task.Notification) error { return nil }
