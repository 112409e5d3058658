/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wharf

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/internal/notification"
	redis_db "github.com/blnkfinance/wharf/internal/redis-db"
)

// Queue delivers engine events asynchronously through asynq.
type Queue struct {
	Client       *asynq.Client
	Inspector    *asynq.Inspector
	webhookQueue string
	maxRetry     int
}

// RedisClientOpt converts the configured redis address into asynq connection options.
func RedisClientOpt(conf *config.Configuration) asynq.RedisClientOpt {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		logrus.Fatalf("Error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}
}

// NewQueue initializes a Queue from conf.
func NewQueue(conf *config.Configuration) *Queue {
	opts := RedisClientOpt(conf)
	return &Queue{
		Client:       asynq.NewClient(opts),
		Inspector:    asynq.NewInspector(opts),
		webhookQueue: conf.Queue.WebhookQueue,
		maxRetry:     conf.Queue.MaxRetryAttempts,
	}
}

// SendWebhook enqueues hook for delivery. It is a no-op when no webhook url is configured.
func (q *Queue) SendWebhook(ctx context.Context, hook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(q.webhookQueue, payload, asynq.Queue(q.webhookQueue), asynq.MaxRetry(q.maxRetry))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		logrus.Errorf("failed to enqueue %s webhook: %v", hook.Event, err)
		return err
	}
	logrus.Debugf(" [*] Successfully enqueued %s webhook: %s", hook.Event, info.ID)
	return nil
}

// emit sends an engine event. Delivery failures never fail the operation that raised the event.
func (w *Wharf) emit(ctx context.Context, event string, payload interface{}) {
	if w.queue == nil {
		return
	}
	if err := w.queue.SendWebhook(ctx, NewWebhook{Event: event, Payload: payload}); err != nil {
		notification.NotifyError(err)
	}
}
