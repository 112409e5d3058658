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

package pg_listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DirectoryChannel is the channel the storage_units trigger notifies on.
const DirectoryChannel = "wharf_directory"

type NotificationHandler interface {
	HandleNotification(ctx context.Context, change Change) error
}

type ListenerConfig struct {
	PgConnStr            string
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
}

// Change is one row event published by a table trigger.
type Change struct {
	Table string            `json:"table"`
	Op    string            `json:"op"`
	Data  map[string]string `json:"data"`
}

type DBListener struct {
	config  ListenerConfig
	handler NotificationHandler
}

func NewDBListener(config ListenerConfig, handler NotificationHandler) *DBListener {
	if config.Channel == "" {
		config.Channel = DirectoryChannel
	}
	if config.MinReconnectInterval <= 0 {
		config.MinReconnectInterval = 10 * time.Second
	}
	if config.MaxReconnectInterval <= 0 {
		config.MaxReconnectInterval = time.Minute
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 90 * time.Second
	}
	return &DBListener{
		config:  config,
		handler: handler,
	}
}

// Start listens until ctx is cancelled.
func (d *DBListener) Start(ctx context.Context) error {
	listener := pq.NewListener(d.config.PgConnStr, d.config.MinReconnectInterval, d.config.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logrus.Errorf("listener error: %v", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(d.config.Channel); err != nil {
		return err
	}
	logrus.Infof("listening for PostgreSQL notifications on channel %q", d.config.Channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notification := <-listener.Notify:
			// nil after a reconnect; notifications sent meanwhile are lost.
			if notification != nil {
				d.handleNotification(ctx, notification.Extra)
			}
		case <-time.After(d.config.PingInterval):
			if err := listener.Ping(); err != nil {
				logrus.Warnf("listener ping failed: %v", err)
			}
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		logrus.Errorf("error unmarshalling notification payload: %v", err)
		return
	}

	if err := d.handler.HandleNotification(ctx, change); err != nil {
		logrus.Errorf("error handling %s notification on %s: %v", change.Op, change.Table, err)
	}
}
