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
	"github.com/blnkfinance/wharf/internal/request"
)

const (
	EventJobCreated         = "job.created"
	EventJobCompleted       = "job.completed"
	EventJobCancelled       = "job.cancelled"
	EventTaskConfirmed      = "task.confirmed"
	EventTaskException      = "task.exception"
	EventDemandApproved     = "demand.approved"
	EventDemandCompleted    = "demand.completed"
	EventAllocationShortage = "allocation.shortage"
	EventStockReceived      = "stock.received"
)

// NewWebhook is the envelope posted to the configured webhook url.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

func processHTTP(conf *config.Configuration, data NewWebhook) error {
	req, err := request.NewJSONRequest(conf.Notification.Webhook.Url, data, conf.Notification.Webhook.Headers)
	if err != nil {
		return err
	}
	_, err = request.Call(req, nil)
	return err
}

// ProcessWebhook delivers a queued webhook. A failed delivery is returned so asynq retries it.
func ProcessWebhook(_ context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("Error unmarshaling task payload: %v", err)
		return err
	}

	logrus.Infof("Processing webhook: %s", payload.Event)
	if err := processHTTP(conf, payload); err != nil {
		logrus.Errorf("webhook %s delivery failed: %v", payload.Event, err)
		return err
	}
	return nil
}
