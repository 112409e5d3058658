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
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/config"
)

const hookURL = "https://hooks.example.com/wharf"

func webhookTask(t *testing.T, hook NewWebhook) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(hook)
	require.NoError(t, err)
	return asynq.NewTask(config.DEFAULT_WEBHOOK_QUEUE, payload)
}

func TestProcessWebhook_Delivers(t *testing.T) {
	cnf := testConfig("localhost:6379")
	cnf.Notification.Webhook = config.WebhookConfig{Url: hookURL, Headers: map[string]string{"X-Wharf-Key": "secret"}}
	config.MockConfig(cnf)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var received NewWebhook
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "secret", req.Header.Get("X-Wharf-Key"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobCompleted, Payload: map[string]string{"job_id": "job_1"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, EventJobCompleted, received.Event)
}

func TestProcessWebhook_FailedDeliveryIsRetried(t *testing.T) {
	cnf := testConfig("localhost:6379")
	cnf.Notification.Webhook = config.WebhookConfig{Url: hookURL}
	config.MockConfig(cnf)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(http.StatusBadGateway, "down"))

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobCreated}))
	assert.Error(t, err)
}

func TestProcessWebhook_BadPayload(t *testing.T) {
	cnf := testConfig("localhost:6379")
	cnf.Notification.Webhook = config.WebhookConfig{Url: hookURL}
	config.MockConfig(cnf)

	err := ProcessWebhook(context.Background(), asynq.NewTask(config.DEFAULT_WEBHOOK_QUEUE, []byte("{")))
	assert.Error(t, err)
}

func TestProcessWebhook_NoUrlConfigured(t *testing.T) {
	config.MockConfig(testConfig("localhost:6379"))

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobCreated}))
	require.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}
