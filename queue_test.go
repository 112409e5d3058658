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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/model"
)

func pendingWebhooks(t *testing.T, q *Queue) []NewWebhook {
	t.Helper()
	infos, err := q.Inspector.ListPendingTasks(config.DEFAULT_WEBHOOK_QUEUE)
	if err != nil {
		// asynq reports an unknown queue until the first task lands in it
		return nil
	}
	hooks := make([]NewWebhook, 0, len(infos))
	for _, info := range infos {
		var hook NewWebhook
		require.NoError(t, json.Unmarshal(info.Payload, &hook))
		hooks = append(hooks, hook)
	}
	return hooks
}

func TestSendWebhook_NoopWithoutUrl(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := testConfig(mr.Addr())
	config.MockConfig(cnf)
	q := NewQueue(cnf)

	err := q.SendWebhook(context.Background(), NewWebhook{Event: EventJobCreated, Payload: map[string]string{"job_id": "job_1"}})
	require.NoError(t, err)
	assert.Empty(t, pendingWebhooks(t, q))
}

func TestSendWebhook_Enqueues(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := testConfig(mr.Addr())
	cnf.Notification.Webhook = config.WebhookConfig{Url: "https://hooks.example.com/wharf"}
	config.MockConfig(cnf)
	q := NewQueue(cnf)

	err := q.SendWebhook(context.Background(), NewWebhook{Event: EventJobCreated, Payload: map[string]string{"job_id": "job_1"}})
	require.NoError(t, err)

	hooks := pendingWebhooks(t, q)
	require.Len(t, hooks, 1)
	assert.Equal(t, EventJobCreated, hooks[0].Event)
}

func TestAllocation_EmitsEvents(t *testing.T) {
	w, _, _ := newTestWharf(t)
	cnf, err := config.Fetch()
	require.NoError(t, err)
	cnf.Notification.Webhook = config.WebhookConfig{Url: "https://hooks.example.com/wharf"}
	config.MockConfig(cnf)

	ctx := context.Background()
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 1)

	short := newDemand(t, w, model.DemandOrder, line(p, 2))
	_, err = w.AllocateDemand(ctx, short.DemandID)
	require.Error(t, err)

	order := newDemand(t, w, model.DemandOrder, line(p, 1))
	_, err = w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)

	var events []string
	for _, hook := range pendingWebhooks(t, w.queue) {
		events = append(events, hook.Event)
	}
	assert.ElementsMatch(t, []string{EventStockReceived, EventAllocationShortage, EventJobCreated}, events)
}
