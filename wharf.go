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
	"embed"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/internal/cache"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/internal/notification"
	redis_db "github.com/blnkfinance/wharf/internal/redis-db"
	"github.com/blnkfinance/wharf/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("wharf.engine")

// Wharf is the allocation and reservation engine. Every operation that changes the ledger runs
// inside one datasource transaction and under a redis lock on the demands it touches.
type Wharf struct {
	queue        *Queue
	redis        redis.UniversalClient
	datasource   database.IDataSource
	directory    cache.Cache
	strategy     allocator.Strategy
	lockTTL      time.Duration
	lockWait     time.Duration
	directoryTTL time.Duration
	now          func() time.Time
}

// NewWharf wires the engine to db using the loaded configuration.
func NewWharf(db database.IDataSource) (*Wharf, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns}, cfg.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	w := &Wharf{
		queue:        NewQueue(cfg),
		redis:        redisClient.Client(),
		datasource:   db,
		directory:    cache.NewCache(redisClient.Client(), "wharf:directory"),
		strategy:     allocator.StrategyByName(cfg.Allocation.Strategy, cfg.Allocation.BaseScore),
		lockTTL:      time.Duration(cfg.Lock.TTLSeconds) * time.Second,
		lockWait:     time.Duration(cfg.Lock.WaitSeconds) * time.Second,
		directoryTTL: time.Duration(cfg.Cache.DirectoryTTLSeconds) * time.Second,
		now:          time.Now,
	}

	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		return w.queue.SendWebhook(context.Background(), NewWebhook{Event: event, Payload: payload})
	})
	return w, nil
}

// Datasource exposes the underlying store for read surfaces and tooling.
func (w *Wharf) Datasource() database.IDataSource {
	return w.datasource
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Errorf("%s: %v", msg, err)
	return err
}

// locks is a set of held redis locks released in reverse acquisition order.
type locks []*redlock.Locker

func (l locks) release(ctx context.Context) {
	for i := len(l) - 1; i >= 0; i-- {
		if err := l[i].Unlock(ctx); err != nil {
			logrus.Error("lock error ", err)
		}
	}
}

// acquireLocks takes the given keys in sorted order so that overlapping requests cannot
// deadlock. On failure every lock already taken is released.
func (w *Wharf) acquireLocks(ctx context.Context, keys ...string) (locks, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make(locks, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, key := range sorted {
		if seen[key] {
			continue
		}
		seen[key] = true
		locker := redlock.NewLocker(w.redis, key, model.GenerateUUIDWithSuffix("loc"))
		if err := locker.WaitLock(ctx, w.lockTTL, w.lockWait); err != nil {
			held.release(ctx)
			return nil, err
		}
		held = append(held, locker)
	}
	return held, nil
}

func (w *Wharf) planner(holds map[model.ProductKey]int64) *allocator.Planner {
	p := allocator.NewPlanner(w.strategy)
	p.Holds = holds
	return p
}
