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

package redlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Lock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, DemandKey("ord_1"), "holder")

	mock.ExpectSetNX("wharf:lock:demand:ord_1", "holder", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_Held(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, JobKey("job_1"), "holder")

	mock.ExpectSetNX("wharf:lock:job:job_1", "holder", 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Contains(t, err.Error(), "wharf:lock:job:job_1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "k", "v")

	mock.ExpectEval(unlockScript, []string{"k"}, "v").SetVal(int64(1))
	assert.NoError(t, locker.Unlock(context.Background()))

	mock.ExpectEval(unlockScript, []string{"k"}, "v").SetVal(int64(0))
	assert.ErrorIs(t, locker.Unlock(context.Background()), ErrNotHolder)

	mock.ExpectEval(unlockScript, []string{"k"}, "v").SetErr(errors.New("connection refused"))
	assert.EqualError(t, locker.Unlock(context.Background()), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "k", "v")

	mock.ExpectEval(extendScript, []string{"k"}, "v", "10000").SetVal(int64(1))
	assert.NoError(t, locker.ExtendLock(context.Background(), 10*time.Second))

	mock.ExpectEval(extendScript, []string{"k"}, "v", "10000").SetVal(int64(0))
	assert.ErrorIs(t, locker.ExtendLock(context.Background(), 10*time.Second), ErrNotHolder)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WaitLock_AcquiresAfterRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	first := NewLocker(client, DemandKey("trf_1"), "first")
	require.NoError(t, first.Lock(context.Background(), time.Minute))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Unlock(context.Background())
	}()

	second := NewLocker(client, DemandKey("trf_1"), "second")
	err := second.WaitLock(context.Background(), time.Minute, 2*time.Second)
	require.NoError(t, err)

	holder, err := mr.Get(DemandKey("trf_1"))
	require.NoError(t, err)
	assert.Equal(t, "second", holder)
}

func TestLocker_WaitLock_TimesOut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	require.NoError(t, NewLocker(client, "busy", "owner").Lock(context.Background(), time.Minute))

	err := NewLocker(client, "busy", "other").WaitLock(context.Background(), time.Minute, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockHeld)
}
