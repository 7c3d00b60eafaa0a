package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printqueue/internal/status"
	"printqueue/models"
)

func TestLocalLocker_SerialisesDesk(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), models.Desk1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, models.Desk1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), models.Desk2)
	require.NoError(t, err, "desks lock independently")
	other()

	unlock()
	again, err := l.Lock(context.Background(), models.Desk1)
	require.NoError(t, err)
	again()
}

func newTestRedisLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	l := NewRedisLocker(db, 10*time.Second, time.Second)
	l.newToken = func() string { return "token-1" }
	l.retry = time.Millisecond
	return l, mock
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("printqueue:lock:desk:desk1", "token-1", 10*time.Second).SetVal(true)
	mock.ExpectEval(releaseLockScript, []string{"printqueue:lock:desk:desk1"}, "token-1").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), models.Desk1)
	require.NoError(t, err)
	unlock()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RetriesWhileHeld(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("printqueue:lock:desk:desk2", "token-1", 10*time.Second).SetVal(false)
	mock.ExpectSetNX("printqueue:lock:desk:desk2", "token-1", 10*time.Second).SetVal(true)

	_, err := l.Lock(context.Background(), models.Desk2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_Timeout(t *testing.T) {
	l, mock := newTestRedisLocker(t)
	l.wait = -time.Second

	mock.ExpectSetNX("printqueue:lock:desk:desk1", "token-1", 10*time.Second).SetVal(false)

	_, err := l.Lock(context.Background(), models.Desk1)
	assert.ErrorIs(t, err, status.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_Error(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("printqueue:lock:desk:desk1", "token-1", 10*time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Lock(context.Background(), models.Desk1)
	assert.ErrorContains(t, err, "connection refused")
}
