package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"printqueue/internal/logger"
	"printqueue/internal/status"
	"printqueue/internal/store"
	"printqueue/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *recordingSink) QueueEvent(_ context.Context, ev LifecycleEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func setupTestQueueService(t *testing.T, cfg QueueConfig) (*QueueService, *store.Memory, *testClock) {
	t.Helper()
	st := store.NewMemory()
	clock := newTestClock()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	svc := NewQueueService(st, nil, nil, cfg, logger.NewNop())
	svc.now = clock.Now
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)
	return svc, st, clock
}

func historyRecords(t *testing.T, st store.Store) []models.QueueHistory {
	t.Helper()
	docs, err := st.Query(context.Background(), store.CollectionHistory, store.Query{OrderBy: []store.Order{store.Asc("completionTime")}})
	require.NoError(t, err)
	out := make([]models.QueueHistory, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeHistory(d))
	}
	return out
}

func TestQueueService_Scenario_AliceAndBob(t *testing.T) {
	svc, st, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	alice, err := svc.Enqueue(ctx, "Alice", "A1")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	bob, err := svc.Enqueue(ctx, "Bob", "B1")
	require.NoError(t, err)

	assert.Equal(t, 1, alice.QueueNumber)
	assert.Equal(t, 2, bob.QueueNumber)

	clock.Advance(4 * time.Minute)
	res, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	require.NotNil(t, res.Called)
	assert.Nil(t, res.Completed)

	serving, ok := svc.ServingForDesk(models.Desk1)
	require.True(t, ok)
	assert.Equal(t, "Alice", serving.Name)
	assert.Equal(t, 1, serving.QueueNumber)
	assert.Equal(t, models.StatusServing, serving.Status)

	clock.Advance(6 * time.Minute)
	done, err := svc.CompleteServingForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, 11, done.WaitTime)

	history := historyRecords(t, st)
	require.Len(t, history, 1)
	assert.Equal(t, "Alice", history[0].Name)
	assert.Equal(t, "A1", history[0].StudentID)
	assert.Equal(t, models.Desk1, history[0].Desk)
	assert.GreaterOrEqual(t, history[0].WaitTime, 0)
	assert.Equal(t, history[0].WaitTime, history[0].ServiceTime)
	assert.Equal(t, "2025-03-03", history[0].Date)

	waiting := svc.WaitingQueue()
	require.Len(t, waiting, 1)
	assert.Equal(t, "Bob", waiting[0].Name)

	_, ok = svc.ServingForDesk(models.Desk1)
	assert.False(t, ok)
}

func TestQueueService_Enqueue_NumbersIncrease(t *testing.T) {
	svc, _, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		e, err := svc.Enqueue(ctx, "Student", "S")
		require.NoError(t, err)
		assert.Equal(t, i, e.QueueNumber)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 10, svc.Stats().CurrentQueueLength)
}

func TestQueueService_Enqueue_Validation(t *testing.T) {
	svc, _, _ := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	tests := []struct {
		name      string
		student   string
		studentID string
	}{
		{"empty name", "", "A1"},
		{"blank name", "   ", "A1"},
		{"empty student id", "Alice", ""},
		{"blank student id", "Alice", "\t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enqueue(ctx, tt.student, tt.studentID)
			assert.ErrorIs(t, err, status.ErrInvalidInput)
		})
	}
	assert.Empty(t, svc.WaitingQueue())
}

func TestQueueService_Enqueue_TrimsInput(t *testing.T) {
	svc, _, _ := setupTestQueueService(t, QueueConfig{})

	e, err := svc.Enqueue(context.Background(), "  Alice ", " A1 ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, "A1", e.StudentID)
	assert.Equal(t, models.DeskNone, e.Desk)
	assert.Equal(t, models.StatusWaiting, e.Status)
}

func TestQueueService_CallNext_PicksOldest(t *testing.T) {
	svc, st, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	// Inserted out of arrival order on purpose.
	base := clock.Now()
	_, _ = st.Insert(ctx, store.CollectionQueue, entryFields(models.QueueEntry{QueueNumber: 2, Name: "Late", StudentID: "L", Status: models.StatusWaiting, Timestamp: base.Add(time.Minute)}))
	_, _ = st.Insert(ctx, store.CollectionQueue, entryFields(models.QueueEntry{QueueNumber: 1, Name: "Early", StudentID: "E", Status: models.StatusWaiting, Timestamp: base}))

	res, err := svc.CallNextForDesk(ctx, models.Desk2)
	require.NoError(t, err)
	require.NotNil(t, res.Called)
	assert.Equal(t, "Early", res.Called.Name)
	assert.Equal(t, models.Desk2, res.Called.Desk)
	require.NotNil(t, res.Called.ServiceStartTime)

	waiting := svc.WaitingQueue()
	require.Len(t, waiting, 1)
	assert.Equal(t, "Late", waiting[0].Name)
}

func TestQueueService_CallNext_CompletesCurrent(t *testing.T) {
	svc, st, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	clock.Advance(time.Second)
	_, _ = svc.Enqueue(ctx, "Bob", "B1")

	_, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)

	res, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	require.NotNil(t, res.Completed)
	require.NotNil(t, res.Called)
	assert.Equal(t, "Alice", res.Completed.Name)
	assert.Equal(t, models.StatusCompleted, res.Completed.Status)
	require.NotNil(t, res.Completed.CompletionTime)
	assert.Equal(t, 3, res.Completed.WaitTime)
	assert.Equal(t, "Bob", res.Called.Name)

	history := historyRecords(t, st)
	require.Len(t, history, 1)
	assert.Equal(t, res.Completed.QueueNumber, history[0].QueueNumber)
	assert.Equal(t, res.Completed.WaitTime, history[0].WaitTime)
	assert.True(t, res.Completed.CompletionTime.Equal(history[0].CompletionTime))

	assert.Equal(t, 1, svc.Stats().TotalServed)
	assert.Equal(t, 0, svc.Stats().CurrentQueueLength)
}

func TestQueueService_CallNext_EmptyQueueLeavesDeskIdle(t *testing.T) {
	svc, st, _ := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	_, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)

	res, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	assert.NotNil(t, res.Completed)
	assert.Nil(t, res.Called)

	_, ok := svc.ServingForDesk(models.Desk1)
	assert.False(t, ok)
	assert.Len(t, historyRecords(t, st), 1)

	res, err = svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	assert.Nil(t, res.Completed)
	assert.Nil(t, res.Called)
}

func TestQueueService_CallNext_InvalidDesk(t *testing.T) {
	svc, _, _ := setupTestQueueService(t, QueueConfig{})

	_, err := svc.CallNextForDesk(context.Background(), models.Desk("desk9"))
	assert.ErrorIs(t, err, status.ErrInvalidDesk)

	_, err = svc.CompleteServingForDesk(context.Background(), models.DeskNone)
	assert.ErrorIs(t, err, status.ErrInvalidDesk)
}

func TestQueueService_Complete_NothingServingIsNoop(t *testing.T) {
	svc, st, _ := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()
	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	before := svc.View()

	done, err := svc.CompleteServingForDesk(ctx, models.Desk2)
	require.NoError(t, err)
	assert.Nil(t, done)

	assert.Equal(t, before.Version, svc.View().Version)
	assert.Empty(t, historyRecords(t, st))
}

func TestQueueService_Complete_OnlyAffectsOwnDesk(t *testing.T) {
	svc, _, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	clock.Advance(time.Second)
	_, _ = svc.Enqueue(ctx, "Bob", "B1")
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)
	_, _ = svc.CallNextForDesk(ctx, models.Desk2)

	_, err := svc.CompleteServingForDesk(ctx, models.Desk1)
	require.NoError(t, err)

	_, ok := svc.ServingForDesk(models.Desk1)
	assert.False(t, ok)
	bob, ok := svc.ServingForDesk(models.Desk2)
	require.True(t, ok)
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, models.Desk2, bob.Desk)
}

func TestQueueService_ConcurrentDesksNeverShareAnEntry(t *testing.T) {
	svc, _, clock := setupTestQueueService(t, QueueConfig{ClaimAttempts: 50})
	ctx := context.Background()

	const n = 40
	for i := 0; i < n; i++ {
		_, err := svc.Enqueue(ctx, "Student", "S")
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		called = map[string]models.Desk{}
		dupes  int
	)
	for _, desk := range models.AllDesks() {
		wg.Add(1)
		go func(desk models.Desk) {
			defer wg.Done()
			for {
				res, err := svc.CallNextForDesk(ctx, desk)
				if !assert.NoError(t, err) || res.Called == nil {
					return
				}
				mu.Lock()
				if _, seen := called[res.Called.ID]; seen {
					dupes++
				}
				called[res.Called.ID] = desk
				mu.Unlock()
			}
		}(desk)
	}
	wg.Wait()

	assert.Zero(t, dupes)
	assert.Len(t, called, n)
	assert.Empty(t, svc.WaitingQueue())
}

func TestQueueService_ClaimRetriesOnConflict(t *testing.T) {
	st := &conflictOnceStore{Memory: store.NewMemory()}
	svc := NewQueueService(st, nil, nil, QueueConfig{Location: time.UTC}, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	st.fail = 1

	res, err := svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	require.NotNil(t, res.Called)
	assert.Equal(t, "Alice", res.Called.Name)
	assert.Equal(t, 2, st.attempts)
}

func TestQueueService_ClaimGivesUp(t *testing.T) {
	st := &conflictOnceStore{Memory: store.NewMemory()}
	svc := NewQueueService(st, nil, nil, QueueConfig{ClaimAttempts: 3, Location: time.UTC}, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	st.fail = 100

	_, err := svc.CallNextForDesk(ctx, models.Desk1)
	assert.ErrorIs(t, err, status.ErrClaimConflict)
	assert.Equal(t, 3, st.attempts)
}

// conflictOnceStore reports a conflict for the next fail conditional writes.
type conflictOnceStore struct {
	*store.Memory
	fail     int
	attempts int
}

func (c *conflictOnceStore) UpdateIf(ctx context.Context, collection, id string, expect []store.Filter, fields store.Fields) error {
	c.attempts++
	if c.fail > 0 {
		c.fail--
		return store.ErrConflict
	}
	return c.Memory.UpdateIf(ctx, collection, id, expect, fields)
}

func TestQueueService_ServiceTimeModes(t *testing.T) {
	tests := []struct {
		mode            ServiceTimeMode
		expectedService int
	}{
		{ServiceTimeArrival, 10},
		{ServiceTimeServing, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			svc, st, clock := setupTestQueueService(t, QueueConfig{ServiceTimeMode: tt.mode})
			ctx := context.Background()

			_, _ = svc.Enqueue(ctx, "Alice", "A1")
			clock.Advance(6 * time.Minute)
			_, _ = svc.CallNextForDesk(ctx, models.Desk1)
			clock.Advance(4 * time.Minute)
			_, err := svc.CompleteServingForDesk(ctx, models.Desk1)
			require.NoError(t, err)

			history := historyRecords(t, st)
			require.Len(t, history, 1)
			assert.Equal(t, 10, history[0].WaitTime)
			assert.Equal(t, tt.expectedService, history[0].ServiceTime)
		})
	}
}

func TestQueueService_DeleteFromQueue(t *testing.T) {
	svc, st, _ := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	alice, _ := svc.Enqueue(ctx, "Alice", "A1")
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)

	assert.True(t, svc.DeleteFromQueue(ctx, alice.ID))
	_, ok := svc.ServingForDesk(models.Desk1)
	assert.False(t, ok)
	assert.Empty(t, historyRecords(t, st))

	assert.False(t, svc.DeleteFromQueue(ctx, alice.ID))
	assert.False(t, svc.DeleteFromQueue(ctx, ""))
}

func TestQueueService_ResetQueue(t *testing.T) {
	svc, st, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = svc.Enqueue(ctx, "Student", "S")
		clock.Advance(time.Second)
	}
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)
	require.Len(t, historyRecords(t, st), 1)

	assert.True(t, svc.ResetQueue(ctx))

	live, err := st.Query(ctx, store.CollectionQueue, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, live)
	assert.Empty(t, svc.View().Entries)
	assert.Len(t, historyRecords(t, st), 1)

	e, err := svc.Enqueue(ctx, "Next", "N")
	require.NoError(t, err)
	assert.Equal(t, 1, e.QueueNumber)
}

func TestQueueService_ResetQueue_Failure(t *testing.T) {
	st := &failingDeleteStore{Memory: store.NewMemory()}
	svc := NewQueueService(st, nil, nil, QueueConfig{}, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	ctx := context.Background()

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	assert.False(t, svc.ResetQueue(ctx))
	assert.False(t, svc.DeleteFromQueue(ctx, "anything"))
}

type failingDeleteStore struct {
	*store.Memory
}

func (f *failingDeleteStore) Delete(context.Context, string, string) error {
	return errors.New("network down")
}

func TestQueueService_ProjectionsInvariant(t *testing.T) {
	svc, _, clock := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = svc.Enqueue(ctx, "Student", "S")
		clock.Advance(time.Second)
	}
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)
	_, _ = svc.CallNextForDesk(ctx, models.Desk2)
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)

	for _, e := range svc.WaitingQueue() {
		assert.Equal(t, models.DeskNone, e.Desk)
		assert.Equal(t, models.StatusWaiting, e.Status)
	}
	for _, d := range models.AllDesks() {
		if e, ok := svc.ServingForDesk(d); ok {
			assert.Equal(t, d, e.Desk)
		}
	}
	for _, e := range svc.View().Entries {
		assert.True(t, e.Consistent(), "entry #%d is inconsistent", e.QueueNumber)
	}

	stats := svc.Stats()
	assert.Equal(t, len(svc.WaitingQueue()), stats.CurrentQueueLength)
	assert.Equal(t, 1, stats.TotalServed)
}

func TestQueueService_SubscribeObserver(t *testing.T) {
	svc, _, _ := setupTestQueueService(t, QueueConfig{})
	ctx := context.Background()

	var views []QueueView
	unsubscribe := svc.Subscribe(func(v QueueView) { views = append(views, v) })
	require.Len(t, views, 1, "current view is delivered on subscribe")

	_, _ = svc.Enqueue(ctx, "Alice", "A1")
	require.Len(t, views, 2)
	assert.Len(t, views[1].Waiting, 1)
	assert.Greater(t, views[1].Version, views[0].Version)

	unsubscribe()
	_, _ = svc.Enqueue(ctx, "Bob", "B1")
	assert.Len(t, views, 2)
}

func TestQueueService_StaleSnapshotIgnored(t *testing.T) {
	svc, _, _ := setupTestQueueService(t, QueueConfig{})
	_, _ = svc.Enqueue(context.Background(), "Alice", "A1")
	current := svc.View()

	svc.apply(store.Snapshot{Collection: store.CollectionQueue, Version: 0})

	assert.Equal(t, current.Version, svc.View().Version)
	assert.Len(t, svc.WaitingQueue(), 1)
}

func TestQueueService_Sinks(t *testing.T) {
	st := store.NewMemory()
	svc := NewQueueService(st, nil, nil, QueueConfig{}, logger.NewNop())
	sink := &recordingSink{}
	svc.AddSink(sink)
	require.NoError(t, svc.Start(context.Background()))
	ctx := context.Background()

	e, _ := svc.Enqueue(ctx, "Alice", "A1")
	_, _ = svc.CallNextForDesk(ctx, models.Desk1)
	_, _ = svc.CompleteServingForDesk(ctx, models.Desk1)
	_ = svc.DeleteFromQueue(ctx, e.ID)
	_ = svc.ResetQueue(ctx)

	assert.Equal(t, []EventType{EventJoined, EventCalled, EventCompleted, EventRemoved, EventReset}, sink.types())
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, models.QueueStats{}, ComputeStats(nil))

	stats := ComputeStats([]models.QueueEntry{
		{Status: models.StatusWaiting},
		{Status: models.StatusWaiting},
		{Status: models.StatusServing, Desk: models.Desk1},
		{Status: models.StatusCompleted, Desk: models.Desk1, WaitTime: 4},
		{Status: models.StatusCompleted, Desk: models.Desk2, WaitTime: 5},
	})
	assert.Equal(t, 2, stats.CurrentQueueLength)
	assert.Equal(t, 2, stats.TotalServed)
	assert.Equal(t, 5, stats.AverageWaitTime)
}

func TestEstimatedWaitMinutes(t *testing.T) {
	assert.Equal(t, 5, EstimatedWaitMinutes(0))
	assert.Equal(t, 5, EstimatedWaitMinutes(1))
	assert.Equal(t, 15, EstimatedWaitMinutes(3))
	assert.Equal(t, 30, EstimatedWaitMinutes(6))
	assert.Equal(t, 30, EstimatedWaitMinutes(40))
}

// staleQueryStore ignores filters on queue reads, like a lagging replica.
type staleQueryStore struct {
	*store.Memory
	updates int
}

func (s *staleQueryStore) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	if collection == store.CollectionQueue {
		q.Filters = nil
	}
	return s.Memory.Query(ctx, collection, q)
}

func (s *staleQueryStore) UpdateIf(ctx context.Context, collection, id string, expect []store.Filter, fields store.Fields) error {
	s.updates++
	return s.Memory.UpdateIf(ctx, collection, id, expect, fields)
}

func TestQueueService_SkipsEntriesThatCannotTransition(t *testing.T) {
	st := &staleQueryStore{Memory: store.NewMemory()}
	svc := NewQueueService(st, nil, nil, QueueConfig{ClaimAttempts: 2, Location: time.UTC}, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)
	ctx := context.Background()

	alice, err := svc.Enqueue(ctx, "Alice", "A1")
	require.NoError(t, err)
	require.NoError(t, st.Memory.Update(ctx, store.CollectionQueue, alice.ID, store.Fields{
		"status": string(models.StatusCompleted),
		"desk":   string(models.Desk2),
	}))

	_, err = svc.CallNextForDesk(ctx, models.Desk1)
	assert.ErrorIs(t, err, status.ErrClaimConflict)

	done, err := svc.CompleteServingForDesk(ctx, models.Desk2)
	require.NoError(t, err)
	assert.Nil(t, done)
	assert.Zero(t, st.updates)
	assert.Empty(t, historyRecords(t, st.Memory))
}

// failingHistoryStore rejects every history insert.
type failingHistoryStore struct {
	*store.Memory
}

func (f *failingHistoryStore) Insert(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if collection == store.CollectionHistory {
		return "", errors.New("disk full")
	}
	return f.Memory.Insert(ctx, collection, fields)
}

func TestQueueService_Complete_LogsLostHistoryRecord(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	st := &failingHistoryStore{Memory: store.NewMemory()}
	svc := NewQueueService(st, nil, nil, QueueConfig{Location: time.UTC}, logger.NewWithCore(core))
	clock := newTestClock()
	svc.now = clock.Now
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, "Alice", "A1")
	require.NoError(t, err)
	_, err = svc.CallNextForDesk(ctx, models.Desk1)
	require.NoError(t, err)
	clock.Advance(7 * time.Minute)

	done, err := svc.CompleteServingForDesk(ctx, models.Desk1)
	require.Error(t, err)
	require.NotNil(t, done)
	assert.Equal(t, models.StatusCompleted, done.Status)

	lost := logs.FilterMessageSnippet("history record lost for #1")
	require.Equal(t, 1, lost.Len())
	msg := lost.All()[0].Message
	assert.Contains(t, msg, `studentId="A1"`)
	assert.Contains(t, msg, "desk=desk1")
	assert.Contains(t, msg, "wait=7")
	assert.Contains(t, msg, "date=2025-03-03")
	assert.Contains(t, msg, "disk full")
}
