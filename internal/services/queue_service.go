package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"printqueue/internal/logger"
	"printqueue/internal/status"
	"printqueue/internal/store"
	"printqueue/models"
)

type ServiceTimeMode string

const (
	// ServiceTimeArrival measures service time from arrival, like wait time.
	ServiceTimeArrival ServiceTimeMode = "arrival"
	// ServiceTimeServing measures service time from the moment a desk
	// called the entry.
	ServiceTimeServing ServiceTimeMode = "serving"
)

type QueueConfig struct {
	ClaimAttempts   int
	ServiceTimeMode ServiceTimeMode
	Location        *time.Location
}

var queueOrder = []store.Order{store.Asc("timestamp"), store.Asc("queueNumber")}

type QueueService struct {
	store    store.Store
	numberer Numberer
	locker   DeskLocker
	cfg      QueueConfig
	l        logger.Logger
	now      func() time.Time

	sinks []EventSink

	// numberMu keeps number assignment and insert together so max+1
	// numbering cannot hand out a number twice.
	numberMu sync.Mutex

	mu    sync.RWMutex
	view  QueueView
	ready bool

	// applyMu orders view replacement and observer callbacks.
	applyMu      sync.Mutex
	observers    map[uint64]func(QueueView)
	nextObserver uint64

	unsubscribe func()
}

func NewQueueService(st store.Store, numberer Numberer, locker DeskLocker, cfg QueueConfig, l logger.Logger) *QueueService {
	if cfg.ClaimAttempts <= 0 {
		cfg.ClaimAttempts = 5
	}
	if cfg.ServiceTimeMode == "" {
		cfg.ServiceTimeMode = ServiceTimeArrival
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if numberer == nil {
		numberer = NewQueryNumberer(st)
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &QueueService{
		store:     st,
		numberer:  numberer,
		locker:    locker,
		cfg:       cfg,
		l:         l,
		now:       time.Now,
		observers: make(map[uint64]func(QueueView)),
		view:      buildView(0, nil, time.Now()),
	}
}

// AddSink registers a lifecycle event consumer. Call before Start.
func (s *QueueService) AddSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// Start opens the live subscription on the queue collection. The first
// snapshot is applied before Start returns.
func (s *QueueService) Start(ctx context.Context) error {
	unsubscribe, err := s.store.Subscribe(ctx, store.CollectionQueue, queueOrder, s.apply)
	if err != nil {
		return fmt.Errorf("subscribe to queue: %w", err)
	}
	s.unsubscribe = unsubscribe
	return nil
}

func (s *QueueService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *QueueService) apply(snap store.Snapshot) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.RLock()
	stale := s.ready && snap.Version < s.view.Version
	s.mu.RUnlock()
	if stale {
		return
	}

	entries := make([]models.QueueEntry, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		e, err := decodeEntry(d)
		if err != nil {
			s.l.Warnf(context.Background(), "services.QueueService.apply: skipping document: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	view := buildView(snap.Version, entries, s.now())

	s.mu.Lock()
	s.view = view
	s.ready = true
	s.mu.Unlock()

	for _, fn := range s.observers {
		fn(view)
	}
}

// Subscribe calls fn with the current view and then with every new one.
// fn runs on the writer's goroutine and must not call mutating operations
// of the service.
func (s *QueueService) Subscribe(fn func(QueueView)) func() {
	s.applyMu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers[id] = fn
	current := s.View()
	fn(current)
	s.applyMu.Unlock()

	return func() {
		s.applyMu.Lock()
		delete(s.observers, id)
		s.applyMu.Unlock()
	}
}

func (s *QueueService) View() QueueView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// ServingForDesk returns the entry currently served at desk.
func (s *QueueService) ServingForDesk(desk models.Desk) (models.QueueEntry, bool) {
	v := s.View()
	if e := v.Serving[desk]; e != nil {
		return *e, true
	}
	return models.QueueEntry{}, false
}

// WaitingQueue returns the waiting entries, oldest first.
func (s *QueueService) WaitingQueue() []models.QueueEntry {
	return s.View().Waiting
}

func (s *QueueService) Stats() models.QueueStats {
	return s.View().Stats
}

func (s *QueueService) EstimatedWaitMinutes() int {
	return s.View().EstimatedWait
}

func (s *QueueService) ListEntries(f QueueListFilter) []models.QueueEntry {
	return s.View().List(f)
}

// Enqueue adds a waiting entry and returns it with its assigned number.
func (s *QueueService) Enqueue(ctx context.Context, name, studentID string) (models.QueueEntry, error) {
	name = strings.TrimSpace(name)
	studentID = strings.TrimSpace(studentID)
	if name == "" || studentID == "" {
		return models.QueueEntry{}, status.ErrInvalidInput
	}

	s.numberMu.Lock()
	defer s.numberMu.Unlock()

	number, err := s.numberer.Next(ctx)
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("enqueue: %w", err)
	}

	entry := models.QueueEntry{
		QueueNumber: number,
		Name:        name,
		StudentID:   studentID,
		Status:      models.StatusWaiting,
		Desk:        models.DeskNone,
		Timestamp:   s.now(),
	}
	id, err := s.store.Insert(ctx, store.CollectionQueue, entryFields(entry))
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("enqueue: %w", err)
	}
	entry.ID = id

	s.l.Infof(ctx, "queue: #%d joined (%s)", entry.QueueNumber, entry.StudentID)
	s.emit(ctx, LifecycleEvent{Type: EventJoined, Entry: &entry, At: entry.Timestamp})
	return entry, nil
}

// CallResult reports what a call-next did at a desk. Either side is nil
// when nothing happened there.
type CallResult struct {
	Completed *models.QueueEntry `json:"completed"`
	Called    *models.QueueEntry `json:"called"`
}

// CallNextForDesk completes whoever is served at desk and claims the oldest
// waiting entry for it. An empty queue leaves the desk idle.
func (s *QueueService) CallNextForDesk(ctx context.Context, desk models.Desk) (CallResult, error) {
	if !desk.Valid() {
		return CallResult{}, status.ErrInvalidDesk
	}
	unlock, err := s.locker.Lock(ctx, desk)
	if err != nil {
		return CallResult{}, err
	}
	defer unlock()

	var res CallResult
	res.Completed, err = s.completeLocked(ctx, desk)
	if err != nil {
		return res, err
	}
	res.Called, err = s.claimNext(ctx, desk)
	if err != nil {
		return res, err
	}
	if res.Called != nil {
		s.l.Infof(ctx, "queue: #%d called to %s", res.Called.QueueNumber, desk)
		s.emit(ctx, LifecycleEvent{Type: EventCalled, Desk: desk, Entry: res.Called, At: *res.Called.ServiceStartTime})
	}
	return res, nil
}

// CompleteServingForDesk completes the entry served at desk. It returns nil
// when the desk is idle.
func (s *QueueService) CompleteServingForDesk(ctx context.Context, desk models.Desk) (*models.QueueEntry, error) {
	if !desk.Valid() {
		return nil, status.ErrInvalidDesk
	}
	unlock, err := s.locker.Lock(ctx, desk)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.completeLocked(ctx, desk)
}

func (s *QueueService) completeLocked(ctx context.Context, desk models.Desk) (*models.QueueEntry, error) {
	serving := []store.Filter{store.Eq("status", string(models.StatusServing)), store.Eq("desk", string(desk))}
	docs, err := s.store.Query(ctx, store.CollectionQueue, store.Query{Filters: serving, OrderBy: queueOrder, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("find serving entry at %s: %w", desk, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	entry, err := decodeEntry(docs[0])
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransition(models.StatusCompleted) {
		return nil, nil
	}

	now := s.now()
	entry.Status = models.StatusCompleted
	entry.CompletionTime = &now
	entry.WaitTime = models.MinutesBetween(entry.Timestamp, now)

	err = s.store.UpdateIf(ctx, store.CollectionQueue, entry.ID, serving, store.Fields{
		"status":         string(models.StatusCompleted),
		"completionTime": millis(now),
		"waitTime":       entry.WaitTime,
	})
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
		// Completed or removed by another writer; that writer owns the history record.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete #%d: %w", entry.QueueNumber, err)
	}

	record := s.historyRecord(entry)
	if _, err := s.store.Insert(ctx, store.CollectionHistory, historyFields(record)); err != nil {
		// The entry is already completed, so this is the only trace of the record.
		s.l.Warnf(ctx, "queue: history record lost for #%d: name=%q studentId=%q desk=%s start=%s completion=%s wait=%d service=%d date=%s: %v",
			record.QueueNumber, record.Name, record.StudentID, record.Desk,
			record.StartTime.Format(time.RFC3339), record.CompletionTime.Format(time.RFC3339),
			record.WaitTime, record.ServiceTime, record.Date, err)
		return &entry, fmt.Errorf("archive #%d: %w", entry.QueueNumber, err)
	}

	s.l.Infof(ctx, "queue: #%d completed at %s after %d min", entry.QueueNumber, desk, entry.WaitTime)
	s.emit(ctx, LifecycleEvent{Type: EventCompleted, Desk: desk, Entry: &entry, At: now})
	return &entry, nil
}

func (s *QueueService) historyRecord(e models.QueueEntry) models.QueueHistory {
	completed := *e.CompletionTime
	service := e.WaitTime
	if s.cfg.ServiceTimeMode == ServiceTimeServing && e.ServiceStartTime != nil {
		service = models.MinutesBetween(*e.ServiceStartTime, completed)
	}
	return models.QueueHistory{
		QueueNumber:    e.QueueNumber,
		Name:           e.Name,
		StudentID:      e.StudentID,
		Desk:           e.Desk,
		StartTime:      e.Timestamp,
		CompletionTime: completed,
		WaitTime:       e.WaitTime,
		ServiceTime:    service,
		Date:           completed.In(s.cfg.Location).Format(models.DateLayout),
	}
}

// claimNext moves the oldest waiting entry to desk. The write is conditional
// on the entry still waiting, so two desks can never claim the same entry.
func (s *QueueService) claimNext(ctx context.Context, desk models.Desk) (*models.QueueEntry, error) {
	waiting := []store.Filter{store.Eq("status", string(models.StatusWaiting)), store.Eq("desk", string(models.DeskNone))}

	for attempt := 0; attempt < s.cfg.ClaimAttempts; attempt++ {
		docs, err := s.store.Query(ctx, store.CollectionQueue, store.Query{Filters: waiting, OrderBy: queueOrder, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("find next waiting entry: %w", err)
		}
		if len(docs) == 0 {
			return nil, nil
		}
		entry, err := decodeEntry(docs[0])
		if err != nil {
			return nil, err
		}
		if !entry.Status.CanTransition(models.StatusServing) || !entry.Consistent() {
			s.l.Debugf(ctx, "queue: #%d is %s at %q, not claimable", entry.QueueNumber, entry.Status, entry.Desk)
			continue
		}

		now := s.now()
		err = s.store.UpdateIf(ctx, store.CollectionQueue, entry.ID, waiting, store.Fields{
			"status":           string(models.StatusServing),
			"desk":             string(desk),
			"serviceStartTime": millis(now),
		})
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			s.l.Debugf(ctx, "queue: #%d taken before %s could claim it, retrying", entry.QueueNumber, desk)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claim #%d: %w", entry.QueueNumber, err)
		}

		entry.Status = models.StatusServing
		entry.Desk = desk
		entry.ServiceStartTime = &now
		return &entry, nil
	}
	return nil, status.ErrClaimConflict
}

// DeleteFromQueue removes an entry whatever its status. No history is kept.
func (s *QueueService) DeleteFromQueue(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	if err := s.store.Delete(ctx, store.CollectionQueue, id); err != nil {
		s.l.Errorf(ctx, "services.QueueService.DeleteFromQueue: %v", err)
		return false
	}
	s.emit(ctx, LifecycleEvent{Type: EventRemoved, Entry: &models.QueueEntry{ID: id}, At: s.now()})
	return true
}

// ResetQueue deletes every live entry and restarts numbering. History is
// not touched.
func (s *QueueService) ResetQueue(ctx context.Context) bool {
	s.numberMu.Lock()
	defer s.numberMu.Unlock()

	docs, err := s.store.Query(ctx, store.CollectionQueue, store.Query{})
	if err != nil {
		s.l.Errorf(ctx, "services.QueueService.ResetQueue: %v", err)
		return false
	}

	var g errgroup.Group
	g.SetLimit(8)
	for _, d := range docs {
		id := d.ID
		g.Go(func() error {
			return s.store.Delete(ctx, store.CollectionQueue, id)
		})
	}
	if err := g.Wait(); err != nil {
		s.l.Errorf(ctx, "services.QueueService.ResetQueue: %v", err)
		return false
	}
	if err := s.numberer.Reset(ctx); err != nil {
		s.l.Errorf(ctx, "services.QueueService.ResetQueue: %v", err)
		return false
	}

	s.l.Infof(ctx, "queue: reset, %d entries removed", len(docs))
	s.emit(ctx, LifecycleEvent{Type: EventReset, At: s.now()})
	return true
}

func (s *QueueService) emit(ctx context.Context, ev LifecycleEvent) {
	for _, sink := range s.sinks {
		sink.QueueEvent(ctx, ev)
	}
}
