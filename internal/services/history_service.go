package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"printqueue/internal/logger"
	"printqueue/internal/status"
	"printqueue/internal/store"
	"printqueue/models"
)

type HistoryRange string

const (
	RangeAll       HistoryRange = "all"
	RangeToday     HistoryRange = "today"
	RangeYesterday HistoryRange = "yesterday"
	RangeWeek      HistoryRange = "week"
	RangeMonth     HistoryRange = "month"
)

func (r HistoryRange) Valid() bool {
	switch r {
	case "", RangeAll, RangeToday, RangeYesterday, RangeWeek, RangeMonth:
		return true
	}
	return false
}

// bounds returns the half-open completion interval for r. A zero end means
// unbounded.
func (r HistoryRange) bounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch r {
	case RangeToday:
		return today, today.AddDate(0, 0, 1)
	case RangeYesterday:
		return today.AddDate(0, 0, -1), today
	case RangeWeek:
		return now.AddDate(0, 0, -7), time.Time{}
	case RangeMonth:
		return now.AddDate(0, 0, -30), time.Time{}
	}
	return time.Time{}, time.Time{}
}

var historySortFields = map[string]func(a, b models.QueueHistory) int{
	"queueNumber":    func(a, b models.QueueHistory) int { return a.QueueNumber - b.QueueNumber },
	"name":           func(a, b models.QueueHistory) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"studentId":      func(a, b models.QueueHistory) int { return strings.Compare(a.StudentID, b.StudentID) },
	"desk":           func(a, b models.QueueHistory) int { return strings.Compare(string(a.Desk), string(b.Desk)) },
	"waitTime":       func(a, b models.QueueHistory) int { return a.WaitTime - b.WaitTime },
	"serviceTime":    func(a, b models.QueueHistory) int { return a.ServiceTime - b.ServiceTime },
	"completionTime": func(a, b models.QueueHistory) int { return a.CompletionTime.Compare(b.CompletionTime) },
}

func ValidHistorySortField(field string) bool {
	_, ok := historySortFields[field]
	return field == "" || ok
}

type HistoryFilter struct {
	Search    string
	Desk      models.Desk
	Range     HistoryRange
	SortField string
	// Ascending flips the default newest-first order.
	Ascending bool
}

// FilterHistory applies an admin history filter. The default order is
// completion time, newest first.
func FilterHistory(records []models.QueueHistory, f HistoryFilter, now time.Time, loc *time.Location) []models.QueueHistory {
	if loc == nil {
		loc = time.Local
	}
	from, to := f.Range.bounds(now, loc)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.QueueHistory, 0, len(records))
	for _, h := range records {
		if !from.IsZero() && h.CompletionTime.Before(from) {
			continue
		}
		if !to.IsZero() && !h.CompletionTime.Before(to) {
			continue
		}
		if f.Desk != models.DeskNone && h.Desk != f.Desk {
			continue
		}
		if search != "" && !matchesSearch(search, h.Name, h.StudentID, h.QueueNumber) {
			continue
		}
		out = append(out, h)
	}

	cmp, ok := historySortFields[f.SortField]
	if !ok {
		cmp = historySortFields["completionTime"]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return cmp(out[i], out[j]) < 0
		}
		return cmp(out[i], out[j]) > 0
	})
	return out
}

// SummarizeHistory totals a set of history records.
func SummarizeHistory(records []models.QueueHistory) models.HistorySummary {
	var s models.HistorySummary
	for i, h := range records {
		s.TotalJobs++
		s.TotalWaitTime += h.WaitTime
		s.TotalServiceTime += h.ServiceTime
		if i == 0 || h.WaitTime > s.LongestWait {
			s.LongestWait = h.WaitTime
		}
		if i == 0 || h.WaitTime < s.ShortestWait {
			s.ShortestWait = h.WaitTime
		}
	}
	s.AvgWaitTime = models.RoundedMean(s.TotalWaitTime, s.TotalJobs)
	s.AvgServiceTime = models.RoundedMean(s.TotalServiceTime, s.TotalJobs)
	return s
}

// HistoryPatch is an explicit admin correction. Nil fields are left alone.
type HistoryPatch struct {
	Name           *string      `json:"name"`
	StudentID      *string      `json:"studentId"`
	Desk           *models.Desk `json:"desk"`
	WaitTime       *int         `json:"waitTime"`
	ServiceTime    *int         `json:"serviceTime"`
	CompletionTime *time.Time   `json:"completionTime"`
}

func (p HistoryPatch) fields(loc *time.Location) (store.Fields, error) {
	f := store.Fields{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, status.ErrInvalidInput
		}
		f["name"] = name
	}
	if p.StudentID != nil {
		id := strings.TrimSpace(*p.StudentID)
		if id == "" {
			return nil, status.ErrInvalidInput
		}
		f["studentId"] = id
	}
	if p.Desk != nil {
		if !p.Desk.Valid() {
			return nil, status.ErrInvalidDesk
		}
		f["desk"] = string(*p.Desk)
	}
	if p.WaitTime != nil {
		if *p.WaitTime < 0 {
			return nil, fmt.Errorf("%w: wait time must not be negative", status.ErrInvalidInput)
		}
		f["waitTime"] = *p.WaitTime
	}
	if p.ServiceTime != nil {
		if *p.ServiceTime < 0 {
			return nil, fmt.Errorf("%w: service time must not be negative", status.ErrInvalidInput)
		}
		f["serviceTime"] = *p.ServiceTime
	}
	if p.CompletionTime != nil {
		f["completionTime"] = millis(*p.CompletionTime)
		f["date"] = p.CompletionTime.In(loc).Format(models.DateLayout)
	}
	return f, nil
}

type HistoryService struct {
	store store.Store
	loc   *time.Location
	l     logger.Logger
	now   func() time.Time
}

func NewHistoryService(st store.Store, loc *time.Location, l logger.Logger) *HistoryService {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryService{store: st, loc: loc, l: l, now: time.Now}
}

// List returns filtered history with its summary.
func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]models.QueueHistory, models.HistorySummary, error) {
	now := s.now()
	var q store.Query
	if from, _ := f.Range.bounds(now, s.loc); !from.IsZero() {
		q.Filters = append(q.Filters, store.Gte("completionTime", millis(from)))
	}
	if f.Desk != models.DeskNone {
		q.Filters = append(q.Filters, store.Eq("desk", string(f.Desk)))
	}
	docs, err := s.store.Query(ctx, store.CollectionHistory, q)
	if err != nil {
		return nil, models.HistorySummary{}, fmt.Errorf("load history: %w", err)
	}
	records := make([]models.QueueHistory, 0, len(docs))
	for _, d := range docs {
		records = append(records, decodeHistory(d))
	}
	records = FilterHistory(records, f, now, s.loc)
	return records, SummarizeHistory(records), nil
}

func (s *HistoryService) Update(ctx context.Context, id string, patch HistoryPatch) (models.QueueHistory, error) {
	fields, err := patch.fields(s.loc)
	if err != nil {
		return models.QueueHistory{}, err
	}
	if len(fields) > 0 {
		if err := s.store.Update(ctx, store.CollectionHistory, id, fields); err != nil {
			return models.QueueHistory{}, fmt.Errorf("update history %s: %w", id, err)
		}
	}
	doc, err := s.store.Get(ctx, store.CollectionHistory, id)
	if err != nil {
		return models.QueueHistory{}, fmt.Errorf("read history %s: %w", id, err)
	}
	return decodeHistory(doc), nil
}

// DeleteMany removes the given history records and reports how many were
// deleted. Every id is attempted; the returned error joins the failures.
func (s *HistoryService) DeleteMany(ctx context.Context, ids []string) (int, error) {
	var (
		mu      sync.Mutex
		deleted int
		errs    []error
	)
	var g errgroup.Group
	g.SetLimit(8)
	for _, id := range ids {
		g.Go(func() error {
			err := s.store.Delete(ctx, store.CollectionHistory, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			deleted++
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		s.l.Errorf(ctx, "services.HistoryService.DeleteMany: %d of %d failed", len(errs), len(ids))
	}
	return deleted, errors.Join(errs...)
}
