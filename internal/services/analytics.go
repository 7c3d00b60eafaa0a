package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"printqueue/internal/status"
	"printqueue/internal/store"
	"printqueue/models"
)

const peakHourCount = 5

type bucket struct {
	count      int
	waitSum    int
	serviceSum int
}

// ComputeAnalytics aggregates the history records completed inside r.
// Day and hour buckets use loc.
func ComputeAnalytics(records []models.QueueHistory, r models.DateRange, loc *time.Location) (models.Analytics, error) {
	if loc == nil {
		loc = time.Local
	}
	from, to, err := r.Bounds(loc)
	if err != nil {
		return models.Analytics{}, fmt.Errorf("%w: %v", status.ErrInvalidRange, err)
	}

	out := models.Analytics{
		JobsByDesk:  make(map[models.Desk]int, len(models.AllDesks())),
		DailyStats:  make(map[string]models.DailyStat),
		HourlyStats: make(map[string]models.HourlyStat),
		PeakHours:   make([]models.PeakHour, 0, peakHourCount),
	}
	for _, d := range models.AllDesks() {
		out.JobsByDesk[d] = 0
	}

	days := make(map[string]*bucket)
	hours := make(map[string]*bucket)
	var waitSum, serviceSum int

	for _, h := range records {
		if h.CompletionTime.Before(from) || !h.CompletionTime.Before(to) {
			continue
		}
		local := h.CompletionTime.In(loc)
		day := local.Format(models.DateLayout)
		hour := fmt.Sprintf("%02d:00", local.Hour())

		out.TotalJobs++
		waitSum += h.WaitTime
		serviceSum += h.ServiceTime
		if h.Desk != models.DeskNone {
			out.JobsByDesk[h.Desk]++
		}

		db := days[day]
		if db == nil {
			db = &bucket{}
			days[day] = db
		}
		db.count++
		db.waitSum += h.WaitTime
		db.serviceSum += h.ServiceTime

		hb := hours[hour]
		if hb == nil {
			hb = &bucket{}
			hours[hour] = hb
		}
		hb.count++
		hb.waitSum += h.WaitTime

		if out.TotalJobs == 1 || h.WaitTime > out.LongestWait.WaitTime {
			out.LongestWait = models.LongestWait{Name: h.Name, WaitTime: h.WaitTime, Date: day}
		}
	}

	out.AverageWaitTime = models.RoundedMean(waitSum, out.TotalJobs)
	out.AverageServiceTime = models.RoundedMean(serviceSum, out.TotalJobs)

	for day, b := range days {
		out.DailyStats[day] = models.DailyStat{
			Count:      b.count,
			AvgWait:    models.RoundedMean(b.waitSum, b.count),
			AvgService: models.RoundedMean(b.serviceSum, b.count),
		}
		if b.count > out.BusiestDay.Count || b.count == out.BusiestDay.Count && day < out.BusiestDay.Date {
			out.BusiestDay = models.BusiestDay{Date: day, Count: b.count}
		}
	}

	for hour, b := range hours {
		out.HourlyStats[hour] = models.HourlyStat{Count: b.count, AvgWait: models.RoundedMean(b.waitSum, b.count)}
		out.PeakHours = append(out.PeakHours, models.PeakHour{Hour: hour, Count: b.count})
	}
	sort.Slice(out.PeakHours, func(i, j int) bool {
		if out.PeakHours[i].Count != out.PeakHours[j].Count {
			return out.PeakHours[i].Count > out.PeakHours[j].Count
		}
		return out.PeakHours[i].Hour < out.PeakHours[j].Hour
	})
	if len(out.PeakHours) > peakHourCount {
		out.PeakHours = out.PeakHours[:peakHourCount]
	}
	return out, nil
}

type AnalyticsService struct {
	store store.Store
	loc   *time.Location
}

func NewAnalyticsService(st store.Store, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{store: st, loc: loc}
}

// Analytics loads the history completed inside r and aggregates it.
func (s *AnalyticsService) Analytics(ctx context.Context, r models.DateRange) (models.Analytics, error) {
	from, to, err := r.Bounds(s.loc)
	if err != nil {
		return models.Analytics{}, fmt.Errorf("%w: %v", status.ErrInvalidRange, err)
	}
	docs, err := s.store.Query(ctx, store.CollectionHistory, store.Query{
		Filters: []store.Filter{store.Gte("completionTime", millis(from)), store.Lt("completionTime", millis(to))},
		OrderBy: []store.Order{store.Asc("completionTime")},
	})
	if err != nil {
		return models.Analytics{}, fmt.Errorf("load history: %w", err)
	}
	records := make([]models.QueueHistory, 0, len(docs))
	for _, d := range docs {
		records = append(records, decodeHistory(d))
	}
	return ComputeAnalytics(records, r, s.loc)
}
