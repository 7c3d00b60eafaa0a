package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"printqueue/models"
)

// QueueView is everything the presentation layer derives from one snapshot
// of the live queue. It is built once per snapshot and treated as immutable.
type QueueView struct {
	Version   uint64                             `json:"version"`
	UpdatedAt time.Time                          `json:"updatedAt"`
	Entries   []models.QueueEntry                `json:"entries"`
	Waiting   []models.QueueEntry                `json:"waiting"`
	Serving   map[models.Desk]*models.QueueEntry `json:"serving"`
	Stats     models.QueueStats                  `json:"stats"`
	// EstimatedWait is the wait in minutes quoted to a new arrival.
	EstimatedWait int `json:"estimatedWait"`
}

func buildView(version uint64, entries []models.QueueEntry, now time.Time) QueueView {
	v := QueueView{
		Version:   version,
		UpdatedAt: now,
		Entries:   entries,
		Waiting:   make([]models.QueueEntry, 0),
		Serving:   make(map[models.Desk]*models.QueueEntry, len(models.AllDesks())),
	}
	for _, d := range models.AllDesks() {
		v.Serving[d] = nil
	}
	for i := range entries {
		e := entries[i]
		switch {
		case e.Status == models.StatusWaiting && e.Desk == models.DeskNone:
			v.Waiting = append(v.Waiting, e)
		case e.Status == models.StatusServing && e.Desk.Valid():
			if v.Serving[e.Desk] == nil {
				v.Serving[e.Desk] = &e
			}
		}
	}
	v.Stats = ComputeStats(entries)
	v.EstimatedWait = EstimatedWaitMinutes(len(v.Waiting))
	return v
}

// ComputeStats derives the live queue counters from a snapshot.
func ComputeStats(entries []models.QueueEntry) models.QueueStats {
	var stats models.QueueStats
	waitSum := 0
	for _, e := range entries {
		switch e.Status {
		case models.StatusWaiting:
			stats.CurrentQueueLength++
		case models.StatusCompleted:
			stats.TotalServed++
			waitSum += e.WaitTime
		}
	}
	stats.AverageWaitTime = models.RoundedMean(waitSum, stats.TotalServed)
	return stats
}

// EstimatedWaitMinutes quotes five minutes per waiting entry, clamped to
// [5, 30].
func EstimatedWaitMinutes(waiting int) int {
	return max(5, min(30, waiting*5))
}

// DisplayState is what the TV screen renders.
type DisplayState struct {
	Serving       map[models.Desk]*models.QueueEntry `json:"serving"`
	Waiting       []models.QueueEntry                `json:"waiting"`
	WaitingCount  int                                `json:"waitingCount"`
	Stats         models.QueueStats                  `json:"stats"`
	EstimatedWait int                                `json:"estimatedWait"`
	UpdatedAt     time.Time                          `json:"updatedAt"`
}

// Display trims the view to the first limit waiting entries.
func (v QueueView) Display(limit int) DisplayState {
	waiting := v.Waiting
	if limit > 0 && len(waiting) > limit {
		waiting = waiting[:limit]
	}
	return DisplayState{
		Serving:       v.Serving,
		Waiting:       waiting,
		WaitingCount:  len(v.Waiting),
		Stats:         v.Stats,
		EstimatedWait: v.EstimatedWait,
		UpdatedAt:     v.UpdatedAt,
	}
}

// Position returns the 1-based place of a waiting entry, or 0.
func (v QueueView) Position(id string) int {
	for i, e := range v.Waiting {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

type QueueListFilter struct {
	Search string
	Status models.Status
	Desk   models.Desk
}

// List filters the view for the admin queue table. Results are ordered
// serving, waiting, completed and then by queue number.
func (v QueueView) List(f QueueListFilter) []models.QueueEntry {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.QueueEntry, 0, len(v.Entries))
	for _, e := range v.Entries {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Desk != models.DeskNone && e.Desk != f.Desk {
			continue
		}
		if search != "" && !matchesSearch(search, e.Name, e.StudentID, e.QueueNumber) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Status.Rank(), out[j].Status.Rank(); ri != rj {
			return ri < rj
		}
		return out[i].QueueNumber < out[j].QueueNumber
	})
	return out
}

// matchesSearch expects search to be lower-cased already.
func matchesSearch(search, name, studentID string, number int) bool {
	return strings.Contains(strings.ToLower(name), search) ||
		strings.Contains(strings.ToLower(studentID), search) ||
		strings.Contains(strconv.Itoa(number), search)
}
