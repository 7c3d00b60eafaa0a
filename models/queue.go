package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a queue entry.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusServing   Status = "serving"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusServing, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether an entry may move from s to next.
// Entries only move forward one step at a time.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusServing
	case StatusServing:
		return next == StatusCompleted
	}
	return false
}

// Rank orders entries for the admin listing: serving first, then waiting, then completed.
func (s Status) Rank() int {
	switch s {
	case StatusServing:
		return 0
	case StatusWaiting:
		return 1
	case StatusCompleted:
		return 2
	}
	return 3
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Desk is one of the two service stations. DeskNone marks an entry that
// has not been called yet.
type Desk string

const (
	DeskNone Desk = ""
	Desk1    Desk = "desk1"
	Desk2    Desk = "desk2"
)

func AllDesks() []Desk {
	return []Desk{Desk1, Desk2}
}

func (d Desk) Valid() bool {
	return d == Desk1 || d == Desk2
}

func (d Desk) Label() string {
	switch d {
	case Desk1:
		return "Desk 1"
	case Desk2:
		return "Desk 2"
	}
	return "Unassigned"
}

func ParseDesk(v string) (Desk, error) {
	d := Desk(v)
	if !d.Valid() {
		return DeskNone, fmt.Errorf("unknown desk %q", v)
	}
	return d, nil
}

type QueueEntry struct {
	ID               string     `json:"id"`
	QueueNumber      int        `json:"queueNumber"`
	Name             string     `json:"name"`
	StudentID        string     `json:"studentId"`
	Status           Status     `json:"status"`
	Desk             Desk       `json:"desk,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
	ServiceStartTime *time.Time `json:"serviceStartTime,omitempty"`
	CompletionTime   *time.Time `json:"completionTime,omitempty"`
	WaitTime         int        `json:"waitTime"`
}

// Consistent reports whether the desk assignment matches the status.
func (e QueueEntry) Consistent() bool {
	if e.Status == StatusWaiting {
		return e.Desk == DeskNone
	}
	return e.Desk.Valid()
}

type QueueStats struct {
	CurrentQueueLength int `json:"currentQueueLength"`
	AverageWaitTime    int `json:"averageWaitTime"`
	TotalServed        int `json:"totalServed"`
}

// MinutesBetween returns the whole minutes from start to end, rounded half
// up. Negative intervals count as zero.
func MinutesBetween(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(ms).Div(decimal.NewFromInt(60000)).Round(0).IntPart())
}

// RoundedMean is sum/n rounded half up, or 0 when n is 0.
func RoundedMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart())
}
