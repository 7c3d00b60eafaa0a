package services

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"printqueue/internal/store"
	"printqueue/models"
)

// Times are persisted as Unix milliseconds.

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func timeField(f store.Fields, key string) time.Time {
	v, ok := f[key]
	if !ok || v == nil {
		return time.Time{}
	}
	ms := cast.ToInt64(v)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func optionalTime(f store.Fields, key string) *time.Time {
	t := timeField(f, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func decodeEntry(d store.Document) (models.QueueEntry, error) {
	st, err := models.ParseStatus(cast.ToString(d.Fields["status"]))
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("queue entry %s: %w", d.ID, err)
	}
	e := models.QueueEntry{
		ID:               d.ID,
		QueueNumber:      cast.ToInt(d.Fields["queueNumber"]),
		Name:             cast.ToString(d.Fields["name"]),
		StudentID:        cast.ToString(d.Fields["studentId"]),
		Status:           st,
		Desk:             models.Desk(cast.ToString(d.Fields["desk"])),
		Timestamp:        timeField(d.Fields, "timestamp"),
		ServiceStartTime: optionalTime(d.Fields, "serviceStartTime"),
		CompletionTime:   optionalTime(d.Fields, "completionTime"),
		WaitTime:         cast.ToInt(d.Fields["waitTime"]),
	}
	return e, nil
}

func entryFields(e models.QueueEntry) store.Fields {
	return store.Fields{
		"queueNumber": e.QueueNumber,
		"name":        e.Name,
		"studentId":   e.StudentID,
		"status":      string(e.Status),
		"desk":        string(e.Desk),
		"timestamp":   millis(e.Timestamp),
	}
}

func decodeHistory(d store.Document) models.QueueHistory {
	return models.QueueHistory{
		ID:             d.ID,
		QueueNumber:    cast.ToInt(d.Fields["queueNumber"]),
		Name:           cast.ToString(d.Fields["name"]),
		StudentID:      cast.ToString(d.Fields["studentId"]),
		Desk:           models.Desk(cast.ToString(d.Fields["desk"])),
		StartTime:      timeField(d.Fields, "startTime"),
		CompletionTime: timeField(d.Fields, "completionTime"),
		WaitTime:       cast.ToInt(d.Fields["waitTime"]),
		ServiceTime:    cast.ToInt(d.Fields["serviceTime"]),
		Date:           cast.ToString(d.Fields["date"]),
	}
}

func historyFields(h models.QueueHistory) store.Fields {
	return store.Fields{
		"queueNumber":    h.QueueNumber,
		"name":           h.Name,
		"studentId":      h.StudentID,
		"desk":           string(h.Desk),
		"startTime":      millis(h.StartTime),
		"completionTime": millis(h.CompletionTime),
		"waitTime":       h.WaitTime,
		"serviceTime":    h.ServiceTime,
		"date":           h.Date,
	}
}

func decodeUser(d store.Document) models.User {
	return models.User{
		ID:           d.ID,
		Email:        cast.ToString(d.Fields["email"]),
		Role:         models.Role(cast.ToString(d.Fields["role"])),
		CreatedAt:    timeField(d.Fields, "createdAt"),
		CreatedBy:    cast.ToString(d.Fields["createdBy"]),
		IsFirstLogin: cast.ToBool(d.Fields["isFirstLogin"]),
		IsActive:     cast.ToBool(d.Fields["isActive"]),
		LastLoginAt:  optionalTime(d.Fields, "lastLoginAt"),
	}
}
