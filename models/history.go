package models

import "time"

// DateLayout is the calendar-day key used by history records and analytics.
const DateLayout = "2006-01-02"

// QueueHistory is the archived copy of a completed entry.
type QueueHistory struct {
	ID             string    `json:"id"`
	QueueNumber    int       `json:"queueNumber"`
	Name           string    `json:"name"`
	StudentID      string    `json:"studentId"`
	Desk           Desk      `json:"desk"`
	StartTime      time.Time `json:"startTime"`
	CompletionTime time.Time `json:"completionTime"`
	WaitTime       int       `json:"waitTime"`
	ServiceTime    int       `json:"serviceTime"`
	Date           string    `json:"date"`
}

// HistorySummary aggregates a filtered set of history records.
type HistorySummary struct {
	TotalJobs        int `json:"totalJobs"`
	TotalWaitTime    int `json:"totalWaitTime"`
	TotalServiceTime int `json:"totalServiceTime"`
	AvgWaitTime      int `json:"avgWaitTime"`
	AvgServiceTime   int `json:"avgServiceTime"`
	LongestWait      int `json:"longestWait"`
	ShortestWait     int `json:"shortestWait"`
}
