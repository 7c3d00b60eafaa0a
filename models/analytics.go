package models

import (
	"errors"
	"fmt"
	"time"
)

// DateRange is an inclusive range of calendar days in YYYY-MM-DD form.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Bounds resolves the range to the half-open interval [start, end+1 day)
// in loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	from, err := time.ParseInLocation(DateLayout, r.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", r.Start, err)
	}
	to, err := time.ParseInLocation(DateLayout, r.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", r.End, err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("end date is before start date")
	}
	return from, to.AddDate(0, 0, 1), nil
}

type DailyStat struct {
	Count      int `json:"count"`
	AvgWait    int `json:"avgWait"`
	AvgService int `json:"avgService"`
}

type HourlyStat struct {
	Count   int `json:"count"`
	AvgWait int `json:"avgWait"`
}

type PeakHour struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type LongestWait struct {
	Name     string `json:"name"`
	WaitTime int    `json:"waitTime"`
	Date     string `json:"date"`
}

type BusiestDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Analytics struct {
	TotalJobs          int                   `json:"totalJobs"`
	AverageWaitTime    int                   `json:"averageWaitTime"`
	AverageServiceTime int                   `json:"averageServiceTime"`
	JobsByDesk         map[Desk]int          `json:"jobsByDesk"`
	DailyStats         map[string]DailyStat  `json:"dailyStats"`
	HourlyStats        map[string]HourlyStat `json:"hourlyStats"`
	PeakHours          []PeakHour            `json:"peakHours"`
	LongestWait        LongestWait           `json:"longestWait"`
	BusiestDay         BusiestDay            `json:"busiestDay"`
}
