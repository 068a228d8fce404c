package cron

import (
	"fmt"
	"time"
)

// Schedule decides when a job fires next.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// DailyAt fires once per day at the given UTC wall-clock time. Hour and
// minute outside their valid ranges panic, since schedules are wired at
// startup and a bad one is a programming error.
func DailyAt(hour, minute int) Schedule {
	if hour < 0 || hour > 23 {
		panic(fmt.Sprintf("cron: hour out of range: %d", hour))
	}
	if minute < 0 || minute > 59 {
		panic(fmt.Sprintf("cron: minute out of range: %d", minute))
	}
	return dailySchedule{hour: hour, minute: minute}
}

type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	from = from.UTC()
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", s.hour, s.minute)
}

// Every fires at a fixed interval, measured from the end of the
// previous run. Non-positive intervals panic.
func Every(interval time.Duration) Schedule {
	if interval <= 0 {
		panic(fmt.Sprintf("cron: non-positive interval: %v", interval))
	}
	return intervalSchedule{every: interval}
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}
