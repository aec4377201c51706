package models

import (
	"sort"
	"time"
)

// FeedingType is the kind of feeding being logged
type FeedingType string

const (
	FeedingBreast FeedingType = "breast"
	FeedingBottle FeedingType = "bottle"
	FeedingSolids FeedingType = "solids"
)

// FeedingTypes lists the accepted feeding types in display order
var FeedingTypes = []FeedingType{FeedingBreast, FeedingBottle, FeedingSolids}

// Valid reports whether t is one of the known feeding types
func (t FeedingType) Valid() bool {
	switch t {
	case FeedingBreast, FeedingBottle, FeedingSolids:
		return true
	}
	return false
}

// Feeding is a single logged feeding. Only the amount field matching
// FeedingType is set: BreastDuration (minutes), BottleAmount (ml) or
// SolidAmount (g).
type Feeding struct {
	ID             int64
	BabyID         int64
	UserID         int64
	Timestamp      time.Time
	FeedingType    FeedingType
	BreastDuration *int
	BottleAmount   *int
	SolidAmount    *int
	RecipeID       *int64

	// Populated via JOIN
	BabyName   string
	Username   string
	RecipeName string
}

// Changing is a logged nappy change
type Changing struct {
	ID         int64
	BabyID     int64
	Timestamp  time.Time
	WetNappy   bool
	PoopAmount *int
}

// Sleeping is a sleep period; EndTimestamp is nil while the baby is asleep
type Sleeping struct {
	ID             int64
	BabyID         int64
	StartTimestamp time.Time
	EndTimestamp   *time.Time
}

// Duration returns the sleep length, or zero if the sleep has not ended
func (s *Sleeping) Duration() time.Duration {
	if s.EndTimestamp == nil {
		return 0
	}
	return s.EndTimestamp.Sub(s.StartTimestamp)
}

// Note is free text about a baby, optionally annotating one event
type Note struct {
	ID         int64
	BabyID     int64
	Timestamp  time.Time
	Extra      string
	FeedingID  *int64
	ChangingID *int64
	SleepingID *int64
}

// SortFeedingsByTimeDesc orders feedings newest first. Timestamp is the only
// key; the relative order of equal timestamps is unspecified.
func SortFeedingsByTimeDesc(feedings []Feeding) {
	sort.Slice(feedings, func(i, j int) bool {
		return feedings[i].Timestamp.After(feedings[j].Timestamp)
	})
}

// DailyCount is the number of feedings on one calendar day
type DailyCount struct {
	Label string
	Count int
}

// CountFeedingsPerDay buckets feedings into the `days` calendar days ending
// on today (inclusive), oldest first. Days without feedings count zero and
// feedings outside the window are ignored.
func CountFeedingsPerDay(feedings []Feeding, today time.Time, days int) []DailyCount {
	loc := today.Location()
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int, days)
	for _, f := range feedings {
		ts := f.Timestamp.In(loc)
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		counts[day.Format("2006-01-02")]++
	}

	result := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		label := start.AddDate(0, 0, i).Format("2006-01-02")
		result = append(result, DailyCount{Label: label, Count: counts[label]})
	}
	return result
}
