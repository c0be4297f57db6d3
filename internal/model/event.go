package model

import "time"

type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeCompany  Scope = "company"
)

// ViewMode selects which events the backend returns for a range. The server
// is the authority on visibility; the client only passes the mode through.
type ViewMode string

const (
	ViewModePersonal ViewMode = "personal"
	ViewModeCompany  ViewMode = "company"
	ViewModeAll      ViewMode = "all"
)

type Category int

const (
	CategoryDefault Category = iota
	CategoryMeeting
	CategoryTask
	CategoryCall
	CategoryTrip
	CategoryHoliday
)

type EventCreate struct {
	Title           string
	Start           time.Time
	End             *time.Time
	AllDay          bool
	Category        Category
	Scope           Scope
	ReminderMinutes *int
}

type Event struct {
	ID              string
	CreatedByUserID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Editable is false for availability projections of other users'
	// calendars. Such items are display-only and never persisted locally.
	Editable bool

	EventCreate
}

type EventUpdate struct {
	Title           string
	Start           time.Time
	End             *time.Time
	AllDay          bool
	Category        Category
	Scope           Scope
	ReminderMinutes *int
}

// Range is a half-open [From, To) time interval.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}
