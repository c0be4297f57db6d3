package planner

import (
	"fmt"
	"time"

	"github.com/planwise/calendar-agent/internal/model"
)

// Wire format of the backend: millisecond-precision UTC timestamps.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type dateTime time.Time

func (t dateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(dateTimeFormat) + `"`), nil
}

func (t *dateTime) UnmarshalJSON(data []byte) error {
	parsed, err := time.Parse(`"`+dateTimeFormat+`"`, string(data))
	if err != nil {
		return fmt.Errorf("invalid time format: %w", err)
	}
	*t = dateTime(parsed)
	return nil
}

type eventResp struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Start           dateTime  `json:"start"`
	End             *dateTime `json:"end,omitempty"`
	AllDay          bool      `json:"all_day"`
	Category        int       `json:"category"`
	Scope           string    `json:"scope"`
	ReminderMinutes *int      `json:"reminder_minutes,omitempty"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       dateTime  `json:"created_at"`
	UpdatedAt       dateTime  `json:"updated_at"`
}

type eventReq struct {
	Title           string    `json:"title"`
	Start           dateTime  `json:"start"`
	End             *dateTime `json:"end,omitempty"`
	AllDay          bool      `json:"all_day"`
	Category        int       `json:"category"`
	Scope           string    `json:"scope"`
	ReminderMinutes *int      `json:"reminder_minutes,omitempty"`
}

func mapToEvent(resp *eventResp) (*model.Event, error) {
	var end *time.Time
	if resp.End != nil {
		t := time.Time(*resp.End)
		end = &t
	}

	return &model.Event{
		ID:              resp.ID,
		CreatedByUserID: resp.CreatedBy,
		CreatedAt:       time.Time(resp.CreatedAt),
		UpdatedAt:       time.Time(resp.UpdatedAt),
		Editable:        true,
		EventCreate: model.EventCreate{
			Title:           resp.Title,
			Start:           time.Time(resp.Start),
			End:             end,
			AllDay:          resp.AllDay,
			Category:        model.Category(resp.Category),
			Scope:           model.Scope(resp.Scope),
			ReminderMinutes: resp.ReminderMinutes,
		},
	}, nil
}

func mapFromEventCreate(info *model.EventCreate) *eventReq {
	var end *dateTime
	if info.End != nil {
		t := dateTime(*info.End)
		end = &t
	}

	return &eventReq{
		Title:           info.Title,
		Start:           dateTime(info.Start),
		End:             end,
		AllDay:          info.AllDay,
		Category:        int(info.Category),
		Scope:           string(info.Scope),
		ReminderMinutes: info.ReminderMinutes,
	}
}

func mapFromEventUpdate(info *model.EventUpdate) *eventReq {
	var end *dateTime
	if info.End != nil {
		t := dateTime(*info.End)
		end = &t
	}

	return &eventReq{
		Title:           info.Title,
		Start:           dateTime(info.Start),
		End:             end,
		AllDay:          info.AllDay,
		Category:        int(info.Category),
		Scope:           string(info.Scope),
		ReminderMinutes: info.ReminderMinutes,
	}
}

func mapSlice[A any, B any](from []A, mapFn func(A) (B, error)) ([]B, error) {
	res := make([]B, len(from))
	for i, el := range from {
		var err error
		res[i], err = mapFn(el)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}
