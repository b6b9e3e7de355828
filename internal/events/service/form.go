package service

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"ms-events/internal/models"

	"github.com/go-playground/validator/v10"
)

// Form field names accepted on create and edit.
const (
	FieldName       = "name"
	FieldMinimumAge = "minimum_age"
	FieldDate       = "date"
	FieldTime       = "time"
	FieldPostalCode = "postal_code"
	FieldStateCode  = "state_code"
	FieldCity       = "city"
	FieldVenue      = "venue"
)

// EventForm is the wire representation of an event as submitted by the
// create and edit pages. Values are kept exactly as submitted.
type EventForm struct {
	Name       string `form:"name" validate:"required,max=200"`
	MinimumAge string `form:"minimum_age"`
	Date       string `form:"date" validate:"required,datetime=2006-01-02"`
	Time       string `form:"time" validate:"omitempty,datetime=15:04"`
	PostalCode string `form:"postal_code" validate:"max=20"`
	StateCode  string `form:"state_code" validate:"max=2"`
	City       string `form:"city" validate:"max=100"`
	Venue      string `form:"venue" validate:"max=200"`
}

// ValidationError lists every form field that failed to parse, keyed by
// form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FormFromValues reads an EventForm out of submitted form values. Missing
// keys become empty strings.
func FormFromValues(values url.Values) EventForm {
	return EventForm{
		Name:       values.Get(FieldName),
		MinimumAge: values.Get(FieldMinimumAge),
		Date:       values.Get(FieldDate),
		Time:       values.Get(FieldTime),
		PostalCode: values.Get(FieldPostalCode),
		StateCode:  values.Get(FieldStateCode),
		City:       values.Get(FieldCity),
		Venue:      values.Get(FieldVenue),
	}
}

// FormFromEvent renders a stored event back into form values, used to
// pre-fill the edit page.
func FormFromEvent(event models.Event) EventForm {
	form := EventForm{
		Name:       event.Name,
		Date:       event.Date.String(),
		Time:       event.Time.String(),
		PostalCode: event.PostalCode,
		StateCode:  event.StateCode,
		City:       event.City,
		Venue:      event.Venue,
	}
	if event.MinimumAge != nil {
		form.MinimumAge = strconv.Itoa(*event.MinimumAge)
	}
	return form
}

// ToModel parses the form into an Event with no id. Every failing field
// is reported in a single *ValidationError.
func (f EventForm) ToModel() (models.Event, error) {
	problems := make(map[string]string)

	if err := validate.Struct(f); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return models.Event{}, err
		}
		for _, fe := range fieldErrs {
			problems[fe.Field()] = describe(fe)
		}
	}

	event := models.Event{
		Name:       f.Name,
		PostalCode: f.PostalCode,
		StateCode:  f.StateCode,
		City:       f.City,
		Venue:      f.Venue,
	}

	if f.MinimumAge != "" {
		age, err := strconv.Atoi(f.MinimumAge)
		if err != nil {
			problems[FieldMinimumAge] = "must be a whole number"
		} else {
			event.MinimumAge = &age
		}
	}

	if _, failed := problems[FieldDate]; !failed {
		date, err := models.ParseDate(f.Date)
		if err != nil {
			problems[FieldDate] = "must be a valid date (YYYY-MM-DD)"
		} else {
			event.Date = date
		}
	}

	if _, failed := problems[FieldTime]; !failed && f.Time != "" {
		clock, err := models.ParseClock(f.Time)
		if err != nil {
			problems[FieldTime] = "must be a valid time (HH:MM)"
		} else {
			event.Time = clock
		}
	}

	if len(problems) > 0 {
		return models.Event{}, &ValidationError{Fields: problems}
	}
	return event, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		if fe.Field() == FieldTime {
			return "must be a valid time (HH:MM)"
		}
		return "must be a valid date (YYYY-MM-DD)"
	default:
		return "is invalid"
	}
}
