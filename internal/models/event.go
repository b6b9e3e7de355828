package models

import (
	"github.com/uptrace/bun"
)

// Event is a registrable event with its schedule and location.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	MinimumAge *int   `bun:"minimum_age" json:"minimum_age"`
	Date       Date   `bun:"date,notnull" json:"date"`
	Time       Clock  `bun:"time" json:"time"`
	PostalCode string `bun:"postal_code" json:"postal_code"`
	StateCode  string `bun:"state_code" json:"state_code"`
	City       string `bun:"city" json:"city"`
	Venue      string `bun:"venue" json:"venue"`
}
