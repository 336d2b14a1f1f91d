package catalog

import "time"

// Offering is a bookable service published by a stylist. Price is in minor
// units; Slots are the start times the stylist accepts, formatted "15:04".
type Offering struct {
	ID          string
	StylistID   string
	StylistName string
	Name        string
	Price       int64
	DurationMin int
	Slots       []string
	Active      bool
	CreatedAt   time.Time
}

// OffersSlot reports whether the offering accepts the given start time.
func (o Offering) OffersSlot(slot string) bool {
	for _, s := range o.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
